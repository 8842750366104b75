package handler

import (
	"context"
	"net/http"
	"time"
)

type pinger interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db pinger
}

func NewHealthHandler(db pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			writeSuccess(w, http.StatusServiceUnavailable, "database unavailable", healthStatus{Status: "degraded", Database: "down"}, nil)
			return
		}
	}

	writeSuccess(w, http.StatusOK, "ok", healthStatus{Status: "ok", Database: "up"}, nil)
}
