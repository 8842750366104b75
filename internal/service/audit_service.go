package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go-media-share/internal/event"
	"go-media-share/internal/model"
	"go-media-share/pkg/apierror"
)

// AuditService persists bus events and serves them back to admins.
type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

func (s *AuditService) Record(ctx context.Context, e event.Event) error {
	occurredAt := e.Timestamp
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	return s.store.Log(ctx, model.AuditEntry{
		Action:     string(e.Type),
		OccurredAt: occurredAt.UTC(),
		ActorID:    e.ActorID,
		Resource:   e.Resource,
		Details:    e.Payload,
	})
}

// Run records every event published on bus until ctx is cancelled.
func (s *AuditService) Run(ctx context.Context, bus event.Bus) {
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := s.Record(context.WithoutCancel(ctx), e); err != nil {
				slog.Error("failed to record audit entry", "type", e.Type, "error", err)
			}
		}
	}
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	query.Action = strings.ToLower(strings.TrimSpace(query.Action))
	query.ActorID = strings.TrimSpace(query.ActorID)

	if _, err := parseOptionalAuditTime(query.From); err != nil {
		return nil, model.Meta{}, apierror.New("BAD_REQUEST", "invalid 'from' datetime format", query.From, http.StatusBadRequest)
	}
	if _, err := parseOptionalAuditTime(query.To); err != nil {
		return nil, model.Meta{}, apierror.New("BAD_REQUEST", "invalid 'to' datetime format", query.To, http.StatusBadRequest)
	}

	return s.store.Query(ctx, query)
}

func parseOptionalAuditTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339, trimmed)
}
