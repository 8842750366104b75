package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-media-share/internal/model"
	"go-media-share/pkg/apierror"
)

func writeSuccess[T any](w http.ResponseWriter, status int, message string, data T, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.Envelope[T]{
		StatusCode: status,
		Message:    message,
		Data:       data,
		Meta:       meta,
		Timestamp:  model.Timestamp(time.Now()),
	})
}

func writeError(w http.ResponseWriter, err error) {
	status, code, message, details := classifyError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorEnvelope(status, code, message, details))
}

func classifyError(err error) (int, string, string, string) {
	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.HTTPStatus, apiErr.Code, apiErr.Message, apiErr.Details
	case errors.Is(err, model.ErrUserNotFound):
		return http.StatusNotFound, "NOT_FOUND", "User not found", ""
	case errors.Is(err, model.ErrDuplicateEmail):
		return http.StatusConflict, "ALREADY_EXISTS", "Email already registered", ""
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials", ""
	case errors.Is(err, model.ErrWrongTokenType):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Wrong token type", ""
	case errors.Is(err, model.ErrInvalidToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token", ""
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", ""
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "Access denied", ""
	case errors.Is(err, model.ErrMediaNotFound):
		return http.StatusNotFound, "NOT_FOUND", "File not found", ""
	case errors.Is(err, model.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "File type is not allowed", ""
	case errors.Is(err, model.ErrPayloadTooLarge), isPayloadTooLarge(err):
		return http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body exceeds the upload limit", ""
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, "BAD_REQUEST", "Invalid input", ""
	default:
		slog.Error("unhandled error in writeError", "error", err.Error())
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error", ""
	}
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest)
	}
	return nil
}

func parseIntOrDefault(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}
