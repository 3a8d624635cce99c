package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kalambet/docqa/internal/assistant"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// statusFor maps a task error to its HTTP status and error type.
func statusFor(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "invalid_request_error"
	case errors.Is(err, assistant.ErrNotFound):
		return http.StatusNotFound, "not_found_error"
	case errors.Is(err, assistant.ErrUnsupportedInput):
		return http.StatusUnsupportedMediaType, "unsupported_input_error"
	case errors.Is(err, assistant.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, assistant.ErrConsistency):
		return http.StatusInternalServerError, "consistency_error"
	case errors.Is(err, assistant.ErrIndex):
		if assistant.Retryable(err) {
			return http.StatusServiceUnavailable, "index_error"
		}
		return http.StatusBadGateway, "index_error"
	case errors.Is(err, assistant.ErrModel):
		if assistant.Retryable(err) {
			return http.StatusServiceUnavailable, "model_error"
		}
		return http.StatusBadGateway, "model_error"
	default:
		return http.StatusInternalServerError, "api_error"
	}
}

// writeError reports a task failure with msg, or err's own text when msg
// is empty.
func writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	code, errType := statusFor(err)
	if msg == "" {
		msg = err.Error()
	}
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", code, "error", err)
	}
	if assistant.Retryable(err) {
		w.Header().Set("Retry-After", "5")
	}
	httpError(w, code, errType, "%s", msg)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
