package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"concord/internal/domain"
	"concord/internal/store"
)

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto status codes. Anything unmapped is a
// 500 with a generic body; the chain only goes to the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTooManyRequests):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrGone):
		status = http.StatusGone
	case errors.Is(err, store.ErrChainCorrupt):
		status = http.StatusInternalServerError
	}

	msg := userMessage(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path), slog.String("error", msg))
		msg = "internal server error"
	} else {
		slog.DebugContext(r.Context(), "request rejected",
			slog.String("path", r.URL.Path), slog.Int("status", status), slog.String("error", msg))
	}
	writeJSON(w, status, errorBody{Message: msg})
}

// userMessage strips the sentinel prefix so the body carries the specific
// part of a wrapped error ("Already friends", not "bad request: Already
// friends").
func userMessage(err error) string {
	msg := err.Error()
	for _, s := range []error{
		domain.ErrBadRequest, domain.ErrUnauthorized, domain.ErrForbidden,
		domain.ErrNotFound, domain.ErrTooManyRequests, domain.ErrGone,
	} {
		if errors.Is(err, s) {
			return strings.TrimPrefix(msg, s.Error()+": ")
		}
	}
	return msg
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrBadRequest
	}
	return nil
}
