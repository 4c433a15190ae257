package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fitnease/comms/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// CountEnvelope wraps responses whose payload is a single count.
type CountEnvelope struct {
	Count int `json:"count"`
}

// UnreadCountEnvelope wraps the badge-count response.
type UnreadCountEnvelope struct {
	UserID      string `json:"user_id"`
	UnreadCount int    `json:"unread_count"`
}

// PaginatedNotificationsEnvelope wraps paginated notification list responses.
type PaginatedNotificationsEnvelope struct {
	Page    int                   `json:"page"`
	PerPage int                   `json:"per_page"`
	Data    []domain.Notification `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors to HTTP status codes.
func httpError(w http.ResponseWriter, err error) {
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
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}
	writeError(w, status, err.Error())
}
