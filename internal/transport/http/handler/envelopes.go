package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/candidate-intake-api/internal/domain"
)

// Envelope is the generic response wrapper. Every endpoint answers with a
// success flag and a human-readable message; Field names the offending
// input on duplicate-field failures.
type Envelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Field     string      `json:"field,omitempty"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// PaginatedCandidatesEnvelope wraps paginated candidate list responses.
type PaginatedCandidatesEnvelope struct {
	Success    bool               `json:"success"`
	Data       []domain.Candidate `json:"data"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Success: false, Message: msg})
}

// httpError maps a domain error to an HTTP status and the error envelope,
// carrying along the field hint when one is attached.
func httpError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrCodeMismatch),
		errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotVerified), errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrDeliveryFailed):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrPersistence):
		status = http.StatusInternalServerError
	}

	env := Envelope{Success: false, Message: err.Error()}
	var fe *domain.FieldError
	if errors.As(err, &fe) {
		env.Field = fe.Field
	}
	writeJSON(w, status, env)
}
