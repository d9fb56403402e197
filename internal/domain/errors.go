package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrExpired        = errors.New("expired")
	ErrCodeMismatch   = errors.New("code mismatch")
	ErrNotVerified    = errors.New("not verified")
	ErrDeliveryFailed = errors.New("delivery failed")
	ErrPersistence    = errors.New("persistence failure")
)

// FieldError attaches the name of the offending input field to a wrapped
// domain error, so duplicate-field failures carry a hint the client can use
// to highlight the bad input.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

// DuplicateField builds the conflict error reported when a unique attribute
// (email, phone) is already taken by an existing candidate.
func DuplicateField(field, msg string) error {
	return &FieldError{Field: field, Err: fmt.Errorf("%s: %w", msg, ErrConflict)}
}
