// Package apperror defines the domain error type shared by all plugins.
// An AppError carries an HTTP status code and a client-safe message; the
// Echo error handler in internal/app maps it to a JSON response. Raw
// database or infrastructure errors never reach the client -- they ride
// along in Internal for logging only.
//
// The error taxonomy the session/authorization core cares about maps as:
// an unknown or expired session is unauthorized (401), a session id
// collision is a conflict (409), and an authorization denial is forbidden
// (403). The three stay distinct internally even though clients may treat
// 401 and 403 alike.
package apperror

import (
	"fmt"
	"net/http"
)

// AppError is the base error type for all domain errors.
type AppError struct {
	// Code is the HTTP status code.
	Code int `json:"-"`

	// Type is a machine-readable classifier (e.g. "unauthorized").
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// NewBadRequest creates a 400 Bad Request error.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    "bad_request",
		Message: message,
	}
}

// NewUnauthorized creates a 401 Unauthorized error. Used for missing,
// unknown, and expired sessions alike -- the message must not distinguish
// them.
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    "unauthorized",
		Message: message,
	}
}

// NewForbidden creates a 403 Forbidden error for authorization denials:
// the session resolved but the rights were insufficient.
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:    http.StatusForbidden,
		Type:    "forbidden",
		Message: message,
	}
}

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    "not_found",
		Message: message,
	}
}

// NewConflict creates a 409 Conflict error. Surfaced for duplicate
// usernames/emails and for session id collisions.
func NewConflict(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Type:    "conflict",
		Message: message,
	}
}

// NewValidation creates a 422 Unprocessable Entity error.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Type:    "validation_error",
		Message: message,
	}
}

// NewInternal creates a 500 Internal Server Error. The real error is kept
// in Internal for logging; the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "internal_error",
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}
