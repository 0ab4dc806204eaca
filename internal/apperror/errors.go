// Package apperror provides domain-specific error types for Healthify.
// These errors carry an HTTP status code and a user-safe message. The Echo
// error handler maps them to appropriate HTTP responses automatically.
//
// NEVER return raw database or infrastructure errors to the client. Always
// wrap them in an apperror type or return a generic internal error.
package apperror

import (
	"fmt"
	"net/http"
)

// AppError is the base error type for all domain errors. It carries an
// HTTP status code, a machine-readable error type, and a human-readable
// message safe to show to the client.
type AppError struct {
	// Code is the HTTP status code (e.g., 401, 400, 500).
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "unauthenticated").
	// Each failure kind keeps a stable type so clients can branch on it.
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
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

// --- Authentication failures (401 category) ---

// NewUnauthenticated creates a 401 error for requests with a missing,
// malformed, expired, or otherwise unverifiable bearer token.
func NewUnauthenticated(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    "unauthenticated",
		Message: message,
	}
}

// NewAccountDeactivated creates a 401 error for tokens that resolve to an
// account whose active flag has been cleared.
func NewAccountDeactivated() *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    "account_deactivated",
		Message: "Your account is not active, please contact an administrator.",
	}
}

// NewStaleToken creates a 401 error for structurally valid tokens issued
// before the account's most recent password change.
func NewStaleToken() *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    "stale_token",
		Message: "Your password changed recently, please log in again.",
	}
}

// NewInvalidCredentials creates a 401 error for a failed email/password
// login. The message never says which of the two was wrong.
func NewInvalidCredentials() *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    "invalid_credentials",
		Message: "Incorrect email or password.",
	}
}

// --- Authorization failures (403 category) ---

// NewForbidden creates a 403 error for role-gate rejections.
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:    http.StatusForbidden,
		Type:    "forbidden",
		Message: message,
	}
}

// --- Request failures (400/404/409 categories) ---

// NewValidation creates a 400 error for malformed or incomplete input.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    "validation_error",
		Message: message,
	}
}

// NewUnknownAccount creates a 404 error for a password-reset request naming
// an email with no account. Deliberately surfaced to the caller rather than
// silently ignored.
func NewUnknownAccount() *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    "unknown_account",
		Message: "No account exists with that email address.",
	}
}

// NewInvalidResetToken creates a 400 error for a reset redemption failure.
// Wrong token and expired token are intentionally indistinguishable.
func NewInvalidResetToken() *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    "invalid_or_expired_token",
		Message: "Reset token is invalid or has expired.",
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

// NewConflict creates a 409 Conflict error.
func NewConflict(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Type:    "conflict",
		Message: message,
	}
}

// NewBadRequest creates a 400 Bad Request error.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    "bad_request",
		Message: message,
	}
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "internal_error",
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}
