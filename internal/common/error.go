// Package common defines shared constants and sentinel errors used across
// the filekeeper server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenBlocked = blockedError{}

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)

// blockedError reports a revoked access token. It also matches ErrorForbidden.
type blockedError struct{}

func (blockedError) Error() string { return "token is blocked" }

func (blockedError) Is(target error) bool { return target == ErrorForbidden }

// ValidationError carries a user-facing message for malformed input.
type ValidationError struct {
	Message string
}

// NewValidationError returns a ValidationError with the given message.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string { return e.Message }

// Is reports ErrorValidation as a match so callers can use errors.Is.
func (e *ValidationError) Is(target error) bool { return target == ErrorValidation }
