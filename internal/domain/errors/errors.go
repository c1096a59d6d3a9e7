// File: internal/domain/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	// User errors. ErrInvalidUser deliberately covers both "not found" and
	// "malformed" so handlers cannot leak which one happened.
	ErrInvalidUser = errors.New("invalid user")
	ErrUserExists  = errors.New("user already exists")

	// SRP handshake errors.
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrAuthSession       = errors.New("auth session missing or expired")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")

	// MFA errors.
	ErrMFAIncorrectCode    = errors.New("incorrect mfa code")
	ErrMFAAlreadyConfirmed = errors.New("mfa already confirmed")
	ErrMFANotConfirmed     = errors.New("mfa not confirmed")
)

// TokenValidationError wraps ErrInvalidToken with the internal reason the
// token was rejected. The reason is for logs only and must never be written
// to a client response.
type TokenValidationError struct {
	Reason string
}

func (e *TokenValidationError) Error() string {
	if e.Reason == "" {
		return "invalid token"
	}
	return fmt.Sprintf("invalid token: %s", e.Reason)
}

func (e *TokenValidationError) Unwrap() error {
	return ErrInvalidToken
}

// NewTokenValidationError creates a TokenValidationError with the given reason.
func NewTokenValidationError(format string, args ...any) *TokenValidationError {
	return &TokenValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsUnauthorized reports whether err should map to a 401-style response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrIncorrectPassword) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrAuthSession)
}

// IsBadRequest reports whether err should map to a 400-style response.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrInvalidUser) ||
		errors.Is(err, ErrUserExists) ||
		errors.Is(err, ErrMFAIncorrectCode) ||
		errors.Is(err, ErrMFAAlreadyConfirmed) ||
		errors.Is(err, ErrMFANotConfirmed)
}
