// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrUnknownEntity   = errors.New("unknown entity kind")
	ErrUnknownField    = errors.New("unknown field")
	ErrNothingToUpdate = errors.New("nothing to update")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrRateLimited    = errors.New("rate limited")

	// Validation errors raised before a write reaches storage.
	ErrValidation = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
