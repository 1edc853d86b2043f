package domain

import "errors"

var (
	// ErrValidation marks missing or blank required request fields.
	ErrValidation         = errors.New("validation failed")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrChannelNotFound    = errors.New("channel not found")

	// ErrInvalidToken covers every non-expiry token failure: bad signature,
	// malformed payload, unknown subject, and a refresh value that no longer
	// matches the stored one. Callers must treat it as terminal (401).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
