// Package common defines shared constants, sentinel errors and the error
// taxonomy used across the account service layers. Callers should use
// errors.Is to match sentinels and KindOf to classify failures.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrEmailTaken    = errors.New("email already taken")
	ErrNicknameTaken = errors.New("nickname already taken")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
