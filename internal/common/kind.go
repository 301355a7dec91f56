package common

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so that a boundary layer can choose a
// transport-level status without knowing the cause.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindConflict
	KindNotFound
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is a classified error. Message is safe to show to the caller;
// Err carries the underlying cause and is only meant for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func BadRequest(msg string) error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Internal wraps err as an internal failure. The caller-facing message is
// always the generic "internal error".
func Internal(err error) error {
	return &Error{Kind: KindInternal, Message: ErrorInternal.Error(), Err: err}
}

// KindOf reports the Kind of err. Errors that were never classified are
// internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrorInternal.Error()
}
