// Package apperr defines the failure kinds every core operation reports.
package apperr

import (
	"errors"
	"time"
)

type Kind int

const (
	Internal Kind = iota
	InvalidInput
	Conflict
	InvalidCredentials
	RateLimited
	Unauthenticated
	Forbidden
	NotFound
	InvalidTransition
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "INVALID_INPUT"
	case Conflict:
		return "CONFLICT"
	case InvalidCredentials:
		return "INVALID_CREDENTIALS"
	case RateLimited:
		return "RATE_LIMITED"
	case Unauthenticated:
		return "UNAUTHENTICATED"
	case Forbidden:
		return "FORBIDDEN"
	case NotFound:
		return "NOT_FOUND"
	case InvalidTransition:
		return "INVALID_TRANSITION"
	default:
		return "INTERNAL"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
	// RetryAfter is set on RateLimited errors.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
