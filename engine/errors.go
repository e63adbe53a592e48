package engine

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrUnknownProvider is returned for an unsupported engine provider name.
	ErrUnknownProvider = errors.New("unknown engine provider")

	// ErrOutputMismatch is returned when an engine returns the wrong number of matrices.
	ErrOutputMismatch = errors.New("engine output does not match input")
)

// Kind classifies engine failures.
type Kind int

const (
	// KindInternal is any failure not covered by a more specific kind.
	KindInternal Kind = iota
	// KindResourceExhausted means the batch did not fit the device
	// (out of memory, request too large). A smaller batch may succeed.
	KindResourceExhausted
	// KindUnavailable means the engine could not be reached. Retrying the
	// same batch later may succeed.
	KindUnavailable
	// KindInvalidInput means the engine rejected the input itself.
	KindInvalidInput
	// KindCanceled means the caller's context ended during the call.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindResourceExhausted:
		return "resource_exhausted"
	case KindUnavailable:
		return "unavailable"
	case KindInvalidInput:
		return "invalid_input"
	case KindCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

// Error is a classified engine failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError wraps err with a kind.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("engine %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("engine %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an engine error. Context errors map to
// KindCanceled and unclassified errors to KindInternal.
func KindOf(err error) Kind {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindInternal
}

// IsResourceExhausted reports whether err means the batch was too large.
func IsResourceExhausted(err error) bool {
	return err != nil && KindOf(err) == KindResourceExhausted
}

// IsRetryable reports whether the same call may succeed if repeated.
func IsRetryable(err error) bool {
	return err != nil && KindOf(err) == KindUnavailable
}
