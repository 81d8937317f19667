package engine

import (
	"errors"
	"fmt"
)

// Kind classifies analysis failures.
type Kind string

const (
	KindModelUnavailable Kind = "model_unavailable"
	KindTimeout          Kind = "timeout"
	KindInternal         Kind = "internal"
)

// Error is returned by Analyze for every failure that is not a caller
// cancellation.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func errModelUnavailable(err error) *Error {
	return &Error{Kind: KindModelUnavailable, Message: "analysis model is not available", Retryable: true, Err: err}
}

func errTimeout(err error) *Error {
	return &Error{Kind: KindTimeout, Message: "analysis exceeded its time budget", Retryable: true, Err: err}
}

func errInternal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "analysis failed", Err: err}
}

// KindOf returns the kind of an engine error, or "" for other errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether err is an engine error worth retrying.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
