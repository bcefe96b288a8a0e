// Package apperr defines the single error type shared by the job store, the
// scoring engine and the status tracker.
//
// Every expected failure is returned as an *Error carrying a Kind, so callers
// (the HTTP layer, the scheduler, tests) branch on KindOf(err) instead of on
// panics, booleans or ad-hoc result maps.
package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes an expected failure.
type Kind string

const (
	// KindValidation marks malformed input: a job missing a required field,
	// an unknown status string.
	KindValidation Kind = "validation"
	// KindPersistence marks a read/write/rename failure after retries ran out.
	KindPersistence Kind = "persistence"
	// KindTransitionRejected marks a well-formed status change the state
	// machine does not allow.
	KindTransitionRejected Kind = "transition_rejected"
	// KindNotFound marks a reference to an unknown job id.
	KindNotFound Kind = "not_found"
	// KindConfig marks a programmer/configuration error such as a weight
	// vector that does not sum to 1.
	KindConfig Kind = "config"
)

// Error is the structured error returned by the core packages.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "jobstore.save".
	Op      string
	Message string
	// Field is set for validation errors tied to a single input field.
	Field string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports a match when target is an *Error of the same Kind with no
// Message, so errors.Is(err, apperr.ErrNotFound) works against any not-found.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Op == "" && t.Kind == e.Kind
}

// Sentinels usable with errors.Is.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrPersistence        = &Error{Kind: KindPersistence}
	ErrTransitionRejected = &Error{Kind: KindTransitionRejected}
	ErrNotFound           = &Error{Kind: KindNotFound}
)

// Validationf returns a validation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationField returns a validation error for a single field.
func ValidationField(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// NotFoundf returns a not-found error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Rejectedf returns a transition-rejected error.
func Rejectedf(format string, args ...any) *Error {
	return &Error{Kind: KindTransitionRejected, Message: fmt.Sprintf(format, args...)}
}

// Configf returns a configuration error.
func Configf(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps an I/O failure for op.
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Message: "persistence failed", Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when err
// is nil or carries no Kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
