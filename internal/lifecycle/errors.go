// Package lifecycle holds the Scrum workflow rules: story, subtask and
// sprint state machines, the time-log ledger and the burndown series.
//
// Every function here is pure. Callers fetch the entities, hand them in
// together with the current time, and persist whatever comes back. A
// returned error means nothing must be written.
package lifecycle

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrIncompleteSubtasks = errors.New("incomplete subtasks")
	// ErrMissingEstimate is a Conflict raised when an unestimated story is
	// pulled into a sprint.
	ErrMissingEstimate = fmt.Errorf("missing estimate: %w", ErrConflict)
)

// Error carries a user facing message together with its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing project, sprint, story, subtask or log.
func NotFound(format string, args ...any) error { return newError(ErrNotFound, format, args...) }

// Validation reports malformed or out of range input.
func Validation(format string, args ...any) error { return newError(ErrValidation, format, args...) }

// Conflict reports an operation that would break an invariant.
func Conflict(format string, args ...any) error { return newError(ErrConflict, format, args...) }

// Forbidden reports an actor lacking the role or ownership for the operation.
func Forbidden(format string, args ...any) error { return newError(ErrForbidden, format, args...) }

// MissingEstimate reports a story without points entering a sprint.
func MissingEstimate(format string, args ...any) error {
	return newError(ErrMissingEstimate, format, args...)
}

// IncompleteSubtasks reports a realization attempt with open subtasks.
func IncompleteSubtasks(format string, args ...any) error {
	return newError(ErrIncompleteSubtasks, format, args...)
}

// KindName returns a short machine readable name for the error kind, or
// "internal" when err is not one of ours.
func KindName(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrMissingEstimate):
		return "missing_estimate"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrIncompleteSubtasks):
		return "incomplete_subtasks"
	default:
		return "internal"
	}
}
