// Package errs defines the error taxonomy shared by every skorche component.
package errs

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Kind classifies an error raised by the engine.
type Kind int

const (
	// TaskError indicates a user task function returned or panicked with
	// an error. The offending item is dropped; the stage continues.
	TaskError Kind = iota

	// BadPredicateValue indicates a split predicate returned a value that
	// was not declared in the operator's value set. The offending item is
	// dropped; the stage continues.
	BadPredicateValue

	// GraphError indicates a build-time violation of the graph invariant,
	// e.g. wiring two consumers onto the same queue.
	GraphError

	// LifecycleError indicates an invalid call sequence, e.g. calling Run
	// twice or using the manager after Shutdown without Init.
	LifecycleError

	// DrainError indicates Flush or Get was called on a queue that has
	// already yielded its EOS. Always a programmer error.
	DrainError
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case TaskError:
		return "TaskError"
	case BadPredicateValue:
		return "BadPredicateValue"
	case GraphError:
		return "GraphError"
	case LifecycleError:
		return "LifecycleError"
	case DrainError:
		return "DrainError"
	default:
		return "UnknownError"
	}
}

// Error wraps an underlying cause with the Kind that classifies it.
type Error struct {
	Kind Kind
	err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.err)
}

// Unwrap allows errors.Is/errors.As to see through to the underlying cause.
func (e *Error) Unwrap() error {
	return e.err
}

// New builds an Error of the given Kind, formatting format/args the same way
// xerrors.Errorf does (including %w cause wrapping).
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, err: xerrors.Errorf(format, args...)}
}

// Is reports whether err is (or wraps) an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if xerrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
