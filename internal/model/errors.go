package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the rules, the policy and the store
// wraps exactly one of these so the HTTP layer can pick a status code with
// errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrHasDependents    = errors.New("has dependents")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")

	// ErrDuplicate is the conflict raised when a (user, event) pair is
	// booked twice.
	ErrDuplicate = fmt.Errorf("%w: duplicate reservation", ErrConflict)
)

// Error pairs an error kind with the message shown to the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
