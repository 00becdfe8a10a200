package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrForbidden = errors.New("record belongs to another owner")
	ErrConflict  = errors.New("record already exists")
)

// Error is a failure of the store itself, as opposed to a missing record.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err as a store failure for op. Nil and sentinel errors
// (not found, forbidden, conflict) pass through unchanged.
func Wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrConflict) {
		return err
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// IsUnavailable reports whether err is a store failure.
func IsUnavailable(err error) bool {
	var se *Error
	return errors.As(err, &se)
}
