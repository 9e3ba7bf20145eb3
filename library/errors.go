package library

import (
	"fmt"
	"strings"
)

// The package reports expected failures through a small set of typed
// errors so callers can distinguish "tell the user" conditions from real
// I/O problems. Match them with errors.As.

// ValidationError aggregates one human-readable message per violated
// field rule. It is the only error CreateLoan and the Save* operations
// return for bad input.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// NotFoundError reports that no row exists for the given entity id.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConflictError reports a uniqueness violation: duplicate ISBN, username
// or email.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// StateError reports an operation that is invalid for the entity's
// current state: returning an already-returned loan, checking out a book
// with no available copies, returning a copy of a book already at full
// availability.
type StateError struct {
	Message string
}

func (e *StateError) Error() string { return e.Message }

// ReferentialError reports a delete blocked by existing active loans.
type ReferentialError struct {
	Message string
}

func (e *ReferentialError) Error() string { return e.Message }
