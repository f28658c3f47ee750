package domain

import "fmt"

// ValidationError reports a missing or malformed required input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a referenced id that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError reports a uniqueness violation on a field.
type ConflictError struct {
	Field string
	Value string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

// TransactionError wraps a failure inside an atomic unit of work. By the time
// it is returned the rollback has already been issued and nothing was
// persisted.
type TransactionError struct {
	Op  string
	Err error
}

func (e TransactionError) Error() string {
	return fmt.Sprintf("%s: transaction rolled back: %v", e.Op, e.Err)
}

func (e TransactionError) Unwrap() error { return e.Err }
