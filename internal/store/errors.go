package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when a write would violate a unique constraint.
	ErrDuplicate = errors.New("entity already exists")

	// ErrPreconditionFailed is returned when a conditional update matched no
	// row although the entity exists, e.g. completing an already completed
	// session or using a grant whose usage limit has been reached.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a transaction cannot be started
	// or committed.
	ErrTransactionFailed = errors.New("transaction failed")

	ErrCardNotFound       = fmt.Errorf("%w: card", ErrNotFound)
	ErrCollectionNotFound = fmt.Errorf("%w: collection", ErrNotFound)
	ErrGrantNotFound      = fmt.Errorf("%w: grant", ErrNotFound)
	ErrSessionNotFound    = fmt.Errorf("%w: session", ErrNotFound)
	ErrClassNotFound      = fmt.Errorf("%w: class", ErrNotFound)

	ErrSecretExists   = fmt.Errorf("%w: grant secret", ErrDuplicate)
	ErrImportExists   = fmt.Errorf("%w: import record", ErrDuplicate)
	ErrMemberExists   = fmt.Errorf("%w: class member", ErrDuplicate)
	ErrUsageExhausted = fmt.Errorf("%w: grant usage limit reached", ErrPreconditionFailed)
	ErrAlreadyDone    = fmt.Errorf("%w: session already completed", ErrPreconditionFailed)
)

// IsNotFoundError reports whether err is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a store failure with the entity and operation it concerns.
type StoreError struct {
	Entity    string // e.g. "grant", "card"
	Operation string // e.g. "create", "record_usage"
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap supports errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: operation, Message: message, Err: err}
}
