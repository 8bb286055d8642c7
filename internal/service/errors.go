package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/store"
)

// ServiceError wraps an unexpected failure with the service and operation in
// which it happened.
type ServiceError struct {
	Service   string
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, operation, message string, err error) *ServiceError {
	return &ServiceError{Service: service, Operation: operation, Message: message, Err: err}
}

// storeErrorMap lists specific store errors before the generic ones they wrap.
var storeErrorMap = []struct {
	from error
	to   error
}{
	{store.ErrCardNotFound, domain.ErrCardNotFound},
	{store.ErrCollectionNotFound, domain.ErrCollectionNotFound},
	{store.ErrGrantNotFound, domain.ErrGrantNotFound},
	{store.ErrSessionNotFound, domain.ErrSessionNotFound},
	{store.ErrClassNotFound, domain.ErrClassNotFound},
	{store.ErrImportExists, domain.ErrAlreadyImported},
	{store.ErrUsageExhausted, domain.ErrGrantExhausted},
	{store.ErrAlreadyDone, domain.ErrSessionCompleted},
	{store.ErrNotFound, domain.ErrNotFound},
	{store.ErrDuplicate, domain.ErrConflict},
	{store.ErrPreconditionFailed, domain.ErrConflict},
	{store.ErrInvalidEntity, domain.ErrValidation},
}

// TranslateStoreError maps a store error onto the domain taxonomy. Errors
// that already belong to the taxonomy, and errors with no mapping, are
// returned unchanged.
func TranslateStoreError(err error) error {
	if err == nil || IsDomainError(err) {
		return err
	}
	for _, m := range storeErrorMap {
		if errors.Is(err, m.from) {
			return m.to
		}
	}
	return err
}

// IsDomainError reports whether err wraps one of the domain taxonomy errors.
func IsDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound,
		domain.ErrForbidden,
		domain.ErrExpired,
		domain.ErrExhausted,
		domain.ErrConflict,
		domain.ErrValidation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
