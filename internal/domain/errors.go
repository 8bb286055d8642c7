package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error a service returns to its caller wraps exactly
// one of these so that the API layer can map it to a stable response with
// errors.Is.
var (
	// ErrNotFound is returned when a collection, card, session, class or grant
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned on ownership or permission mismatches and on a
	// missing or incorrect grant password.
	ErrForbidden = errors.New("forbidden")

	// ErrExpired is returned when a grant is no longer active or is past its
	// expiry time.
	ErrExpired = errors.New("expired")

	// ErrExhausted is returned when a grant has reached its use limit.
	ErrExhausted = errors.New("exhausted")

	// ErrConflict is returned for duplicate imports and double completion of a
	// session.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned when input is malformed or inconsistent.
	ErrValidation = errors.New("validation failed")
)

// Specific errors. Each one wraps a taxonomy error.
var (
	ErrInvalidSignal      = fmt.Errorf("%w: invalid performance signal", ErrValidation)
	ErrInvalidSessionKind = fmt.Errorf("%w: invalid session kind", ErrValidation)
	ErrInconsistentTotals = fmt.Errorf("%w: inconsistent session totals", ErrValidation)
	ErrInvalidRating      = fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	ErrInvalidGrantKind   = fmt.Errorf("%w: invalid grant kind", ErrValidation)
	ErrInvalidPermission  = fmt.Errorf("%w: invalid grant permission", ErrValidation)
	ErrInvalidMaxUses     = fmt.Errorf("%w: max uses must be between 1 and 2147483647", ErrValidation)
	ErrInvalidExpiry      = fmt.Errorf("%w: expiry must be in the future", ErrValidation)
	ErrMissingClass       = fmt.Errorf("%w: class grants require a class", ErrValidation)
	ErrInvalidUsageAction = fmt.Errorf("%w: invalid usage action", ErrValidation)
	ErrSelfImport         = fmt.Errorf("%w: cannot import your own collection", ErrValidation)
	ErrEmptyQuestion      = fmt.Errorf("%w: card question cannot be empty", ErrValidation)
	ErrEmptyCollection    = fmt.Errorf("%w: collection name cannot be empty", ErrValidation)
	ErrEmptyCollectionID  = fmt.Errorf("%w: collection ID cannot be empty", ErrValidation)

	ErrCollectionNotFound = fmt.Errorf("%w: collection", ErrNotFound)
	ErrCardNotFound       = fmt.Errorf("%w: card", ErrNotFound)
	ErrSessionNotFound    = fmt.Errorf("%w: session", ErrNotFound)
	ErrGrantNotFound      = fmt.Errorf("%w: grant", ErrNotFound)
	ErrClassNotFound      = fmt.Errorf("%w: class", ErrNotFound)

	ErrNotOwner          = fmt.Errorf("%w: not the owner", ErrForbidden)
	ErrPasswordMismatch  = fmt.Errorf("%w: grant password does not match", ErrForbidden)
	ErrPermissionDenied  = fmt.Errorf("%w: grant does not permit this action", ErrForbidden)
	ErrNotClassMember    = fmt.Errorf("%w: not a member of the class", ErrForbidden)
	ErrWrongGrantChannel = fmt.Errorf("%w: grant cannot be used through this channel", ErrForbidden)

	ErrGrantExpired   = fmt.Errorf("%w: grant has expired", ErrExpired)
	ErrGrantInactive  = fmt.Errorf("%w: grant has been deactivated", ErrExpired)
	ErrGrantExhausted = fmt.Errorf("%w: grant use limit reached", ErrExhausted)

	ErrAlreadyImported   = fmt.Errorf("%w: collection already imported", ErrConflict)
	ErrSessionCompleted  = fmt.Errorf("%w: session already completed", ErrConflict)
	ErrSessionInProgress = fmt.Errorf("%w: session not completed", ErrConflict)
)
