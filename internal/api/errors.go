package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-classroom/internal/api/shared"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/service/auth"
)

// ErrInvalidID is returned for malformed path IDs.
var ErrInvalidID = fmt.Errorf("%w: invalid id", domain.ErrValidation)

// MapErrorToStatusCode maps an error onto an HTTP status through the domain
// taxonomy.
func MapErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrValidation), errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrExpired), errors.Is(err, domain.ErrExhausted):
		return http.StatusGone
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// safeMessages lists client-facing messages for specific errors. Order
// matters only in that specific errors precede the taxonomy fallbacks below.
var safeMessages = []struct {
	err error
	msg string
}{
	{domain.ErrInvalidSignal, "Invalid performance signal"},
	{domain.ErrInvalidSessionKind, "Invalid session kind"},
	{domain.ErrInconsistentTotals, "Session totals are inconsistent"},
	{domain.ErrInvalidRating, "Rating must be between 1 and 5"},
	{domain.ErrInvalidGrantKind, "Invalid grant kind"},
	{domain.ErrInvalidPermission, "Invalid grant permissions"},
	{domain.ErrInvalidMaxUses, "Max uses must be between 1 and 2147483647"},
	{domain.ErrInvalidExpiry, "Expiry must be in the future"},
	{domain.ErrMissingClass, "Class grants require a class"},
	{domain.ErrInvalidUsageAction, "Invalid usage action"},
	{domain.ErrSelfImport, "You cannot import your own collection"},
	{ErrInvalidID, "Invalid ID"},
	{shared.ErrEmptyBody, "Request body is required"},

	{domain.ErrCollectionNotFound, "Collection not found"},
	{domain.ErrCardNotFound, "Card not found"},
	{domain.ErrSessionNotFound, "Session not found"},
	{domain.ErrGrantNotFound, "Grant not found"},
	{domain.ErrClassNotFound, "Class not found"},

	{domain.ErrNotOwner, "You do not own this resource"},
	{domain.ErrPasswordMismatch, "Grant password is missing or incorrect"},
	{domain.ErrPermissionDenied, "Grant does not permit this action"},
	{domain.ErrNotClassMember, "You are not a member of this class"},
	{domain.ErrWrongGrantChannel, "Grant cannot be used this way"},

	{domain.ErrGrantExpired, "Grant has expired"},
	{domain.ErrGrantInactive, "Grant has been deactivated"},
	{domain.ErrGrantExhausted, "Grant use limit reached"},

	{domain.ErrAlreadyImported, "Collection already imported"},
	{domain.ErrSessionCompleted, "Session already completed"},
	{domain.ErrSessionInProgress, "Session is not completed yet"},

	{domain.ErrValidation, "Invalid request"},
	{domain.ErrNotFound, "Not found"},
	{domain.ErrForbidden, "Forbidden"},
	{domain.ErrExpired, "Expired"},
	{domain.ErrExhausted, "Exhausted"},
	{domain.ErrConflict, "Conflict"},
}

// GetSafeErrorMessage returns a client-facing message for err that never
// includes internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}
	for _, m := range safeMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "An unexpected error occurred"
}

// SanitizeValidationError turns struct validation failures into a short
// message naming the first offending field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), validationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the response for err. fallback replaces the generic
// message on 5xx responses when set.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		msg = fallback
	}

	var opts []shared.ResponseOption
	if status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}
