package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/api/shared"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
)

// requireIdentity returns the authenticated caller, writing a 401 when there
// is none.
func requireIdentity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		logger.FromContext(r.Context()).Warn("identity missing from request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return domain.Identity{}, false
	}
	return id, true
}

// getPathUUID parses the named chi URL parameter.
func getPathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, ErrInvalidID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidID
	}
	return id, nil
}

// handleIdentityAndPathUUID combines requireIdentity and getPathUUID,
// writing the error response when either fails.
func handleIdentityAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	log *slog.Logger,
) (domain.Identity, uuid.UUID, bool) {
	caller, ok := requireIdentity(w, r)
	if !ok {
		return domain.Identity{}, uuid.Nil, false
	}
	id, err := getPathUUID(r, name)
	if err != nil {
		log.Debug("invalid path parameter", slog.String("param", name), slog.String("value", chi.URLParam(r, name)))
		HandleAPIError(w, r, err, "")
		return domain.Identity{}, uuid.Nil, false
	}
	return caller, id, true
}

// decodeAndValidate decodes the body into v and validates it, writing a 400
// on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		if errors.Is(err, shared.ErrEmptyBody) {
			HandleAPIError(w, r, err, "")
			return false
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
			return false
		}
		HandleAPIError(w, r, err, "")
		return false
	}
	return true
}
