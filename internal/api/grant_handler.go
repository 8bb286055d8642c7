package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/api/shared"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/service/distribution"
)

// GrantService manages distribution grants.
type GrantService interface {
	Issue(ctx context.Context, caller domain.Identity, req distribution.IssueRequest) (*domain.Grant, error)
	Resolve(ctx context.Context, secret, password string) (*domain.Grant, error)
	View(ctx context.Context, secret, password string, viewer *uuid.UUID) (*distribution.Preview, error)
	List(ctx context.Context, caller domain.Identity, collectionID *uuid.UUID) ([]*domain.Grant, error)
	Deactivate(ctx context.Context, caller domain.Identity, grantID uuid.UUID) error
}

// GrantHandler serves the grant endpoints.
type GrantHandler struct {
	grants GrantService
	logger *slog.Logger
}

// NewGrantHandler creates a GrantHandler.
func NewGrantHandler(grants GrantService, logger *slog.Logger) *GrantHandler {
	if grants == nil {
		panic("grants cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GrantHandler{grants: grants, logger: logger.With(slog.String("component", "grant_handler"))}
}

// Issue handles POST /collections/{id}/grants. The response is the only
// place the secret is returned in full.
func (h *GrantHandler) Issue(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	caller, collectionID, ok := handleIdentityAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	var req IssueGrantRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	grant, err := h.grants.Issue(r.Context(), caller, distribution.IssueRequest{
		CollectionID: collectionID,
		Kind:         domain.GrantKind(req.Kind),
		Permissions:  permissionsFromStrings(req.Permissions),
		ExpiresAt:    req.ExpiresAt,
		MaxUses:      req.MaxUses,
		Password:     req.Password,
		ClassID:      req.ClassID,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to issue grant")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, grant)
}

// List handles GET /grants?collection_id=.
func (h *GrantHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var collectionID *uuid.UUID
	if raw := r.URL.Query().Get("collection_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			HandleAPIError(w, r, ErrInvalidID, "")
			return
		}
		collectionID = &id
	}

	grants, err := h.grants.List(r.Context(), caller, collectionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list grants")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, grants)
}

// Deactivate handles DELETE /grants/{id}.
func (h *GrantHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	caller, grantID, ok := handleIdentityAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	if err := h.grants.Deactivate(r.Context(), caller, grantID); err != nil {
		HandleAPIError(w, r, err, "Failed to deactivate grant")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resolve handles POST /grants/resolve. It is public; resolving does not
// count as a use.
func (h *GrantHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveGrantRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	grant, err := h.grants.Resolve(r.Context(), req.Secret, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to resolve grant")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, grantToView(grant))
}

// View handles POST /grants/view: resolves a grant with view permission,
// records the view and returns a preview of the collection.
func (h *GrantHandler) View(w http.ResponseWriter, r *http.Request) {
	var req ResolveGrantRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var viewer *uuid.UUID
	if id, ok := shared.IdentityFromContext(r.Context()); ok {
		viewer = &id.UserID
	}

	preview, err := h.grants.View(r.Context(), req.Secret, req.Password, viewer)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to view grant")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, struct {
		Grant      GrantView                      `json:"grant"`
		Collection distribution.CollectionPreview `json:"collection"`
	}{Grant: grantToView(preview.Grant), Collection: preview.Collection})
}
