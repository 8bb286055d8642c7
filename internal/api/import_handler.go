package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/api/shared"
	"github.com/phrazzld/scry-classroom/internal/service/importer"
)

// ImportService copies shared collections.
type ImportService interface {
	ImportByGrant(ctx context.Context, importerID uuid.UUID, secret, password string) (*importer.Result, error)
	ImportFromClass(ctx context.Context, importerID, grantID uuid.UUID) (*importer.Result, error)
}

// ImportHandler serves the import endpoints.
type ImportHandler struct {
	imports ImportService
	logger  *slog.Logger
}

// NewImportHandler creates an ImportHandler.
func NewImportHandler(imports ImportService, logger *slog.Logger) *ImportHandler {
	if imports == nil {
		panic("imports cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportHandler{imports: imports, logger: logger.With(slog.String("component", "import_handler"))}
}

// ImportByGrant handles POST /imports.
func (h *ImportHandler) ImportByGrant(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req ImportRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.imports.ImportByGrant(r.Context(), caller.UserID, req.Secret, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to import collection")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, res)
}

// ImportFromClass handles POST /imports/class.
func (h *ImportHandler) ImportFromClass(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req ClassImportRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.imports.ImportFromClass(r.Context(), caller.UserID, req.GrantID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to import collection")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, res)
}
