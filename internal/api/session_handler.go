package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/api/shared"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/service/session"
)

// SessionService records study sessions.
type SessionService interface {
	Start(ctx context.Context, caller domain.Identity, collectionID uuid.UUID, kind domain.SessionKind) (*domain.StudySession, error)
	Complete(ctx context.Context, caller domain.Identity, sessionID uuid.UUID, req session.CompleteRequest) (*domain.StudySession, error)
	Annotate(ctx context.Context, caller domain.Identity, sessionID uuid.UUID, note string, rating int) (*domain.StudySession, error)
	Get(ctx context.Context, caller domain.Identity, sessionID uuid.UUID) (*domain.StudySession, error)
}

// SessionHandler serves the session endpoints.
type SessionHandler struct {
	sessions SessionService
	logger   *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions SessionService, logger *slog.Logger) *SessionHandler {
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{sessions: sessions, logger: logger.With(slog.String("component", "session_handler"))}
}

// Start handles POST /sessions.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req StartSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sess, err := h.sessions.Start(r.Context(), caller, req.CollectionID, domain.SessionKind(req.Kind))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, sess)
}

// Complete handles POST /sessions/{id}/complete.
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	caller, sessionID, ok := handleIdentityAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	var req CompleteSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sess, err := h.sessions.Complete(r.Context(), caller, sessionID, session.CompleteRequest{
		Totals: domain.SessionTotals{
			Total:     req.Totals.Total,
			Correct:   req.Totals.Correct,
			Incorrect: req.Totals.Incorrect,
			Skipped:   req.Totals.Skipped,
		},
		PerCard: resultsFromRequest(req.PerCard),
		EndedAt: req.EndedAt,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to complete session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sess)
}

// Annotate handles PUT /sessions/{id}/annotation.
func (h *SessionHandler) Annotate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	caller, sessionID, ok := handleIdentityAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	var req AnnotateSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sess, err := h.sessions.Annotate(r.Context(), caller, sessionID, req.Note, req.Rating)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to annotate session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sess)
}

// Get handles GET /sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	caller, sessionID, ok := handleIdentityAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	sess, err := h.sessions.Get(r.Context(), caller, sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sess)
}
