package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/api/shared"
	"github.com/phrazzld/scry-classroom/internal/service/evaluation"
)

// EvaluationService builds session rollups.
type EvaluationService interface {
	TeacherReport(ctx context.Context, teacherID uuid.UUID) (*evaluation.TeacherReport, error)
	StudentSummary(ctx context.Context, studentID uuid.UUID) (*evaluation.StudentStats, error)
}

// EvaluationHandler serves the evaluation endpoints.
type EvaluationHandler struct {
	evaluations EvaluationService
	logger      *slog.Logger
}

// NewEvaluationHandler creates an EvaluationHandler.
func NewEvaluationHandler(evaluations EvaluationService, logger *slog.Logger) *EvaluationHandler {
	if evaluations == nil {
		panic("evaluations cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EvaluationHandler{
		evaluations: evaluations,
		logger:      logger.With(slog.String("component", "evaluation_handler")),
	}
}

// Students handles GET /evaluations/students: the caller's report over
// everyone who studies their collections.
func (h *EvaluationHandler) Students(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	report, err := h.evaluations.TeacherReport(r.Context(), caller.UserID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to build report")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// Me handles GET /evaluations/me.
func (h *EvaluationHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	summary, err := h.evaluations.StudentSummary(r.Context(), caller.UserID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to build summary")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}
