package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/api/shared"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/service/review"
)

// maxDueLimit caps the page size of GET /collections/{id}/due.
const maxDueLimit = 500

// ReviewService grades cards and lists due cards.
type ReviewService interface {
	GradeCard(
		ctx context.Context,
		caller domain.Identity,
		cardID uuid.UUID,
		signal domain.PerformanceSignal,
		timeSpentSec int,
	) (*domain.Card, error)
	DueCards(
		ctx context.Context,
		caller domain.Identity,
		collectionID uuid.UUID,
		now time.Time,
		limit int,
	) (*review.DueView, error)
}

// ReviewHandler serves card grading and the due-card view.
type ReviewHandler struct {
	reviews ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(reviews ReviewService, logger *slog.Logger) *ReviewHandler {
	if reviews == nil {
		panic("reviews cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{reviews: reviews, logger: logger.With(slog.String("component", "review_handler"))}
}

// GradeCard handles POST /cards/{id}/grade.
func (h *ReviewHandler) GradeCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	caller, cardID, ok := handleIdentityAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	var req GradeCardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	card, err := h.reviews.GradeCard(r.Context(), caller, cardID, domain.PerformanceSignal(req.Signal), req.TimeSpentSec)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to grade card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// DueCards handles GET /collections/{id}/due?limit=&at=.
func (h *ReviewHandler) DueCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	caller, collectionID, ok := handleIdentityAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}
	if limit == 0 || limit > maxDueLimit {
		limit = maxDueLimit
	}

	var at time.Time
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid at timestamp")
			return
		}
		at = parsed.UTC()
	}

	view, err := h.reviews.DueCards(r.Context(), caller, collectionID, at, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list due cards")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}
