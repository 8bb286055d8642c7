// Package review drives the scheduler: it grades cards on behalf of their
// owner and builds the due-card view.
package review

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/clock"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/domain/srs"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/service"
	"github.com/phrazzld/scry-classroom/internal/store"
)

const serviceName = "review"

// DueCard is a due card together with its difficulty classification.
type DueCard struct {
	Card       *domain.Card   `json:"card"`
	Difficulty srs.Difficulty `json:"difficulty"`
}

// DueCounts summarises every due card of a collection, independent of the
// page limit.
type DueCounts struct {
	Due       int `json:"due"`
	Difficult int `json:"difficult"`
	Easy      int `json:"easy"`
}

// DueView is the answer to DueCards.
type DueView struct {
	CollectionID uuid.UUID `json:"collection_id"`
	Cards        []DueCard `json:"cards"`
	Counts       DueCounts `json:"counts"`
}

// Service grades cards and lists due cards.
type Service struct {
	cards       store.CardStore
	collections store.CollectionStore
	scheduler   srs.Service
	clock       clock.Clock
	logger      *slog.Logger
}

// NewService creates a review service.
func NewService(
	cards store.CardStore,
	collections store.CollectionStore,
	scheduler srs.Service,
	clk clock.Clock,
	logger *slog.Logger,
) *Service {
	if cards == nil {
		panic("cards cannot be nil")
	}
	if collections == nil {
		panic("collections cannot be nil")
	}
	if scheduler == nil {
		scheduler = srs.NewDefaultService()
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cards:       cards,
		collections: collections,
		scheduler:   scheduler,
		clock:       clk,
		logger:      logger.With(slog.String("component", "review_service")),
	}
}

// GradeCard applies signal to a card owned by the caller and persists the
// new schedule. The history entry is appended by the store in the same
// update, so concurrent gradings of one card never lose an entry.
func (s *Service) GradeCard(
	ctx context.Context,
	caller domain.Identity,
	cardID uuid.UUID,
	signal domain.PerformanceSignal,
	timeSpentSec int,
) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("card_id", cardID.String()),
		slog.String("signal", string(signal)))

	if !signal.Valid() {
		return nil, domain.ErrInvalidSignal
	}

	card, err := s.ownedCard(ctx, caller, cardID)
	if err != nil {
		return nil, err
	}

	graded, err := s.scheduler.Grade(card, signal, timeSpentSec, s.clock.Now())
	if err != nil {
		return nil, err
	}
	event := graded.History[len(graded.History)-1]

	if err := s.cards.ApplyGrade(ctx, graded, event); err != nil {
		if mapped := service.TranslateStoreError(err); service.IsDomainError(mapped) {
			return nil, mapped
		}
		log.Error("failed to persist grade", slog.String("error", err.Error()))
		return nil, service.NewServiceError(serviceName, "grade", "failed to persist grade", err)
	}

	log.Debug("card graded",
		slog.String("status", string(graded.Status)),
		slog.Time("next_due_at", graded.NextDueAt))
	return graded, nil
}

// DueCards returns the cards of a collection due at now (the service clock
// when now is zero) ordered by due time, at most limit of them when limit is
// positive. Counts always cover every due card.
func (s *Service) DueCards(
	ctx context.Context,
	caller domain.Identity,
	collectionID uuid.UUID,
	now time.Time,
	limit int,
) (*DueView, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.ownedCollection(ctx, caller, collectionID); err != nil {
		return nil, err
	}
	if now.IsZero() {
		now = s.clock.Now()
	}

	if limit < 0 {
		limit = 0
	}
	due, err := s.cards.ListDue(ctx, collectionID, now, limit)
	if err != nil {
		log.Error("failed to list due cards",
			slog.String("collection_id", collectionID.String()),
			slog.String("error", err.Error()))
		return nil, service.NewServiceError(serviceName, "due_cards", "failed to list due cards", err)
	}
	difficultMax, easyMin := s.scheduler.Bands()
	counts, err := s.cards.CountDue(ctx, collectionID, now, difficultMax, easyMin)
	if err != nil {
		log.Error("failed to count due cards",
			slog.String("collection_id", collectionID.String()),
			slog.String("error", err.Error()))
		return nil, service.NewServiceError(serviceName, "due_cards", "failed to count due cards", err)
	}

	view := &DueView{
		CollectionID: collectionID,
		Cards:        make([]DueCard, 0, len(due)),
		Counts:       DueCounts{Due: counts.Due, Difficult: counts.Difficult, Easy: counts.Easy},
	}
	for _, c := range due {
		view.Cards = append(view.Cards, DueCard{Card: c, Difficulty: s.scheduler.Classify(c.Interval)})
	}
	return view, nil
}

func (s *Service) ownedCard(ctx context.Context, caller domain.Identity, cardID uuid.UUID) (*domain.Card, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, s.lookupError(ctx, "get_card", err)
	}
	if _, err := s.ownedCollection(ctx, caller, card.CollectionID); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *Service) ownedCollection(
	ctx context.Context,
	caller domain.Identity,
	collectionID uuid.UUID,
) (*domain.Collection, error) {
	coll, err := s.collections.GetByID(ctx, collectionID)
	if err != nil {
		return nil, s.lookupError(ctx, "get_collection", err)
	}
	if !coll.OwnedBy(caller.UserID) {
		logger.FromContextOrDefault(ctx, s.logger).Warn("caller does not own collection",
			slog.String("user_id", caller.UserID.String()),
			slog.String("collection_id", collectionID.String()))
		return nil, domain.ErrNotOwner
	}
	return coll, nil
}

func (s *Service) lookupError(ctx context.Context, op string, err error) error {
	mapped := service.TranslateStoreError(err)
	if errors.Is(mapped, domain.ErrNotFound) {
		return mapped
	}
	logger.FromContextOrDefault(ctx, s.logger).Error("lookup failed",
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return service.NewServiceError(serviceName, op, "lookup failed", err)
}
