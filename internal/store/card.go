package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
)

// DueCounts tallies the due cards of a collection by difficulty band.
type DueCounts struct {
	Due       int
	Difficult int
	Easy      int
}

// CardStore persists cards and their scheduling state. It is the only writer
// of Collection.CardCount: inserting and deleting cards adjusts the owning
// collection's count as part of the same write.
type CardStore interface {
	// CreateMultiple inserts cards, all of which must belong to collections
	// that exist. Run it inside a transaction to get all-or-nothing
	// behaviour.
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// GetByID returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// ListByCollection returns every card of a collection ordered by
	// creation time.
	ListByCollection(ctx context.Context, collectionID uuid.UUID) ([]*domain.Card, error)

	// ListDue returns cards with NextDueAt <= now ordered by NextDueAt.
	// limit <= 0 means no limit.
	ListDue(ctx context.Context, collectionID uuid.UUID, now time.Time, limit int) ([]*domain.Card, error)

	// CountDue counts every card ListDue would return with no limit. A card
	// with Interval <= difficultMax is difficult; one with Interval >=
	// easyMin is easy.
	CountDue(ctx context.Context, collectionID uuid.UUID, now time.Time, difficultMax, easyMin float64) (DueCounts, error)

	// ApplyGrade stores the scheduling fields of graded and appends event to
	// the persisted history in a single row update, so two concurrent
	// gradings never lose a history entry.
	ApplyGrade(ctx context.Context, graded *domain.Card, event domain.ReviewEvent) error

	// Delete removes a card. Returns ErrCardNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
