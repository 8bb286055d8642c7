package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
)

// CollectionStore persists collections.
type CollectionStore interface {
	// Create inserts a collection. CardCount is ignored and starts at zero.
	Create(ctx context.Context, c *domain.Collection) error

	// GetByID returns ErrCollectionNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Collection, error)

	// ListByOwner returns every collection owned by ownerID.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Collection, error)

	// ListDerived returns imported collections whose provenance points at
	// one of sourceIDs or whose original owner is one of ownerIDs.
	ListDerived(ctx context.Context, sourceIDs, ownerIDs []uuid.UUID) ([]*domain.Collection, error)

	// TouchLastStudied sets LastStudiedAt. Returns ErrCollectionNotFound if
	// the collection does not exist.
	TouchLastStudied(ctx context.Context, id uuid.UUID, at time.Time) error
}
