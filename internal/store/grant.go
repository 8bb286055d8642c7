package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
)

// GrantStore persists distribution grants and their usage.
type GrantStore interface {
	// Create inserts a grant. Returns ErrSecretExists when an active grant
	// already uses the same secret (compared case-insensitively).
	Create(ctx context.Context, g *domain.Grant) error

	// GetByID returns ErrGrantNotFound if the grant does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Grant, error)

	// GetBySecret looks a grant up by secret, ignoring case. When several
	// grants have shared the secret over time the active one wins, then the
	// newest.
	GetBySecret(ctx context.Context, secret string) (*domain.Grant, error)

	// ListByIssuer returns the grants issued by issuerID, optionally limited
	// to one collection, newest first.
	ListByIssuer(ctx context.Context, issuerID uuid.UUID, collectionID *uuid.UUID) ([]*domain.Grant, error)

	// RecordUsage increments the usage counter, sets LastUsedAt and adds
	// userID (when non-nil) to the set of users. The increment is guarded by
	// MaxUses in the same write: when the limit has already been reached
	// nothing changes and ErrUsageExhausted is returned.
	RecordUsage(ctx context.Context, id uuid.UUID, userID *uuid.UUID, at time.Time) (*domain.Grant, error)

	// Deactivate marks a grant inactive. Deactivating an inactive grant is a
	// no-op. Returns ErrGrantNotFound if the grant does not exist.
	Deactivate(ctx context.Context, id uuid.UUID) error

	// DeactivateExpired deactivates every active grant whose expiry is at or
	// before now and returns how many were changed.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}
