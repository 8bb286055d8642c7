package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/store"
)

// CollectionStore implements store.CollectionStore.
type CollectionStore struct {
	db   *DB
	undo *undoLog
}

var _ store.CollectionStore = (*CollectionStore)(nil)

// Create implements store.CollectionStore.
func (s *CollectionStore) Create(ctx context.Context, c *domain.Collection) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.collections[c.ID]; ok {
		return fmt.Errorf("%w: collection %s", store.ErrDuplicate, c.ID)
	}
	stored := cloneCollection(c)
	stored.Tags = domain.NormalizeTags(c.Tags)
	stored.CardCount = 0
	c.CardCount = 0

	remember(s.undo, s.db.collections, c.ID)
	s.db.collections[c.ID] = stored
	return nil
}

// GetByID implements store.CollectionStore.
func (s *CollectionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Collection, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	c, ok := s.db.collections[id]
	if !ok {
		return nil, store.ErrCollectionNotFound
	}
	return cloneCollection(c), nil
}

// ListByOwner implements store.CollectionStore.
func (s *CollectionStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Collection, error) {
	return s.list(ctx, func(c *domain.Collection) bool { return c.OwnerID == ownerID })
}

// ListDerived implements store.CollectionStore.
func (s *CollectionStore) ListDerived(
	ctx context.Context,
	sourceIDs, ownerIDs []uuid.UUID,
) ([]*domain.Collection, error) {
	sources := toSet(sourceIDs)
	owners := toSet(ownerIDs)
	return s.list(ctx, func(c *domain.Collection) bool {
		if c.Provenance == nil {
			return false
		}
		_, bySource := sources[c.Provenance.SourceCollectionID]
		_, byOwner := owners[c.Provenance.OriginalOwnerID]
		return bySource || byOwner
	})
}

// TouchLastStudied implements store.CollectionStore.
func (s *CollectionStore) TouchLastStudied(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c, ok := s.db.collections[id]
	if !ok {
		return store.ErrCollectionNotFound
	}
	next := cloneCollection(c)
	next.LastStudiedAt = &at
	remember(s.undo, s.db.collections, id)
	s.db.collections[id] = next
	return nil
}

func (s *CollectionStore) list(ctx context.Context, keep func(*domain.Collection) bool) ([]*domain.Collection, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := []*domain.Collection{}
	for _, c := range s.db.collections {
		if keep(c) {
			out = append(out, cloneCollection(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func toSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
