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

// CardStore implements store.CardStore.
type CardStore struct {
	db   *DB
	undo *undoLog
}

var _ store.CardStore = (*CardStore)(nil)

// CreateMultiple implements store.CardStore. Either every card is inserted or
// none is.
func (s *CardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	for _, c := range cards {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(cards))
	for _, c := range cards {
		if _, ok := s.db.collections[c.CollectionID]; !ok {
			return fmt.Errorf("%w: collection %s", store.ErrCollectionNotFound, c.CollectionID)
		}
		if _, ok := s.db.cards[c.ID]; ok {
			return fmt.Errorf("%w: card %s", store.ErrDuplicate, c.ID)
		}
		if _, ok := seen[c.ID]; ok {
			return fmt.Errorf("%w: card %s", store.ErrDuplicate, c.ID)
		}
		seen[c.ID] = struct{}{}
	}

	for _, c := range cards {
		remember(s.undo, s.db.cards, c.ID)
		s.db.cards[c.ID] = c.Clone()

		remember(s.undo, s.db.collections, c.CollectionID)
		coll := cloneCollection(s.db.collections[c.CollectionID])
		coll.CardCount++
		s.db.collections[c.CollectionID] = coll
	}
	return nil
}

// GetByID implements store.CardStore.
func (s *CardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	c, ok := s.db.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return c.Clone(), nil
}

// ListByCollection implements store.CardStore.
func (s *CardStore) ListByCollection(ctx context.Context, collectionID uuid.UUID) ([]*domain.Card, error) {
	return s.list(ctx, func(c *domain.Card) bool { return c.CollectionID == collectionID },
		func(a, b *domain.Card) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID.String() < b.ID.String()
		}, 0)
}

// ListDue implements store.CardStore.
func (s *CardStore) ListDue(
	ctx context.Context,
	collectionID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.Card, error) {
	return s.list(ctx,
		func(c *domain.Card) bool { return c.CollectionID == collectionID && !c.NextDueAt.After(now) },
		func(a, b *domain.Card) bool {
			if !a.NextDueAt.Equal(b.NextDueAt) {
				return a.NextDueAt.Before(b.NextDueAt)
			}
			return a.ID.String() < b.ID.String()
		}, limit)
}

// CountDue implements store.CardStore.
func (s *CardStore) CountDue(
	ctx context.Context,
	collectionID uuid.UUID,
	now time.Time,
	difficultMax, easyMin float64,
) (store.DueCounts, error) {
	var counts store.DueCounts
	if err := ctxErr(ctx); err != nil {
		return counts, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, c := range s.db.cards {
		if c.CollectionID != collectionID || c.NextDueAt.After(now) {
			continue
		}
		counts.Due++
		switch {
		case c.Interval <= difficultMax:
			counts.Difficult++
		case c.Interval >= easyMin:
			counts.Easy++
		}
	}
	return counts, nil
}

// ApplyGrade implements store.CardStore. The history entry is appended to the
// stored history, not to the caller's copy, so concurrent gradings are kept.
func (s *CardStore) ApplyGrade(ctx context.Context, graded *domain.Card, event domain.ReviewEvent) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	cur, ok := s.db.cards[graded.ID]
	if !ok {
		return store.ErrCardNotFound
	}
	next := cur.Clone()
	next.Status = graded.Status
	next.Interval = graded.Interval
	next.EaseFactor = graded.EaseFactor
	next.NextDueAt = graded.NextDueAt
	next.LastReviewedAt = cloneTime(graded.LastReviewedAt)
	next.UpdatedAt = graded.UpdatedAt
	next.History = append(next.History, event)

	remember(s.undo, s.db.cards, graded.ID)
	s.db.cards[graded.ID] = next
	return nil
}

// Delete implements store.CardStore.
func (s *CardStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c, ok := s.db.cards[id]
	if !ok {
		return store.ErrCardNotFound
	}
	remember(s.undo, s.db.cards, id)
	delete(s.db.cards, id)

	if coll, ok := s.db.collections[c.CollectionID]; ok {
		remember(s.undo, s.db.collections, c.CollectionID)
		next := cloneCollection(coll)
		next.CardCount--
		s.db.collections[c.CollectionID] = next
	}
	return nil
}

func (s *CardStore) list(
	ctx context.Context,
	keep func(*domain.Card) bool,
	less func(a, b *domain.Card) bool,
	limit int,
) ([]*domain.Card, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := []*domain.Card{}
	for _, c := range s.db.cards {
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
