package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/store"
)

// GrantStore implements store.GrantStore.
type GrantStore struct {
	db   *DB
	undo *undoLog
}

var _ store.GrantStore = (*GrantStore)(nil)

// Create implements store.GrantStore.
func (s *GrantStore) Create(ctx context.Context, g *domain.Grant) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.grants[g.ID]; ok {
		return fmt.Errorf("%w: grant %s", store.ErrDuplicate, g.ID)
	}
	if _, ok := s.db.collections[g.CollectionID]; !ok {
		return fmt.Errorf("%w: collection %s", store.ErrInvalidEntity, g.CollectionID)
	}
	if g.Active {
		for _, other := range s.db.grants {
			if other.Active && strings.EqualFold(other.Secret, g.Secret) {
				return store.ErrSecretExists
			}
		}
	}

	stored := cloneGrant(g)
	stored.Usage = domain.GrantUsage{UsedBy: []uuid.UUID{}}
	remember(s.undo, s.db.grants, g.ID)
	s.db.grants[g.ID] = stored
	return nil
}

// GetByID implements store.GrantStore.
func (s *GrantStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Grant, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	g, ok := s.db.grants[id]
	if !ok {
		return nil, store.ErrGrantNotFound
	}
	return cloneGrant(g), nil
}

// GetBySecret implements store.GrantStore.
func (s *GrantStore) GetBySecret(ctx context.Context, secret string) (*domain.Grant, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var best *domain.Grant
	for _, g := range s.db.grants {
		if !strings.EqualFold(g.Secret, secret) {
			continue
		}
		switch {
		case best == nil,
			g.Active && !best.Active,
			g.Active == best.Active && g.CreatedAt.After(best.CreatedAt):
			best = g
		}
	}
	if best == nil {
		return nil, store.ErrGrantNotFound
	}
	return cloneGrant(best), nil
}

// ListByIssuer implements store.GrantStore.
func (s *GrantStore) ListByIssuer(
	ctx context.Context,
	issuerID uuid.UUID,
	collectionID *uuid.UUID,
) ([]*domain.Grant, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := []*domain.Grant{}
	for _, g := range s.db.grants {
		if g.IssuedBy != issuerID {
			continue
		}
		if collectionID != nil && g.CollectionID != *collectionID {
			continue
		}
		out = append(out, cloneGrant(g))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// RecordUsage implements store.GrantStore. Check and increment happen under
// one write lock.
func (s *GrantStore) RecordUsage(
	ctx context.Context,
	id uuid.UUID,
	userID *uuid.UUID,
	at time.Time,
) (*domain.Grant, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	g, ok := s.db.grants[id]
	if !ok {
		return nil, store.ErrGrantNotFound
	}
	if g.MaxUses != nil && g.Usage.Count >= *g.MaxUses {
		return nil, store.ErrUsageExhausted
	}

	next := cloneGrant(g)
	next.Usage.Count++
	next.Usage.LastUsedAt = &at
	if userID != nil {
		key := grantUser{grant: id, user: *userID}
		if _, seen := s.db.grantUsers[key]; !seen {
			remember(s.undo, s.db.grantUsers, key)
			s.db.grantUsers[key] = at
			next.Usage.UsedBy = append(next.Usage.UsedBy, *userID)
		}
	}

	remember(s.undo, s.db.grants, id)
	s.db.grants[id] = next
	return cloneGrant(next), nil
}

// Deactivate implements store.GrantStore.
func (s *GrantStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	g, ok := s.db.grants[id]
	if !ok {
		return store.ErrGrantNotFound
	}
	if !g.Active {
		return nil
	}
	next := cloneGrant(g)
	next.Active = false
	remember(s.undo, s.db.grants, id)
	s.db.grants[id] = next
	return nil
}

// DeactivateExpired implements store.GrantStore.
func (s *GrantStore) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var n int64
	for id, g := range s.db.grants {
		if !g.Active || g.ExpiresAt == nil || g.ExpiresAt.After(now) {
			continue
		}
		next := cloneGrant(g)
		next.Active = false
		remember(s.undo, s.db.grants, id)
		s.db.grants[id] = next
		n++
	}
	return n, nil
}
