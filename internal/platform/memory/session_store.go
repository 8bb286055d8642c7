package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/store"
)

// SessionStore implements store.SessionStore.
type SessionStore struct {
	db   *DB
	undo *undoLog
}

var _ store.SessionStore = (*SessionStore)(nil)

// Create implements store.SessionStore.
func (s *SessionStore) Create(ctx context.Context, sess *domain.StudySession) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.sessions[sess.ID]; ok {
		return fmt.Errorf("%w: session %s", store.ErrDuplicate, sess.ID)
	}
	if _, ok := s.db.collections[sess.CollectionID]; !ok {
		return store.ErrCollectionNotFound
	}
	remember(s.undo, s.db.sessions, sess.ID)
	s.db.sessions[sess.ID] = cloneSession(sess)
	return nil
}

// GetByID implements store.SessionStore.
func (s *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.StudySession, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	sess, ok := s.db.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return cloneSession(sess), nil
}

// Complete implements store.SessionStore.
func (s *SessionStore) Complete(ctx context.Context, sess *domain.StudySession) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	cur, ok := s.db.sessions[sess.ID]
	if !ok {
		return store.ErrSessionNotFound
	}
	if cur.Completed() {
		return store.ErrAlreadyDone
	}

	next := cloneSession(cur)
	next.PerCard = append([]domain.CardResult{}, sess.PerCard...)
	next.Totals = sess.Totals
	next.ScorePct = sess.ScorePct
	next.EndedAt = cloneTime(sess.EndedAt)
	next.DurationSec = sess.DurationSec
	next.CompletedAt = cloneTime(sess.CompletedAt)

	remember(s.undo, s.db.sessions, sess.ID)
	s.db.sessions[sess.ID] = next
	return nil
}

// SetAnnotation implements store.SessionStore.
func (s *SessionStore) SetAnnotation(ctx context.Context, id uuid.UUID, a *domain.Annotation) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	cur, ok := s.db.sessions[id]
	if !ok {
		return store.ErrSessionNotFound
	}
	next := cloneSession(cur)
	if a == nil {
		next.Annotation = nil
	} else {
		cp := *a
		next.Annotation = &cp
	}
	remember(s.undo, s.db.sessions, id)
	s.db.sessions[id] = next
	return nil
}

// ListCompletedByCollections implements store.SessionStore.
func (s *SessionStore) ListCompletedByCollections(
	ctx context.Context,
	collectionIDs []uuid.UUID,
) ([]*domain.StudySession, error) {
	set := toSet(collectionIDs)
	return s.listCompleted(ctx, func(sess *domain.StudySession) bool {
		_, ok := set[sess.CollectionID]
		return ok
	})
}

// ListCompletedByStudent implements store.SessionStore.
func (s *SessionStore) ListCompletedByStudent(
	ctx context.Context,
	studentID uuid.UUID,
) ([]*domain.StudySession, error) {
	return s.listCompleted(ctx, func(sess *domain.StudySession) bool {
		return sess.StudentID == studentID
	})
}

func (s *SessionStore) listCompleted(
	ctx context.Context,
	keep func(*domain.StudySession) bool,
) ([]*domain.StudySession, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := []*domain.StudySession{}
	for _, sess := range s.db.sessions {
		if sess.Completed() && keep(sess) {
			out = append(out, cloneSession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].CompletedAt, out[j].CompletedAt
		if !a.Equal(*b) {
			return a.Before(*b)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
