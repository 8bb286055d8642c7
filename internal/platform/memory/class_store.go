package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/store"
)

// ClassStore implements store.ClassStore.
type ClassStore struct {
	db   *DB
	undo *undoLog
}

var _ store.ClassStore = (*ClassStore)(nil)

// Create implements store.ClassStore.
func (s *ClassStore) Create(ctx context.Context, c *domain.Class) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.classes[c.ID]; ok {
		return fmt.Errorf("%w: class %s", store.ErrDuplicate, c.ID)
	}
	cp := *c
	remember(s.undo, s.db.classes, c.ID)
	s.db.classes[c.ID] = &cp
	return nil
}

// GetByID implements store.ClassStore.
func (s *ClassStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Class, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	c, ok := s.db.classes[id]
	if !ok {
		return nil, store.ErrClassNotFound
	}
	cp := *c
	return &cp, nil
}

// AddMember implements store.ClassStore.
func (s *ClassStore) AddMember(ctx context.Context, classID, studentID uuid.UUID) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.classes[classID]; !ok {
		return store.ErrClassNotFound
	}
	key := memberKey{class: classID, student: studentID}
	if _, ok := s.db.members[key]; ok {
		return store.ErrMemberExists
	}
	remember(s.undo, s.db.members, key)
	s.db.members[key] = time.Now().UTC()
	return nil
}

// IsMember implements store.ClassStore.
func (s *ClassStore) IsMember(ctx context.Context, classID, studentID uuid.UUID) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	_, ok := s.db.members[memberKey{class: classID, student: studentID}]
	return ok, nil
}
