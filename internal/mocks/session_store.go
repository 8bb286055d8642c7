package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/store"
	"github.com/stretchr/testify/mock"
)

// SessionStore is a mock of store.SessionStore.
type SessionStore struct {
	mock.Mock
}

var _ store.SessionStore = (*SessionStore)(nil)

func (m *SessionStore) Create(ctx context.Context, s *domain.StudySession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.StudySession, error) {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*domain.StudySession); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionStore) Complete(ctx context.Context, s *domain.StudySession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *SessionStore) SetAnnotation(ctx context.Context, id uuid.UUID, a *domain.Annotation) error {
	args := m.Called(ctx, id, a)
	return args.Error(0)
}

func (m *SessionStore) ListCompletedByCollections(ctx context.Context, collectionIDs []uuid.UUID) ([]*domain.StudySession, error) {
	args := m.Called(ctx, collectionIDs)
	if list, ok := args.Get(0).([]*domain.StudySession); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionStore) ListCompletedByStudent(ctx context.Context, studentID uuid.UUID) ([]*domain.StudySession, error) {
	args := m.Called(ctx, studentID)
	if list, ok := args.Get(0).([]*domain.StudySession); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
