package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/store"
	"github.com/stretchr/testify/mock"
)

// CollectionStore is a mock of store.CollectionStore.
type CollectionStore struct {
	mock.Mock
}

var _ store.CollectionStore = (*CollectionStore)(nil)

func (m *CollectionStore) Create(ctx context.Context, c *domain.Collection) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *CollectionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Collection, error) {
	args := m.Called(ctx, id)
	if c, ok := args.Get(0).(*domain.Collection); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CollectionStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Collection, error) {
	args := m.Called(ctx, ownerID)
	if list, ok := args.Get(0).([]*domain.Collection); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CollectionStore) ListDerived(ctx context.Context, sourceIDs, ownerIDs []uuid.UUID) ([]*domain.Collection, error) {
	args := m.Called(ctx, sourceIDs, ownerIDs)
	if list, ok := args.Get(0).([]*domain.Collection); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CollectionStore) TouchLastStudied(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
