package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/store"
	"github.com/stretchr/testify/mock"
)

// CardStore is a mock of store.CardStore.
type CardStore struct {
	mock.Mock
}

var _ store.CardStore = (*CardStore)(nil)

func (m *CardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	args := m.Called(ctx, cards)
	return args.Error(0)
}

func (m *CardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	args := m.Called(ctx, id)
	if card, ok := args.Get(0).(*domain.Card); ok {
		return card, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardStore) ListByCollection(ctx context.Context, collectionID uuid.UUID) ([]*domain.Card, error) {
	args := m.Called(ctx, collectionID)
	if cards, ok := args.Get(0).([]*domain.Card); ok {
		return cards, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardStore) ListDue(ctx context.Context, collectionID uuid.UUID, now time.Time, limit int) ([]*domain.Card, error) {
	args := m.Called(ctx, collectionID, now, limit)
	if cards, ok := args.Get(0).([]*domain.Card); ok {
		return cards, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CardStore) CountDue(
	ctx context.Context,
	collectionID uuid.UUID,
	now time.Time,
	difficultMax, easyMin float64,
) (store.DueCounts, error) {
	args := m.Called(ctx, collectionID, now, difficultMax, easyMin)
	if counts, ok := args.Get(0).(store.DueCounts); ok {
		return counts, args.Error(1)
	}
	return store.DueCounts{}, args.Error(1)
}

func (m *CardStore) ApplyGrade(ctx context.Context, graded *domain.Card, event domain.ReviewEvent) error {
	args := m.Called(ctx, graded, event)
	return args.Error(0)
}

func (m *CardStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
