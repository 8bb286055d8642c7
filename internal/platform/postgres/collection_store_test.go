package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/platform/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var collectionRowColumns = []string{
	"id", "owner_id", "name", "description", "card_count", "tags",
	"source_collection_id", "original_owner_id", "last_studied_at", "created_at", "updated_at",
}

func TestCollectionStoreListDerivedBindsIDSlices(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresCollectionStore(db, nil)

	source := uuid.New()
	teacher := uuid.New()
	clone := uuid.New()
	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("source_collection_id = ANY\\(\\$1::uuid\\[\\]\\)").
		WithArgs([]uuid.UUID{source}, []uuid.UUID{teacher}).
		WillReturnRows(sqlmock.NewRows(collectionRowColumns).AddRow(
			clone.String(), uuid.NewString(), "Verbs", "", 2, []byte(`[]`),
			source.String(), teacher.String(), nil, now, now,
		))

	got, err := s.ListDerived(context.Background(), []uuid.UUID{source}, []uuid.UUID{teacher})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, clone, got[0].ID)
	require.NotNil(t, got[0].Provenance)
	assert.Equal(t, source, got[0].Provenance.SourceCollectionID)
	assert.Equal(t, teacher, got[0].Provenance.OriginalOwnerID)
}

func TestCollectionStoreListDerivedEmpty(t *testing.T) {
	db, _ := newMock(t)
	s := postgres.NewPostgresCollectionStore(db, nil)

	got, err := s.ListDerived(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
