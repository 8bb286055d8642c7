package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/platform/postgres"
	"github.com/phrazzld/scry-classroom/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportStoreCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresImportStore(db, nil)

	rec := &domain.ImportRecord{
		ID:                 uuid.New(),
		SourceCollectionID: uuid.New(),
		GrantKey:           "grant:" + uuid.NewString(),
		ImporterID:         uuid.New(),
		ClonedCollectionID: uuid.New(),
		CreatedAt:          time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO import_records").
		WithArgs(rec.ID, rec.SourceCollectionID, rec.GrantKey, rec.ImporterID, rec.ClonedCollectionID, rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO import_records").WillReturnError(newPgError("23505"))

	require.NoError(t, s.Create(context.Background(), rec))
	err := s.Create(context.Background(), rec)
	assert.ErrorIs(t, err, store.ErrImportExists)
}

func TestImportStoreExists(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresImportStore(db, nil)

	source, importer := uuid.New(), uuid.New()
	mock.ExpectQuery("FROM import_records").
		WithArgs(source, "class:x", importer).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.Exists(context.Background(), source, "class:x", importer)
	require.NoError(t, err)
	assert.True(t, ok)
}
