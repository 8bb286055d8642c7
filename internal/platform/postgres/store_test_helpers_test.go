package postgres_test

import (
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// uuidSliceConverter lets []uuid.UUID arguments through unchanged, as the
// pgx driver does when binding them to uuid[] parameters.
type uuidSliceConverter struct{}

func (uuidSliceConverter) ConvertValue(v any) (driver.Value, error) {
	if ids, ok := v.([]uuid.UUID); ok {
		return ids, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(uuidSliceConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}
