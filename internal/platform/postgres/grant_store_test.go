package postgres_test

import (
	"context"
	"database/sql"
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

var grantRowColumns = []string{
	"id", "collection_id", "issued_by", "kind", "class_id", "secret", "permissions",
	"expires_at", "max_uses", "password_hash", "use_count", "last_used_at", "active",
	"created_at", "used_by",
}

func grantRow(id uuid.UUID, useCount int64, maxUses any, usedBy string) *sqlmock.Rows {
	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(grantRowColumns).AddRow(
		id.String(), uuid.NewString(), uuid.NewString(), "code", nil, "AB12CD34",
		[]byte(`["copy","view"]`), nil, maxUses, "", useCount, nil, true, now, []byte(usedBy),
	)
}

func TestGrantStoreCreate(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresGrantStore(db, nil)

	maxUses := 3
	g := &domain.Grant{
		ID:           uuid.New(),
		CollectionID: uuid.New(),
		IssuedBy:     uuid.New(),
		Kind:         domain.GrantKindCode,
		Secret:       "AB12CD34",
		Permissions:  []domain.Permission{domain.PermissionCopy},
		MaxUses:      &maxUses,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO grants").
		WithArgs(g.ID, g.CollectionID, g.IssuedBy, "code", nil, "AB12CD34",
			[]byte(`["copy"]`), nil, int64(3), "", true, g.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), g))
}

func TestGrantStoreCreateRejectsMaxUsesOutOfRange(t *testing.T) {
	db, _ := newMock(t)
	s := postgres.NewPostgresGrantStore(db, nil)

	maxUses := 1<<32 + 1
	g := &domain.Grant{
		ID:           uuid.New(),
		CollectionID: uuid.New(),
		Kind:         domain.GrantKindCode,
		Secret:       "AB12CD34",
		Permissions:  []domain.Permission{domain.PermissionCopy},
		MaxUses:      &maxUses,
		Active:       true,
	}

	err := s.Create(context.Background(), g)
	assert.ErrorIs(t, err, domain.ErrInvalidMaxUses)
}

func TestGrantStoreCreateSecretCollision(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresGrantStore(db, nil)

	mock.ExpectExec("INSERT INTO grants").WillReturnError(newPgError("23505"))

	err := s.Create(context.Background(), &domain.Grant{ID: uuid.New(), Kind: domain.GrantKindCode})
	assert.ErrorIs(t, err, store.ErrSecretExists)
	assert.True(t, store.IsDuplicateError(err))
}

func TestGrantStoreGetBySecretIgnoresCase(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresGrantStore(db, nil)

	id := uuid.New()
	user := uuid.New()
	mock.ExpectQuery("WHERE UPPER\\(g.secret\\) = UPPER\\(\\$1\\)").
		WithArgs("ab12cd34").
		WillReturnRows(grantRow(id, 1, int64(5), `["`+user.String()+`"]`))

	g, err := s.GetBySecret(context.Background(), "ab12cd34")
	require.NoError(t, err)
	assert.Equal(t, id, g.ID)
	assert.Equal(t, []domain.Permission{domain.PermissionCopy, domain.PermissionView}, g.Permissions)
	require.NotNil(t, g.MaxUses)
	assert.Equal(t, 5, *g.MaxUses)
	assert.Equal(t, 1, g.Usage.Count)
	assert.Equal(t, []uuid.UUID{user}, g.Usage.UsedBy)
	assert.Nil(t, g.ClassID)
}

func TestGrantStoreGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresGrantStore(db, nil)

	mock.ExpectQuery("FROM grants g").WillReturnError(sql.ErrNoRows)

	_, err := s.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrGrantNotFound)
}

func TestGrantStoreRecordUsage(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresGrantStore(db, nil)

	id, user := uuid.New(), uuid.New()
	at := time.Now().UTC()

	mock.ExpectExec("SET use_count = use_count \\+ 1.*max_uses IS NULL OR use_count < max_uses").
		WithArgs(id, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO grant_users .* ON CONFLICT DO NOTHING").
		WithArgs(id, user, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM grants g").
		WillReturnRows(grantRow(id, 1, nil, `["`+user.String()+`"]`))

	g, err := s.RecordUsage(context.Background(), id, &user, at)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Usage.Count)
	assert.Nil(t, g.MaxUses)
}

func TestGrantStoreRecordUsageAnonymous(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresGrantStore(db, nil)

	id := uuid.New()
	mock.ExpectExec("UPDATE grants").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM grants g").WillReturnRows(grantRow(id, 4, nil, `[]`))

	g, err := s.RecordUsage(context.Background(), id, nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, g.Usage.UsedBy)
	assert.Equal(t, 4, g.Usage.Count)
}

func TestGrantStoreRecordUsageLimitReached(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresGrantStore(db, nil)

	id := uuid.New()
	mock.ExpectExec("UPDATE grants").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM grants g").WillReturnRows(grantRow(id, 1, int64(1), `[]`))

	_, err := s.RecordUsage(context.Background(), id, nil, time.Now())
	assert.ErrorIs(t, err, store.ErrUsageExhausted)
}

func TestGrantStoreRecordUsageMissingGrant(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresGrantStore(db, nil)

	mock.ExpectExec("UPDATE grants").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM grants g").WillReturnError(sql.ErrNoRows)

	_, err := s.RecordUsage(context.Background(), uuid.New(), nil, time.Now())
	assert.ErrorIs(t, err, store.ErrGrantNotFound)
}

func TestGrantStoreDeactivate(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresGrantStore(db, nil)

	id := uuid.New()
	mock.ExpectExec("UPDATE grants SET active = FALSE WHERE id = \\$1").
		WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE grants SET active = FALSE WHERE id = \\$1").
		WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Deactivate(context.Background(), id))
	assert.ErrorIs(t, s.Deactivate(context.Background(), id), store.ErrGrantNotFound)
}

func TestGrantStoreDeactivateExpired(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresGrantStore(db, nil)

	now := time.Now().UTC()
	mock.ExpectExec("expires_at <= \\$1").WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.DeactivateExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestGrantStoreListByIssuer(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresGrantStore(db, nil)

	issuer, collection := uuid.New(), uuid.New()
	mock.ExpectQuery("g.issued_by = \\$1").
		WithArgs(issuer, collection).
		WillReturnRows(grantRow(uuid.New(), 0, nil, `[]`))

	grants, err := s.ListByIssuer(context.Background(), issuer, &collection)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}
