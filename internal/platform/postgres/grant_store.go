package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/store"
)

// used_by is aggregated from grant_users so a grant is always read in one
// round trip.
const grantSelect = `
	SELECT g.id, g.collection_id, g.issued_by, g.kind, g.class_id, g.secret,
		g.permissions, g.expires_at, g.max_uses, g.password_hash, g.use_count,
		g.last_used_at, g.active, g.created_at,
		COALESCE((SELECT json_agg(gu.user_id ORDER BY gu.first_used_at)
			FROM grant_users gu WHERE gu.grant_id = g.id), '[]'::json)
	FROM grants g
`

// PostgresGrantStore implements store.GrantStore.
type PostgresGrantStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGrantStore creates a grant store.
func NewPostgresGrantStore(db store.DBTX, logger *slog.Logger) *PostgresGrantStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGrantStore{
		db:     db,
		logger: logger.With(slog.String("component", "grant_store")),
	}
}

var _ store.GrantStore = (*PostgresGrantStore)(nil)

// WithTx returns a copy of the store bound to tx.
func (s *PostgresGrantStore) WithTx(tx *sql.Tx) *PostgresGrantStore {
	return &PostgresGrantStore{db: tx, logger: s.logger}
}

// Create implements store.GrantStore. A collision on the active-secret index
// yields store.ErrSecretExists so the caller can retry with a new secret.
func (s *PostgresGrantStore) Create(ctx context.Context, g *domain.Grant) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	perms, err := toJSON(g.Permissions)
	if err != nil {
		return err
	}
	var maxUses sql.NullInt32
	if g.MaxUses != nil {
		if *g.MaxUses < 1 || *g.MaxUses > domain.MaxGrantUses {
			return domain.ErrInvalidMaxUses
		}
		maxUses = sql.NullInt32{Int32: int32(*g.MaxUses), Valid: true}
	}

	const query = `
		INSERT INTO grants (id, collection_id, issued_by, kind, class_id, secret,
			permissions, expires_at, max_uses, password_hash, use_count, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		g.ID,
		g.CollectionID,
		g.IssuedBy,
		string(g.Kind),
		nullUUID(g.ClassID),
		g.Secret,
		perms,
		nullTime(g.ExpiresAt),
		maxUses,
		g.PasswordHash,
		g.Active,
		g.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("grant secret collision", slog.String("grant_id", g.ID.String()))
			return MapUniqueViolation(err, store.ErrSecretExists)
		}
		log.Error("failed to create grant",
			slog.String("error", err.Error()),
			slog.String("grant_id", g.ID.String()))
		return MapError(err)
	}

	log.Info("grant created",
		slog.String("grant_id", g.ID.String()),
		slog.String("collection_id", g.CollectionID.String()),
		slog.String("kind", string(g.Kind)))
	return nil
}

// GetByID implements store.GrantStore.
func (s *PostgresGrantStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Grant, error) {
	return s.getOne(ctx, grantSelect+` WHERE g.id = $1`, id)
}

// GetBySecret implements store.GrantStore.
func (s *PostgresGrantStore) GetBySecret(ctx context.Context, secret string) (*domain.Grant, error) {
	query := grantSelect + `
		WHERE UPPER(g.secret) = UPPER($1)
		ORDER BY g.active DESC, g.created_at DESC
		LIMIT 1`
	return s.getOne(ctx, query, secret)
}

// ListByIssuer implements store.GrantStore.
func (s *PostgresGrantStore) ListByIssuer(
	ctx context.Context,
	issuerID uuid.UUID,
	collectionID *uuid.UUID,
) ([]*domain.Grant, error) {
	query := grantSelect + `
		WHERE g.issued_by = $1 AND ($2::uuid IS NULL OR g.collection_id = $2)
		ORDER BY g.created_at DESC, g.id`

	rows, err := s.db.QueryContext(ctx, query, issuerID, nullUUID(collectionID))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list grants",
			slog.String("error", err.Error()),
			slog.String("issuer_id", issuerID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	grants := []*domain.Grant{}
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, MapError(err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return grants, nil
}

// RecordUsage implements store.GrantStore. The max_uses guard lives in the
// UPDATE's WHERE clause so two racing redemptions of the last use cannot
// both succeed.
func (s *PostgresGrantStore) RecordUsage(
	ctx context.Context,
	id uuid.UUID,
	userID *uuid.UUID,
	at time.Time,
) (*domain.Grant, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	const incQuery = `
		UPDATE grants
		SET use_count = use_count + 1, last_used_at = $2
		WHERE id = $1 AND (max_uses IS NULL OR use_count < max_uses)
	`
	result, err := s.db.ExecContext(ctx, incQuery, id, at)
	if err != nil {
		log.Error("failed to record grant usage",
			slog.String("error", err.Error()),
			slog.String("grant_id", id.String()))
		return nil, MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrUsageExhausted); err != nil {
		if !errors.Is(err, store.ErrUsageExhausted) {
			return nil, err
		}
		// Either the grant is gone or its limit has been reached.
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		log.Debug("grant usage limit reached", slog.String("grant_id", id.String()))
		return nil, store.ErrUsageExhausted
	}

	if userID != nil {
		const memberQuery = `
			INSERT INTO grant_users (grant_id, user_id, first_used_at)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`
		if _, err := s.db.ExecContext(ctx, memberQuery, id, *userID, at); err != nil {
			log.Error("failed to record grant user",
				slog.String("error", err.Error()),
				slog.String("grant_id", id.String()))
			return nil, MapError(err)
		}
	}

	return s.GetByID(ctx, id)
}

// Deactivate implements store.GrantStore.
func (s *PostgresGrantStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE grants SET active = FALSE WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrGrantNotFound)
}

// DeactivateExpired implements store.GrantStore.
func (s *PostgresGrantStore) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE grants SET active = FALSE
		WHERE active AND expires_at IS NOT NULL AND expires_at <= $1
	`
	result, err := s.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

func (s *PostgresGrantStore) getOne(ctx context.Context, query string, arg any) (*domain.Grant, error) {
	g, err := scanGrant(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrGrantNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get grant",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return g, nil
}

func scanGrant(row rowScanner) (*domain.Grant, error) {
	var (
		g         domain.Grant
		kind      string
		classID   uuid.NullUUID
		perms     []byte
		expiresAt sql.NullTime
		maxUses   sql.NullInt32
		lastUsed  sql.NullTime
		usedBy    []byte
	)
	if err := row.Scan(
		&g.ID,
		&g.CollectionID,
		&g.IssuedBy,
		&kind,
		&classID,
		&g.Secret,
		&perms,
		&expiresAt,
		&maxUses,
		&g.PasswordHash,
		&g.Usage.Count,
		&lastUsed,
		&g.Active,
		&g.CreatedAt,
		&usedBy,
	); err != nil {
		return nil, err
	}
	g.Kind = domain.GrantKind(kind)
	g.ClassID = uuidPtr(classID)
	if err := fromJSON(perms, &g.Permissions); err != nil {
		return nil, err
	}
	g.ExpiresAt = timePtr(expiresAt)
	if maxUses.Valid {
		m := int(maxUses.Int32)
		g.MaxUses = &m
	}
	g.Usage.LastUsedAt = timePtr(lastUsed)
	g.Usage.UsedBy = []uuid.UUID{}
	if err := fromJSON(usedBy, &g.Usage.UsedBy); err != nil {
		return nil, err
	}
	return &g, nil
}
