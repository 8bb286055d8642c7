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

const collectionColumns = `id, owner_id, name, description, card_count, tags,
	source_collection_id, original_owner_id, last_studied_at, created_at, updated_at`

// PostgresCollectionStore implements store.CollectionStore.
type PostgresCollectionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCollectionStore creates a collection store.
func NewPostgresCollectionStore(db store.DBTX, logger *slog.Logger) *PostgresCollectionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCollectionStore{
		db:     db,
		logger: logger.With(slog.String("component", "collection_store")),
	}
}

var _ store.CollectionStore = (*PostgresCollectionStore)(nil)

// WithTx returns a copy of the store bound to tx.
func (s *PostgresCollectionStore) WithTx(tx *sql.Tx) *PostgresCollectionStore {
	return &PostgresCollectionStore{db: tx, logger: s.logger}
}

// Create implements store.CollectionStore. card_count always starts at 0.
func (s *PostgresCollectionStore) Create(ctx context.Context, c *domain.Collection) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	tags, err := toJSON(domain.NormalizeTags(c.Tags))
	if err != nil {
		return err
	}

	var sourceID, originalOwner uuid.NullUUID
	if c.Provenance != nil {
		sourceID = uuid.NullUUID{UUID: c.Provenance.SourceCollectionID, Valid: true}
		originalOwner = uuid.NullUUID{UUID: c.Provenance.OriginalOwnerID, Valid: true}
	}

	const query = `
		INSERT INTO collections (` + collectionColumns + `)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		c.ID,
		c.OwnerID,
		c.Name,
		c.Description,
		tags,
		sourceID,
		originalOwner,
		nullTime(c.LastStudiedAt),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create collection",
			slog.String("error", err.Error()),
			slog.String("collection_id", c.ID.String()))
		return MapError(err)
	}
	c.CardCount = 0

	log.Debug("collection created",
		slog.String("collection_id", c.ID.String()),
		slog.Bool("imported", c.Provenance != nil))
	return nil
}

// GetByID implements store.CollectionStore.
func (s *PostgresCollectionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE id = $1`
	c, err := scanCollection(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCollectionNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get collection",
			slog.String("error", err.Error()),
			slog.String("collection_id", id.String()))
		return nil, MapError(err)
	}
	return c, nil
}

// ListByOwner implements store.CollectionStore.
func (s *PostgresCollectionStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE owner_id = $1 ORDER BY created_at, id`
	return s.queryCollections(ctx, query, ownerID)
}

// ListDerived implements store.CollectionStore.
func (s *PostgresCollectionStore) ListDerived(
	ctx context.Context,
	sourceIDs, ownerIDs []uuid.UUID,
) ([]*domain.Collection, error) {
	if len(sourceIDs) == 0 && len(ownerIDs) == 0 {
		return []*domain.Collection{}, nil
	}
	query := `SELECT ` + collectionColumns + ` FROM collections
		WHERE source_collection_id = ANY($1::uuid[])
		   OR original_owner_id = ANY($2::uuid[])
		ORDER BY created_at, id`
	return s.queryCollections(ctx, query, sourceIDs, ownerIDs)
}

// TouchLastStudied implements store.CollectionStore.
func (s *PostgresCollectionStore) TouchLastStudied(ctx context.Context, id uuid.UUID, at time.Time) error {
	const query = `UPDATE collections SET last_studied_at = $2 WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrCollectionNotFound)
}

func (s *PostgresCollectionStore) queryCollections(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Collection, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query collections",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []*domain.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

func scanCollection(row rowScanner) (*domain.Collection, error) {
	var (
		c             domain.Collection
		tags          []byte
		sourceID      uuid.NullUUID
		originalOwner uuid.NullUUID
		lastStudied   sql.NullTime
	)
	if err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&c.Description,
		&c.CardCount,
		&tags,
		&sourceID,
		&originalOwner,
		&lastStudied,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Tags = []string{}
	if err := fromJSON(tags, &c.Tags); err != nil {
		return nil, err
	}
	if sourceID.Valid {
		c.Provenance = &domain.Provenance{
			SourceCollectionID: sourceID.UUID,
			OriginalOwnerID:    originalOwner.UUID,
		}
	}
	c.LastStudiedAt = timePtr(lastStudied)
	return &c, nil
}
