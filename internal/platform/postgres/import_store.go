package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/store"
)

// PostgresImportStore implements store.ImportStore on the import_records
// table and its uq_import_records_key constraint.
type PostgresImportStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresImportStore creates an import record store.
func NewPostgresImportStore(db store.DBTX, logger *slog.Logger) *PostgresImportStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresImportStore{
		db:     db,
		logger: logger.With(slog.String("component", "import_store")),
	}
}

var _ store.ImportStore = (*PostgresImportStore)(nil)

// WithTx returns a copy of the store bound to tx.
func (s *PostgresImportStore) WithTx(tx *sql.Tx) *PostgresImportStore {
	return &PostgresImportStore{db: tx, logger: s.logger}
}

// Create implements store.ImportStore.
func (s *PostgresImportStore) Create(ctx context.Context, rec *domain.ImportRecord) error {
	const query = `
		INSERT INTO import_records (id, source_collection_id, grant_key, importer_id,
			cloned_collection_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.SourceCollectionID,
		rec.GrantKey,
		rec.ImporterID,
		rec.ClonedCollectionID,
		rec.CreatedAt,
	)
	if err != nil {
		log := logger.FromContextOrDefault(ctx, s.logger)
		if IsUniqueViolation(err) {
			log.Debug("import record already exists",
				slog.String("source_collection_id", rec.SourceCollectionID.String()),
				slog.String("importer_id", rec.ImporterID.String()))
			return MapUniqueViolation(err, store.ErrImportExists)
		}
		log.Error("failed to create import record", slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// Exists implements store.ImportStore.
func (s *PostgresImportStore) Exists(
	ctx context.Context,
	sourceCollectionID uuid.UUID,
	grantKey string,
	importerID uuid.UUID,
) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM import_records
			WHERE source_collection_id = $1 AND grant_key = $2 AND importer_id = $3
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, sourceCollectionID, grantKey, importerID).Scan(&exists); err != nil {
		return false, MapError(err)
	}
	return exists, nil
}
