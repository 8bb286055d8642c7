package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
)

// ImportStore persists import records, unique on
// (SourceCollectionID, GrantKey, ImporterID).
type ImportStore interface {
	// Create inserts a record. Returns ErrImportExists on a duplicate key.
	Create(ctx context.Context, rec *domain.ImportRecord) error

	// Exists reports whether a record with the given key exists.
	Exists(ctx context.Context, sourceCollectionID uuid.UUID, grantKey string, importerID uuid.UUID) (bool, error)
}
