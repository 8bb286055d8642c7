package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/store"
)

// ImportStore implements store.ImportStore.
type ImportStore struct {
	db   *DB
	undo *undoLog
}

var _ store.ImportStore = (*ImportStore)(nil)

// Create implements store.ImportStore.
func (s *ImportStore) Create(ctx context.Context, rec *domain.ImportRecord) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	key := importKey{source: rec.SourceCollectionID, grantKey: rec.GrantKey, importer: rec.ImporterID}
	if _, ok := s.db.imports[key]; ok {
		return store.ErrImportExists
	}
	cp := *rec
	remember(s.undo, s.db.imports, key)
	s.db.imports[key] = &cp
	return nil
}

// Exists implements store.ImportStore.
func (s *ImportStore) Exists(
	ctx context.Context,
	sourceCollectionID uuid.UUID,
	grantKey string,
	importerID uuid.UUID,
) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	_, ok := s.db.imports[importKey{source: sourceCollectionID, grantKey: grantKey, importer: importerID}]
	return ok, nil
}
