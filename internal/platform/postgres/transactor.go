package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/scry-classroom/internal/store"
)

// NewStores builds every PostgreSQL store on db, which may be a pool or a
// transaction.
func NewStores(db store.DBTX, logger *slog.Logger) store.Stores {
	return store.Stores{
		Cards:       NewPostgresCardStore(db, logger),
		Collections: NewPostgresCollectionStore(db, logger),
		Grants:      NewPostgresGrantStore(db, logger),
		Sessions:    NewPostgresSessionStore(db, logger),
		Imports:     NewPostgresImportStore(db, logger),
		Classes:     NewPostgresClassStore(db, logger),
	}
}

// Transactor implements store.Transactor with store.RunInTransaction,
// rebinding pool-level stores to each transaction through WithTx.
type Transactor struct {
	db          *sql.DB
	cards       *PostgresCardStore
	collections *PostgresCollectionStore
	grants      *PostgresGrantStore
	sessions    *PostgresSessionStore
	imports     *PostgresImportStore
	classes     *PostgresClassStore
}

// NewTransactor creates a Transactor on a connection pool.
func NewTransactor(db *sql.DB, logger *slog.Logger) *Transactor {
	if db == nil {
		panic("db cannot be nil")
	}
	return &Transactor{
		db:          db,
		cards:       NewPostgresCardStore(db, logger),
		collections: NewPostgresCollectionStore(db, logger),
		grants:      NewPostgresGrantStore(db, logger),
		sessions:    NewPostgresSessionStore(db, logger),
		imports:     NewPostgresImportStore(db, logger),
		classes:     NewPostgresClassStore(db, logger),
	}
}

var _ store.Transactor = (*Transactor)(nil)

// Within implements store.Transactor.
func (t *Transactor) Within(ctx context.Context, fn func(ctx context.Context, tx store.Stores) error) error {
	return store.RunInTransaction(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, store.Stores{
			Cards:       t.cards.WithTx(tx),
			Collections: t.collections.WithTx(tx),
			Grants:      t.grants.WithTx(tx),
			Sessions:    t.sessions.WithTx(tx),
			Imports:     t.imports.WithTx(tx),
			Classes:     t.classes.WithTx(tx),
		})
	})
}
