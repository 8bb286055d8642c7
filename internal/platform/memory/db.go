package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/store"
)

type importKey struct {
	source   uuid.UUID
	grantKey string
	importer uuid.UUID
}

type memberKey struct {
	class   uuid.UUID
	student uuid.UUID
}

type grantUser struct {
	grant uuid.UUID
	user  uuid.UUID
}

// DB is the shared state behind every memory store. Stored values are never
// mutated in place: writes replace the map entry with a fresh copy, which is
// what lets a transaction undo its writes by restoring the old pointers.
type DB struct {
	mu sync.RWMutex
	// txMu serialises transactions.
	txMu sync.Mutex

	collections map[uuid.UUID]*domain.Collection
	cards       map[uuid.UUID]*domain.Card
	grants      map[uuid.UUID]*domain.Grant
	grantUsers  map[grantUser]time.Time
	sessions    map[uuid.UUID]*domain.StudySession
	imports     map[importKey]*domain.ImportRecord
	classes     map[uuid.UUID]*domain.Class
	members     map[memberKey]time.Time

	logger *slog.Logger
}

// NewDB creates an empty in-memory database.
func NewDB(logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{
		collections: make(map[uuid.UUID]*domain.Collection),
		cards:       make(map[uuid.UUID]*domain.Card),
		grants:      make(map[uuid.UUID]*domain.Grant),
		grantUsers:  make(map[grantUser]time.Time),
		sessions:    make(map[uuid.UUID]*domain.StudySession),
		imports:     make(map[importKey]*domain.ImportRecord),
		classes:     make(map[uuid.UUID]*domain.Class),
		members:     make(map[memberKey]time.Time),
		logger:      logger.With(slog.String("component", "memory_store")),
	}
}

// Stores returns non-transactional stores on db.
func (db *DB) Stores() store.Stores {
	return db.stores(nil)
}

func (db *DB) stores(u *undoLog) store.Stores {
	return store.Stores{
		Cards:       &CardStore{db: db, undo: u},
		Collections: &CollectionStore{db: db, undo: u},
		Grants:      &GrantStore{db: db, undo: u},
		Sessions:    &SessionStore{db: db, undo: u},
		Imports:     &ImportStore{db: db, undo: u},
		Classes:     &ClassStore{db: db, undo: u},
	}
}

var _ store.Transactor = (*DB)(nil)

// Within implements store.Transactor. Transactions run one at a time; when
// fn fails or panics every write made through the provided stores is undone.
// Rollback restores each touched entry to its value before the transaction,
// so a concurrent non-transactional write to the same entry is lost.
func (db *DB) Within(ctx context.Context, fn func(ctx context.Context, tx store.Stores) error) (err error) {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	log := logger.FromContextOrDefault(ctx, db.logger)
	u := &undoLog{}

	defer func() {
		if p := recover(); p != nil {
			db.rollback(u)
			log.Error("rolled back transaction after panic", slog.Any("panic", p))
			panic(p)
		}
	}()

	if err = fn(ctx, db.stores(u)); err != nil {
		db.rollback(u)
		log.Debug("rolled back transaction due to error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (db *DB) rollback(u *undoLog) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u.apply()
}

// undoLog collects the inverse of every write made inside a transaction.
// It is only touched while DB.mu is held for writing.
type undoLog struct {
	steps []func()
}

func (u *undoLog) apply() {
	for i := len(u.steps) - 1; i >= 0; i-- {
		u.steps[i]()
	}
	u.steps = nil
}

// remember records how to restore m[k] to its current state.
func remember[K comparable, V any](u *undoLog, m map[K]V, k K) {
	if u == nil {
		return
	}
	prev, ok := m[k]
	u.steps = append(u.steps, func() {
		if ok {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory store: %w", err)
	}
	return nil
}
