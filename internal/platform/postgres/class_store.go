package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/store"
)

// PostgresClassStore implements store.ClassStore.
type PostgresClassStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresClassStore creates a class store.
func NewPostgresClassStore(db store.DBTX, logger *slog.Logger) *PostgresClassStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresClassStore{
		db:     db,
		logger: logger.With(slog.String("component", "class_store")),
	}
}

var _ store.ClassStore = (*PostgresClassStore)(nil)

// WithTx returns a copy of the store bound to tx.
func (s *PostgresClassStore) WithTx(tx *sql.Tx) *PostgresClassStore {
	return &PostgresClassStore{db: tx, logger: s.logger}
}

// Create implements store.ClassStore.
func (s *PostgresClassStore) Create(ctx context.Context, c *domain.Class) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO classes (id, teacher_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.TeacherID, c.Name, c.CreatedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create class",
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.ClassStore.
func (s *PostgresClassStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Class, error) {
	var c domain.Class
	err := s.db.QueryRowContext(ctx,
		`SELECT id, teacher_id, name, created_at FROM classes WHERE id = $1`, id,
	).Scan(&c.ID, &c.TeacherID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrClassNotFound
		}
		return nil, MapError(err)
	}
	return &c, nil
}

// AddMember implements store.ClassStore.
func (s *PostgresClassStore) AddMember(ctx context.Context, classID, studentID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO class_members (class_id, student_id) VALUES ($1, $2)`,
		classID, studentID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return store.ErrClassNotFound
		}
		return MapUniqueViolation(err, store.ErrMemberExists)
	}
	return nil
}

// IsMember implements store.ClassStore.
func (s *PostgresClassStore) IsMember(ctx context.Context, classID, studentID uuid.UUID) (bool, error) {
	var member bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM class_members WHERE class_id = $1 AND student_id = $2)`,
		classID, studentID,
	).Scan(&member)
	if err != nil {
		return false, MapError(err)
	}
	return member, nil
}
