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

const sessionColumns = `id, student_id, teacher_id, collection_id, kind, per_card,
	total, correct, incorrect, skipped, score_pct, started_at, ended_at,
	duration_sec, completed_at, annotation`

// PostgresSessionStore implements store.SessionStore.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a session store.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

var _ store.SessionStore = (*PostgresSessionStore)(nil)

// WithTx returns a copy of the store bound to tx.
func (s *PostgresSessionStore) WithTx(tx *sql.Tx) *PostgresSessionStore {
	return &PostgresSessionStore{db: tx, logger: s.logger}
}

// Create implements store.SessionStore.
func (s *PostgresSessionStore) Create(ctx context.Context, sess *domain.StudySession) error {
	perCard, err := toJSON(nonNilResults(sess.PerCard))
	if err != nil {
		return err
	}
	annotation, err := annotationJSON(sess.Annotation)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO study_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = s.db.ExecContext(ctx, query,
		sess.ID,
		sess.StudentID,
		sess.TeacherID,
		sess.CollectionID,
		string(sess.Kind),
		perCard,
		sess.Totals.Total,
		sess.Totals.Correct,
		sess.Totals.Incorrect,
		sess.Totals.Skipped,
		sess.ScorePct,
		sess.StartedAt,
		nullTime(sess.EndedAt),
		sess.DurationSec,
		nullTime(sess.CompletedAt),
		annotation,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create session",
			slog.String("error", err.Error()),
			slog.String("session_id", sess.ID.String()))
		if IsForeignKeyViolation(err) {
			return store.ErrCollectionNotFound
		}
		return MapError(err)
	}
	return nil
}

// GetByID implements store.SessionStore.
func (s *PostgresSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.StudySession, error) {
	query := `SELECT ` + sessionColumns + ` FROM study_sessions WHERE id = $1`
	sess, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get session",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return nil, MapError(err)
	}
	return sess, nil
}

// Complete implements store.SessionStore. The completed_at IS NULL guard
// makes a second completion match no row.
func (s *PostgresSessionStore) Complete(ctx context.Context, sess *domain.StudySession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	perCard, err := toJSON(nonNilResults(sess.PerCard))
	if err != nil {
		return err
	}

	const query = `
		UPDATE study_sessions
		SET per_card = $2, total = $3, correct = $4, incorrect = $5, skipped = $6,
			score_pct = $7, ended_at = $8, duration_sec = $9, completed_at = $10
		WHERE id = $1 AND completed_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query,
		sess.ID,
		perCard,
		sess.Totals.Total,
		sess.Totals.Correct,
		sess.Totals.Incorrect,
		sess.Totals.Skipped,
		sess.ScorePct,
		nullTime(sess.EndedAt),
		sess.DurationSec,
		nullTime(sess.CompletedAt),
	)
	if err != nil {
		log.Error("failed to complete session",
			slog.String("error", err.Error()),
			slog.String("session_id", sess.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrAlreadyDone); err != nil {
		if !errors.Is(err, store.ErrAlreadyDone) {
			return err
		}
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM study_sessions WHERE id = $1)`, sess.ID,
		).Scan(&exists); err != nil {
			return MapError(err)
		}
		if !exists {
			return store.ErrSessionNotFound
		}
		return store.ErrAlreadyDone
	}
	return nil
}

// SetAnnotation implements store.SessionStore.
func (s *PostgresSessionStore) SetAnnotation(ctx context.Context, id uuid.UUID, a *domain.Annotation) error {
	annotation, err := annotationJSON(a)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE study_sessions SET annotation = $2 WHERE id = $1`, id, annotation)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrSessionNotFound)
}

// ListCompletedByCollections implements store.SessionStore.
func (s *PostgresSessionStore) ListCompletedByCollections(
	ctx context.Context,
	collectionIDs []uuid.UUID,
) ([]*domain.StudySession, error) {
	if len(collectionIDs) == 0 {
		return []*domain.StudySession{}, nil
	}
	query := `SELECT ` + sessionColumns + ` FROM study_sessions
		WHERE completed_at IS NOT NULL AND collection_id = ANY($1::uuid[])
		ORDER BY completed_at, id`
	return s.querySessions(ctx, query, collectionIDs)
}

// ListCompletedByStudent implements store.SessionStore.
func (s *PostgresSessionStore) ListCompletedByStudent(
	ctx context.Context,
	studentID uuid.UUID,
) ([]*domain.StudySession, error) {
	query := `SELECT ` + sessionColumns + ` FROM study_sessions
		WHERE completed_at IS NOT NULL AND student_id = $1
		ORDER BY completed_at, id`
	return s.querySessions(ctx, query, studentID)
}

func (s *PostgresSessionStore) querySessions(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.StudySession, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query sessions",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []*domain.StudySession{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

func scanSession(row rowScanner) (*domain.StudySession, error) {
	var (
		sess        domain.StudySession
		kind        string
		perCard     []byte
		endedAt     sql.NullTime
		completedAt sql.NullTime
		annotation  []byte
	)
	if err := row.Scan(
		&sess.ID,
		&sess.StudentID,
		&sess.TeacherID,
		&sess.CollectionID,
		&kind,
		&perCard,
		&sess.Totals.Total,
		&sess.Totals.Correct,
		&sess.Totals.Incorrect,
		&sess.Totals.Skipped,
		&sess.ScorePct,
		&sess.StartedAt,
		&endedAt,
		&sess.DurationSec,
		&completedAt,
		&annotation,
	); err != nil {
		return nil, err
	}
	sess.Kind = domain.SessionKind(kind)
	sess.PerCard = []domain.CardResult{}
	if err := fromJSON(perCard, &sess.PerCard); err != nil {
		return nil, err
	}
	sess.EndedAt = timePtr(endedAt)
	sess.CompletedAt = timePtr(completedAt)
	if len(annotation) > 0 {
		var a domain.Annotation
		if err := fromJSON(annotation, &a); err != nil {
			return nil, err
		}
		sess.Annotation = &a
	}
	return &sess, nil
}

// annotationJSON returns nil for a missing annotation so the column stays
// NULL.
func annotationJSON(a *domain.Annotation) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	return toJSON(a)
}

func nonNilResults(r []domain.CardResult) []domain.CardResult {
	if r == nil {
		return []domain.CardResult{}
	}
	return r
}
