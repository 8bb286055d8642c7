package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/store"
)

const cardColumns = `id, collection_id, question, answer, status, interval, ease_factor,
	next_due_at, last_reviewed_at, history, created_at, updated_at`

// PostgresCardStore implements store.CardStore.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a card store on a connection or transaction.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

var _ store.CardStore = (*PostgresCardStore)(nil)

// WithTx returns a copy of the store bound to tx.
func (s *PostgresCardStore) WithTx(tx *sql.Tx) *PostgresCardStore {
	return &PostgresCardStore{db: tx, logger: s.logger}
}

// CreateMultiple inserts each card and bumps the owning collection's
// card_count in the same statement.
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	const query = `
		WITH inserted AS (
			INSERT INTO cards (` + cardColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING collection_id
		)
		UPDATE collections SET card_count = card_count + 1
		WHERE id = (SELECT collection_id FROM inserted)
	`

	for _, card := range cards {
		if err := card.Validate(); err != nil {
			log.Warn("card validation failed during create",
				slog.String("error", err.Error()),
				slog.String("card_id", card.ID.String()))
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}

		history, err := toJSON(nonNilHistory(card.History))
		if err != nil {
			return err
		}

		result, err := s.db.ExecContext(ctx, query,
			card.ID,
			card.CollectionID,
			card.Question,
			card.Answer,
			string(card.Status),
			card.Interval,
			card.EaseFactor,
			card.NextDueAt,
			nullTime(card.LastReviewedAt),
			history,
			card.CreatedAt,
			card.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to insert card",
				slog.String("error", err.Error()),
				slog.String("card_id", card.ID.String()))
			if IsForeignKeyViolation(err) {
				return fmt.Errorf("%w: collection %s", store.ErrCollectionNotFound, card.CollectionID)
			}
			return MapError(err)
		}
		if err := CheckRowsAffected(result, store.ErrCollectionNotFound); err != nil {
			return err
		}
	}

	log.Debug("cards created", slog.Int("count", len(cards)))
	return nil
}

// GetByID implements store.CardStore.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`

	card, err := scanCard(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, MapError(err)
	}
	return card, nil
}

// ListByCollection implements store.CardStore.
func (s *PostgresCardStore) ListByCollection(ctx context.Context, collectionID uuid.UUID) ([]*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE collection_id = $1 ORDER BY created_at, id`
	return s.queryCards(ctx, query, collectionID)
}

// ListDue implements store.CardStore.
func (s *PostgresCardStore) ListDue(
	ctx context.Context,
	collectionID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.Card, error) {
	if limit <= 0 {
		query := `SELECT ` + cardColumns + ` FROM cards
			WHERE collection_id = $1 AND next_due_at <= $2
			ORDER BY next_due_at, id`
		return s.queryCards(ctx, query, collectionID, now)
	}
	query := `SELECT ` + cardColumns + ` FROM cards
		WHERE collection_id = $1 AND next_due_at <= $2
		ORDER BY next_due_at, id
		LIMIT $3`
	return s.queryCards(ctx, query, collectionID, now, limit)
}

// CountDue implements store.CardStore.
func (s *PostgresCardStore) CountDue(
	ctx context.Context,
	collectionID uuid.UUID,
	now time.Time,
	difficultMax, easyMin float64,
) (store.DueCounts, error) {
	const query = `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE interval <= $3),
			COUNT(*) FILTER (WHERE interval > $3 AND interval >= $4)
		FROM cards
		WHERE collection_id = $1 AND next_due_at <= $2
	`
	var counts store.DueCounts
	err := s.db.QueryRowContext(ctx, query, collectionID, now, difficultMax, easyMin).
		Scan(&counts.Due, &counts.Difficult, &counts.Easy)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count due cards",
			slog.String("collection_id", collectionID.String()),
			slog.String("error", err.Error()))
		return store.DueCounts{}, MapError(err)
	}
	return counts, nil
}

// ApplyGrade implements store.CardStore. The history entry is appended by
// the database so concurrent gradings of one card both survive.
func (s *PostgresCardStore) ApplyGrade(ctx context.Context, graded *domain.Card, event domain.ReviewEvent) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	entry, err := toJSON([]domain.ReviewEvent{event})
	if err != nil {
		return err
	}

	const query = `
		UPDATE cards
		SET status = $2,
			interval = $3,
			ease_factor = $4,
			next_due_at = $5,
			last_reviewed_at = $6,
			updated_at = $7,
			history = history || $8::jsonb
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		graded.ID,
		string(graded.Status),
		graded.Interval,
		graded.EaseFactor,
		graded.NextDueAt,
		nullTime(graded.LastReviewedAt),
		graded.UpdatedAt,
		entry,
	)
	if err != nil {
		log.Error("failed to apply grade",
			slog.String("error", err.Error()),
			slog.String("card_id", graded.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrCardNotFound); err != nil {
		return err
	}

	log.Debug("grade applied",
		slog.String("card_id", graded.ID.String()),
		slog.String("signal", string(event.Signal)),
		slog.Time("next_due_at", graded.NextDueAt))
	return nil
}

// Delete removes a card and decrements the collection's card_count.
func (s *PostgresCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `
		WITH deleted AS (
			DELETE FROM cards WHERE id = $1 RETURNING collection_id
		)
		UPDATE collections SET card_count = card_count - 1
		WHERE id = (SELECT collection_id FROM deleted)
	`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrCardNotFound)
}

func (s *PostgresCardStore) queryCards(ctx context.Context, query string, args ...any) ([]*domain.Card, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query cards",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	cards := []*domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, MapError(err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return cards, nil
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card         domain.Card
		status       string
		lastReviewed sql.NullTime
		history      []byte
	)
	if err := row.Scan(
		&card.ID,
		&card.CollectionID,
		&card.Question,
		&card.Answer,
		&status,
		&card.Interval,
		&card.EaseFactor,
		&card.NextDueAt,
		&lastReviewed,
		&history,
		&card.CreatedAt,
		&card.UpdatedAt,
	); err != nil {
		return nil, err
	}
	card.Status = domain.CardStatus(status)
	card.LastReviewedAt = timePtr(lastReviewed)
	card.History = []domain.ReviewEvent{}
	if err := fromJSON(history, &card.History); err != nil {
		return nil, err
	}
	return &card, nil
}

func nonNilHistory(h []domain.ReviewEvent) []domain.ReviewEvent {
	if h == nil {
		return []domain.ReviewEvent{}
	}
	return h
}
