// Package session records study sessions: it starts them, completes them
// with the client's totals, and lets the responsible teacher annotate them.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/clock"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/events"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/service"
	"github.com/phrazzld/scry-classroom/internal/store"
)

const serviceName = "session"

// CompleteRequest is the client's report of a finished session.
type CompleteRequest struct {
	Totals  domain.SessionTotals
	PerCard []domain.CardResult
	// EndedAt defaults to the completion time.
	EndedAt *time.Time
}

// Service is the session recorder.
type Service struct {
	sessions    store.SessionStore
	collections store.CollectionStore
	notifier    events.Notifier
	clock       clock.Clock
	logger      *slog.Logger
}

// NewService creates a session recorder. A nil notifier discards events.
func NewService(
	sessions store.SessionStore,
	collections store.CollectionStore,
	notifier events.Notifier,
	clk clock.Clock,
	logger *slog.Logger,
) *Service {
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if collections == nil {
		panic("collections cannot be nil")
	}
	if notifier == nil {
		notifier = events.Nop
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions:    sessions,
		collections: collections,
		notifier:    notifier,
		clock:       clk,
		logger:      logger.With(slog.String("component", "session_service")),
	}
}

// Start opens a session over a collection owned by the caller.
func (s *Service) Start(
	ctx context.Context,
	caller domain.Identity,
	collectionID uuid.UUID,
	kind domain.SessionKind,
) (*domain.StudySession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !kind.Valid() {
		return nil, domain.ErrInvalidSessionKind
	}
	coll, err := s.collections.GetByID(ctx, collectionID)
	if err != nil {
		return nil, s.fail(ctx, "start", err)
	}
	if !coll.OwnedBy(caller.UserID) {
		return nil, domain.ErrNotOwner
	}

	sess, err := domain.NewStudySession(caller.UserID, coll, kind, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, s.fail(ctx, "start", err)
	}

	log.Info("session started",
		slog.String("session_id", sess.ID.String()),
		slog.String("collection_id", collectionID.String()),
		slog.String("kind", string(kind)))
	return sess, nil
}

// Complete records the outcome of a session. Only the session's student may
// complete it, and only once. After the write the collection's
// LastStudiedAt is touched and the collection owner is notified; neither
// side effect can fail the call.
func (s *Service) Complete(
	ctx context.Context,
	caller domain.Identity,
	sessionID uuid.UUID,
	req CompleteRequest,
) (*domain.StudySession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("session_id", sessionID.String()))

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, s.fail(ctx, "complete", err)
	}
	if sess.StudentID != caller.UserID {
		return nil, domain.ErrForbidden
	}

	now := s.clock.Now()
	endedAt := now
	if req.EndedAt != nil {
		endedAt = *req.EndedAt
	}
	if err := sess.Complete(req.Totals, req.PerCard, endedAt, now); err != nil {
		return nil, err
	}

	if err := s.sessions.Complete(ctx, sess); err != nil {
		mapped := s.fail(ctx, "complete", err)
		if errors.Is(mapped, domain.ErrConflict) {
			log.Debug("session already completed")
		}
		return nil, mapped
	}

	log.Info("session completed",
		slog.Int("score_pct", sess.ScorePct),
		slog.Int("total", sess.Totals.Total),
		slog.Int("duration_sec", sess.DurationSec))

	s.afterComplete(ctx, sess)
	return sess, nil
}

func (s *Service) afterComplete(ctx context.Context, sess *domain.StudySession) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("session_id", sess.ID.String()))
	ctx = context.WithoutCancel(ctx)

	if err := s.collections.TouchLastStudied(ctx, sess.CollectionID, *sess.CompletedAt); err != nil {
		log.Warn("failed to touch collection last studied time", slog.String("error", err.Error()))
	}

	coll, err := s.collections.GetByID(ctx, sess.CollectionID)
	if err != nil {
		log.Warn("failed to load collection for notification", slog.String("error", err.Error()))
		return
	}

	ev, err := events.New(events.TypeSessionCompleted, events.SessionCompleted{
		SessionID:    sess.ID,
		StudentID:    sess.StudentID,
		CollectionID: sess.CollectionID,
		Kind:         string(sess.Kind),
		ScorePct:     sess.ScorePct,
		CompletedAt:  *sess.CompletedAt,
	}, s.clock.Now())
	if err != nil {
		log.Warn("failed to build session event", slog.String("error", err.Error()))
		return
	}

	recipients := []uuid.UUID{coll.OwnerID}
	if owners, err := service.OwnerChain(ctx, s.collections, coll); err == nil && len(owners) > 1 {
		recipients = append(recipients, owners[len(owners)-1])
	}
	for _, id := range recipients {
		s.notifier.Notify(ctx, id, ev)
	}
}

// Annotate sets the teacher's note and rating on a completed session. The
// caller must own the studied collection or one it was imported from.
func (s *Service) Annotate(
	ctx context.Context,
	caller domain.Identity,
	sessionID uuid.UUID,
	note string,
	rating int,
) (*domain.StudySession, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, s.fail(ctx, "annotate", err)
	}
	if err := s.requireTeacher(ctx, caller, sess); err != nil {
		return nil, err
	}
	if !sess.Completed() {
		return nil, domain.ErrSessionInProgress
	}

	annotation, err := domain.NewAnnotation(caller.UserID, note, rating, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SetAnnotation(ctx, sessionID, annotation); err != nil {
		return nil, s.fail(ctx, "annotate", err)
	}
	sess.Annotation = annotation

	logger.FromContextOrDefault(ctx, s.logger).Info("session annotated",
		slog.String("session_id", sessionID.String()),
		slog.Int("rating", rating))
	return sess, nil
}

// Get returns a session to its student or to a teacher with authority over
// the studied collection.
func (s *Service) Get(ctx context.Context, caller domain.Identity, sessionID uuid.UUID) (*domain.StudySession, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, s.fail(ctx, "get", err)
	}
	if sess.StudentID == caller.UserID && !caller.Anonymous() {
		return sess, nil
	}
	if err := s.requireTeacher(ctx, caller, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// requireTeacher resolves authority through provenance; the TeacherID
// snapshot on the session is never consulted.
func (s *Service) requireTeacher(ctx context.Context, caller domain.Identity, sess *domain.StudySession) error {
	coll, err := s.collections.GetByID(ctx, sess.CollectionID)
	if err != nil {
		return s.fail(ctx, "resolve_teacher", err)
	}
	ok, err := service.HasAuthority(ctx, s.collections, coll, caller.UserID)
	if err != nil {
		return s.fail(ctx, "resolve_teacher", err)
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

func (s *Service) fail(ctx context.Context, op string, err error) error {
	mapped := service.TranslateStoreError(err)
	if service.IsDomainError(mapped) {
		return mapped
	}
	logger.FromContextOrDefault(ctx, s.logger).Error("session operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return service.NewServiceError(serviceName, op, "store failure", err)
}
