// Package evaluation builds read-only rollups of completed study sessions
// for teachers and students.
package evaluation

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/service"
	"github.com/phrazzld/scry-classroom/internal/store"
)

const serviceName = "evaluation"

// maxResolveRounds bounds the provenance fixpoint. Each round follows one
// more generation of imports.
const maxResolveRounds = 32

// CollectionStats aggregates the sessions of one collection.
type CollectionStats struct {
	CollectionID    uuid.UUID `json:"collection_id"`
	Name            string    `json:"name"`
	Sessions        int       `json:"sessions"`
	AverageScorePct float64   `json:"average_score_pct"`
	LastActivityAt  time.Time `json:"last_activity_at"`
}

// StudentStats aggregates the sessions of one student.
type StudentStats struct {
	StudentID       uuid.UUID         `json:"student_id"`
	TotalSessions   int               `json:"total_sessions"`
	AverageScorePct float64           `json:"average_score_pct"`
	PerCollection   []CollectionStats `json:"per_collection"`
	LastActivityAt  time.Time         `json:"last_activity_at"`
}

// Overview summarises a teacher report.
type Overview struct {
	OwnedCollections   int     `json:"owned_collections"`
	DerivedCollections int     `json:"derived_collections"`
	Students           int     `json:"students"`
	Sessions           int     `json:"sessions"`
	AverageScorePct    float64 `json:"average_score_pct"`
}

// TeacherReport is the per-student rollup over every collection a teacher
// has authority over.
type TeacherReport struct {
	TeacherID uuid.UUID      `json:"teacher_id"`
	Overview  Overview       `json:"overview"`
	Students  []StudentStats `json:"students"`
}

// Service computes evaluations.
type Service struct {
	collections store.CollectionStore
	sessions    store.SessionStore
	logger      *slog.Logger
}

// NewService creates an evaluation service.
func NewService(collections store.CollectionStore, sessions store.SessionStore, logger *slog.Logger) *Service {
	if collections == nil {
		panic("collections cannot be nil")
	}
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		collections: collections,
		sessions:    sessions,
		logger:      logger.With(slog.String("component", "evaluation_service")),
	}
}

// TeacherReport groups by student the completed sessions on the teacher's
// collections and on every copy imported from them, directly or through
// other copies. The TeacherID recorded on sessions is ignored; the
// teacher's own sessions are left out.
func (s *Service) TeacherReport(ctx context.Context, teacherID uuid.UUID) (*TeacherReport, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("teacher_id", teacherID.String()))

	owned, derived, err := s.resolveCollections(ctx, teacherID)
	if err != nil {
		log.Error("failed to resolve teacher collections", slog.String("error", err.Error()))
		return nil, service.NewServiceError(serviceName, "teacher_report", "failed to resolve collections", err)
	}

	names := make(map[uuid.UUID]string, len(owned)+len(derived))
	ids := make([]uuid.UUID, 0, len(owned)+len(derived))
	for _, c := range append(append([]*domain.Collection{}, owned...), derived...) {
		names[c.ID] = c.Name
		ids = append(ids, c.ID)
	}

	report := &TeacherReport{
		TeacherID: teacherID,
		Overview: Overview{
			OwnedCollections:   len(owned),
			DerivedCollections: len(derived),
		},
		Students: []StudentStats{},
	}
	if len(ids) == 0 {
		return report, nil
	}

	sessions, err := s.sessions.ListCompletedByCollections(ctx, ids)
	if err != nil {
		log.Error("failed to list sessions", slog.String("error", err.Error()))
		return nil, service.NewServiceError(serviceName, "teacher_report", "failed to list sessions", err)
	}

	byStudent := make(map[uuid.UUID][]*domain.StudySession)
	var all []*domain.StudySession
	for _, sess := range sessions {
		if sess.StudentID == teacherID {
			continue
		}
		byStudent[sess.StudentID] = append(byStudent[sess.StudentID], sess)
		all = append(all, sess)
	}

	for studentID, list := range byStudent {
		report.Students = append(report.Students, rollup(studentID, list, names))
	}
	sortStudents(report.Students)

	report.Overview.Students = len(report.Students)
	report.Overview.Sessions = len(all)
	report.Overview.AverageScorePct = averageScore(all)

	log.Debug("teacher report built",
		slog.Int("collections", len(ids)),
		slog.Int("students", report.Overview.Students),
		slog.Int("sessions", report.Overview.Sessions))
	return report, nil
}

// StudentSummary rolls up the student's own completed sessions.
func (s *Service) StudentSummary(ctx context.Context, studentID uuid.UUID) (*StudentStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("student_id", studentID.String()))

	sessions, err := s.sessions.ListCompletedByStudent(ctx, studentID)
	if err != nil {
		log.Error("failed to list sessions", slog.String("error", err.Error()))
		return nil, service.NewServiceError(serviceName, "student_summary", "failed to list sessions", err)
	}

	names := make(map[uuid.UUID]string)
	for _, sess := range sessions {
		if _, ok := names[sess.CollectionID]; ok {
			continue
		}
		coll, err := s.collections.GetByID(ctx, sess.CollectionID)
		switch {
		case err == nil:
			names[sess.CollectionID] = coll.Name
		case errors.Is(service.TranslateStoreError(err), domain.ErrNotFound):
			names[sess.CollectionID] = ""
		default:
			log.Error("failed to load collection", slog.String("error", err.Error()))
			return nil, service.NewServiceError(serviceName, "student_summary", "failed to load collection", err)
		}
	}

	stats := rollup(studentID, sessions, names)
	return &stats, nil
}

// resolveCollections returns the teacher's own collections and the fixpoint
// of imported copies: collections whose recorded source is already in the
// set, or whose original owner is the teacher.
func (s *Service) resolveCollections(
	ctx context.Context,
	teacherID uuid.UUID,
) (owned, derived []*domain.Collection, err error) {
	owned, err = s.collections.ListByOwner(ctx, teacherID)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(owned))
	frontier := make([]uuid.UUID, 0, len(owned))
	for _, c := range owned {
		seen[c.ID] = struct{}{}
		frontier = append(frontier, c.ID)
	}
	owners := []uuid.UUID{teacherID}

	for round := 0; round < maxResolveRounds; round++ {
		found, err := s.collections.ListDerived(ctx, frontier, owners)
		if err != nil {
			return nil, nil, err
		}
		// The owner condition is covered after the first round.
		owners = nil
		frontier = frontier[:0]
		for _, c := range found {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			derived = append(derived, c)
			frontier = append(frontier, c.ID)
		}
		if len(frontier) == 0 {
			return owned, derived, nil
		}
	}

	logger.FromContextOrDefault(ctx, s.logger).Warn("provenance resolution stopped at round limit",
		slog.String("teacher_id", teacherID.String()),
		slog.Int("rounds", maxResolveRounds))
	return owned, derived, nil
}

func rollup(studentID uuid.UUID, sessions []*domain.StudySession, names map[uuid.UUID]string) StudentStats {
	stats := StudentStats{
		StudentID:       studentID,
		TotalSessions:   len(sessions),
		AverageScorePct: averageScore(sessions),
		PerCollection:   []CollectionStats{},
	}

	byCollection := make(map[uuid.UUID][]*domain.StudySession)
	for _, sess := range sessions {
		byCollection[sess.CollectionID] = append(byCollection[sess.CollectionID], sess)
		if at := activityAt(sess); at.After(stats.LastActivityAt) {
			stats.LastActivityAt = at
		}
	}

	for id, list := range byCollection {
		cs := CollectionStats{
			CollectionID:    id,
			Name:            names[id],
			Sessions:        len(list),
			AverageScorePct: averageScore(list),
		}
		for _, sess := range list {
			if at := activityAt(sess); at.After(cs.LastActivityAt) {
				cs.LastActivityAt = at
			}
		}
		stats.PerCollection = append(stats.PerCollection, cs)
	}
	sort.Slice(stats.PerCollection, func(i, j int) bool {
		a, b := stats.PerCollection[i], stats.PerCollection[j]
		if !a.LastActivityAt.Equal(b.LastActivityAt) {
			return a.LastActivityAt.After(b.LastActivityAt)
		}
		return a.CollectionID.String() < b.CollectionID.String()
	})
	return stats
}

func sortStudents(students []StudentStats) {
	sort.Slice(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if !a.LastActivityAt.Equal(b.LastActivityAt) {
			return a.LastActivityAt.After(b.LastActivityAt)
		}
		return a.StudentID.String() < b.StudentID.String()
	})
}

func activityAt(sess *domain.StudySession) time.Time {
	if sess.CompletedAt != nil {
		return *sess.CompletedAt
	}
	return sess.StartedAt
}

// averageScore is the mean scorePct rounded to one decimal, 0 when empty.
func averageScore(sessions []*domain.StudySession) float64 {
	if len(sessions) == 0 {
		return 0
	}
	sum := 0
	for _, sess := range sessions {
		sum += sess.ScorePct
	}
	return math.Round(float64(sum)/float64(len(sessions))*10) / 10
}
