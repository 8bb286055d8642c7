package evaluation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/mocks"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/platform/memory"
	"github.com/phrazzld/scry-classroom/internal/service/evaluation"
	"github.com/phrazzld/scry-classroom/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *evaluation.Service
	stores store.Stores
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, _ := logger.NewTestLogger()
	s := memory.NewDB(log).Stores()
	return &fixture{svc: evaluation.NewService(s.Collections, s.Sessions, log), stores: s}
}

func (f *fixture) collection(t *testing.T, owner uuid.UUID, name string) *domain.Collection {
	t.Helper()
	c, err := domain.NewCollection(owner, name, nil, t0)
	require.NoError(t, err)
	require.NoError(t, f.stores.Collections.Create(context.Background(), c))
	return c
}

func (f *fixture) clone(t *testing.T, src *domain.Collection, importer uuid.UUID) *domain.Collection {
	t.Helper()
	c := src.CloneFor(importer, t0)
	require.NoError(t, f.stores.Collections.Create(context.Background(), c))
	return c
}

// session records a completed session with the given correct answers out of
// ten, finished offset after t0.
func (f *fixture) session(t *testing.T, student uuid.UUID, coll *domain.Collection, correct int, offset time.Duration) {
	t.Helper()
	ctx := context.Background()
	sess, err := domain.NewStudySession(student, coll, domain.SessionQuiz, t0)
	require.NoError(t, err)
	require.NoError(t, f.stores.Sessions.Create(ctx, sess))

	perCard := make([]domain.CardResult, 10)
	for i := range perCard {
		perCard[i] = domain.CardResult{CardID: uuid.New(), IsCorrect: i < correct}
	}
	at := t0.Add(offset)
	require.NoError(t, sess.Complete(domain.SessionTotals{Total: 10, Correct: correct, Incorrect: 10 - correct}, perCard, at, at))
	require.NoError(t, f.stores.Sessions.Complete(ctx, sess))
}

func TestTeacherReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher, alice, bob, carol := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	bio := f.collection(t, teacher, "Biology")
	chem := f.collection(t, teacher, "Chemistry")
	aliceBio := f.clone(t, bio, alice)
	bobBio := f.clone(t, bio, bob)
	// Carol copies Alice's copy: two hops away from the teacher.
	carolBio := f.clone(t, aliceBio, carol)
	unrelated := f.collection(t, carol, "Carol's own")

	f.session(t, alice, aliceBio, 8, time.Hour)
	f.session(t, alice, aliceBio, 6, 2*time.Hour)
	f.session(t, alice, chem, 10, 30*time.Minute)
	f.session(t, bob, bobBio, 5, 3*time.Hour)
	f.session(t, carol, carolBio, 9, 4*time.Hour)
	f.session(t, carol, unrelated, 1, 5*time.Hour)
	f.session(t, teacher, bio, 10, 6*time.Hour)

	report, err := f.svc.TeacherReport(ctx, teacher)
	require.NoError(t, err)

	assert.Equal(t, evaluation.Overview{
		OwnedCollections:   2,
		DerivedCollections: 3,
		Students:           3,
		Sessions:           5,
		AverageScorePct:    76,
	}, report.Overview)

	require.Len(t, report.Students, 3)
	assert.Equal(t, carol, report.Students[0].StudentID, "most recent activity first")
	assert.Equal(t, bob, report.Students[1].StudentID)
	assert.Equal(t, alice, report.Students[2].StudentID)

	carolStats := report.Students[0]
	assert.Equal(t, 1, carolStats.TotalSessions, "sessions on unrelated collections are excluded")
	assert.Equal(t, float64(90), carolStats.AverageScorePct)

	aliceStats := report.Students[2]
	assert.Equal(t, 3, aliceStats.TotalSessions)
	assert.Equal(t, float64(80), aliceStats.AverageScorePct)
	assert.Equal(t, t0.Add(2*time.Hour), aliceStats.LastActivityAt)
	require.Len(t, aliceStats.PerCollection, 2)
	assert.Equal(t, evaluation.CollectionStats{
		CollectionID:    aliceBio.ID,
		Name:            "Biology",
		Sessions:        2,
		AverageScorePct: 70,
		LastActivityAt:  t0.Add(2 * time.Hour),
	}, aliceStats.PerCollection[0])
	assert.Equal(t, chem.ID, aliceStats.PerCollection[1].CollectionID)
}

func TestTeacherReportIgnoresSessionSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher, other, student := uuid.New(), uuid.New(), uuid.New()

	src := f.collection(t, teacher, "Algebra")
	cp := f.clone(t, src, student)
	// A session on the student's own copy carries the student as the
	// snapshot owner; the teacher still sees it through provenance.
	f.session(t, student, cp, 7, time.Hour)

	report, err := f.svc.TeacherReport(ctx, teacher)
	require.NoError(t, err)
	require.Len(t, report.Students, 1)
	assert.Equal(t, student, report.Students[0].StudentID)

	report, err = f.svc.TeacherReport(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, report.Students)
	assert.Zero(t, report.Overview.Sessions)
}

func TestTeacherReportWithDeletedSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher, student := uuid.New(), uuid.New()

	// The source no longer exists but the copy still names the teacher as
	// original owner.
	ghost := &domain.Collection{ID: uuid.New(), OwnerID: teacher, Name: "Gone"}
	cp := f.clone(t, ghost, student)
	f.session(t, student, cp, 4, time.Hour)

	report, err := f.svc.TeacherReport(ctx, teacher)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Overview.OwnedCollections)
	assert.Equal(t, 1, report.Overview.DerivedCollections)
	require.Len(t, report.Students, 1)
	assert.Equal(t, float64(40), report.Students[0].AverageScorePct)
}

func TestTeacherReportEmpty(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.TeacherReport(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, report.Students)
	assert.Empty(t, report.Students)
	assert.Equal(t, evaluation.Overview{}, report.Overview)
}

func TestTeacherReportStoreFailure(t *testing.T) {
	log, _ := logger.NewTestLogger()
	collections := new(mocks.CollectionStore)
	sessions := new(mocks.SessionStore)
	svc := evaluation.NewService(collections, sessions, log)
	teacher := uuid.New()

	owned := &domain.Collection{ID: uuid.New(), OwnerID: teacher, Name: "Physics"}
	collections.On("ListByOwner", mock.Anything, teacher).Return([]*domain.Collection{owned}, nil)
	collections.On("ListDerived", mock.Anything, mock.Anything, mock.Anything).Return([]*domain.Collection{}, nil)
	sessions.On("ListCompletedByCollections", mock.Anything, []uuid.UUID{owned.ID}).
		Return(nil, errors.New("connection reset"))

	_, err := svc.TeacherReport(context.Background(), teacher)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	collections.AssertExpectations(t)
	sessions.AssertExpectations(t)
}

func TestStudentSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher, student := uuid.New(), uuid.New()

	a := f.clone(t, f.collection(t, teacher, "French"), student)
	b := f.collection(t, student, "Notes")
	f.session(t, student, a, 9, time.Hour)
	f.session(t, student, b, 6, 3*time.Hour)
	f.session(t, student, b, 7, 2*time.Hour)
	f.session(t, uuid.New(), a, 1, 4*time.Hour)

	summary, err := f.svc.StudentSummary(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, student, summary.StudentID)
	assert.Equal(t, 3, summary.TotalSessions)
	assert.Equal(t, 73.3, summary.AverageScorePct)
	assert.Equal(t, t0.Add(3*time.Hour), summary.LastActivityAt)
	require.Len(t, summary.PerCollection, 2)
	assert.Equal(t, "Notes", summary.PerCollection[0].Name)
	assert.Equal(t, 65.0, summary.PerCollection[0].AverageScorePct)
	assert.Equal(t, "French", summary.PerCollection[1].Name)
}

func TestStudentSummaryNoSessions(t *testing.T) {
	f := newFixture(t)

	summary, err := f.svc.StudentSummary(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, summary.TotalSessions)
	assert.Zero(t, summary.AverageScorePct)
	assert.Empty(t, summary.PerCollection)
}
