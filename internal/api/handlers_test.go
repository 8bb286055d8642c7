package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/api/shared"
	"github.com/phrazzld/scry-classroom/internal/clock"
	"github.com/phrazzld/scry-classroom/internal/config"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/events"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/platform/memory"
	"github.com/phrazzld/scry-classroom/internal/service/auth"
	"github.com/phrazzld/scry-classroom/internal/service/distribution"
	"github.com/phrazzld/scry-classroom/internal/service/evaluation"
	"github.com/phrazzld/scry-classroom/internal/service/importer"
	"github.com/phrazzld/scry-classroom/internal/service/review"
	"github.com/phrazzld/scry-classroom/internal/service/session"
	"github.com/phrazzld/scry-classroom/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type apiFixture struct {
	router   chi.Router
	stores   store.Stores
	clock    *clock.Mock
	recorder *events.Recorder
	imports  *importer.Service
	teacher  domain.Identity
	student  domain.Identity
	stranger domain.Identity
	source   *domain.Collection
	cards    []*domain.Card
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	log, _ := logger.NewTestLogger()
	db := memory.NewDB(log)
	s := db.Stores()
	clk := clock.NewMock(t0)
	rec := events.NewRecorder()

	f := &apiFixture{
		stores:   s,
		clock:    clk,
		recorder: rec,
		teacher:  domain.Identity{UserID: uuid.New(), Role: domain.RoleTeacher},
		student:  domain.Identity{UserID: uuid.New(), Role: domain.RoleStudent},
		stranger: domain.Identity{UserID: uuid.New(), Role: domain.RoleStudent},
	}

	source, err := domain.NewCollection(f.teacher.UserID, "Verbs", []string{"spanish"}, t0.Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.Collections.Create(ctx, source))
	for _, qa := range [][2]string{{"to eat", "comer"}, {"to drink", "beber"}} {
		c, err := domain.NewCard(source.ID, qa[0], qa[1], t0.Add(-time.Hour))
		require.NoError(t, err)
		f.cards = append(f.cards, c)
	}
	require.NoError(t, s.Cards.CreateMultiple(ctx, f.cards))
	f.source = source

	grants := distribution.NewService(s.Grants, s.Collections, s.Classes, auth.NewBcryptHasher(bcrypt.MinCost),
		config.DistributionConfig{CodeLength: 8, CodeMaxAttempts: 3}, log, distribution.WithClock(clk))
	f.imports = importer.NewService(db, s, grants, rec, clk, log)

	reviews := NewReviewHandler(review.NewService(s.Cards, s.Collections, nil, clk, log), log)
	sessions := NewSessionHandler(session.NewService(s.Sessions, s.Collections, rec, clk, log), log)
	evals := NewEvaluationHandler(evaluation.NewService(s.Collections, s.Sessions, log), log)
	grantH := NewGrantHandler(grants, log)
	importH := NewImportHandler(f.imports, log)

	r := chi.NewRouter()
	r.Post("/cards/{id}/grade", reviews.GradeCard)
	r.Get("/collections/{id}/due", reviews.DueCards)
	r.Post("/collections/{id}/grants", grantH.Issue)
	r.Post("/sessions", sessions.Start)
	r.Post("/sessions/{id}/complete", sessions.Complete)
	r.Put("/sessions/{id}/annotation", sessions.Annotate)
	r.Get("/sessions/{id}", sessions.Get)
	r.Get("/evaluations/students", evals.Students)
	r.Get("/evaluations/me", evals.Me)
	r.Get("/grants", grantH.List)
	r.Delete("/grants/{id}", grantH.Deactivate)
	r.Post("/grants/resolve", grantH.Resolve)
	r.Post("/grants/view", grantH.View)
	r.Post("/imports", importH.ImportByGrant)
	r.Post("/imports/class", importH.ImportFromClass)
	f.router = r
	return f
}

// do serves a request as caller; a zero identity sends it anonymously.
func (f *apiFixture) do(t *testing.T, caller domain.Identity, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if !caller.Anonymous() {
		req = req.WithContext(shared.WithIdentity(req.Context(), caller))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[shared.ErrorResponse](t, rec).Error
}

// importClone gives the student their own copy of the source collection.
func (f *apiFixture) importClone(t *testing.T) *domain.Collection {
	t.Helper()
	rec := f.do(t, f.teacher, http.MethodPost, "/collections/"+f.source.ID.String()+"/grants", map[string]any{
		"kind":        "code",
		"permissions": []string{"copy"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	grant := decode[domain.Grant](t, rec)

	res, err := f.imports.ImportByGrant(context.Background(), f.student.UserID, grant.Secret, "")
	require.NoError(t, err)
	return res.Collection
}

func TestGradeCardHandler(t *testing.T) {
	f := newAPIFixture(t)
	card := f.cards[0]

	t.Run("grades owned card", func(t *testing.T) {
		rec := f.do(t, f.teacher, http.MethodPost, "/cards/"+card.ID.String()+"/grade",
			GradeCardRequest{Signal: "good", TimeSpentSec: 7})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		got := decode[domain.Card](t, rec)
		require.Len(t, got.History, 1)
		assert.Equal(t, domain.SignalGood, got.History[0].Signal)
		assert.True(t, got.NextDueAt.After(t0))
	})

	tests := []struct {
		name     string
		caller   domain.Identity
		path     string
		body     any
		wantCode int
		wantMsg  string
	}{
		{
			name:     "anonymous",
			path:     "/cards/" + card.ID.String() + "/grade",
			body:     GradeCardRequest{Signal: "good"},
			wantCode: http.StatusUnauthorized,
			wantMsg:  "Authentication required",
		},
		{
			name:     "malformed id",
			caller:   f.teacher,
			path:     "/cards/not-a-uuid/grade",
			body:     GradeCardRequest{Signal: "good"},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Invalid ID",
		},
		{
			name:     "unknown signal",
			caller:   f.teacher,
			path:     "/cards/" + card.ID.String() + "/grade",
			body:     map[string]any{"signal": "perfect"},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Invalid Signal: invalid value",
		},
		{
			name:     "unknown field",
			caller:   f.teacher,
			path:     "/cards/" + card.ID.String() + "/grade",
			body:     map[string]any{"signal": "good", "bonus": 1},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Invalid request format",
		},
		{
			name:     "empty body",
			caller:   f.teacher,
			path:     "/cards/" + card.ID.String() + "/grade",
			wantCode: http.StatusBadRequest,
			wantMsg:  "Request body is required",
		},
		{
			name:     "not the owner",
			caller:   f.stranger,
			path:     "/cards/" + card.ID.String() + "/grade",
			body:     GradeCardRequest{Signal: "easy"},
			wantCode: http.StatusForbidden,
			wantMsg:  "You do not own this resource",
		},
		{
			name:     "unknown card",
			caller:   f.teacher,
			path:     "/cards/" + uuid.NewString() + "/grade",
			body:     GradeCardRequest{Signal: "easy"},
			wantCode: http.StatusNotFound,
			wantMsg:  "Card not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.caller, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantMsg, errorMessage(t, rec))
		})
	}
}

func TestDueCardsHandler(t *testing.T) {
	f := newAPIFixture(t)
	base := "/collections/" + f.source.ID.String() + "/due"

	rec := f.do(t, f.teacher, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[review.DueView](t, rec)
	assert.Len(t, view.Cards, 2)
	assert.Equal(t, 2, view.Counts.Due)

	rec = f.do(t, f.teacher, http.MethodGet, base+"?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[review.DueView](t, rec)
	assert.Len(t, view.Cards, 1)
	assert.Equal(t, 2, view.Counts.Due, "counts ignore the page limit")

	// Before the cards were created nothing is due.
	at := t0.Add(-2 * time.Hour).Format(time.RFC3339)
	rec = f.do(t, f.teacher, http.MethodGet, base+"?at="+at, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[review.DueView](t, rec)
	assert.Empty(t, view.Cards)
	assert.Zero(t, view.Counts.Due)

	for _, q := range []string{"?limit=abc", "?limit=-1", "?at=yesterday"} {
		rec = f.do(t, f.teacher, http.MethodGet, base+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec = f.do(t, f.stranger, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSessionHandlers(t *testing.T) {
	f := newAPIFixture(t)
	clone := f.importClone(t)
	cards, err := f.stores.Cards.ListByCollection(context.Background(), clone.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	rec := f.do(t, f.student, http.MethodPost, "/sessions", StartSessionRequest{CollectionID: clone.ID, Kind: "quiz"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	started := decode[domain.StudySession](t, rec)
	assert.Equal(t, f.student.UserID, started.StudentID)
	assert.Nil(t, started.CompletedAt)

	sessionPath := "/sessions/" + started.ID.String()

	t.Run("teacher cannot annotate before completion", func(t *testing.T) {
		rec := f.do(t, f.teacher, http.MethodPut, sessionPath+"/annotation", AnnotateSessionRequest{Rating: 4})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Session is not completed yet", errorMessage(t, rec))
	})

	t.Run("inconsistent totals", func(t *testing.T) {
		rec := f.do(t, f.student, http.MethodPost, sessionPath+"/complete", CompleteSessionRequest{
			Totals: SessionTotalsRequest{Total: 2, Correct: 2, Incorrect: 1},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Session totals are inconsistent", errorMessage(t, rec))
	})

	t.Run("only the student completes", func(t *testing.T) {
		rec := f.do(t, f.teacher, http.MethodPost, sessionPath+"/complete", CompleteSessionRequest{})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	f.clock.Advance(3 * time.Minute)
	complete := CompleteSessionRequest{
		Totals: SessionTotalsRequest{Total: 2, Correct: 1, Incorrect: 1},
		PerCard: []CardResultRequest{
			{CardID: cards[0].ID, IsCorrect: true, TimeSpentSec: 20},
			{CardID: cards[1].ID, IsCorrect: false, TimeSpentSec: 40},
		},
	}
	rec = f.do(t, f.student, http.MethodPost, sessionPath+"/complete", complete)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[domain.StudySession](t, rec)
	assert.Equal(t, 50, done.ScorePct)
	assert.Equal(t, 180, done.DurationSec)
	require.NotNil(t, done.CompletedAt)

	rec = f.do(t, f.student, http.MethodPost, sessionPath+"/complete", complete)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Session already completed", errorMessage(t, rec))

	// The clone's owner and the original teacher both hear about it.
	notified := f.recorder.OfType(events.TypeSessionCompleted)
	require.Len(t, notified, 2)
	assert.Equal(t, f.student.UserID, notified[0].UserID)
	assert.Equal(t, f.teacher.UserID, notified[1].UserID)

	t.Run("annotation", func(t *testing.T) {
		rec := f.do(t, f.teacher, http.MethodPut, sessionPath+"/annotation", AnnotateSessionRequest{Rating: 9})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = f.do(t, f.stranger, http.MethodPut, sessionPath+"/annotation", AnnotateSessionRequest{Rating: 3})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = f.do(t, f.teacher, http.MethodPut, sessionPath+"/annotation",
			AnnotateSessionRequest{Note: "  Review irregulars  ", Rating: 4})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[domain.StudySession](t, rec)
		require.NotNil(t, got.Annotation)
		assert.Equal(t, "Review irregulars", got.Annotation.Note)
		assert.Equal(t, f.teacher.UserID, got.Annotation.AnnotatedBy)
	})

	t.Run("get", func(t *testing.T) {
		for _, caller := range []domain.Identity{f.student, f.teacher} {
			rec := f.do(t, caller, http.MethodGet, sessionPath, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
		}
		rec := f.do(t, f.stranger, http.MethodGet, sessionPath, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = f.do(t, f.student, http.MethodGet, "/sessions/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("evaluations", func(t *testing.T) {
		rec := f.do(t, f.teacher, http.MethodGet, "/evaluations/students", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		report := decode[evaluation.TeacherReport](t, rec)
		assert.Equal(t, 1, report.Overview.OwnedCollections)
		assert.Equal(t, 1, report.Overview.DerivedCollections)
		require.Len(t, report.Students, 1)
		assert.Equal(t, f.student.UserID, report.Students[0].StudentID)
		assert.InDelta(t, 50.0, report.Students[0].AverageScorePct, 0.001)

		rec = f.do(t, f.student, http.MethodGet, "/evaluations/me", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		me := decode[evaluation.StudentStats](t, rec)
		assert.Equal(t, 1, me.TotalSessions)
		require.Len(t, me.PerCollection, 1)
		assert.Equal(t, "Verbs", me.PerCollection[0].Name)

		rec = f.do(t, domain.Identity{}, http.MethodGet, "/evaluations/me", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestStartSessionRejectsForeignCollection(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, f.student, http.MethodPost, "/sessions", StartSessionRequest{CollectionID: f.source.ID, Kind: "revision"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, f.teacher, http.MethodPost, "/sessions", map[string]any{"collection_id": f.source.ID, "kind": "exam"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrantHandlers(t *testing.T) {
	f := newAPIFixture(t)
	grantsPath := "/collections/" + f.source.ID.String() + "/grants"

	rec := f.do(t, f.teacher, http.MethodPost, grantsPath, IssueGrantRequest{
		Kind:        "link",
		Permissions: []string{"view", "copy"},
		Password:    "olé",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	link := decode[domain.Grant](t, rec)
	assert.Len(t, link.Secret, 64)
	assert.NotContains(t, rec.Body.String(), "password_hash")

	t.Run("issue rejects non-owner", func(t *testing.T) {
		rec := f.do(t, f.student, http.MethodPost, grantsPath, IssueGrantRequest{Kind: "code", Permissions: []string{"copy"}})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("issue rejects past expiry", func(t *testing.T) {
		past := t0.Add(-time.Minute)
		rec := f.do(t, f.teacher, http.MethodPost, grantsPath,
			IssueGrantRequest{Kind: "code", Permissions: []string{"copy"}, ExpiresAt: &past})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Expiry must be in the future", errorMessage(t, rec))
	})

	t.Run("issue rejects max uses beyond the column range", func(t *testing.T) {
		huge := 1<<32 + 1
		rec := f.do(t, f.teacher, http.MethodPost, grantsPath,
			IssueGrantRequest{Kind: "code", Permissions: []string{"copy"}, MaxUses: &huge})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid MaxUses: too large", errorMessage(t, rec))
	})

	t.Run("resolve is public and hides the secret", func(t *testing.T) {
		rec := f.do(t, domain.Identity{}, http.MethodPost, "/grants/resolve",
			ResolveGrantRequest{Secret: link.Secret, Password: "olé"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		view := decode[GrantView](t, rec)
		assert.Equal(t, link.ID, view.ID)
		assert.True(t, view.RequiresPassword)
		assert.NotContains(t, rec.Body.String(), link.Secret)
	})

	t.Run("resolve with wrong password", func(t *testing.T) {
		rec := f.do(t, domain.Identity{}, http.MethodPost, "/grants/resolve",
			ResolveGrantRequest{Secret: link.Secret, Password: "ole"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Grant password is missing or incorrect", errorMessage(t, rec))
	})

	t.Run("resolve unknown secret", func(t *testing.T) {
		rec := f.do(t, domain.Identity{}, http.MethodPost, "/grants/resolve", ResolveGrantRequest{Secret: "NOPE1234"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("view records usage", func(t *testing.T) {
		rec := f.do(t, f.student, http.MethodPost, "/grants/view", ResolveGrantRequest{Secret: link.Secret, Password: "olé"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var body struct {
			Grant      GrantView                      `json:"grant"`
			Collection distribution.CollectionPreview `json:"collection"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Verbs", body.Collection.Name)
		assert.Equal(t, 2, body.Collection.CardCount)

		stored, err := f.stores.Grants.GetByID(context.Background(), link.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Usage.Count)
		assert.Contains(t, stored.Usage.UsedBy, f.student.UserID)
	})

	t.Run("list", func(t *testing.T) {
		rec := f.do(t, f.teacher, http.MethodGet, "/grants?collection_id="+f.source.ID.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]domain.Grant](t, rec), 1)

		rec = f.do(t, f.teacher, http.MethodGet, "/grants?collection_id=oops", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("deactivate", func(t *testing.T) {
		path := "/grants/" + link.ID.String()
		rec := f.do(t, f.student, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = f.do(t, f.teacher, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())

		rec = f.do(t, domain.Identity{}, http.MethodPost, "/grants/resolve",
			ResolveGrantRequest{Secret: link.Secret, Password: "olé"})
		assert.Equal(t, http.StatusGone, rec.Code)
		assert.Equal(t, "Grant has been deactivated", errorMessage(t, rec))
	})
}

func TestImportHandlers(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	rec := f.do(t, f.teacher, http.MethodPost, "/collections/"+f.source.ID.String()+"/grants", IssueGrantRequest{
		Kind:        "code",
		Permissions: []string{"copy"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	code := decode[domain.Grant](t, rec)

	rec = f.do(t, f.student, http.MethodPost, "/imports", ImportRequest{Secret: code.Secret})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[importer.Result](t, rec)
	assert.Equal(t, 2, res.CardCount)
	assert.Equal(t, f.student.UserID, res.Collection.OwnerID)
	require.Len(t, f.recorder.OfType(events.TypeCollectionImported), 1)

	rec = f.do(t, f.student, http.MethodPost, "/imports", ImportRequest{Secret: code.Secret})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Collection already imported", errorMessage(t, rec))

	rec = f.do(t, f.teacher, http.MethodPost, "/imports", ImportRequest{Secret: code.Secret})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You cannot import your own collection", errorMessage(t, rec))

	rec = f.do(t, domain.Identity{}, http.MethodPost, "/imports", ImportRequest{Secret: code.Secret})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	t.Run("class channel", func(t *testing.T) {
		class := &domain.Class{ID: uuid.New(), TeacherID: f.teacher.UserID, Name: "Spanish I", CreatedAt: t0}
		require.NoError(t, f.stores.Classes.Create(ctx, class))
		require.NoError(t, f.stores.Classes.AddMember(ctx, class.ID, f.stranger.UserID))

		rec := f.do(t, f.teacher, http.MethodPost, "/collections/"+f.source.ID.String()+"/grants", IssueGrantRequest{
			Kind:        "class",
			Permissions: []string{"copy"},
			ClassID:     &class.ID,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		classGrant := decode[domain.Grant](t, rec)

		rec = f.do(t, f.student, http.MethodPost, "/imports/class", ClassImportRequest{GrantID: classGrant.ID})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "You are not a member of this class", errorMessage(t, rec))

		rec = f.do(t, f.stranger, http.MethodPost, "/imports/class", ClassImportRequest{GrantID: classGrant.ID})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = f.do(t, f.stranger, http.MethodPost, "/imports/class", ClassImportRequest{GrantID: code.ID})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Grant cannot be used this way", errorMessage(t, rec))
	})
}
