package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func results(n int) []CardResult {
	out := make([]CardResult, n)
	for i := range out {
		out[i] = CardResult{CardID: uuid.New(), IsCorrect: i%2 == 0, TimeSpentSec: 3}
	}
	return out
}

func TestScorePct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		totals SessionTotals
		want   int
	}{
		{SessionTotals{Total: 10, Correct: 8, Incorrect: 2}, 80},
		{SessionTotals{Total: 3, Correct: 2, Incorrect: 1}, 67},
		{SessionTotals{Total: 3, Correct: 1, Incorrect: 2}, 33},
		{SessionTotals{Total: 8, Correct: 5, Skipped: 3}, 63}, // 62.5 rounds away from zero
		{SessionTotals{}, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ScorePct(tc.totals), "%+v", tc.totals)
	}
}

func TestStudySessionComplete(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	coll := &Collection{ID: uuid.New(), OwnerID: uuid.New()}

	t.Run("computes score and duration", func(t *testing.T) {
		s, err := NewStudySession(uuid.New(), coll, SessionQuiz, start)
		require.NoError(t, err)
		assert.Equal(t, coll.OwnerID, s.TeacherID)

		end := start.Add(95 * time.Second)
		err = s.Complete(SessionTotals{Total: 10, Correct: 8, Incorrect: 2}, results(10), end, end)
		require.NoError(t, err)
		assert.Equal(t, 80, s.ScorePct)
		assert.Equal(t, 95, s.DurationSec)
		assert.True(t, s.Completed())
	})

	t.Run("per card count must match total", func(t *testing.T) {
		s, _ := NewStudySession(uuid.New(), coll, SessionTest, start)
		err := s.Complete(SessionTotals{Total: 10, Correct: 8, Incorrect: 2}, results(9), start, start)
		assert.ErrorIs(t, err, ErrValidation)
		assert.False(t, s.Completed())
	})

	t.Run("totals must add up", func(t *testing.T) {
		s, _ := NewStudySession(uuid.New(), coll, SessionTest, start)
		err := s.Complete(SessionTotals{Total: 2, Correct: 2, Incorrect: 1}, results(2), start, start)
		assert.ErrorIs(t, err, ErrInconsistentTotals)
	})

	t.Run("second completion conflicts", func(t *testing.T) {
		s, _ := NewStudySession(uuid.New(), coll, SessionRevision, start)
		require.NoError(t, s.Complete(SessionTotals{}, nil, start, start))
		err := s.Complete(SessionTotals{}, nil, start, start)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("ended before start floors duration", func(t *testing.T) {
		s, _ := NewStudySession(uuid.New(), coll, SessionRevision, start)
		require.NoError(t, s.Complete(SessionTotals{}, nil, start.Add(-time.Minute), start))
		assert.Equal(t, 0, s.DurationSec)
	})

	t.Run("invalid kind", func(t *testing.T) {
		_, err := NewStudySession(uuid.New(), coll, "exam", start)
		assert.ErrorIs(t, err, ErrInvalidSessionKind)
	})
}

func TestNewAnnotation(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	a, err := NewAnnotation(uuid.New(), "  good pace ", 5, now)
	require.NoError(t, err)
	assert.Equal(t, "good pace", a.Note)

	_, err = NewAnnotation(uuid.New(), "", 0, now)
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = NewAnnotation(uuid.New(), "", 6, now)
	assert.ErrorIs(t, err, ErrInvalidRating)
}
