package srs

import (
	"time"

	"github.com/phrazzld/scry-classroom/internal/domain"
)

// Difficulty is the read-side classification of a due card.
type Difficulty string

// Classifications.
const (
	DifficultyDifficult Difficulty = "difficult"
	DifficultyNormal    Difficulty = "normal"
	DifficultyEasy      Difficulty = "easy"
)

// classify maps an interval to a difficulty. Both comparisons are inclusive.
func classify(interval float64, params *Params) Difficulty {
	switch {
	case interval <= params.DifficultMaxInterval:
		return DifficultyDifficult
	case interval >= params.EasyMinInterval:
		return DifficultyEasy
	default:
		return DifficultyNormal
	}
}

// calculateNextCard applies one grading to a copy of card. The input card is
// not modified. The caller has already validated the signal.
func calculateNextCard(
	card *domain.Card,
	signal domain.PerformanceSignal,
	timeSpentSec int,
	now time.Time,
	params *Params,
) *domain.Card {
	step := params.Steps[signal]

	next := card.Clone()
	next.Interval = step.Interval
	next.Status = step.Status
	next.NextDueAt = now.Add(step.DueOffset)
	reviewedAt := now
	next.LastReviewedAt = &reviewedAt
	next.UpdatedAt = now
	if next.EaseFactor == 0 {
		next.EaseFactor = domain.DefaultEaseFactor
	}
	if timeSpentSec < 0 {
		timeSpentSec = 0
	}
	next.History = append(next.History, domain.ReviewEvent{
		At:           now,
		Signal:       signal,
		TimeSpentSec: timeSpentSec,
	})
	return next
}
