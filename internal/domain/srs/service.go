// Package srs implements the review scheduler: a pure function from a card,
// a performance signal and the current time to the card's next due state.
package srs

import (
	"errors"
	"time"

	"github.com/phrazzld/scry-classroom/internal/domain"
)

// ErrNilCard is returned when Grade is called without a card.
var ErrNilCard = errors.New("card cannot be nil")

// Service grades cards and classifies due cards.
type Service interface {
	// Grade returns the card after applying signal at now. It never mutates
	// its input. An unknown signal yields domain.ErrInvalidSignal.
	Grade(card *domain.Card, signal domain.PerformanceSignal, timeSpentSec int, now time.Time) (*domain.Card, error)

	// Classify returns the difficulty view of a card with the given interval.
	Classify(interval float64) Difficulty

	// Bands returns the interval bounds Classify uses: at or below
	// difficultMax is difficult, at or above easyMin is easy.
	Bands() (difficultMax, easyMin float64)

	// IsDue reports whether card is due at now.
	IsDue(card *domain.Card, now time.Time) bool
}

type defaultService struct {
	params *Params
}

// NewDefaultService creates a scheduler with the default policy.
func NewDefaultService() Service {
	return &defaultService{params: NewDefaultParams()}
}

// NewServiceWithParams creates a scheduler with a custom policy.
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{params: params}
}

// Grade implements Service.
func (s *defaultService) Grade(
	card *domain.Card,
	signal domain.PerformanceSignal,
	timeSpentSec int,
	now time.Time,
) (*domain.Card, error) {
	if card == nil {
		return nil, ErrNilCard
	}
	if !signal.Valid() {
		return nil, domain.ErrInvalidSignal
	}
	if _, ok := s.params.Steps[signal]; !ok {
		return nil, domain.ErrInvalidSignal
	}
	return calculateNextCard(card, signal, timeSpentSec, now, s.params), nil
}

// Classify implements Service.
func (s *defaultService) Classify(interval float64) Difficulty {
	return classify(interval, s.params)
}

// Bands implements Service.
func (s *defaultService) Bands() (float64, float64) {
	return s.params.DifficultMaxInterval, s.params.EasyMinInterval
}

// IsDue implements Service.
func (s *defaultService) IsDue(card *domain.Card, now time.Time) bool {
	return !card.NextDueAt.After(now)
}
