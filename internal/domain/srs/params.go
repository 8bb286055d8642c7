package srs

import (
	"time"

	"github.com/phrazzld/scry-classroom/internal/domain"
)

// Step is the scheduling outcome for one performance signal.
type Step struct {
	// DueOffset is added to the grading time to obtain the next due time.
	DueOffset time.Duration
	// Interval is the new interval in fractional days.
	Interval float64
	// Status is the card status after grading.
	Status domain.CardStatus
}

// Params holds the fixed grading policy and the thresholds of the
// due-card classification.
type Params struct {
	Steps map[domain.PerformanceSignal]Step

	// DifficultMaxInterval: a card with interval <= this is difficult.
	DifficultMaxInterval float64
	// EasyMinInterval: a card with interval >= this is easy.
	EasyMinInterval float64
}

// NewDefaultParams returns the production policy. Good and easy resolve to
// the same one-day step.
func NewDefaultParams() *Params {
	return &Params{
		Steps: map[domain.PerformanceSignal]Step{
			domain.SignalAgain: {DueOffset: time.Minute, Interval: 0.001, Status: domain.CardStatusLearning},
			domain.SignalHard:  {DueOffset: 5 * time.Minute, Interval: 0.003, Status: domain.CardStatusLearning},
			domain.SignalGood:  {DueOffset: 24 * time.Hour, Interval: 1, Status: domain.CardStatusReview},
			domain.SignalEasy:  {DueOffset: 24 * time.Hour, Interval: 1, Status: domain.CardStatusReview},
		},
		DifficultMaxInterval: 0.01,
		EasyMinInterval:      1,
	}
}

// ParamsConfig allows overriding the default offsets. Zero values keep the
// defaults.
type ParamsConfig struct {
	AgainOffset time.Duration
	HardOffset  time.Duration
	GoodOffset  time.Duration
	EasyOffset  time.Duration
}

// NewParams creates Params from the defaults with the given overrides.
func NewParams(cfg ParamsConfig) *Params {
	p := NewDefaultParams()
	override := func(sig domain.PerformanceSignal, d time.Duration) {
		if d <= 0 {
			return
		}
		step := p.Steps[sig]
		step.DueOffset = d
		p.Steps[sig] = step
	}
	override(domain.SignalAgain, cfg.AgainOffset)
	override(domain.SignalHard, cfg.HardOffset)
	override(domain.SignalGood, cfg.GoodOffset)
	override(domain.SignalEasy, cfg.EasyOffset)
	return p
}
