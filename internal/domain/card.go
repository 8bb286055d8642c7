package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CardStatus is the learning stage of a card.
type CardStatus string

// Card statuses.
const (
	CardStatusNew      CardStatus = "new"
	CardStatusLearning CardStatus = "learning"
	CardStatusReview   CardStatus = "review"
	CardStatusMastered CardStatus = "mastered"
)

// Valid reports whether s is a known status.
func (s CardStatus) Valid() bool {
	switch s {
	case CardStatusNew, CardStatusLearning, CardStatusReview, CardStatusMastered:
		return true
	}
	return false
}

// PerformanceSignal is the learner's self-assessment after answering a card.
type PerformanceSignal string

// Performance signals.
const (
	SignalAgain PerformanceSignal = "again"
	SignalHard  PerformanceSignal = "hard"
	SignalGood  PerformanceSignal = "good"
	SignalEasy  PerformanceSignal = "easy"
)

// Valid reports whether s is a known signal.
func (s PerformanceSignal) Valid() bool {
	switch s {
	case SignalAgain, SignalHard, SignalGood, SignalEasy:
		return true
	}
	return false
}

// DefaultEaseFactor is assigned to every new or reset card.
const DefaultEaseFactor = 2.5

// ReviewEvent is one grading of a card.
type ReviewEvent struct {
	At           time.Time         `json:"at"`
	Signal       PerformanceSignal `json:"signal"`
	TimeSpentSec int               `json:"time_spent_sec"`
}

// Card is a flashcard together with its scheduling state. Only the scheduler
// changes Status, Interval, NextDueAt and History.
type Card struct {
	ID             uuid.UUID     `json:"id"`
	CollectionID   uuid.UUID     `json:"collection_id"`
	Question       string        `json:"question"`
	Answer         string        `json:"answer"`
	Status         CardStatus    `json:"status"`
	Interval       float64       `json:"interval"` // fractional days
	EaseFactor     float64       `json:"ease_factor"`
	NextDueAt      time.Time     `json:"next_due_at"`
	LastReviewedAt *time.Time    `json:"last_reviewed_at,omitempty"`
	History        []ReviewEvent `json:"history"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewCard creates a card that is due immediately.
func NewCard(collectionID uuid.UUID, question, answer string, now time.Time) (*Card, error) {
	c := &Card{
		ID:           uuid.New(),
		CollectionID: collectionID,
		Question:     question,
		Answer:       answer,
		CreatedAt:    now,
	}
	c.ResetSchedule(now)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the card's invariants.
func (c *Card) Validate() error {
	if c.CollectionID == uuid.Nil {
		return ErrEmptyCollectionID
	}
	if strings.TrimSpace(c.Question) == "" {
		return ErrEmptyQuestion
	}
	return nil
}

// ResetSchedule puts the card back into the state of a card nobody has
// studied yet.
func (c *Card) ResetSchedule(now time.Time) {
	c.Status = CardStatusNew
	c.Interval = 0
	c.EaseFactor = DefaultEaseFactor
	c.NextDueAt = now
	c.LastReviewedAt = nil
	c.History = []ReviewEvent{}
	c.UpdatedAt = now
}

// Clone returns a deep copy of the card.
func (c *Card) Clone() *Card {
	cp := *c
	if c.LastReviewedAt != nil {
		t := *c.LastReviewedAt
		cp.LastReviewedAt = &t
	}
	cp.History = make([]ReviewEvent, len(c.History))
	copy(cp.History, c.History)
	return &cp
}

// CopyInto returns a fresh copy of the card for another collection, with a new
// ID and reset scheduling state. The source owner's progress is never carried
// over.
func (c *Card) CopyInto(collectionID uuid.UUID, now time.Time) *Card {
	cp := &Card{
		ID:           uuid.New(),
		CollectionID: collectionID,
		Question:     c.Question,
		Answer:       c.Answer,
		CreatedAt:    now,
	}
	cp.ResetSchedule(now)
	return cp
}
