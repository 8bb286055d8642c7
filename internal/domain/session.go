package domain

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionKind distinguishes the study modes.
type SessionKind string

// Session kinds.
const (
	SessionRevision SessionKind = "revision"
	SessionQuiz     SessionKind = "quiz"
	SessionTest     SessionKind = "test"
)

// Valid reports whether k is a known kind.
func (k SessionKind) Valid() bool {
	switch k {
	case SessionRevision, SessionQuiz, SessionTest:
		return true
	}
	return false
}

// CardResult is the outcome for one card within a session.
type CardResult struct {
	CardID       uuid.UUID `json:"card_id"`
	IsCorrect    bool      `json:"is_correct"`
	TimeSpentSec int       `json:"time_spent_sec"`
}

// SessionTotals are the raw counts reported by the client.
type SessionTotals struct {
	Total     int `json:"total"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Skipped   int `json:"skipped"`
}

// Validate checks that the totals are non-negative and add up.
func (t SessionTotals) Validate() error {
	if t.Total < 0 || t.Correct < 0 || t.Incorrect < 0 || t.Skipped < 0 {
		return ErrInconsistentTotals
	}
	if t.Correct+t.Incorrect+t.Skipped != t.Total {
		return ErrInconsistentTotals
	}
	return nil
}

// ScorePct returns round(100*correct/total), or 0 for an empty session.
func ScorePct(t SessionTotals) int {
	if t.Total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(t.Correct) / float64(t.Total)))
}

// Annotation is the teacher's optional note on a completed session.
type Annotation struct {
	Note        string    `json:"note"`
	Rating      int       `json:"rating"`
	AnnotatedBy uuid.UUID `json:"annotated_by"`
	AnnotatedAt time.Time `json:"annotated_at"`
}

// NewAnnotation validates the rating and trims the note.
func NewAnnotation(by uuid.UUID, note string, rating int, now time.Time) (*Annotation, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	return &Annotation{
		Note:        strings.TrimSpace(note),
		Rating:      rating,
		AnnotatedBy: by,
		AnnotatedAt: now,
	}, nil
}

// StudySession is one study, quiz or test run over a collection. TeacherID
// is a snapshot of the collection owner when the session started and is only
// a display hint; authority is always resolved through collection provenance.
type StudySession struct {
	ID           uuid.UUID     `json:"id"`
	StudentID    uuid.UUID     `json:"student_id"`
	TeacherID    uuid.UUID     `json:"teacher_id"`
	CollectionID uuid.UUID     `json:"collection_id"`
	Kind         SessionKind   `json:"kind"`
	PerCard      []CardResult  `json:"per_card"`
	Totals       SessionTotals `json:"totals"`
	ScorePct     int           `json:"score_pct"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      *time.Time    `json:"ended_at,omitempty"`
	DurationSec  int           `json:"duration_sec"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Annotation   *Annotation   `json:"annotation,omitempty"`
}

// NewStudySession starts a session for studentID over collection.
func NewStudySession(studentID uuid.UUID, collection *Collection, kind SessionKind, now time.Time) (*StudySession, error) {
	if !kind.Valid() {
		return nil, ErrInvalidSessionKind
	}
	return &StudySession{
		ID:           uuid.New(),
		StudentID:    studentID,
		TeacherID:    collection.OwnerID,
		CollectionID: collection.ID,
		Kind:         kind,
		PerCard:      []CardResult{},
		StartedAt:    now,
	}, nil
}

// Completed reports whether the session has been completed.
func (s *StudySession) Completed() bool {
	return s.CompletedAt != nil
}

// Complete fills in the outcome of the session. It rejects totals that do
// not add up or that disagree with the per-card results, and a second
// completion.
func (s *StudySession) Complete(totals SessionTotals, perCard []CardResult, endedAt, now time.Time) error {
	if s.Completed() {
		return ErrSessionCompleted
	}
	if err := totals.Validate(); err != nil {
		return err
	}
	if len(perCard) != totals.Total {
		return ErrInconsistentTotals
	}
	for _, r := range perCard {
		if r.CardID == uuid.Nil || r.TimeSpentSec < 0 {
			return ErrInconsistentTotals
		}
	}

	if perCard == nil {
		perCard = []CardResult{}
	}
	s.PerCard = perCard
	s.Totals = totals
	s.ScorePct = ScorePct(totals)
	s.EndedAt = &endedAt
	s.DurationSec = int(endedAt.Sub(s.StartedAt) / time.Second)
	if s.DurationSec < 0 {
		s.DurationSec = 0
	}
	s.CompletedAt = &now
	return nil
}

// ImportRecord marks a successful import. At most one exists per
// (SourceCollectionID, GrantKey, ImporterID).
type ImportRecord struct {
	ID                 uuid.UUID `json:"id"`
	SourceCollectionID uuid.UUID `json:"source_collection_id"`
	GrantKey           string    `json:"grant_key"`
	ImporterID         uuid.UUID `json:"importer_id"`
	ClonedCollectionID uuid.UUID `json:"cloned_collection_id"`
	CreatedAt          time.Time `json:"created_at"`
}
