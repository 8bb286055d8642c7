package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeCollectionImported = "collection.imported"
	TypeSessionCompleted   = "session.completed"
)

// Event is a notification addressed to a single user.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// New creates an event with payload serialized as JSON.
func New(eventType string, payload any, now time.Time) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   raw,
		CreatedAt: now,
	}, nil
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// CollectionImported is sent to the importer once an import has committed.
type CollectionImported struct {
	ImporterID         uuid.UUID `json:"importer_id"`
	SourceCollectionID uuid.UUID `json:"source_collection_id"`
	ClonedCollectionID uuid.UUID `json:"cloned_collection_id"`
	SourceName         string    `json:"source_name"`
	CardCount          int       `json:"card_count"`
}

// SessionCompleted is sent to the owner of the studied collection.
type SessionCompleted struct {
	SessionID    uuid.UUID `json:"session_id"`
	StudentID    uuid.UUID `json:"student_id"`
	CollectionID uuid.UUID `json:"collection_id"`
	Kind         string    `json:"kind"`
	ScorePct     int       `json:"score_pct"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Notifier delivers events to users.
type Notifier interface {
	// Notify hands event over for delivery to userID. It returns without
	// waiting for delivery and drops the event when it cannot be queued.
	Notify(ctx context.Context, userID uuid.UUID, event *Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, userID uuid.UUID, event *Event)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, userID uuid.UUID, event *Event) {
	f(ctx, userID, event)
}

// Nop discards every event.
var Nop Notifier = NotifierFunc(func(context.Context, uuid.UUID, *Event) {})
