package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Delivery is one event recorded by a Recorder.
type Delivery struct {
	UserID uuid.UUID
	Event  *Event
}

// Recorder is an in-process Notifier that keeps every event it receives.
// It is safe for concurrent use.
type Recorder struct {
	mu         sync.RWMutex
	deliveries []Delivery
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

var _ Notifier = (*Recorder)(nil)

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, userID uuid.UUID, event *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{UserID: userID, Event: event})
}

// Deliveries returns a copy of everything recorded so far.
func (r *Recorder) Deliveries() []Delivery {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}

// OfType returns the recorded deliveries with the given event type.
func (r *Recorder) OfType(eventType string) []Delivery {
	var out []Delivery
	for _, d := range r.Deliveries() {
		if d.Event.Type == eventType {
			out = append(out, d)
		}
	}
	return out
}
