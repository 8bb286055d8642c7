package notify

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/events"
)

// Conn is one live connection of a user.
type Conn struct {
	UserID uuid.UUID
	send   chan *events.Event
	closed bool
}

// Events returns the channel the transport drains. It is closed when the
// connection is unregistered.
func (c *Conn) Events() <-chan *events.Event {
	return c.send
}

// Hub is the registry of live connections keyed by user.
type Hub struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]map[*Conn]struct{}
	buffer int
	logger *slog.Logger
}

// NewHub creates a hub whose connections buffer up to buffer events.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conns:  make(map[uuid.UUID]map[*Conn]struct{}),
		buffer: buffer,
		logger: logger.With(slog.String("component", "notify_hub")),
	}
}

// Register adds a connection for userID.
func (h *Hub) Register(userID uuid.UUID) *Conn {
	c := &Conn{UserID: userID, send: make(chan *events.Event, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		h.conns[userID] = set
	}
	set[c] = struct{}{}
	h.logger.Debug("connection registered",
		slog.String("user_id", userID.String()),
		slog.Int("connections", len(set)))
	return c
}

// Unregister removes c and closes its event channel. Unregistering twice is
// a no-op.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)

	if set, ok := h.conns[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, c.UserID)
		}
	}
	h.logger.Debug("connection unregistered", slog.String("user_id", c.UserID.String()))
}

// Publish delivers event to every connection of userID and returns how many
// received it. Sends never block.
func (h *Hub) Publish(userID uuid.UUID, event *events.Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.conns[userID] {
		select {
		case c.send <- event:
			delivered++
		default:
			h.logger.Warn("connection buffer full, event dropped",
				slog.String("user_id", userID.String()),
				slog.String("event_type", event.Type))
		}
	}
	return delivered
}

// ConnectionCount returns the number of live connections of userID.
func (h *Hub) ConnectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}
