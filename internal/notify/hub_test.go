package notify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/events"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(t *testing.T, eventType string) *events.Event {
	t.Helper()
	ev, err := events.New(eventType, map[string]string{"k": "v"}, time.Now())
	require.NoError(t, err)
	return ev
}

func TestHubPublish(t *testing.T) {
	t.Parallel()

	log, _ := logger.NewTestLogger()
	hub := NewHub(4, log)
	alice, bob := uuid.New(), uuid.New()

	a1 := hub.Register(alice)
	a2 := hub.Register(alice)
	b1 := hub.Register(bob)
	assert.Equal(t, 2, hub.ConnectionCount(alice))

	ev := newEvent(t, events.TypeSessionCompleted)
	assert.Equal(t, 2, hub.Publish(alice, ev))

	assert.Same(t, ev, <-a1.Events())
	assert.Same(t, ev, <-a2.Events())
	assert.Empty(t, b1.Events())

	assert.Zero(t, hub.Publish(uuid.New(), ev), "nobody connected")
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	t.Parallel()

	log, buf := logger.NewTestLogger()
	hub := NewHub(1, log)
	user := uuid.New()
	conn := hub.Register(user)

	assert.Equal(t, 1, hub.Publish(user, newEvent(t, "first")))
	assert.Equal(t, 0, hub.Publish(user, newEvent(t, "second")))

	got := <-conn.Events()
	assert.Equal(t, "first", got.Type)
	assert.Contains(t, buf.String(), "connection buffer full")
}

func TestHubUnregister(t *testing.T) {
	t.Parallel()

	hub := NewHub(1, nil)
	user := uuid.New()
	conn := hub.Register(user)

	hub.Unregister(conn)
	hub.Unregister(conn)

	assert.Zero(t, hub.ConnectionCount(user))
	_, open := <-conn.Events()
	assert.False(t, open)
	assert.Zero(t, hub.Publish(user, newEvent(t, "late")))
}
