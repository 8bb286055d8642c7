package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	payload := CollectionImported{
		ImporterID:         uuid.New(),
		ClonedCollectionID: uuid.New(),
		SourceName:         "Photosynthesis",
		CardCount:          12,
	}

	ev, err := New(TypeCollectionImported, payload, now)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.Equal(t, TypeCollectionImported, ev.Type)
	assert.Equal(t, now, ev.CreatedAt)

	var decoded CollectionImported
	require.NoError(t, ev.UnmarshalPayload(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestNewRejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	_, err := New("bad", make(chan int), time.Now())
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	user := uuid.New()
	imported, err := New(TypeCollectionImported, CollectionImported{}, time.Now())
	require.NoError(t, err)
	completed, err := New(TypeSessionCompleted, SessionCompleted{}, time.Now())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Notify(context.Background(), user, imported)
		}()
	}
	wg.Wait()
	r.Notify(context.Background(), user, completed)

	assert.Len(t, r.Deliveries(), 6)
	assert.Len(t, r.OfType(TypeCollectionImported), 5)
	got := r.OfType(TypeSessionCompleted)
	require.Len(t, got, 1)
	assert.Equal(t, user, got[0].UserID)
}

func TestNop(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		Nop.Notify(context.Background(), uuid.New(), &Event{})
	})
}
