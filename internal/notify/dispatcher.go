package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/config"
	"github.com/phrazzld/scry-classroom/internal/events"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
)

// ErrDispatcherStopped is returned by Start after Stop.
var ErrDispatcherStopped = errors.New("dispatcher is stopped")

// Publisher delivers an event to the connections of a user.
type Publisher interface {
	Publish(userID uuid.UUID, event *events.Event) int
}

type delivery struct {
	userID uuid.UUID
	event  *events.Event
}

// Dispatcher is the asynchronous events.Notifier. Notify enqueues into a
// bounded queue drained by a fixed set of workers; when the queue is full or
// the dispatcher has stopped the event is dropped.
type Dispatcher struct {
	publisher   Publisher
	queue       chan delivery
	workerCount int

	mu      sync.RWMutex
	started bool
	stopped bool

	wg     sync.WaitGroup
	logger *slog.Logger
}

var _ events.Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher in front of publisher.
func NewDispatcher(publisher Publisher, cfg config.NotifyConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "notify_dispatcher"))

	workers := cfg.WorkerCount
	if workers <= 0 {
		logger.Warn("invalid worker count specified, using default",
			slog.Int("specified_count", cfg.WorkerCount),
			slog.Int("default_count", 1))
		workers = 1
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}

	return &Dispatcher{
		publisher:   publisher,
		queue:       make(chan delivery, size),
		workerCount: workers,
		logger:      logger,
	}
}

// Start launches the workers. Calling it again is a no-op.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrDispatcherStopped
	}
	if d.started {
		return nil
	}
	d.started = true

	d.logger.Info("starting notification workers", slog.Int("worker_count", d.workerCount))
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	return nil
}

// Stop closes the queue and waits until the workers have drained it or ctx
// is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("notification workers stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn("notification workers did not stop in time")
		return ctx.Err()
	}
}

// Notify implements events.Notifier.
func (d *Dispatcher) Notify(ctx context.Context, userID uuid.UUID, event *events.Event) {
	log := logger.FromContextOrDefault(ctx, d.logger)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		log.Debug("dispatcher stopped, event dropped", slog.String("event_type", event.Type))
		return
	}

	select {
	case d.queue <- delivery{userID: userID, event: event}:
	default:
		log.Warn("notification queue full, event dropped",
			slog.String("user_id", userID.String()),
			slog.String("event_type", event.Type),
			slog.Int("queue_cap", cap(d.queue)))
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for item := range d.queue {
		n := d.publisher.Publish(item.userID, item.event)
		d.logger.Debug("event published",
			slog.Int("worker_id", id),
			slog.String("user_id", item.userID.String()),
			slog.String("event_type", item.event.Type),
			slog.Int("connections", n))
	}
}
