package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/swiftorder/user-service/internal/domain"
)

const (
	defaultPublishTimeout = 2 * time.Second
	defaultEventQueueSize = 1024
)

// eventDispatcher publishes credit.checked events from a single background worker.
// Enqueue never blocks: when the queue is full the event is dropped and counted.
type eventDispatcher struct {
	publisher EventPublisher
	exchange  string
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan domain.CreditCheckedEvent
	done    chan struct{}
	dropped atomic.Int64
}

func newEventDispatcher(publisher EventPublisher, exchange string, queueSize int, timeout time.Duration, logger *slog.Logger) *eventDispatcher {
	if queueSize <= 0 {
		queueSize = defaultEventQueueSize
	}
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	d := &eventDispatcher{
		publisher: publisher,
		exchange:  exchange,
		timeout:   timeout,
		logger:    logger,
		queue:     make(chan domain.CreditCheckedEvent, queueSize),
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *eventDispatcher) enqueue(event domain.CreditCheckedEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return false
	}
	select {
	case d.queue <- event:
		return true
	default:
		dropped := d.dropped.Add(1)
		d.logger.Warn("event queue full; dropping credit checked event",
			"user_id", event.UserID,
			"event_id", event.EventID.String(),
			"dropped_total", dropped,
		)
		return false
	}
}

func (d *eventDispatcher) run() {
	defer close(d.done)
	for event := range d.queue {
		d.publish(event)
	}
}

func (d *eventDispatcher) publish(event domain.CreditCheckedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, d.exchange, event.RoutingKey(), event); err != nil {
		d.logger.Warn("failed to publish credit checked event",
			"user_id", event.UserID,
			"event_id", event.EventID.String(),
			"error", err,
		)
	}
}

// close stops accepting events and waits for the queued ones to be published, or for ctx.
func (d *eventDispatcher) close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn("event queue not drained before shutdown", "pending", len(d.queue))
		return ctx.Err()
	}
}
