// Package notify hands booking notifications to the external async worker
// pool through a durable queue. Enqueue is fire-and-forget: the request path
// is never blocked on the broker, and delivery guarantees beyond
// at-least-once belong to the downstream worker.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/showgrid/showgrid/internal/domain"
)

const (
	enqueueBuffer = 256
	drainTimeout  = 10 * time.Second
)

type Notification struct {
	Kind       domain.NotificationKind `json:"kind"`
	BookingID  string                  `json:"booking_id"`
	EnqueuedAt time.Time               `json:"enqueued_at"`
}

// Publisher pushes a notification onto the durable queue.
type Publisher interface {
	Publish(ctx context.Context, notification Notification) error
}

type Dispatcher struct {
	publisher Publisher
	logger    *slog.Logger
	queue     chan Notification
	done      chan struct{}
}

func NewDispatcher(publisher Publisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		logger:    logger,
		queue:     make(chan Notification, enqueueBuffer),
		done:      make(chan struct{}),
	}
}

// Enqueue never blocks. When the buffer is full the notification is dropped
// with a log line; the caller's booking transition has already happened and
// must not be held hostage by the broker.
func (d *Dispatcher) Enqueue(kind domain.NotificationKind, bookingID string) {
	notification := Notification{
		Kind:       kind,
		BookingID:  bookingID,
		EnqueuedAt: time.Now(),
	}

	select {
	case d.queue <- notification:
	default:
		d.logger.Error("notification buffer full, dropping", "kind", kind, "booking_id", bookingID)
	}
}

// Run feeds the buffer into the publisher until ctx is cancelled, then
// flushes whatever the buffer still holds before returning. Publish failures
// are retried a few times with backoff, then logged and dropped.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	for {
		if ctx.Err() != nil {
			d.drain()
			return
		}

		select {
		case <-ctx.Done():
			d.drain()
			return
		case notification := <-d.queue:
			d.deliver(ctx, notification)
		}
	}
}

// drain delivers notifications accepted before shutdown. The run context is
// already cancelled at this point, so delivery gets a fresh bounded context.
func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case notification := <-d.queue:
			d.deliver(ctx, notification)
		default:
			return
		}

		if ctx.Err() != nil {
			d.logger.Error("shutdown deadline reached with notifications still buffered", "remaining", len(d.queue))
			return
		}
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) deliver(ctx context.Context, notification Notification) {
	backoff := 100 * time.Millisecond

	for attempt := 1; attempt <= 3; attempt++ {
		publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := d.publisher.Publish(publishCtx, notification)
		cancel()

		if err == nil {
			return
		}

		d.logger.Error(
			"failed to publish notification",
			"kind", notification.Kind,
			"booking_id", notification.BookingID,
			"attempt", attempt,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}
