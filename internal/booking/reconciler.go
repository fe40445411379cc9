package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/showgrid/showgrid/internal/domain"
)

const (
	defaultSweepInterval = time.Minute
	defaultSweepBatch    = 200
)

// Reconciler force-expires stale pending bookings the verifier never
// reached. Several instances can run at once: the conditional status write
// is the only correctness mechanism, there is no mutual exclusion.
type Reconciler struct {
	bookings   domain.BookingRepository
	holds      domain.HoldStore
	dispatcher domain.NotificationDispatcher
	logger     *slog.Logger
	interval   time.Duration
	batchSize  int
	now        func() time.Time
}

func NewReconciler(
	bookings domain.BookingRepository,
	holds domain.HoldStore,
	dispatcher domain.NotificationDispatcher,
	logger *slog.Logger,
	interval time.Duration) *Reconciler {

	if interval <= 0 {
		interval = defaultSweepInterval
	}

	return &Reconciler{
		bookings:   bookings,
		holds:      holds,
		dispatcher: dispatcher,
		logger:     logger,
		interval:   interval,
		batchSize:  defaultSweepBatch,
		now:        time.Now,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("expiry reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("expiry reconciler stopped")
			return
		case <-ticker.C:
			expired, err := r.Sweep(ctx)
			if err != nil {
				r.logger.Error("expiry sweep failed", "error", err)
				continue
			}

			if expired > 0 {
				r.logger.Info("expired stale bookings", "count", expired)
			}
		}
	}
}

// Sweep expires every overdue pending booking it can win the conditional
// write for, and releases any holds TTL expiry left behind (for example a
// partially-cleaned multi-seat set).
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	stale, err := r.bookings.GetExpiredPending(ctx, r.now(), r.batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0

	for i := range stale {
		booking := &stale[i]

		applied, err := r.bookings.UpdateStatus(
			ctx,
			booking.ID,
			domain.BookingStatusPending,
			domain.BookingStatusExpired,
			domain.BookingUpdate{},
		)
		if err != nil {
			r.logger.Error("failed to expire booking", "booking_id", booking.ID, "error", err)
			continue
		}

		// Another process (a racing confirm, or a sibling reconciler)
		// already moved this booking; leave it alone.
		if !applied {
			continue
		}

		err = r.holds.Release(ctx, booking.ShowtimeID, booking.SeatIDs, booking.ID)
		if err != nil {
			r.logger.Error("failed to release holds of expired booking", "booking_id", booking.ID, "error", err)
		}

		r.dispatcher.Enqueue(domain.NotificationBookingExpired, booking.ID)
		expired++
	}

	return expired, nil
}
