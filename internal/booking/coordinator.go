// Package booking contains the seat-hold and payment-confirmation core: the
// reservation coordinator, the payment verifier and the expiry reconciler.
// All state lives in the injected stores; the services here only orchestrate.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/showgrid/showgrid/internal/domain"
)

type CoordinatorConfig struct {
	HoldWindow time.Duration
	Pricing    domain.PricingPolicy
}

// Coordinator owns seat-hold acquisition and pending booking creation.
type Coordinator struct {
	holds     domain.HoldStore
	bookings  domain.BookingRepository
	showtimes domain.ShowtimeRepository
	gateway   domain.PaymentGateway
	logger    *slog.Logger
	config    CoordinatorConfig
	now       func() time.Time
}

func NewCoordinator(
	holds domain.HoldStore,
	bookings domain.BookingRepository,
	showtimes domain.ShowtimeRepository,
	gateway domain.PaymentGateway,
	logger *slog.Logger,
	config CoordinatorConfig) *Coordinator {

	return &Coordinator{
		holds:     holds,
		bookings:  bookings,
		showtimes: showtimes,
		gateway:   gateway,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// SelectSeats claims the requested seats for the user and creates a pending
// booking whose deadline is fixed at creation. The returned booking's ID is
// also the hold owner, so later releases are holder-checked automatically.
func (c *Coordinator) SelectSeats(
	ctx context.Context,
	userID, showtimeID int,
	seatIDs []int) (*domain.Booking, error) {

	if len(seatIDs) == 0 {
		return nil, &domain.ValidationError{Reason: "at least one seat must be selected"}
	}

	seen := make(map[int]bool, len(seatIDs))
	for _, seatID := range seatIDs {
		if seen[seatID] {
			return nil, &domain.ValidationError{Reason: fmt.Sprintf("seat %d selected more than once", seatID)}
		}
		seen[seatID] = true
	}

	showtimeSeats, err := c.showtimes.GetSeatsByShowtimeAndSeatIds(ctx, showtimeID, seatIDs)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, &domain.ValidationError{Reason: "selected seats are not part of the showtime layout"}
		}

		return nil, err
	}

	if len(showtimeSeats.Seats) != len(seatIDs) {
		return nil, &domain.ValidationError{Reason: "selected seats are not part of the showtime layout"}
	}

	// Fast-fail on seats already owned by a confirmed booking before
	// touching the hold store. Also the defense against a hold outliving
	// its booking's cleanup: ownership is checked, not just holds.
	confirmed, err := c.bookings.GetConfirmedSeatIDs(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	if taken := intersect(seatIDs, confirmed); len(taken) > 0 {
		return nil, &domain.ConflictError{SeatIDs: taken}
	}

	if err := c.supersedePending(ctx, userID, showtimeID); err != nil {
		return nil, err
	}

	booking := domain.NewBooking(userID, showtimeID, showtimeSeats, c.config.Pricing, c.now(), c.config.HoldWindow)

	conflicts, err := c.holds.Acquire(ctx, showtimeID, booking.SeatIDs, booking.ID, c.config.HoldWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire seat holds: %w", err)
	}

	if len(conflicts) > 0 {
		return nil, &domain.ConflictError{SeatIDs: conflicts}
	}

	if err := c.bookings.Create(ctx, booking); err != nil {
		if releaseErr := c.holds.Release(ctx, showtimeID, booking.SeatIDs, booking.ID); releaseErr != nil {
			c.logger.Error("failed to roll back seat holds", "booking_id", booking.ID, "error", releaseErr)
		}

		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	return booking, nil
}

// supersedePending cancels the user's previous pending booking on the same
// showtime, so refreshing a selection never leaves the user locking two
// disjoint seat sets at once.
func (c *Coordinator) supersedePending(ctx context.Context, userID, showtimeID int) error {
	previous, err := c.bookings.GetPendingByUserAndShowtime(ctx, userID, showtimeID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil
		}

		return err
	}

	cancelled, err := c.bookings.UpdateStatus(
		ctx,
		previous.ID,
		domain.BookingStatusPending,
		domain.BookingStatusCancelled,
		domain.BookingUpdate{},
	)
	if err != nil {
		return err
	}

	// Losing the conditional write means another process already moved the
	// booking to a terminal state; its holds are that process's problem.
	if !cancelled {
		return nil
	}

	if err := c.holds.Release(ctx, showtimeID, previous.SeatIDs, previous.ID); err != nil {
		c.logger.Error("failed to release superseded holds", "booking_id", previous.ID, "error", err)
	}

	return nil
}

// Checkout creates the external payment order for a pending booking and
// stores its reference. Calling it again returns the existing order.
func (c *Coordinator) Checkout(ctx context.Context, bookingID string, userID int) (string, error) {
	booking, err := c.getOwned(ctx, bookingID, userID)
	if err != nil {
		return "", err
	}

	if booking.Status != domain.BookingStatusPending {
		return "", domain.ErrBookingNotPending
	}

	if c.now().After(booking.ExpiresAt) {
		return "", domain.ErrBookingExpired
	}

	if booking.OrderID != nil {
		return *booking.OrderID, nil
	}

	orderID, err := c.gateway.CreateOrder(ctx, booking.TotalAmount, booking.ID)
	if err != nil {
		return "", err
	}

	err = c.bookings.SetOrderID(ctx, booking.ID, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderAlreadySet) {
			existing, getErr := c.bookings.GetByID(ctx, booking.ID)
			if getErr != nil {
				return "", getErr
			}

			c.logger.Warn(
				"concurrent checkout created a duplicate payment order",
				"booking_id", booking.ID,
				"abandoned_order_id", orderID,
			)

			return *existing.OrderID, nil
		}

		return "", err
	}

	return orderID, nil
}

// Cancel handles a client-reported cancellation. It is only a hint: the
// reconciler enforces the deadline whether or not this is ever called.
func (c *Coordinator) Cancel(ctx context.Context, bookingID string, userID int) error {
	booking, err := c.getOwned(ctx, bookingID, userID)
	if err != nil {
		return err
	}

	cancelled, err := c.bookings.UpdateStatus(
		ctx,
		booking.ID,
		domain.BookingStatusPending,
		domain.BookingStatusCancelled,
		domain.BookingUpdate{},
	)
	if err != nil {
		return err
	}

	if !cancelled {
		return domain.ErrBookingNotPending
	}

	if err := c.holds.Release(ctx, booking.ShowtimeID, booking.SeatIDs, booking.ID); err != nil {
		c.logger.Error("failed to release holds on cancel", "booking_id", booking.ID, "error", err)
	}

	return nil
}

// GetBooking returns the booking only to its owner.
func (c *Coordinator) GetBooking(ctx context.Context, bookingID string, userID int) (*domain.Booking, error) {
	return c.getOwned(ctx, bookingID, userID)
}

func (c *Coordinator) getOwned(ctx context.Context, bookingID string, userID int) (*domain.Booking, error) {
	booking, err := c.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != userID {
		return nil, domain.ErrRecordNotFound
	}

	return booking, nil
}

func intersect(requested, taken []int) []int {
	takenSet := make(map[int]bool, len(taken))
	for _, seatID := range taken {
		takenSet[seatID] = true
	}

	var overlap []int
	for _, seatID := range requested {
		if takenSet[seatID] {
			overlap = append(overlap, seatID)
		}
	}

	return overlap
}
