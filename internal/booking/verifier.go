package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/showgrid/showgrid/internal/domain"
)

// SignatureVerifier authenticates a payment confirmation against the shared
// gateway secret.
type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) bool
}

type ConfirmRequest struct {
	OrderID    string
	PaymentID  string
	Signature  string
	ReceivedAt time.Time
}

// ConfirmResult reports the booking's final state after processing a
// confirmation. Duplicate marks an idempotent repeat: the payment had
// already been recorded and nothing changed.
type ConfirmResult struct {
	Booking   *domain.Booking
	Duplicate bool
}

// Verifier performs the single pending-to-terminal transition for paid
// bookings. Both confirmation entry points (client redirect and provider
// webhook) funnel into Confirm, and the conditional write plus the
// payment_received_at guard make the duplicate delivery harmless.
type Verifier struct {
	bookings   domain.BookingRepository
	holds      domain.HoldStore
	signer     SignatureVerifier
	dispatcher domain.NotificationDispatcher
	logger     *slog.Logger
	now        func() time.Time
}

func NewVerifier(
	bookings domain.BookingRepository,
	holds domain.HoldStore,
	signer SignatureVerifier,
	dispatcher domain.NotificationDispatcher,
	logger *slog.Logger) *Verifier {

	return &Verifier{
		bookings:   bookings,
		holds:      holds,
		signer:     signer,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

func (v *Verifier) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	if !v.signer.Verify(req.OrderID, req.PaymentID, req.Signature) {
		// A forged request must not affect a genuine in-flight booking:
		// no state change, no hold release.
		v.logger.Warn("rejected payment confirmation with invalid signature", "order_id", req.OrderID)
		return nil, domain.ErrInvalidSignature
	}

	booking, err := v.bookings.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	// Idempotency guard: a set payment_received_at means some earlier
	// delivery of this confirmation already ran to completion.
	if booking.PaymentReceivedAt != nil {
		return &ConfirmResult{Booking: booking, Duplicate: true}, nil
	}

	if req.ReceivedAt.After(booking.ExpiresAt) {
		// Late payment: money was captured, but a lapsed hold must never be
		// resurrected because the seat may have been re-sold in between.
		v.logger.Warn(
			"payment received after booking expiry",
			"booking_id", booking.ID,
			"expires_at", booking.ExpiresAt,
			"received_at", req.ReceivedAt,
		)

		return v.fail(ctx, booking, req)
	}

	confirmed, err := v.bookings.GetConfirmedSeatIDs(ctx, booking.ShowtimeID)
	if err != nil {
		return nil, err
	}

	if overlap := intersect(booking.SeatIDs, confirmed); len(overlap) > 0 {
		// The hold's TTL lapsed a moment before payment landed and another
		// user was granted one of the seats in between.
		v.logger.Warn("seats re-sold before payment landed", "booking_id", booking.ID, "seat_ids", overlap)

		return v.fail(ctx, booking, req)
	}

	now := v.now()
	applied, err := v.bookings.UpdateStatus(
		ctx,
		booking.ID,
		domain.BookingStatusPending,
		domain.BookingStatusConfirmed,
		domain.BookingUpdate{
			PaymentID:         &req.PaymentID,
			PaymentReceivedAt: &req.ReceivedAt,
			ConfirmedAt:       &now,
		},
	)
	if err != nil {
		return nil, err
	}

	if !applied {
		return v.lostRace(ctx, booking.ID, req)
	}

	// Seat ownership is now authoritative via the confirmed booking; the
	// ephemeral hold has done its job.
	v.releaseHolds(ctx, booking)
	v.dispatcher.Enqueue(domain.NotificationBookingConfirmed, booking.ID)

	return v.reload(ctx, booking.ID)
}

// fail transitions a paid-but-unconfirmable booking to failed and routes the
// captured money into the refund flow.
func (v *Verifier) fail(ctx context.Context, booking *domain.Booking, req ConfirmRequest) (*ConfirmResult, error) {
	applied, err := v.bookings.UpdateStatus(
		ctx,
		booking.ID,
		domain.BookingStatusPending,
		domain.BookingStatusFailed,
		domain.BookingUpdate{
			PaymentID:         &req.PaymentID,
			PaymentReceivedAt: &req.ReceivedAt,
		},
	)
	if err != nil {
		return nil, err
	}

	if !applied {
		return v.lostRace(ctx, booking.ID, req)
	}

	v.releaseHolds(ctx, booking)
	v.dispatcher.Enqueue(domain.NotificationRefundIntent, booking.ID)

	return v.reload(ctx, booking.ID)
}

// lostRace handles a conditional write that found the booking no longer
// pending. Either a duplicate confirmation won, in which case this call is a
// no-op repeat, or the reconciler expired the booking while money was in
// flight, which is a refund case.
func (v *Verifier) lostRace(ctx context.Context, bookingID string, req ConfirmRequest) (*ConfirmResult, error) {
	booking, err := v.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.PaymentReceivedAt != nil {
		return &ConfirmResult{Booking: booking, Duplicate: true}, nil
	}

	// Pin the payment reference to the terminal row so redeliveries of this
	// confirmation read as repeats instead of raising more refund intents.
	recorded, err := v.bookings.RecordPayment(ctx, booking.ID, req.PaymentID, req.ReceivedAt)
	if err != nil {
		return nil, err
	}

	if !recorded {
		// Another delivery of the same payment got there first.
		return v.duplicate(ctx, booking.ID)
	}

	v.logger.Warn(
		"payment landed on a booking another process already closed",
		"booking_id", booking.ID,
		"status", booking.Status,
	)
	v.dispatcher.Enqueue(domain.NotificationRefundIntent, booking.ID)

	return v.reload(ctx, booking.ID)
}

func (v *Verifier) releaseHolds(ctx context.Context, booking *domain.Booking) {
	err := v.holds.Release(ctx, booking.ShowtimeID, booking.SeatIDs, booking.ID)
	if err != nil {
		// TTL expiry will clean these up; the reconciler covers remnants.
		v.logger.Error("failed to release seat holds", "booking_id", booking.ID, "error", err)
	}
}

func (v *Verifier) reload(ctx context.Context, bookingID string) (*ConfirmResult, error) {
	booking, err := v.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	return &ConfirmResult{Booking: booking}, nil
}

func (v *Verifier) duplicate(ctx context.Context, bookingID string) (*ConfirmResult, error) {
	booking, err := v.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	return &ConfirmResult{Booking: booking, Duplicate: true}, nil
}
