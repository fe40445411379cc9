package domain

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusFailed    BookingStatus = "failed"
	BookingStatusExpired   BookingStatus = "expired"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// IsTerminal reports whether no further status transition is allowed.
// Every status except pending is terminal.
func (s BookingStatus) IsTerminal() bool {
	return s != BookingStatusPending
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return s == BookingStatusPending && next.IsTerminal()
}

type Booking struct {
	ID                string
	UserID            int
	ShowtimeID        int
	SeatIDs           []int
	Status            BookingStatus
	BaseAmount        decimal.Decimal
	FeeAmount         decimal.Decimal
	TaxAmount         decimal.Decimal
	TotalAmount       decimal.Decimal
	OrderID           *string
	PaymentID         *string
	PaymentReceivedAt *time.Time
	ExpiresAt         time.Time
	CreatedAt         time.Time
	ConfirmedAt       *time.Time
}

type PricingPolicy struct {
	ServiceFee decimal.Decimal // flat fee per seat
	TaxRate    decimal.Decimal // applied to base + fees
}

// NewBooking builds a fully-formed pending booking for the given seat
// selection. ExpiresAt is fixed here and never written again.
func NewBooking(
	userID int,
	showtimeID int,
	seats *ShowtimeSeats,
	pricing PricingPolicy,
	now time.Time,
	holdWindow time.Duration) *Booking {

	seatIDs := make([]int, len(seats.Seats))
	base := decimal.Zero

	for i, seat := range seats.Seats {
		seatIDs[i] = seat.ID
		base = base.Add(seats.BasePrice.Add(seat.ExtraPrice))
	}
	slices.Sort(seatIDs)

	fees := pricing.ServiceFee.Mul(decimal.NewFromInt(int64(len(seatIDs))))
	tax := base.Add(fees).Mul(pricing.TaxRate).Round(2)

	return &Booking{
		ID:          uuid.New().String(),
		UserID:      userID,
		ShowtimeID:  showtimeID,
		SeatIDs:     seatIDs,
		Status:      BookingStatusPending,
		BaseAmount:  base,
		FeeAmount:   fees,
		TaxAmount:   tax,
		TotalAmount: base.Add(fees).Add(tax),
		ExpiresAt:   now.Add(holdWindow),
		CreatedAt:   now,
	}
}

// BookingUpdate carries the mutable payment fields written together with a
// status transition. PaymentReceivedAt is only ever written while the row is
// still pending, which keeps its set-at-most-once guarantee.
type BookingUpdate struct {
	PaymentID         *string
	PaymentReceivedAt *time.Time
	ConfirmedAt       *time.Time
}

type BookingRepository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	GetByOrderID(ctx context.Context, orderID string) (*Booking, error)
	SetOrderID(ctx context.Context, id, orderID string) error
	GetPendingByUserAndShowtime(ctx context.Context, userID, showtimeID int) (*Booking, error)
	GetConfirmedSeatIDs(ctx context.Context, showtimeID int) ([]int, error)
	GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]Booking, error)

	// UpdateStatus applies a conditional write: the transition happens only
	// if the row's current status equals expected. Returns false when some
	// other process won the race.
	UpdateStatus(ctx context.Context, id string, expected, next BookingStatus, update BookingUpdate) (bool, error)

	// RecordPayment pins the payment reference to a booking regardless of
	// its status, at most once. Returns false when a payment was already
	// recorded.
	RecordPayment(ctx context.Context, id, paymentID string, receivedAt time.Time) (bool, error)
}
