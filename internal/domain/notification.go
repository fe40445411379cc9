package domain

type NotificationKind string

const (
	NotificationBookingConfirmed NotificationKind = "booking.confirmed"
	NotificationRefundIntent     NotificationKind = "booking.refund_intent"
	NotificationBookingExpired   NotificationKind = "booking.expired"
)

// NotificationDispatcher hands a notification to the async worker pool.
// Enqueue never blocks the caller; delivery is at-least-once downstream.
type NotificationDispatcher interface {
	Enqueue(kind NotificationKind, bookingID string)
}
