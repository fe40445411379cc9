package domain

import (
	"context"
	"time"
)

// HoldStore is the substrate for temporary seat claims. Every binding
// decision goes through Acquire; Snapshot exists for display only and may
// lag behind.
type HoldStore interface {
	// Acquire claims every seat in seatIDs for holderID, or none of them.
	// A non-empty return value lists the exact seats currently held by
	// someone else.
	Acquire(ctx context.Context, showtimeID int, seatIDs []int, holderID string, ttl time.Duration) ([]int, error)

	// Release drops the holds owned by holderID. Seats held by a different
	// holder are left untouched.
	Release(ctx context.Context, showtimeID int, seatIDs []int, holderID string) error

	// Snapshot returns the seats currently held for a showtime.
	Snapshot(ctx context.Context, showtimeID int) ([]int, error)
}
