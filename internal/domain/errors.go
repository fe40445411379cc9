package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrEditConflict      = errors.New("edit conflict")
	ErrBookingExpired    = errors.New("booking window has expired")
	ErrInvalidSignature  = errors.New("payment signature mismatch")
	ErrOrderAlreadySet   = errors.New("booking already has a payment order")
	ErrBookingNotPending = errors.New("booking is no longer pending")
)

// ConflictError reports the exact subset of requested seats that are held or
// owned by someone else, so the caller can re-offer only the rest.
type ConflictError struct {
	SeatIDs []int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seats unavailable: %v", e.SeatIDs)
}

// ValidationError covers seat selections that can never succeed: seats that
// are not part of the showtime layout, empty selections, and the like.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// GatewayError wraps a transient failure from the external payment provider.
// Callers may retry with bounded backoff; it is never swallowed.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: %v", e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
