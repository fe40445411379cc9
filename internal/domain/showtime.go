package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ShowtimeSeats struct {
	ShowtimeID int
	HallID     int
	StartTime  time.Time
	BasePrice  decimal.Decimal
	Seats      []Seat
}

type Seat struct {
	ID         int
	Row        int
	Col        int
	Type       string
	ExtraPrice decimal.Decimal
	Available  bool
}

type ShowtimeRepository interface {
	GetSeatsByShowtime(ctx context.Context, showtimeID int) (*ShowtimeSeats, error)
	GetSeatsByShowtimeAndSeatIds(ctx context.Context, showtimeID int, seatIDs []int) (*ShowtimeSeats, error)
}
