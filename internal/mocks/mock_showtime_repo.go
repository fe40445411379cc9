package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/showgrid/showgrid/internal/domain"
)

type MockShowtimeRepo struct {
	mock.Mock
	domain.ShowtimeRepository
}

func (m *MockShowtimeRepo) GetSeatsByShowtime(ctx context.Context, showtimeID int) (*domain.ShowtimeSeats, error) {
	args := m.Called(ctx, showtimeID)

	seats, _ := args.Get(0).(*domain.ShowtimeSeats)
	return seats, args.Error(1)
}

func (m *MockShowtimeRepo) GetSeatsByShowtimeAndSeatIds(
	ctx context.Context,
	showtimeID int,
	seatIDs []int) (*domain.ShowtimeSeats, error) {

	args := m.Called(ctx, showtimeID, seatIDs)

	seats, _ := args.Get(0).(*domain.ShowtimeSeats)
	return seats, args.Error(1)
}
