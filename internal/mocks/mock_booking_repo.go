package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/showgrid/showgrid/internal/domain"
)

type MockBookingRepo struct {
	mock.Mock
	domain.BookingRepository
}

func (m *MockBookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)

	booking, _ := args.Get(0).(*domain.Booking)
	return booking, args.Error(1)
}

func (m *MockBookingRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Booking, error) {
	args := m.Called(ctx, orderID)

	booking, _ := args.Get(0).(*domain.Booking)
	return booking, args.Error(1)
}

func (m *MockBookingRepo) SetOrderID(ctx context.Context, id, orderID string) error {
	args := m.Called(ctx, id, orderID)
	return args.Error(0)
}

func (m *MockBookingRepo) GetPendingByUserAndShowtime(ctx context.Context, userID, showtimeID int) (*domain.Booking, error) {
	args := m.Called(ctx, userID, showtimeID)

	booking, _ := args.Get(0).(*domain.Booking)
	return booking, args.Error(1)
}

func (m *MockBookingRepo) GetConfirmedSeatIDs(ctx context.Context, showtimeID int) ([]int, error) {
	args := m.Called(ctx, showtimeID)

	seatIDs, _ := args.Get(0).([]int)
	return seatIDs, args.Error(1)
}

func (m *MockBookingRepo) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	args := m.Called(ctx, now, limit)

	bookings, _ := args.Get(0).([]domain.Booking)
	return bookings, args.Error(1)
}

func (m *MockBookingRepo) UpdateStatus(
	ctx context.Context,
	id string,
	expected, next domain.BookingStatus,
	update domain.BookingUpdate) (bool, error) {

	args := m.Called(ctx, id, expected, next, update)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) RecordPayment(ctx context.Context, id, paymentID string, receivedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, paymentID, receivedAt)
	return args.Bool(0), args.Error(1)
}
