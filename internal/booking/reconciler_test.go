package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/showgrid/showgrid/internal/domain"
	"github.com/showgrid/showgrid/internal/mocks"
)

type ReconcilerTestSuite struct {
	suite.Suite
	bookingRepo *mocks.MockBookingRepo
	holds       *mocks.MockHoldStore
	dispatcher  *mocks.MockDispatcher
	reconciler  *Reconciler
}

func (s *ReconcilerTestSuite) SetupTest() {
	s.bookingRepo = new(mocks.MockBookingRepo)
	s.holds = new(mocks.MockHoldStore)
	s.dispatcher = new(mocks.MockDispatcher)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.reconciler = NewReconciler(s.bookingRepo, s.holds, s.dispatcher, logger, time.Minute)
	s.reconciler.now = func() time.Time { return testNow }
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerTestSuite))
}

func staleBooking(showtimeID int, seatIDs ...int) domain.Booking {
	return domain.Booking{
		ID:         uuid.New().String(),
		UserID:     42,
		ShowtimeID: showtimeID,
		SeatIDs:    seatIDs,
		Status:     domain.BookingStatusPending,
		ExpiresAt:  testNow.Add(-time.Minute),
	}
}

func (s *ReconcilerTestSuite) TestSweepExpiresStaleBookings() {
	first := staleBooking(7, 5, 6)
	second := staleBooking(8, 1)

	s.bookingRepo.On("GetExpiredPending", mock.Anything, testNow, defaultSweepBatch).
		Return([]domain.Booking{first, second}, nil)

	for _, booking := range []domain.Booking{first, second} {
		s.bookingRepo.On("UpdateStatus", mock.Anything, booking.ID,
			domain.BookingStatusPending, domain.BookingStatusExpired, domain.BookingUpdate{}).
			Return(true, nil)
		s.holds.On("Release", mock.Anything, booking.ShowtimeID, booking.SeatIDs, booking.ID).Return(nil)
		s.dispatcher.On("Enqueue", domain.NotificationBookingExpired, booking.ID).Return()
	}

	expired, err := s.reconciler.Sweep(context.Background())

	s.Require().NoError(err)
	s.Equal(2, expired)

	s.bookingRepo.AssertExpectations(s.T())
	s.holds.AssertExpectations(s.T())
	s.dispatcher.AssertExpectations(s.T())
}

func (s *ReconcilerTestSuite) TestSweepSkipsBookingsClosedByOthers() {
	// A confirm raced in between the query and the conditional write.
	racedAway := staleBooking(7, 5)

	s.bookingRepo.On("GetExpiredPending", mock.Anything, testNow, defaultSweepBatch).
		Return([]domain.Booking{racedAway}, nil)
	s.bookingRepo.On("UpdateStatus", mock.Anything, racedAway.ID,
		domain.BookingStatusPending, domain.BookingStatusExpired, domain.BookingUpdate{}).
		Return(false, nil)

	expired, err := s.reconciler.Sweep(context.Background())

	s.Require().NoError(err)
	s.Equal(0, expired)

	// The winner owns the cleanup; the reconciler must not release its holds
	// or announce an expiry that did not happen.
	s.holds.AssertNotCalled(s.T(), "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.dispatcher.AssertNotCalled(s.T(), "Enqueue", mock.Anything, mock.Anything)
}

func (s *ReconcilerTestSuite) TestSweepContinuesPastFailures() {
	broken := staleBooking(7, 5)
	healthy := staleBooking(8, 1)

	s.bookingRepo.On("GetExpiredPending", mock.Anything, testNow, defaultSweepBatch).
		Return([]domain.Booking{broken, healthy}, nil)

	s.bookingRepo.On("UpdateStatus", mock.Anything, broken.ID,
		domain.BookingStatusPending, domain.BookingStatusExpired, domain.BookingUpdate{}).
		Return(false, errors.New("connection reset"))

	s.bookingRepo.On("UpdateStatus", mock.Anything, healthy.ID,
		domain.BookingStatusPending, domain.BookingStatusExpired, domain.BookingUpdate{}).
		Return(true, nil)
	s.holds.On("Release", mock.Anything, 8, []int{1}, healthy.ID).Return(nil)
	s.dispatcher.On("Enqueue", domain.NotificationBookingExpired, healthy.ID).Return()

	expired, err := s.reconciler.Sweep(context.Background())

	s.Require().NoError(err)
	s.Equal(1, expired)
}

func (s *ReconcilerTestSuite) TestSweepToleratesHoldReleaseFailure() {
	// TTL expiry will clean the hold up anyway; the booking row is what counts.
	booking := staleBooking(7, 5)

	s.bookingRepo.On("GetExpiredPending", mock.Anything, testNow, defaultSweepBatch).
		Return([]domain.Booking{booking}, nil)
	s.bookingRepo.On("UpdateStatus", mock.Anything, booking.ID,
		domain.BookingStatusPending, domain.BookingStatusExpired, domain.BookingUpdate{}).
		Return(true, nil)
	s.holds.On("Release", mock.Anything, 7, []int{5}, booking.ID).Return(errors.New("redis down"))
	s.dispatcher.On("Enqueue", domain.NotificationBookingExpired, booking.ID).Return()

	expired, err := s.reconciler.Sweep(context.Background())

	s.Require().NoError(err)
	s.Equal(1, expired)
}

func (s *ReconcilerTestSuite) TestSweepQueryFailure() {
	s.bookingRepo.On("GetExpiredPending", mock.Anything, testNow, defaultSweepBatch).
		Return(nil, errors.New("connection refused"))

	expired, err := s.reconciler.Sweep(context.Background())

	s.Require().Error(err)
	s.Equal(0, expired)
}
