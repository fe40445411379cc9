package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/showgrid/showgrid/internal/domain"
)

type MockHoldStore struct {
	mock.Mock
	domain.HoldStore
}

func (m *MockHoldStore) Acquire(
	ctx context.Context,
	showtimeID int,
	seatIDs []int,
	holderID string,
	ttl time.Duration) ([]int, error) {

	args := m.Called(ctx, showtimeID, seatIDs, holderID, ttl)

	conflicts, _ := args.Get(0).([]int)
	return conflicts, args.Error(1)
}

func (m *MockHoldStore) Release(ctx context.Context, showtimeID int, seatIDs []int, holderID string) error {
	args := m.Called(ctx, showtimeID, seatIDs, holderID)
	return args.Error(0)
}

func (m *MockHoldStore) Snapshot(ctx context.Context, showtimeID int) ([]int, error) {
	args := m.Called(ctx, showtimeID)

	seatIDs, _ := args.Get(0).([]int)
	return seatIDs, args.Error(1)
}
