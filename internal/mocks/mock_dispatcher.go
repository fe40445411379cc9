package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/showgrid/showgrid/internal/domain"
)

type MockDispatcher struct {
	mock.Mock
	domain.NotificationDispatcher
}

func (m *MockDispatcher) Enqueue(kind domain.NotificationKind, bookingID string) {
	m.Called(kind, bookingID)
}
