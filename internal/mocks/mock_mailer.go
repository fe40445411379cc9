package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/showgrid/showgrid/internal/mailer"
)

type MockMailer struct {
	mock.Mock
	mailer.Mailer
}

func (m *MockMailer) Send(recipient, templateFile string, data any) error {
	args := m.Called(recipient, templateFile, data)
	return args.Error(0)
}
