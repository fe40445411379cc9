package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/showgrid/showgrid/internal/booking"
	"github.com/showgrid/showgrid/internal/domain"
	"github.com/showgrid/showgrid/internal/mocks"
	"github.com/showgrid/showgrid/internal/validator"
)

func newTestApplication(opts ...func(*Application)) *Application {
	app := &Application{
		validator:    validator.NewValidator(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		showtimeRepo: &mocks.MockShowtimeRepo{},
		bookingRepo:  &mocks.MockBookingRepo{},
		holds:        &mocks.MockHoldStore{},
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// mockCoordinator satisfies the coordinator seam the handlers use.
type mockCoordinator struct {
	mock.Mock
}

func (m *mockCoordinator) SelectSeats(ctx context.Context, userID, showtimeID int, seatIDs []int) (*domain.Booking, error) {
	args := m.Called(ctx, userID, showtimeID, seatIDs)

	result, _ := args.Get(0).(*domain.Booking)
	return result, args.Error(1)
}

func (m *mockCoordinator) Checkout(ctx context.Context, bookingID string, userID int) (string, error) {
	args := m.Called(ctx, bookingID, userID)
	return args.String(0), args.Error(1)
}

func (m *mockCoordinator) Cancel(ctx context.Context, bookingID string, userID int) error {
	args := m.Called(ctx, bookingID, userID)
	return args.Error(0)
}

func (m *mockCoordinator) GetBooking(ctx context.Context, bookingID string, userID int) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, userID)

	result, _ := args.Get(0).(*domain.Booking)
	return result, args.Error(1)
}

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) Confirm(ctx context.Context, req booking.ConfirmRequest) (*booking.ConfirmResult, error) {
	args := m.Called(ctx, req)

	result, _ := args.Get(0).(*booking.ConfirmResult)
	return result, args.Error(1)
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

// withURLParams attaches chi route parameters for direct handler invocation.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	routeCtx := chi.NewRouteContext()
	for key, value := range params {
		routeCtx.URLParams.Add(key, value)
	}

	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx))
}

// withUser simulates an authenticated request the way the session middleware
// leaves it: user id resolved into the request context.
func withUser(r *http.Request, userId int) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), SessionKeyUserId, userId))
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var result T
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	return result
}

func ptr[T any](v T) *T {
	return &v
}
