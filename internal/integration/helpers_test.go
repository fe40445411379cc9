package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/require"

	"github.com/showgrid/showgrid/internal/app"
)

// sessionHelper mints authenticated session cookies directly against the
// session store, since login itself lives outside this service.
type sessionHelper struct {
	manager *scs.SessionManager
}

func (h *sessionHelper) cookieFor(t testing.TB, userId int) *http.Cookie {
	t.Helper()

	ctx, err := h.manager.Load(context.Background(), "")
	require.NoError(t, err)

	h.manager.Put(ctx, app.SessionKeyUserId.String(), userId)

	token, _, err := h.manager.Commit(ctx)
	require.NoError(t, err)

	return &http.Cookie{
		Name:  h.manager.Cookie.Name,
		Value: token,
	}
}

func seedCatalog(t testing.TB, testApp *TestApp) {
	t.Helper()

	ctx := context.Background()

	_, err := testApp.DB.Exec(ctx, `
		INSERT INTO showtimes (id, hall_id, starts_at, base_price)
		VALUES (1, 1, now() + interval '1 day', 12.00)
		ON CONFLICT (id) DO NOTHING`)
	require.NoError(t, err)

	_, err = testApp.DB.Exec(ctx, `
		INSERT INTO seats (id, hall_id, seat_row, seat_col, seat_type, extra_price)
		VALUES
			(1, 1, 1, 1, 'STANDARD', 0),
			(2, 1, 1, 2, 'STANDARD', 0),
			(3, 1, 2, 1, 'PREMIUM', 4.50),
			(4, 1, 2, 2, 'PREMIUM', 4.50)
		ON CONFLICT (id) DO NOTHING`)
	require.NoError(t, err)
}

func clearBookings(t testing.TB, testApp *TestApp) {
	t.Helper()

	_, err := testApp.DB.Exec(context.Background(), `DELETE FROM booking_seats`)
	require.NoError(t, err)

	_, err = testApp.DB.Exec(context.Background(), `DELETE FROM bookings`)
	require.NoError(t, err)
}

// clearHolds drops every hold key so holds from one test never bleed into the
// next. Session keys are left alone.
func clearHolds(t testing.TB, testApp *TestApp) {
	t.Helper()

	ctx := context.Background()

	iter := testApp.Redis.Scan(ctx, 0, "hold:*", 100).Iterator()
	for iter.Next(ctx) {
		require.NoError(t, testApp.Redis.Del(ctx, iter.Val()).Err())
	}
	require.NoError(t, iter.Err())
}

func doJSON(t testing.TB, handler http.Handler, method, url string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec.Result()
}

func decodeBody[T any](t testing.TB, res *http.Response) T {
	t.Helper()

	defer res.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))

	return out
}

func expireBooking(t testing.TB, testApp *TestApp, bookingID string) {
	t.Helper()

	_, err := testApp.DB.Exec(context.Background(),
		`UPDATE bookings SET expires_at = $1 WHERE id = $2`,
		time.Now().Add(-time.Minute), bookingID)
	require.NoError(t, err)
}
