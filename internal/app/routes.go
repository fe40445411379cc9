package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(app.recoverPanic)
	r.Use(app.requestLogger)
	r.Use(app.sessionManager.LoadAndSave)

	r.Get("/health", app.GetHealth)

	r.Route("/showtimes/{showtimeID}/seats", func(r chi.Router) {
		r.Get("/", app.GetSeatMapByShowtime)
		r.With(app.requireAuthentication).Post("/select", app.SelectSeatsHandler)
	})

	r.With(app.requireAuthentication).Route("/bookings/{bookingID}", func(r chi.Router) {
		r.Get("/", app.GetBookingHandler)
		r.Delete("/", app.CancelBookingHandler)
		r.Post("/checkout", app.CreateCheckoutHandler)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/callback", app.PaymentCallbackHandler)
		r.Post("/webhook", app.PaymentWebhookHandler)
	})

	return r
}
