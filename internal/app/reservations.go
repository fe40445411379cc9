package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/showgrid/showgrid/internal/domain"
)

type SelectSeatsRequest struct {
	SeatIdList []int `json:"seat_ids" validate:"required,min=1,max=10,dive,gt=0"`
}

type BookingResponse struct {
	Booking BookingView `json:"booking"`
}

type BookingView struct {
	Id          string          `json:"id"`
	ShowtimeId  int             `json:"showtime_id"`
	SeatIds     []int           `json:"seat_ids"`
	Status      string          `json:"status"`
	BaseAmount  decimal.Decimal `json:"base_amount"`
	FeeAmount   decimal.Decimal `json:"fee_amount"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OrderId     *string         `json:"order_id,omitempty"`
	ExpiresAt   time.Time       `json:"expires_at"`
	HoldTime    int             `json:"hold_time_seconds"`
	CreatedAt   time.Time       `json:"created_at"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
}

func (app *Application) SelectSeatsHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	showtimeID, err := app.urlParamInt(r, "showtimeID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input SelectSeatsRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	userId := app.contextGetUserId(r)

	booking, err := app.coordinator.SelectSeats(r.Context(), userId, showtimeID, input.SeatIdList)
	if err != nil {
		var conflictErr *domain.ConflictError
		var validationErr *domain.ValidationError

		switch {
		case errors.As(err, &conflictErr):
			logger.Warn("seat selection conflict", "showtime_id", showtimeID, "seat_ids", conflictErr.SeatIDs)
			app.seatConflictResponse(w, r, conflictErr.SeatIDs)
		case errors.As(err, &validationErr):
			app.errorResponse(w, r, http.StatusUnprocessableEntity, validationErr.Reason)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	resp := BookingResponse{
		Booking: toBookingView(booking),
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, err := app.urlParamUUID(r, "bookingID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userId := app.contextGetUserId(r)

	booking, err := app.coordinator.GetBooking(r.Context(), bookingID, userId)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	resp := BookingResponse{
		Booking: toBookingView(booking),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// CancelBookingHandler handles a client-side cancellation hint (browser
// close, payment-modal dismissal). The expiry reconciler enforces the
// deadline regardless of whether this ever arrives.
func (app *Application) CancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, err := app.urlParamUUID(r, "bookingID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userId := app.contextGetUserId(r)

	err = app.coordinator.Cancel(r.Context(), bookingID, userId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrBookingNotPending):
			app.editConflictResponseWithErr(w, r, errors.New("booking is no longer pending"))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toBookingView(booking *domain.Booking) BookingView {
	return BookingView{
		Id:          booking.ID,
		ShowtimeId:  booking.ShowtimeID,
		SeatIds:     booking.SeatIDs,
		Status:      string(booking.Status),
		BaseAmount:  booking.BaseAmount,
		FeeAmount:   booking.FeeAmount,
		TaxAmount:   booking.TaxAmount,
		TotalAmount: booking.TotalAmount,
		OrderId:     booking.OrderID,
		ExpiresAt:   booking.ExpiresAt,
		HoldTime:    int(time.Until(booking.ExpiresAt).Seconds()),
		CreatedAt:   booking.CreatedAt,
		ConfirmedAt: booking.ConfirmedAt,
	}
}
