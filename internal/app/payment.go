package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/showgrid/showgrid/internal/booking"
	"github.com/showgrid/showgrid/internal/domain"
)

const paymentSignatureHeader = "X-Payment-Signature"

type CheckoutResponse struct {
	OrderId string `json:"order_id"`
}

type PaymentCallbackRequest struct {
	OrderId   string `json:"order_id" validate:"required"`
	PaymentId string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// PaymentWebhookRequest is the provider-pushed payload. The signature
// travels in a header rather than the body for this entry point.
type PaymentWebhookRequest struct {
	Event   string `json:"event" validate:"required"`
	Payment struct {
		Id     string `json:"id" validate:"required"`
		Status string `json:"status"`
	} `json:"payment"`
	Order struct {
		Id string `json:"id" validate:"required"`
	} `json:"order"`
}

type ConfirmationResponse struct {
	BookingId string `json:"booking_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

func (app *Application) CreateCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, err := app.urlParamUUID(r, "bookingID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userId := app.contextGetUserId(r)

	orderID, err := app.coordinator.Checkout(r.Context(), bookingID, userId)
	if err != nil {
		var gatewayErr *domain.GatewayError

		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrBookingNotPending):
			app.editConflictResponseWithErr(w, r, errors.New("booking is no longer pending"))
		case errors.Is(err, domain.ErrBookingExpired):
			app.goneResponse(w, r, "the seat hold has expired, please select your seats again")
		case errors.As(err, &gatewayErr):
			app.badGatewayResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	resp := CheckoutResponse{
		OrderId: orderID,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// PaymentCallbackHandler is the synchronous confirmation entry point: the
// client is redirected here after paying. The asynchronous webhook delivers
// the same confirmation out of band; both funnel into the same Confirm.
func (app *Application) PaymentCallbackHandler(w http.ResponseWriter, r *http.Request) {
	var input PaymentCallbackRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	app.confirmPayment(w, r, booking.ConfirmRequest{
		OrderID:    input.OrderId,
		PaymentID:  input.PaymentId,
		Signature:  input.Signature,
		ReceivedAt: time.Now(),
	})
}

func (app *Application) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	var input PaymentWebhookRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	app.confirmPayment(w, r, booking.ConfirmRequest{
		OrderID:    input.Order.Id,
		PaymentID:  input.Payment.Id,
		Signature:  r.Header.Get(paymentSignatureHeader),
		ReceivedAt: time.Now(),
	})
}

func (app *Application) confirmPayment(w http.ResponseWriter, r *http.Request, req booking.ConfirmRequest) {
	logger := app.contextGetLogger(r)

	result, err := app.verifier.Confirm(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSignature):
			// Deliberately vague: a forger learns nothing about why.
			logger.Warn("payment confirmation rejected", "order_id", req.OrderID)
			app.badRequestResponse(w, r, errors.New("invalid payment confirmation"))
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	resp := ConfirmationResponse{
		BookingId: result.Booking.ID,
		Status:    string(result.Booking.Status),
		Duplicate: result.Duplicate,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
