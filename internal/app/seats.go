package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/showgrid/showgrid/internal/domain"
)

type SeatMapResponse struct {
	ShowtimeId int       `json:"showtime_id"`
	HallId     int       `json:"hall_id"`
	SeatRows   []SeatRow `json:"seat_rows"`
}

type SeatRow struct {
	Row   int        `json:"row"`
	Seats []SeatView `json:"seats"`
}

type SeatView struct {
	Id         int             `json:"id"`
	Row        int             `json:"row"`
	Column     int             `json:"column"`
	Type       string          `json:"type"`
	ExtraPrice decimal.Decimal `json:"extra_price"`
	Available  bool            `json:"available"`
}

// GetSeatMapByShowtime renders the seat map with a best-effort availability
// view. The view is display only: held seats come from the hold store's
// snapshot and sold seats from confirmed bookings, but the binding decision
// always happens in SelectSeatsHandler via the atomic acquire.
func (app *Application) GetSeatMapByShowtime(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	showtimeID, err := app.urlParamInt(r, "showtimeID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	showtimeSeats, err := app.showtimeRepo.GetSeatsByShowtime(r.Context(), showtimeID)
	if err != nil {
		if err == domain.ErrRecordNotFound {
			logger.Warn("seat map not found for showtime", "showtime_id", showtimeID)
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.updateSeatAvailability(r.Context(), showtimeID, showtimeSeats)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := toSeatMapResponse(showtimeID, showtimeSeats)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) updateSeatAvailability(
	ctx context.Context,
	showtimeID int,
	showtimeSeats *domain.ShowtimeSeats) error {

	heldSeatIds, err := app.holds.Snapshot(ctx, showtimeID)
	if err != nil {
		return fmt.Errorf("failed to snapshot seat holds: %w", err)
	}

	confirmedSeatIds, err := app.bookingRepo.GetConfirmedSeatIDs(ctx, showtimeID)
	if err != nil {
		return fmt.Errorf("failed to get confirmed seats from DB: %w", err)
	}

	unavailableSeats := make(map[int]bool)

	for _, seatId := range heldSeatIds {
		unavailableSeats[seatId] = true
	}

	for _, seatId := range confirmedSeatIds {
		unavailableSeats[seatId] = true
	}

	for i := range showtimeSeats.Seats {
		if unavailableSeats[showtimeSeats.Seats[i].ID] {
			showtimeSeats.Seats[i].Available = false
		}
	}

	return nil
}

func toSeatMapResponse(showtimeID int, showtimeSeats *domain.ShowtimeSeats) SeatMapResponse {
	return SeatMapResponse{
		ShowtimeId: showtimeID,
		HallId:     showtimeSeats.HallID,
		SeatRows:   toSeatRows(showtimeSeats.Seats),
	}
}

func toSeatRows(seats []domain.Seat) []SeatRow {
	// Seats are pre-sorted by Row,Column (ascending).
	// This allows us to process them in a single pass without additional sorting or mapping.

	var seatRows []SeatRow
	currentRow := SeatRow{Row: seats[0].Row}

	for _, v := range seats {
		if v.Row != currentRow.Row {
			seatRows = append(seatRows, currentRow)
			currentRow = SeatRow{Row: v.Row}
		}

		currentRow.Seats = append(currentRow.Seats, SeatView{
			Id:         v.ID,
			Row:        v.Row,
			Column:     v.Col,
			Type:       v.Type,
			ExtraPrice: v.ExtraPrice,
			Available:  v.Available,
		})
	}

	seatRows = append(seatRows, currentRow)

	return seatRows
}
