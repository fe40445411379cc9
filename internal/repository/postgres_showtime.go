package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/showgrid/showgrid/internal/domain"
)

type PostgresShowtimeRepository struct {
	db *pgxpool.Pool
}

func NewPostgresShowtimeRepository(db *pgxpool.Pool) *PostgresShowtimeRepository {
	return &PostgresShowtimeRepository{
		db: db,
	}
}

func (p *PostgresShowtimeRepository) GetSeatsByShowtime(
	ctx context.Context,
	showtimeID int) (*domain.ShowtimeSeats, error) {

	query := `
		SELECT
			sh.id,
			sh.hall_id,
			sh.starts_at,
			sh.base_price,
			se.id,
			se.seat_row,
			se.seat_col,
			se.seat_type,
			se.extra_price
		FROM showtimes sh
		JOIN seats se
			ON se.hall_id = sh.hall_id
		WHERE sh.id = $1
		ORDER BY se.seat_row, se.seat_col
	`

	return p.querySeats(ctx, query, showtimeID)
}

func (p *PostgresShowtimeRepository) GetSeatsByShowtimeAndSeatIds(
	ctx context.Context,
	showtimeID int,
	seatIDs []int) (*domain.ShowtimeSeats, error) {

	query := `
		SELECT
			sh.id,
			sh.hall_id,
			sh.starts_at,
			sh.base_price,
			se.id,
			se.seat_row,
			se.seat_col,
			se.seat_type,
			se.extra_price
		FROM showtimes sh
		JOIN seats se
			ON se.hall_id = sh.hall_id AND se.id = ANY($2)
		WHERE sh.id = $1
		ORDER BY se.seat_row, se.seat_col
	`

	return p.querySeats(ctx, query, showtimeID, seatIDs)
}

func (p *PostgresShowtimeRepository) querySeats(
	ctx context.Context,
	query string,
	args ...any) (*domain.ShowtimeSeats, error) {

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var showtimeSeats domain.ShowtimeSeats

	for rows.Next() {
		var seat domain.Seat

		err = rows.Scan(
			&showtimeSeats.ShowtimeID,
			&showtimeSeats.HallID,
			&showtimeSeats.StartTime,
			&showtimeSeats.BasePrice,
			&seat.ID,
			&seat.Row,
			&seat.Col,
			&seat.Type,
			&seat.ExtraPrice,
		)
		if err != nil {
			return nil, err
		}

		seat.Available = true
		showtimeSeats.Seats = append(showtimeSeats.Seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(showtimeSeats.Seats) == 0 {
		return nil, domain.ErrRecordNotFound
	}

	return &showtimeSeats, nil
}
