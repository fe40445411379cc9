package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/showgrid/showgrid/internal/domain"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

func (p *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO bookings (
				id,
				user_id,
				showtime_id,
				status,
				base_amount,
				fee_amount,
				tax_amount,
				total_amount,
				expires_at,
				created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`

		_, err := tx.Exec(
			ctx,
			query,
			booking.ID,
			booking.UserID,
			booking.ShowtimeID,
			booking.Status,
			booking.BaseAmount,
			booking.FeeAmount,
			booking.TaxAmount,
			booking.TotalAmount,
			booking.ExpiresAt,
			booking.CreatedAt,
		)
		if err != nil {
			return err
		}

		rows := make([][]any, 0, len(booking.SeatIDs))
		for _, seatID := range booking.SeatIDs {
			rows = append(rows, []any{booking.ID, booking.ShowtimeID, seatID})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"booking_seats"},
			[]string{"booking_id", "showtime_id", "seat_id"},
			pgx.CopyFromRows(rows),
		)

		return err
	})
}

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}

const bookingColumns = `
	b.id,
	b.user_id,
	b.showtime_id,
	b.status,
	b.base_amount,
	b.fee_amount,
	b.tax_amount,
	b.total_amount,
	b.order_id,
	b.payment_id,
	b.payment_received_at,
	b.expires_at,
	b.created_at,
	b.confirmed_at,
	(
		SELECT COALESCE(array_agg(bs.seat_id ORDER BY bs.seat_id), '{}')
		FROM booking_seats bs
		WHERE bs.booking_id = b.id
	) AS seat_ids
`

func (p *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = $1`

	return p.getOne(ctx, query, id)
}

func (p *PostgresBookingRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.order_id = $1`

	return p.getOne(ctx, query, orderID)
}

func (p *PostgresBookingRepository) GetPendingByUserAndShowtime(
	ctx context.Context,
	userID, showtimeID int) (*domain.Booking, error) {

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.user_id = $1 AND b.showtime_id = $2 AND b.status = 'pending'
		ORDER BY b.created_at DESC
		LIMIT 1
	`

	return p.getOne(ctx, query, userID, showtimeID)
}

func (p *PostgresBookingRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Booking, error) {
	var booking domain.Booking

	err := p.db.QueryRow(ctx, query, args...).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.ShowtimeID,
		&booking.Status,
		&booking.BaseAmount,
		&booking.FeeAmount,
		&booking.TaxAmount,
		&booking.TotalAmount,
		&booking.OrderID,
		&booking.PaymentID,
		&booking.PaymentReceivedAt,
		&booking.ExpiresAt,
		&booking.CreatedAt,
		&booking.ConfirmedAt,
		&booking.SeatIDs,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &booking, nil
}

// SetOrderID stores the external payment order reference. The reference is
// written at most once per booking.
func (p *PostgresBookingRepository) SetOrderID(ctx context.Context, id, orderID string) error {
	query := `
		UPDATE bookings
		SET order_id = $2
		WHERE id = $1 AND order_id IS NULL
	`

	tag, err := p.db.Exec(ctx, query, id, orderID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrEditConflict
		}

		return err
	}

	if tag.RowsAffected() == 0 {
		_, err := p.GetByID(ctx, id)
		if err != nil {
			return err
		}

		return domain.ErrOrderAlreadySet
	}

	return nil
}

func (p *PostgresBookingRepository) GetConfirmedSeatIDs(ctx context.Context, showtimeID int) ([]int, error) {
	query := `
		SELECT bs.seat_id
		FROM booking_seats bs
		JOIN bookings b ON bs.booking_id = b.id
		WHERE bs.showtime_id = $1 AND b.status = 'confirmed'
		ORDER BY bs.seat_id
	`

	rows, err := p.db.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seatIDs := make([]int, 0)

	for rows.Next() {
		var seatID int

		if err := rows.Scan(&seatID); err != nil {
			return nil, err
		}

		seatIDs = append(seatIDs, seatID)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seatIDs, nil
}

func (p *PostgresBookingRepository) GetExpiredPending(
	ctx context.Context,
	now time.Time,
	limit int) ([]domain.Booking, error) {

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.status = 'pending' AND b.expires_at < $1
		ORDER BY b.expires_at
		LIMIT $2
	`

	rows, err := p.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)

	for rows.Next() {
		var booking domain.Booking

		err := rows.Scan(
			&booking.ID,
			&booking.UserID,
			&booking.ShowtimeID,
			&booking.Status,
			&booking.BaseAmount,
			&booking.FeeAmount,
			&booking.TaxAmount,
			&booking.TotalAmount,
			&booking.OrderID,
			&booking.PaymentID,
			&booking.PaymentReceivedAt,
			&booking.ExpiresAt,
			&booking.CreatedAt,
			&booking.ConfirmedAt,
			&booking.SeatIDs,
		)
		if err != nil {
			return nil, err
		}

		bookings = append(bookings, booking)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

// UpdateStatus is the conditional write every transition out of pending goes
// through. The WHERE clause on the current status makes the first successful
// transition win; racers see zero rows affected.
func (p *PostgresBookingRepository) UpdateStatus(
	ctx context.Context,
	id string,
	expected, next domain.BookingStatus,
	update domain.BookingUpdate) (bool, error) {

	query := `
		UPDATE bookings
		SET status = $2,
			payment_id = COALESCE($4, payment_id),
			payment_received_at = COALESCE($5, payment_received_at),
			confirmed_at = COALESCE($6, confirmed_at)
		WHERE id = $1 AND status = $3
	`

	tag, err := p.db.Exec(
		ctx,
		query,
		id,
		next,
		expected,
		update.PaymentID,
		update.PaymentReceivedAt,
		update.ConfirmedAt,
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

// RecordPayment writes the payment reference onto a booking row whatever its
// status. A payment that arrives for an already closed booking still has to
// be accounted for exactly once.
func (p *PostgresBookingRepository) RecordPayment(ctx context.Context, id, paymentID string, receivedAt time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET payment_id = $2, payment_received_at = $3
		WHERE id = $1 AND payment_received_at IS NULL
	`

	tag, err := p.db.Exec(ctx, query, id, paymentID, receivedAt)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}
