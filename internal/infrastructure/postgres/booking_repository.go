package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/booking"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
)

// uniqueViolation は PostgreSQL の一意制約違反コード
const uniqueViolation = "23505"

type bookingRow struct {
	ID            int64         `db:"id"`
	BookingNumber string        `db:"booking_number"`
	ShowtimeID    int64         `db:"showtime_id"`
	UserID        string        `db:"user_id"`
	TotalPrice    int           `db:"total_price"`
	Status        string        `db:"status"`
	ConfirmedAt   time.Time     `db:"confirmed_at"`
	SeatIDs       pq.Int64Array `db:"seat_ids"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	return &booking.Booking{
		ID: r.ID, BookingNumber: r.BookingNumber, ShowtimeID: r.ShowtimeID,
		UserID: r.UserID, SeatIDs: []int64(r.SeatIDs), TotalPrice: r.TotalPrice,
		Status: booking.Status(r.Status), ConfirmedAt: r.ConfirmedAt,
	}
}

type BookingRepository struct{ db *sqlx.DB }

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO bookings (booking_number, showtime_id, user_id, total_price, status, confirmed_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := sqlTx.QueryRowxContext(ctx, query,
		b.BookingNumber, b.ShowtimeID, b.UserID, b.TotalPrice, string(b.Status), b.ConfirmedAt,
	).Scan(&b.ID); err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}

	// (showtime_id, seat_id) の一意制約が二重予約の最後の砦になる
	seatQuery := `INSERT INTO booking_seats (booking_id, showtime_id, seat_id) SELECT $1, $2, unnest($3::bigint[])`
	if _, err := sqlTx.ExecContext(ctx, seatQuery, b.ID, b.ShowtimeID, pq.Array(b.SeatIDs)); err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return booking.ErrSeatAlreadyBooked
		}
		return fmt.Errorf("予約座席関連付けに失敗: %w", err)
	}
	return nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	var rows []bookingRow
	query := `
		SELECT b.id, b.booking_number, b.showtime_id, b.user_id, b.total_price, b.status, b.confirmed_at,
		       ARRAY(SELECT bs.seat_id FROM booking_seats bs WHERE bs.booking_id = b.id ORDER BY bs.seat_id) AS seat_ids
		FROM bookings b
		WHERE b.user_id = $1
		ORDER BY b.confirmed_at DESC, b.id DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	result := make([]*booking.Booking, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

var _ booking.Repository = (*BookingRepository)(nil)
