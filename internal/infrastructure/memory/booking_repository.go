package memory

import (
	"context"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/booking"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
)

type BookingRepository struct{ store *Store }

func NewBookingRepository(store *Store) *BookingRepository {
	return &BookingRepository{store: store}
}

func (r *BookingRepository) Create(_ context.Context, tx transaction.Tx, b *booking.Booking) error {
	work, err := r.store.unwrapTx(tx)
	if err != nil {
		return err
	}
	for _, seatID := range b.SeatIDs {
		if _, ok := work.bookedSeats[bookedSeatKey{showtimeID: b.ShowtimeID, seatID: seatID}]; ok {
			return booking.ErrSeatAlreadyBooked
		}
	}
	b.ID = work.nextBookingID
	work.nextBookingID++
	for _, seatID := range b.SeatIDs {
		work.bookedSeats[bookedSeatKey{showtimeID: b.ShowtimeID, seatID: seatID}] = b.ID
	}
	stored := *b
	stored.SeatIDs = append([]int64(nil), b.SeatIDs...)
	work.bookings = append(work.bookings, stored)
	return nil
}

// ListByUser は新しい順（登録の逆順）に返す
func (r *BookingRepository) ListByUser(_ context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	var result []*booking.Booking
	r.store.read(func(s *state) {
		skipped := 0
		for i := len(s.bookings) - 1; i >= 0; i-- {
			b := s.bookings[i]
			if b.UserID != userID {
				continue
			}
			if skipped < offset {
				skipped++
				continue
			}
			if limit > 0 && len(result) >= limit {
				return
			}
			result = append(result, &b)
		}
	})
	return result, nil
}

var _ booking.Repository = (*BookingRepository)(nil)
