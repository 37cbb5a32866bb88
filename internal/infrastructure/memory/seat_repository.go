package memory

import (
	"context"
	"time"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
)

type SeatRepository struct{ store *Store }

func NewSeatRepository(store *Store) *SeatRepository {
	return &SeatRepository{store: store}
}

func (r *SeatRepository) CreateBulk(_ context.Context, tx transaction.Tx, seats []*seat.Seat) error {
	work, err := r.store.unwrapTx(tx)
	if err != nil {
		return err
	}
	for _, s := range seats {
		s.ID = work.nextSeatID
		work.nextSeatID++
		work.seats[s.ID] = *s
		ids := work.showtimeSeats[s.ShowtimeID]
		// 複製元と配列を共有しないように作り直す
		next := make([]int64, len(ids), len(ids)+1)
		copy(next, ids)
		work.showtimeSeats[s.ShowtimeID] = append(next, s.ID)
	}
	return nil
}

func (r *SeatRepository) ListByShowtime(_ context.Context, showtimeID int64) ([]*seat.Seat, error) {
	var seats []*seat.Seat
	r.store.read(func(s *state) {
		ids := s.showtimeSeats[showtimeID]
		seats = make([]*seat.Seat, 0, len(ids))
		for _, id := range ids {
			seats = append(seats, s.seatView(s.seats[id]))
		}
	})
	return seats, nil
}

func (r *SeatRepository) GetForUpdate(_ context.Context, tx transaction.Tx, showtimeID int64, seatIDs []int64) ([]*seat.Seat, error) {
	work, err := r.store.unwrapTx(tx)
	if err != nil {
		return nil, err
	}
	seats := make([]*seat.Seat, 0, len(seatIDs))
	for _, id := range seat.SortedIDs(seatIDs) {
		st, ok := work.seats[id]
		if !ok || st.ShowtimeID != showtimeID {
			continue
		}
		seats = append(seats, work.seatView(st))
	}
	return seats, nil
}

// update は全座席が条件を満たす場合のみ更新する（条件付きUPDATEと同じ原子性）
func (r *SeatRepository) update(tx transaction.Tx, seatIDs []int64, notMatched error, apply func(st *seat.Seat) error) error {
	work, err := r.store.unwrapTx(tx)
	if err != nil {
		return err
	}
	updated := make([]seat.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		st, ok := work.seats[id]
		if !ok {
			return notMatched
		}
		if err := apply(&st); err != nil {
			return notMatched
		}
		st.UpdatedAt = time.Now()
		updated = append(updated, st)
	}
	for _, st := range updated {
		work.seats[st.ID] = st
	}
	return nil
}

func (r *SeatRepository) HoldSeats(_ context.Context, tx transaction.Tx, seatIDs []int64, holdID string) error {
	return r.update(tx, seatIDs, seat.ErrSeatNotAvailable, func(st *seat.Seat) error {
		return st.Hold(holdID)
	})
}

func (r *SeatRepository) TakeSeats(_ context.Context, tx transaction.Tx, seatIDs []int64, holdID string) error {
	return r.update(tx, seatIDs, seat.ErrSeatNotHeld, func(st *seat.Seat) error {
		return st.Take(holdID)
	})
}

// ReleaseSeats は指定ホールドに押さえられていない座席を黙って無視する
func (r *SeatRepository) ReleaseSeats(_ context.Context, tx transaction.Tx, seatIDs []int64, holdID string) error {
	work, err := r.store.unwrapTx(tx)
	if err != nil {
		return err
	}
	for _, id := range seatIDs {
		st, ok := work.seats[id]
		if !ok {
			continue
		}
		if st.Release(holdID) == nil {
			work.seats[id] = st
		}
	}
	return nil
}

var _ seat.Repository = (*SeatRepository)(nil)
