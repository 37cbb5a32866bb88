package memory

import (
	"context"
	"time"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/showtime"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
)

type ShowtimeRepository struct{ store *Store }

func NewShowtimeRepository(store *Store) *ShowtimeRepository {
	return &ShowtimeRepository{store: store}
}

func (r *ShowtimeRepository) CreateIfAbsent(_ context.Context, tx transaction.Tx, st *showtime.Showtime) (bool, error) {
	work, err := r.store.unwrapTx(tx)
	if err != nil {
		return false, err
	}
	key := showtimeKey{externalID: st.ExternalID, startAt: st.StartAt.UTC()}
	if id, ok := work.showtimeKeys[key]; ok {
		*st = work.showtimes[id]
		return false, nil
	}
	st.ID = work.nextShowtimeID
	work.nextShowtimeID++
	work.showtimes[st.ID] = *st
	work.showtimeKeys[key] = st.ID
	return true, nil
}

func (r *ShowtimeRepository) GetByID(_ context.Context, id int64) (*showtime.Showtime, error) {
	var (
		found showtime.Showtime
		ok    bool
	)
	r.store.read(func(s *state) { found, ok = s.showtimes[id] })
	if !ok {
		return nil, showtime.ErrShowtimeNotFound
	}
	return &found, nil
}

func (r *ShowtimeRepository) GetByKey(_ context.Context, externalID string, startAt time.Time) (*showtime.Showtime, error) {
	var (
		found showtime.Showtime
		ok    bool
	)
	r.store.read(func(s *state) {
		var id int64
		if id, ok = s.showtimeKeys[showtimeKey{externalID: externalID, startAt: startAt.UTC()}]; ok {
			found = s.showtimes[id]
		}
	})
	if !ok {
		return nil, showtime.ErrShowtimeNotFound
	}
	return &found, nil
}

var _ showtime.Repository = (*ShowtimeRepository)(nil)
