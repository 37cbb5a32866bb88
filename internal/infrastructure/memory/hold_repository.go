package memory

import (
	"context"
	"sort"
	"time"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/hold"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
)

type HoldRepository struct{ store *Store }

func NewHoldRepository(store *Store) *HoldRepository {
	return &HoldRepository{store: store}
}

func (r *HoldRepository) Create(_ context.Context, tx transaction.Tx, h *hold.Hold) error {
	work, err := r.store.unwrapTx(tx)
	if err != nil {
		return err
	}
	stored := *h
	stored.SeatIDs = append([]int64(nil), h.SeatIDs...)
	work.holds[h.ID] = stored
	return nil
}

func (r *HoldRepository) GetByID(_ context.Context, id string) (*hold.Hold, error) {
	var (
		found hold.Hold
		ok    bool
	)
	r.store.read(func(s *state) { found, ok = s.holds[id] })
	if !ok {
		return nil, hold.ErrHoldNotFound
	}
	return &found, nil
}

func (r *HoldRepository) GetForUpdate(_ context.Context, tx transaction.Tx, id string) (*hold.Hold, error) {
	work, err := r.store.unwrapTx(tx)
	if err != nil {
		return nil, err
	}
	h, ok := work.holds[id]
	if !ok {
		return nil, hold.ErrHoldNotFound
	}
	return &h, nil
}

func (r *HoldRepository) ListByOwnerForUpdate(_ context.Context, tx transaction.Tx, showtimeID int64, ownerID string) ([]*hold.Hold, error) {
	work, err := r.store.unwrapTx(tx)
	if err != nil {
		return nil, err
	}
	var holds []*hold.Hold
	for _, h := range work.holds {
		h := h
		if h.ShowtimeID == showtimeID && h.OwnerID == ownerID {
			holds = append(holds, &h)
		}
	}
	sort.Slice(holds, func(i, j int) bool { return holds[i].CreatedAt.Before(holds[j].CreatedAt) })
	return holds, nil
}

func (r *HoldRepository) ListExpired(_ context.Context, now time.Time, limit int) ([]*hold.Hold, error) {
	var holds []*hold.Hold
	r.store.read(func(s *state) {
		for _, h := range s.holds {
			h := h
			if h.IsExpired(now) {
				holds = append(holds, &h)
			}
		}
	})
	sort.Slice(holds, func(i, j int) bool { return holds[i].ExpiresAt.Before(holds[j].ExpiresAt) })
	if limit > 0 && len(holds) > limit {
		holds = holds[:limit]
	}
	return holds, nil
}

func (r *HoldRepository) CountActive(_ context.Context, now time.Time) (int, error) {
	count := 0
	r.store.read(func(s *state) {
		for _, h := range s.holds {
			if !h.IsExpired(now) {
				count++
			}
		}
	})
	return count, nil
}

func (r *HoldRepository) Delete(_ context.Context, tx transaction.Tx, id string) error {
	work, err := r.store.unwrapTx(tx)
	if err != nil {
		return err
	}
	if _, ok := work.holds[id]; !ok {
		return hold.ErrHoldNotFound
	}
	delete(work.holds, id)
	return nil
}

var _ hold.Repository = (*HoldRepository)(nil)
