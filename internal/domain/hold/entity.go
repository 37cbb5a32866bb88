package hold

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTTL はホールドの有効期間
const DefaultTTL = 10 * time.Minute

// Hold は公演回の座席集合に対する期限付きの仮押さえを表す
type Hold struct {
	ID         string
	ShowtimeID int64
	SeatIDs    []int64
	OwnerID    string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// NewHold は新しいホールドを作成する（IDはランダムなUUID）
func NewHold(showtimeID int64, seatIDs []int64, ownerID string, now time.Time, ttl time.Duration) *Hold {
	ids := make([]int64, len(seatIDs))
	copy(ids, seatIDs)
	return &Hold{
		ID:         uuid.NewString(),
		ShowtimeID: showtimeID,
		SeatIDs:    ids,
		OwnerID:    ownerID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

// IsExpired は now 時点で期限切れかを返す（期限ちょうどは期限切れ）
func (h *Hold) IsExpired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

// IsOwnedBy は所有者かを返す
func (h *Hold) IsOwnedBy(callerID string) bool {
	return callerID != "" && h.OwnerID == callerID
}

// Covers は座席集合が順序によらず完全一致するかを返す
func (h *Hold) Covers(seatIDs []int64) bool {
	if len(seatIDs) != len(h.SeatIDs) {
		return false
	}
	held := make(map[int64]struct{}, len(h.SeatIDs))
	for _, id := range h.SeatIDs {
		held[id] = struct{}{}
	}
	for _, id := range seatIDs {
		if _, ok := held[id]; !ok {
			return false
		}
		delete(held, id)
	}
	return len(held) == 0
}

// Validate はホールドの検証を行う
func (h *Hold) Validate() error {
	if h.ID == "" {
		return ErrHoldIDRequired
	}
	if h.ShowtimeID <= 0 {
		return ErrShowtimeIDRequired
	}
	if h.OwnerID == "" {
		return ErrOwnerRequired
	}
	if len(h.SeatIDs) == 0 {
		return ErrSeatIDsRequired
	}
	if !h.ExpiresAt.After(h.CreatedAt) {
		return ErrInvalidExpiry
	}
	return nil
}
