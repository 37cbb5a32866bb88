package seat

import "time"

// Availability は空席照会で返す座席の状態（期限切れホールドは AVAILABLE 扱い）
type Availability struct {
	SeatID        int64      `json:"seatId"`
	Zone          string     `json:"zone"`
	Row           string     `json:"row"`
	Number        int        `json:"number"`
	Price         int        `json:"price"`
	Status        Status     `json:"status"`
	HoldExpiresAt *time.Time `json:"holdExpiresAt,omitempty"`
}

// Snapshot は now 時点の実効状態で空席一覧を組み立てる
func Snapshot(seats []*Seat, now time.Time) []Availability {
	result := make([]Availability, 0, len(seats))
	for _, s := range seats {
		a := Availability{
			SeatID: s.ID,
			Zone:   s.Zone,
			Row:    s.Row,
			Number: s.Number,
			Price:  s.Price,
			Status: s.EffectiveStatus(now),
		}
		if a.Status == StatusHeld {
			a.HoldExpiresAt = s.HoldExpiresAt
		}
		result = append(result, a)
	}
	return result
}

// EarliestHoldExpiry は HELD 座席のうち最も早いホールド期限を返す
func EarliestHoldExpiry(snapshot []Availability) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, a := range snapshot {
		if a.HoldExpiresAt == nil {
			continue
		}
		if !found || a.HoldExpiresAt.Before(earliest) {
			earliest = *a.HoldExpiresAt
			found = true
		}
	}
	return earliest, found
}
