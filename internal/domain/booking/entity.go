package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
)

// Status は予約の状態を表す
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
)

// Booking はホールドを確定した結果の予約を表す
type Booking struct {
	ID            int64
	BookingNumber string
	ShowtimeID    int64
	UserID        string
	SeatIDs       []int64
	TotalPrice    int
	Status        Status
	ConfirmedAt   time.Time
}

// NewBooking は確定対象の座席から予約を作成する（合計金額は座席価格の和）
func NewBooking(showtimeID int64, userID string, seats []*seat.Seat, now time.Time) *Booking {
	ids := make([]int64, 0, len(seats))
	total := 0
	for _, s := range seats {
		ids = append(ids, s.ID)
		total += s.Price
	}
	return &Booking{
		BookingNumber: uuid.NewString(),
		ShowtimeID:    showtimeID,
		UserID:        userID,
		SeatIDs:       ids,
		TotalPrice:    total,
		Status:        StatusConfirmed,
		ConfirmedAt:   now,
	}
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.ShowtimeID <= 0 {
		return ErrShowtimeIDRequired
	}
	if b.UserID == "" {
		return ErrUserIDRequired
	}
	if len(b.SeatIDs) == 0 {
		return ErrSeatIDsRequired
	}
	if b.TotalPrice < 0 {
		return ErrInvalidTotalPrice
	}
	return nil
}
