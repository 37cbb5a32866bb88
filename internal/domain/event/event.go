package event

import "time"

// キュー名
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueHoldReleased     = "hold.released"
)

// ReleaseReason はホールドが解放された理由
type ReleaseReason string

const (
	ReasonReleased ReleaseReason = "released"
	ReasonExpired  ReleaseReason = "expired"
)

// BookingConfirmed は予約確定時に発行されるイベント
type BookingConfirmed struct {
	BookingID     int64     `json:"bookingId"`
	BookingNumber string    `json:"bookingNumber"`
	ShowtimeID    int64     `json:"showtimeId"`
	UserID        string    `json:"userId"`
	SeatIDs       []int64   `json:"seatIds"`
	TotalPrice    int       `json:"totalPrice"`
	ConfirmedAt   time.Time `json:"confirmedAt"`
}

// HoldReleased はホールドが解放（明示的な解放または期限切れ回収）された時に発行されるイベント
type HoldReleased struct {
	HoldID     string        `json:"holdId"`
	ShowtimeID int64         `json:"showtimeId"`
	SeatIDs    []int64       `json:"seatIds"`
	Reason     ReleaseReason `json:"reason"`
	ReleasedAt time.Time     `json:"releasedAt"`
}
