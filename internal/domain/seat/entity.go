package seat

import "time"

// Status は座席の状態を表す
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusHeld      Status = "HELD"
	StatusTaken     Status = "TAKEN"
)

// Seat は公演回に属する座席エンティティを表す
type Seat struct {
	ID         int64
	ShowtimeID int64
	Zone       string
	Row        string
	Number     int
	Price      int
	Status     Status
	HoldID     *string
	// HoldExpiresAt は HELD の場合のみ参照元ホールドの期限が入る（読み取り専用）
	HoldExpiresAt *time.Time
	UpdatedAt     time.Time
}

// NewSeat は新しい座席を作成する
func NewSeat(showtimeID int64, zone, row string, number, price int) *Seat {
	return &Seat{
		ShowtimeID: showtimeID,
		Zone:       zone,
		Row:        row,
		Number:     number,
		Price:      price,
		Status:     StatusAvailable,
		UpdatedAt:  time.Now(),
	}
}

// IsAvailable は座席がホールド可能かを返す
func (s *Seat) IsAvailable() bool {
	return s.Status == StatusAvailable
}

// IsHeldBy は座席が指定ホールドに押さえられているかを返す
func (s *Seat) IsHeldBy(holdID string) bool {
	return s.Status == StatusHeld && s.HoldID != nil && *s.HoldID == holdID
}

// Hold は座席を HELD にする（AVAILABLE からのみ）
func (s *Seat) Hold(holdID string) error {
	if s.Status != StatusAvailable {
		return ErrSeatNotAvailable
	}
	s.Status = StatusHeld
	s.HoldID = &holdID
	s.UpdatedAt = time.Now()
	return nil
}

// Take は座席を TAKEN にする（同じホールドの HELD からのみ）
func (s *Seat) Take(holdID string) error {
	if !s.IsHeldBy(holdID) {
		return ErrSeatNotHeld
	}
	s.Status = StatusTaken
	s.HoldID = nil
	s.HoldExpiresAt = nil
	s.UpdatedAt = time.Now()
	return nil
}

// Release は座席を AVAILABLE に戻す（同じホールドの HELD からのみ）
func (s *Seat) Release(holdID string) error {
	if !s.IsHeldBy(holdID) {
		return ErrSeatNotHeld
	}
	s.Status = StatusAvailable
	s.HoldID = nil
	s.HoldExpiresAt = nil
	s.UpdatedAt = time.Now()
	return nil
}

// EffectiveStatus は遅延失効を考慮した状態を返す
// 期限切れ、または参照元のないホールドは AVAILABLE として扱う
func (s *Seat) EffectiveStatus(now time.Time) Status {
	if s.Status != StatusHeld {
		return s.Status
	}
	if s.HoldExpiresAt == nil || !now.Before(*s.HoldExpiresAt) {
		return StatusAvailable
	}
	return StatusHeld
}

// Validate は座席の検証を行う
func (s *Seat) Validate() error {
	if s.ShowtimeID <= 0 {
		return ErrShowtimeIDRequired
	}
	if s.Zone == "" {
		return ErrZoneRequired
	}
	if s.Number <= 0 {
		return ErrInvalidSeatNumber
	}
	if s.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}
