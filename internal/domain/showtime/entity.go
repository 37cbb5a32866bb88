package showtime

import (
	"strings"
	"time"
)

// StartAtLayout は開演日時の表現（タイムゾーンなしのローカル日時）
const StartAtLayout = "2006-01-02T15:04:05"

// startAtShortLayout は秒を省略した表現
const startAtShortLayout = "2006-01-02T15:04"

// MaxExternalIDLength は外部公演IDの最大長
const MaxExternalIDLength = 50

// Metadata は公演カタログから取得する付帯情報
type Metadata struct {
	Title     string
	PosterURL string
	Venue     string
}

// Showtime は公演回（外部公演ID + 開演日時）を表す
type Showtime struct {
	ID         int64
	ExternalID string
	StartAt    time.Time
	Metadata   Metadata
	CreatedAt  time.Time
}

// NewShowtime は新しい公演回を作成する
func NewShowtime(externalID string, startAt time.Time) *Showtime {
	return &Showtime{
		ExternalID: strings.TrimSpace(externalID),
		StartAt:    startAt,
		CreatedAt:  time.Now(),
	}
}

// ParseStartAt はクライアントから渡された開演日時をパースする
func ParseStartAt(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrStartAtRequired
	}
	for _, layout := range []string{StartAtLayout, startAtShortLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidStartAt
}

// FormatStartAt は開演日時をクライアントと同じ表現で返す
func (s *Showtime) FormatStartAt() string {
	return s.StartAt.Format(StartAtLayout)
}

// Validate は公演回の検証を行う
func (s *Showtime) Validate() error {
	if s.ExternalID == "" {
		return ErrExternalIDRequired
	}
	if len(s.ExternalID) > MaxExternalIDLength {
		return ErrExternalIDTooLong
	}
	if s.StartAt.IsZero() {
		return ErrStartAtRequired
	}
	return nil
}
