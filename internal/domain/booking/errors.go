package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound    = errors.New("予約が見つかりません")
	ErrSeatAlreadyBooked  = errors.New("既に予約済みの座席が含まれています")
	ErrShowtimeIDRequired = errors.New("公演回IDは必須です")
	ErrUserIDRequired     = errors.New("ユーザーIDは必須です")
	ErrSeatIDsRequired    = errors.New("座席IDは必須です")
	ErrInvalidTotalPrice  = errors.New("合計金額が不正です")
)
