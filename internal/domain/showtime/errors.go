package showtime

import "errors"

// Showtime ドメインのエラー定義
var (
	ErrShowtimeNotFound   = errors.New("公演回が見つかりません")
	ErrExternalIDRequired = errors.New("公演IDは必須です")
	ErrExternalIDTooLong  = errors.New("公演IDが長すぎます")
	ErrStartAtRequired    = errors.New("開演日時は必須です")
	ErrInvalidStartAt     = errors.New("開演日時の形式が不正です")
	ErrInvalidShowtimeID  = errors.New("公演回IDが不正です")
)
