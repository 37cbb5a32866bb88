package seat

import "errors"

// Seat ドメインのエラー定義
var (
	ErrSeatNotFound       = errors.New("座席が見つかりません")
	ErrSeatNotAvailable   = errors.New("既に選択された座席が含まれています")
	ErrSeatNotHeld        = errors.New("座席はこのホールドで押さえられていません")
	ErrSeatIDsRequired    = errors.New("座席IDは必須です")
	ErrDuplicateSeatID    = errors.New("座席IDが重複しています")
	ErrInvalidSeatID      = errors.New("座席IDが不正です")
	ErrShowtimeIDRequired = errors.New("公演回IDは必須です")
	ErrZoneRequired       = errors.New("ゾーンは必須です")
	ErrInvalidSeatNumber  = errors.New("座席番号は1以上である必要があります")
	ErrInvalidPrice       = errors.New("価格は0以上である必要があります")
)
