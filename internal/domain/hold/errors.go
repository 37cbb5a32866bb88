package hold

import "errors"

// Hold ドメインのエラー定義
var (
	ErrHoldNotFound       = errors.New("ホールドが見つかりません")
	ErrHoldExpired        = errors.New("ホールドの有効期限が切れています")
	ErrHoldNotOwned       = errors.New("ホールドの所有者ではありません")
	ErrHoldMismatch       = errors.New("ホールドと座席が一致しません")
	ErrHoldIDRequired     = errors.New("ホールドIDは必須です")
	ErrShowtimeIDRequired = errors.New("公演回IDは必須です")
	ErrOwnerRequired      = errors.New("所有者は必須です")
	ErrSeatIDsRequired    = errors.New("座席IDは必須です")
	ErrInvalidExpiry      = errors.New("有効期限が不正です")
)
