package event

import "context"

// Publisher はドメインイベントの発行先
// 発行はコミット後のベストエフォートであり、失敗しても状態遷移は取り消さない
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, e BookingConfirmed) error
	PublishHoldReleased(ctx context.Context, e HoldReleased) error
}

// NopPublisher は何もしない Publisher（ブローカー未設定時）
type NopPublisher struct{}

func (NopPublisher) PublishBookingConfirmed(context.Context, BookingConfirmed) error { return nil }

func (NopPublisher) PublishHoldReleased(context.Context, HoldReleased) error { return nil }

var _ Publisher = NopPublisher{}
