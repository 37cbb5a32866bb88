package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotAcquired はリトライ上限までにロックを取得できなかったことを表す
var ErrNotAcquired = errors.New("ロックを取得できませんでした")

// Lock は取得済みのロック
type Lock interface {
	// Release はロックを解放する
	Release(ctx context.Context) error
}

// Manager はキー単位の排他ロックを提供するインターフェース
// ドメイン層が Redis 等の実装に依存しないようにするための抽象化
type Manager interface {
	// AcquireLockWithRetry は上限付きのリトライでロックを取得する
	AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (Lock, error)
}

// ShowtimeKey は公演回単位のロックキーを返す
func ShowtimeKey(showtimeID int64) string {
	return fmt.Sprintf("showtime:%d", showtimeID)
}
