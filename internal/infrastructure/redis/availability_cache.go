package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// 世代キーは無効化されない公演回でも残り続けないよう期限を付ける
const versionKeyTTL = 24 * time.Hour

// setIfVersionScript は世代が読み取り時から変わっていない場合だけスナップショットを保存する
// KEYS[1]: 世代キー, KEYS[2]: スナップショットキー
// ARGV[1]: 読み取り時の世代, ARGV[2]: スナップショット, ARGV[3]: TTL(ミリ秒)
var setIfVersionScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1]) or "0"
if current ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// AvailabilityCache は公演回ごとの空席スナップショットのキャッシュ
// 無効化のたびに世代を進め、古い世代で読んだスナップショットは保存しない
type AvailabilityCache struct {
	client *redis.Client
}

func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// Get はスナップショットを取得する（無ければ ErrCacheMiss）
func (c *AvailabilityCache) Get(ctx context.Context, showtimeID int64) ([]seat.Availability, error) {
	raw, err := c.client.Get(ctx, c.key(showtimeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	var snapshot []seat.Availability
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("キャッシュの復元に失敗: %w", err)
	}
	return snapshot, nil
}

// Version は公演回の現在の世代を返す（未作成なら0）
func (c *AvailabilityCache) Version(ctx context.Context, showtimeID int64) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey(showtimeID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("キャッシュ世代の取得に失敗: %w", err)
	}
	return v, nil
}

// SetIfUnchanged は世代が version のままならスナップショットを保存し、保存したかを返す
func (c *AvailabilityCache) SetIfUnchanged(ctx context.Context, showtimeID, version int64, snapshot []seat.Availability, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return false, fmt.Errorf("キャッシュの変換に失敗: %w", err)
	}
	ms := ttl.Milliseconds()
	if ms <= 0 {
		return false, nil
	}
	stored, err := setIfVersionScript.Run(ctx, c.client,
		[]string{c.versionKey(showtimeID), c.key(showtimeID)},
		strconv.FormatInt(version, 10), raw, ms,
	).Int()
	if err != nil {
		return false, fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return stored == 1, nil
}

// Invalidate は世代を進めてスナップショットを削除する
func (c *AvailabilityCache) Invalidate(ctx context.Context, showtimeID int64) error {
	versionKey := c.versionKey(showtimeID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey)
		pipe.Expire(ctx, versionKey, versionKeyTTL)
		pipe.Del(ctx, c.key(showtimeID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

// IsMiss は err がキャッシュミスかを返す
func (c *AvailabilityCache) IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

func (c *AvailabilityCache) key(showtimeID int64) string {
	return fmt.Sprintf("seats:availability:%d", showtimeID)
}

func (c *AvailabilityCache) versionKey(showtimeID int64) string {
	return fmt.Sprintf("seats:availability:gen:%d", showtimeID)
}
