package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
)

func TestAvailabilityCache(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewAvailabilityCache(client)
	ctx := context.Background()
	const showtimeID = int64(987654)
	t.Cleanup(func() { client.Del(ctx, cache.key(showtimeID), cache.versionKey(showtimeID)) })
	client.Del(ctx, cache.key(showtimeID), cache.versionKey(showtimeID))

	expires := time.Now().Add(time.Minute).UTC().Truncate(time.Second)
	snapshot := []seat.Availability{
		{SeatID: 1, Zone: "FLOOR", Row: "1", Number: 1, Price: 15000, Status: seat.StatusAvailable},
		{SeatID: 2, Zone: "FLOOR", Row: "1", Number: 2, Price: 15000, Status: seat.StatusHeld, HoldExpiresAt: &expires},
	}

	// store は現在の世代で保存する
	store := func(t *testing.T, ttl time.Duration) {
		t.Helper()
		version, err := cache.Version(ctx, showtimeID)
		require.NoError(t, err)
		stored, err := cache.SetIfUnchanged(ctx, showtimeID, version, snapshot, ttl)
		require.NoError(t, err)
		require.True(t, stored)
	}

	t.Run("キャッシュミス時はErrCacheMissを返す", func(t *testing.T) {
		_, err := cache.Get(ctx, showtimeID)
		assert.ErrorIs(t, err, ErrCacheMiss)
		assert.True(t, cache.IsMiss(err))
	})

	t.Run("保存したスナップショットを取得できる", func(t *testing.T) {
		store(t, 30*time.Second)

		got, err := cache.Get(ctx, showtimeID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, seat.StatusHeld, got[1].Status)
		require.NotNil(t, got[1].HoldExpiresAt)
		assert.True(t, expires.Equal(*got[1].HoldExpiresAt))
	})

	t.Run("無効化するとキャッシュミスになり世代が進む", func(t *testing.T) {
		store(t, 30*time.Second)
		before, err := cache.Version(ctx, showtimeID)
		require.NoError(t, err)

		require.NoError(t, cache.Invalidate(ctx, showtimeID))

		_, err = cache.Get(ctx, showtimeID)
		assert.ErrorIs(t, err, ErrCacheMiss)
		after, err := cache.Version(ctx, showtimeID)
		require.NoError(t, err)
		assert.Equal(t, before+1, after)
	})

	t.Run("読み取り後に無効化された古いスナップショットは保存しない", func(t *testing.T) {
		version, err := cache.Version(ctx, showtimeID)
		require.NoError(t, err)

		// 読み取りと保存の間に別の処理が確定して無効化した
		require.NoError(t, cache.Invalidate(ctx, showtimeID))

		stored, err := cache.SetIfUnchanged(ctx, showtimeID, version, snapshot, 30*time.Second)
		require.NoError(t, err)
		assert.False(t, stored)

		_, err = cache.Get(ctx, showtimeID)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("TTL経過後はキャッシュミスになる", func(t *testing.T) {
		store(t, 100*time.Millisecond)
		time.Sleep(150 * time.Millisecond)

		_, err := cache.Get(ctx, showtimeID)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}
