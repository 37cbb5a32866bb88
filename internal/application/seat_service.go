package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/showtime"
	"github.com/pmg1020/AquaTicketWeb/internal/pkg/logger"
	"github.com/pmg1020/AquaTicketWeb/internal/pkg/metrics"
)

// AvailabilityCache は公演回ごとの空席スナップショットのキャッシュ
// Invalidate のたびに世代が進み、読み取り前の世代と異なれば保存されない
type AvailabilityCache interface {
	Get(ctx context.Context, showtimeID int64) ([]seat.Availability, error)
	Version(ctx context.Context, showtimeID int64) (int64, error)
	SetIfUnchanged(ctx context.Context, showtimeID, version int64, snapshot []seat.Availability, ttl time.Duration) (bool, error)
	Invalidate(ctx context.Context, showtimeID int64) error
	IsMiss(err error) bool
}

type SeatService struct {
	showtimeRepo showtime.Repository
	seatRepo     seat.Repository
	cache        AvailabilityCache
	cacheTTL     time.Duration
	metrics      *metrics.Metrics
	now          func() time.Time

	// 同じ公演回へのキャッシュミスを1回のDB読み取りにまとめる
	group singleflight.Group
}

// NewSeatService は SeatService を作成する（cache と m は nil 可）
func NewSeatService(str showtime.Repository, sr seat.Repository, cache AvailabilityCache, cacheTTL time.Duration, m *metrics.Metrics) *SeatService {
	return &SeatService{
		showtimeRepo: str,
		seatRepo:     sr,
		cache:        cache,
		cacheTTL:     cacheTTL,
		metrics:      m,
		now:          time.Now,
	}
}

// GetAvailability は公演回の全座席の実効状態を返す
// 期限切れのホールドはスイーパーの回収を待たずに AVAILABLE として返す
func (s *SeatService) GetAvailability(ctx context.Context, showtimeID int64) ([]seat.Availability, error) {
	if showtimeID <= 0 {
		return nil, showtime.ErrInvalidShowtimeID
	}

	if s.cache != nil {
		snapshot, err := s.cache.Get(ctx, showtimeID)
		if err == nil {
			s.recordCache("hit")
			logger.Debug("キャッシュヒット", zap.Int64("showtime_id", showtimeID))
			return expireSnapshot(snapshot, s.now()), nil
		}
		if !s.cache.IsMiss(err) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
		s.recordCache("miss")
	}

	v, err, _ := s.group.Do(strconv.FormatInt(showtimeID, 10), func() (interface{}, error) {
		return s.load(ctx, showtimeID)
	})
	if err != nil {
		return nil, err
	}
	return expireSnapshot(v.([]seat.Availability), s.now()), nil
}

func (s *SeatService) load(ctx context.Context, showtimeID int64) ([]seat.Availability, error) {
	if _, err := s.showtimeRepo.GetByID(ctx, showtimeID); err != nil {
		return nil, err
	}

	// 世代は座席を読む前に取る。読んだ後に確定した変更があれば保存されない
	cacheable := s.cache != nil
	var version int64
	if cacheable {
		v, err := s.cache.Version(ctx, showtimeID)
		if err != nil {
			logger.Warn("キャッシュ世代の取得エラー", zap.Error(err))
			cacheable = false
		}
		version = v
	}

	seats, err := s.seatRepo.ListByShowtime(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	now := s.now()
	snapshot := seat.Snapshot(seats, now)

	if cacheable {
		if ttl := s.snapshotTTL(snapshot, now); ttl > 0 {
			stored, err := s.cache.SetIfUnchanged(ctx, showtimeID, version, snapshot, ttl)
			switch {
			case err != nil:
				logger.Warn("キャッシュ保存エラー", zap.Error(err))
			case !stored:
				logger.Debug("読み取り中に更新されたためキャッシュしない", zap.Int64("showtime_id", showtimeID))
			}
		}
	}
	return snapshot, nil
}

// snapshotTTL は最も早いホールド期限を超えてキャッシュしないTTLを返す
func (s *SeatService) snapshotTTL(snapshot []seat.Availability, now time.Time) time.Duration {
	ttl := s.cacheTTL
	if earliest, ok := seat.EarliestHoldExpiry(snapshot); ok {
		if untilExpiry := earliest.Sub(now); untilExpiry < ttl {
			ttl = untilExpiry
		}
	}
	return ttl
}

func (s *SeatService) recordCache(result string) {
	if s.metrics != nil {
		s.metrics.AvailabilityCacheTotal.WithLabelValues(result).Inc()
	}
}

func invalidate(ctx context.Context, cache AvailabilityCache, showtimeID int64) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, showtimeID); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.Int64("showtime_id", showtimeID), zap.Error(err))
	}
}

// expireSnapshot は now 時点で期限切れのホールドを AVAILABLE にした複製を返す
func expireSnapshot(snapshot []seat.Availability, now time.Time) []seat.Availability {
	result := make([]seat.Availability, len(snapshot))
	copy(result, snapshot)
	for i := range result {
		a := &result[i]
		if a.Status == seat.StatusHeld && (a.HoldExpiresAt == nil || !now.Before(*a.HoldExpiresAt)) {
			a.Status = seat.StatusAvailable
			a.HoldExpiresAt = nil
		}
	}
	return result
}
