package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/booking"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/event"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/hold"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/lock"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/showtime"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
	"github.com/pmg1020/AquaTicketWeb/internal/pkg/logger"
	"github.com/pmg1020/AquaTicketWeb/internal/pkg/metrics"
)

// Repositories は予約処理が使うリポジトリ一式
type Repositories struct {
	Showtimes showtime.Repository
	Seats     seat.Repository
	Holds     hold.Repository
	Bookings  booking.Repository
}

// ReservationConfig はホールドとロックの設定（ゼロ値は既定値で補う）
type ReservationConfig struct {
	HoldTTL        time.Duration
	LockTTL        time.Duration
	LockMaxRetries int
	LockRetryDelay time.Duration
	SweepBatchSize int
}

func (c ReservationConfig) withDefaults() ReservationConfig {
	if c.HoldTTL <= 0 {
		c.HoldTTL = hold.DefaultTTL
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 10 * time.Second
	}
	if c.LockMaxRetries <= 0 {
		c.LockMaxRetries = 30
	}
	if c.LockRetryDelay <= 0 {
		c.LockRetryDelay = 100 * time.Millisecond
	}
	if c.SweepBatchSize <= 0 {
		c.SweepBatchSize = 100
	}
	return c
}

// ReservationService は座席状態とホールド台帳を変更する唯一の窓口
// 変更はすべて公演回単位のロックの内側で、一つのトランザクションとして行う
type ReservationService struct {
	txManager   transaction.Manager
	repos       Repositories
	lockManager lock.Manager
	publisher   event.Publisher
	cache       AvailabilityCache
	metrics     *metrics.Metrics
	cfg         ReservationConfig
	now         func() time.Time
}

// NewReservationService は ReservationService を作成する（publisher, cache, m は nil 可）
func NewReservationService(tm transaction.Manager, repos Repositories, lm lock.Manager, publisher event.Publisher, cache AvailabilityCache, m *metrics.Metrics, cfg ReservationConfig) *ReservationService {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	return &ReservationService{
		txManager:   tm,
		repos:       repos,
		lockManager: lm,
		publisher:   publisher,
		cache:       cache,
		metrics:     m,
		cfg:         cfg.withDefaults(),
		now:         time.Now,
	}
}

type CreateHoldInput struct {
	ShowtimeID int64
	SeatIDs    []int64
	CallerID   string
}

// CreateHold は指定座席をすべて押さえるか、何も押さえない
// 期限切れのホールドが座席を参照していれば、そのホールドごと回収してから押さえる
func (s *ReservationService) CreateHold(ctx context.Context, input CreateHoldInput) (h *hold.Hold, err error) {
	defer func() { s.record(s.holdsCounter(), err) }()

	if input.CallerID == "" {
		return nil, ErrUnauthenticated
	}
	if input.ShowtimeID <= 0 {
		return nil, showtime.ErrInvalidShowtimeID
	}
	if err := seat.ValidateIDs(input.SeatIDs); err != nil {
		return nil, err
	}
	if _, err := s.repos.Showtimes.GetByID(ctx, input.ShowtimeID); err != nil {
		return nil, err
	}

	l, err := s.acquire(ctx, input.ShowtimeID)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, l)

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	seats, err := s.repos.Seats.GetForUpdate(ctx, tx, input.ShowtimeID, input.SeatIDs)
	if err != nil {
		return nil, err
	}
	if len(seats) != len(input.SeatIDs) {
		return nil, seat.ErrSeatNotFound
	}

	now := s.now()
	heldBy := make(map[string][]int64)
	for _, st := range seats {
		switch st.Status {
		case seat.StatusTaken:
			return nil, seat.ErrSeatNotAvailable
		case seat.StatusHeld:
			if st.HoldID == nil {
				return nil, seat.ErrSeatNotAvailable
			}
			heldBy[*st.HoldID] = append(heldBy[*st.HoldID], st.ID)
		}
	}
	reclaimed, err := s.reclaimExpired(ctx, tx, heldBy, now)
	if err != nil {
		return nil, err
	}

	h = hold.NewHold(input.ShowtimeID, seat.SortedIDs(input.SeatIDs), input.CallerID, now, s.cfg.HoldTTL)
	if err := s.repos.Holds.Create(ctx, tx, h); err != nil {
		return nil, err
	}
	if err := s.repos.Seats.HoldSeats(ctx, tx, h.SeatIDs, h.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	invalidate(ctx, s.cache, input.ShowtimeID)
	for _, stale := range reclaimed {
		s.afterRelease(ctx, stale, event.ReasonExpired)
	}
	logger.Info("座席をホールドしました",
		zap.String("hold_id", h.ID),
		zap.Int64("showtime_id", h.ShowtimeID),
		zap.Int64s("seat_ids", h.SeatIDs),
		zap.Time("expires_at", h.ExpiresAt),
	)
	return h, nil
}

// reclaimExpired は要求座席を参照するホールドが全て期限切れなら回収する
// 一つでも有効なホールドがあれば競合
func (s *ReservationService) reclaimExpired(ctx context.Context, tx transaction.Tx, heldBy map[string][]int64, now time.Time) ([]*hold.Hold, error) {
	holdIDs := make([]string, 0, len(heldBy))
	for id := range heldBy {
		holdIDs = append(holdIDs, id)
	}
	sort.Strings(holdIDs)

	var reclaimed []*hold.Hold
	for _, holdID := range holdIDs {
		stale, err := s.repos.Holds.GetForUpdate(ctx, tx, holdID)
		if errors.Is(err, hold.ErrHoldNotFound) {
			// 参照元のないホールドは座席だけ戻す
			if err := s.repos.Seats.ReleaseSeats(ctx, tx, heldBy[holdID], holdID); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if !stale.IsExpired(now) {
			return nil, seat.ErrSeatNotAvailable
		}
		if err := s.releaseInTx(ctx, tx, stale); err != nil {
			return nil, err
		}
		reclaimed = append(reclaimed, stale)
	}
	return reclaimed, nil
}

// ReleaseHold は所有者がホールドを手放す
func (s *ReservationService) ReleaseHold(ctx context.Context, holdID, callerID string) error {
	if callerID == "" {
		return ErrUnauthenticated
	}
	if holdID == "" {
		return hold.ErrHoldIDRequired
	}
	h, err := s.repos.Holds.GetByID(ctx, holdID)
	if err != nil {
		return err
	}

	l, err := s.acquire(ctx, h.ShowtimeID)
	if err != nil {
		return err
	}
	defer s.release(ctx, l)

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	// ロック待ちの間に確定・回収されている可能性があるので読み直す
	locked, err := s.repos.Holds.GetForUpdate(ctx, tx, holdID)
	if err != nil {
		return err
	}
	if locked.IsExpired(s.now()) {
		return hold.ErrHoldExpired
	}
	if !locked.IsOwnedBy(callerID) {
		return hold.ErrHoldNotOwned
	}
	if err := s.releaseInTx(ctx, tx, locked); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}

	invalidate(ctx, s.cache, locked.ShowtimeID)
	s.afterRelease(ctx, locked, event.ReasonReleased)
	logger.Info("ホールドを解放しました", zap.String("hold_id", locked.ID), zap.Int64("showtime_id", locked.ShowtimeID))
	return nil
}

type ConfirmBookingInput struct {
	ShowtimeID int64
	SeatIDs    []int64
	CallerID   string
}

// ConfirmBooking は座席集合が完全一致する有効なホールドを予約に変える
// 取り消せない遷移なので、失敗しても自動では再試行しない
func (s *ReservationService) ConfirmBooking(ctx context.Context, input ConfirmBookingInput) (b *booking.Booking, err error) {
	defer func() { s.record(s.confirmationsCounter(), err) }()

	if input.CallerID == "" {
		return nil, ErrUnauthenticated
	}
	if input.ShowtimeID <= 0 {
		return nil, showtime.ErrInvalidShowtimeID
	}
	if err := seat.ValidateIDs(input.SeatIDs); err != nil {
		return nil, err
	}

	l, err := s.acquire(ctx, input.ShowtimeID)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, l)

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	holds, err := s.repos.Holds.ListByOwnerForUpdate(ctx, tx, input.ShowtimeID, input.CallerID)
	if err != nil {
		return nil, err
	}
	matched, err := findCoveringHold(holds, input.SeatIDs, now)
	if err != nil {
		return nil, err
	}

	seats, err := s.repos.Seats.GetForUpdate(ctx, tx, input.ShowtimeID, matched.SeatIDs)
	if err != nil {
		return nil, err
	}
	if len(seats) != len(matched.SeatIDs) {
		return nil, seat.ErrSeatNotFound
	}
	for _, st := range seats {
		if !st.IsHeldBy(matched.ID) {
			return nil, seat.ErrSeatNotAvailable
		}
	}
	if err := s.repos.Seats.TakeSeats(ctx, tx, matched.SeatIDs, matched.ID); err != nil {
		return nil, err
	}

	b = booking.NewBooking(input.ShowtimeID, input.CallerID, seats, now)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.Bookings.Create(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := s.repos.Holds.Delete(ctx, tx, matched.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	invalidate(ctx, s.cache, input.ShowtimeID)
	s.publish(ctx, func(ctx context.Context) error {
		return s.publisher.PublishBookingConfirmed(ctx, event.BookingConfirmed{
			BookingID:     b.ID,
			BookingNumber: b.BookingNumber,
			ShowtimeID:    b.ShowtimeID,
			UserID:        b.UserID,
			SeatIDs:       b.SeatIDs,
			TotalPrice:    b.TotalPrice,
			ConfirmedAt:   b.ConfirmedAt,
		})
	})
	logger.Info("予約を確定しました",
		zap.Int64("booking_id", b.ID),
		zap.String("booking_number", b.BookingNumber),
		zap.Int64("showtime_id", b.ShowtimeID),
		zap.Int("total_price", b.TotalPrice),
	)
	return b, nil
}

// findCoveringHold は座席集合が完全一致するホールドを探す（有効なものを優先）
func findCoveringHold(holds []*hold.Hold, seatIDs []int64, now time.Time) (*hold.Hold, error) {
	var expired *hold.Hold
	for _, h := range holds {
		if !h.Covers(seatIDs) {
			continue
		}
		if !h.IsExpired(now) {
			return h, nil
		}
		expired = h
	}
	if expired != nil {
		return nil, hold.ErrHoldExpired
	}
	return nil, hold.ErrHoldMismatch
}

// SweepExpiredHolds は期限切れのホールドを回収し、回収件数を返す
// 一件の失敗で止めず、失敗はまとめて返す
func (s *ReservationService) SweepExpiredHolds(ctx context.Context) (int, error) {
	expired, err := s.repos.Holds.ListExpired(ctx, s.now(), s.cfg.SweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("期限切れホールドの取得に失敗: %w", err)
	}

	released := 0
	var errs []error
	for _, h := range expired {
		ok, err := s.sweepOne(ctx, h)
		if err != nil {
			errs = append(errs, fmt.Errorf("ホールド %s の回収に失敗: %w", h.ID, err))
			continue
		}
		if ok {
			released++
		}
	}
	s.refreshActiveHolds(ctx)
	return released, errors.Join(errs...)
}

// sweepOne は解放処理と同じ経路で回収する（所有者確認なし）
// 既に消えている、またはロック待ちの間に状態が変わったホールドは何もしない
func (s *ReservationService) sweepOne(ctx context.Context, candidate *hold.Hold) (bool, error) {
	l, err := s.acquire(ctx, candidate.ShowtimeID)
	if err != nil {
		if errors.Is(err, ErrBusy) {
			logger.Debug("ロック取得できないため次回に回収します", zap.String("hold_id", candidate.ID))
			return false, nil
		}
		return false, err
	}
	defer s.release(ctx, l)

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	h, err := s.repos.Holds.GetForUpdate(ctx, tx, candidate.ID)
	if errors.Is(err, hold.ErrHoldNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !h.IsExpired(s.now()) {
		return false, nil
	}
	if err := s.releaseInTx(ctx, tx, h); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("コミットに失敗: %w", err)
	}

	invalidate(ctx, s.cache, h.ShowtimeID)
	s.afterRelease(ctx, h, event.ReasonExpired)
	return true, nil
}

// BookingSummary は予約と公演回の組
type BookingSummary struct {
	Booking  *booking.Booking
	Showtime *showtime.Showtime
}

// ListMyBookings は呼び出し元の予約履歴を新しい順に返す
func (s *ReservationService) ListMyBookings(ctx context.Context, callerID string, limit, offset int) ([]BookingSummary, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	bookings, err := s.repos.Bookings.ListByUser(ctx, callerID, limit, offset)
	if err != nil {
		return nil, err
	}

	showtimes := make(map[int64]*showtime.Showtime)
	result := make([]BookingSummary, 0, len(bookings))
	for _, b := range bookings {
		st, ok := showtimes[b.ShowtimeID]
		if !ok {
			st, err = s.repos.Showtimes.GetByID(ctx, b.ShowtimeID)
			if err != nil {
				return nil, fmt.Errorf("公演回取得に失敗: %w", err)
			}
			showtimes[b.ShowtimeID] = st
		}
		result = append(result, BookingSummary{Booking: b, Showtime: st})
	}
	return result, nil
}

// releaseInTx は座席を AVAILABLE に戻してホールドを削除する
func (s *ReservationService) releaseInTx(ctx context.Context, tx transaction.Tx, h *hold.Hold) error {
	if err := s.repos.Seats.ReleaseSeats(ctx, tx, h.SeatIDs, h.ID); err != nil {
		return err
	}
	return s.repos.Holds.Delete(ctx, tx, h.ID)
}

func (s *ReservationService) afterRelease(ctx context.Context, h *hold.Hold, reason event.ReleaseReason) {
	if s.metrics != nil {
		s.metrics.HoldReleasesTotal.WithLabelValues(string(reason)).Inc()
	}
	s.publish(ctx, func(ctx context.Context) error {
		return s.publisher.PublishHoldReleased(ctx, event.HoldReleased{
			HoldID:     h.ID,
			ShowtimeID: h.ShowtimeID,
			SeatIDs:    h.SeatIDs,
			Reason:     reason,
			ReleasedAt: s.now(),
		})
	})
}

// publish はコミット後のイベント発行（失敗はログのみ）
func (s *ReservationService) publish(ctx context.Context, fn func(ctx context.Context) error) {
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("イベント発行に失敗", zap.Error(err))
	}
}

func (s *ReservationService) acquire(ctx context.Context, showtimeID int64) (lock.Lock, error) {
	start := time.Now()
	l, err := s.lockManager.AcquireLockWithRetry(ctx, lock.ShowtimeKey(showtimeID),
		s.cfg.LockTTL, s.cfg.LockMaxRetries, s.cfg.LockRetryDelay)
	s.observeLock("acquire", start, err)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, fmt.Errorf("%w: %w", ErrBusy, err)
		}
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	return l, nil
}

// release はリクエストが取り消されていてもロックを解放する
func (s *ReservationService) release(ctx context.Context, l lock.Lock) {
	start := time.Now()
	err := l.Release(context.WithoutCancel(ctx))
	s.observeLock("release", start, err)
	if err != nil {
		logger.Warn("ロック解放に失敗", zap.Error(err))
	}
}

func (s *ReservationService) observeLock(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	s.metrics.DistributedLockDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

func (s *ReservationService) refreshActiveHolds(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	count, err := s.repos.Holds.CountActive(ctx, s.now())
	if err != nil {
		logger.Warn("有効ホールド数の取得に失敗", zap.Error(err))
		return
	}
	s.metrics.ActiveHolds.Set(float64(count))
}

func (s *ReservationService) holdsCounter() *prometheus.CounterVec {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.HoldsTotal
}

func (s *ReservationService) confirmationsCounter() *prometheus.CounterVec {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.ConfirmationsTotal
}

func (s *ReservationService) record(counter *prometheus.CounterVec, err error) {
	if counter == nil {
		return
	}
	counter.WithLabelValues(resultLabel(err)).Inc()
}

// resultLabel はメトリクスの result ラベル値を返す
func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	switch Classify(err) {
	case CodeSeatConflict:
		return "conflict"
	case CodeNotFound:
		return "not_found"
	case CodeInvalidArgument:
		return "invalid"
	case CodeForbidden:
		return "forbidden"
	case CodeUnauthenticated:
		return "unauthenticated"
	case CodeUnavailable:
		return "lock_failed"
	default:
		return "error"
	}
}
