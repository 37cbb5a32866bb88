package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/showtime"
	"github.com/pmg1020/AquaTicketWeb/internal/pkg/metrics"
)

func newTestSeatService(cache AvailabilityCache) (*SeatService, *MockShowtimeRepository, *MockSeatRepository, *metrics.Metrics) {
	showtimes := new(MockShowtimeRepository)
	seats := new(MockSeatRepository)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	svc := NewSeatService(showtimes, seats, cache, 5*time.Second, m)
	svc.now = func() time.Time { return testNow }
	return svc, showtimes, seats, m
}

func TestSeatService_GetAvailability_キャッシュヒット(t *testing.T) {
	cache := new(MockAvailabilityCache)
	svc, showtimes, _, m := newTestSeatService(cache)
	ctx := context.Background()
	past := testNow.Add(-time.Second)
	future := testNow.Add(time.Minute)
	cache.On("Get", ctx, int64(5)).Return([]seat.Availability{
		{SeatID: 1, Status: seat.StatusAvailable},
		{SeatID: 2, Status: seat.StatusHeld, HoldExpiresAt: &past},
		{SeatID: 3, Status: seat.StatusHeld, HoldExpiresAt: &future},
		{SeatID: 4, Status: seat.StatusTaken},
	}, nil)

	got, err := svc.GetAvailability(ctx, 5)

	require.NoError(t, err)
	require.Len(t, got, 4)
	// キャッシュ後に期限が切れたホールドは空席として返す
	assert.Equal(t, seat.StatusAvailable, got[1].Status)
	assert.Nil(t, got[1].HoldExpiresAt)
	assert.Equal(t, seat.StatusHeld, got[2].Status)
	assert.Equal(t, seat.StatusTaken, got[3].Status)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AvailabilityCacheTotal.WithLabelValues("hit")))
	showtimes.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestSeatService_GetAvailability_キャッシュミス(t *testing.T) {
	cache := new(MockAvailabilityCache)
	svc, showtimes, seats, m := newTestSeatService(cache)
	ctx := context.Background()
	holdID := "h1"
	expiresAt := testNow.Add(2 * time.Second)

	cache.On("Get", ctx, int64(5)).Return(nil, errTestCacheMiss)
	showtimes.On("GetByID", ctx, int64(5)).Return(&showtime.Showtime{ID: 5}, nil)
	seats.On("ListByShowtime", ctx, int64(5)).Return([]*seat.Seat{
		availableSeat(1),
		{ID: 2, ShowtimeID: 5, Zone: "FLOOR", Number: 2, Status: seat.StatusHeld, HoldID: &holdID, HoldExpiresAt: &expiresAt},
	}, nil)
	cache.On("Version", ctx, int64(5)).Return(int64(3), nil)
	// 最も早いホールド期限までしかキャッシュしない
	cache.On("SetIfUnchanged", ctx, int64(5), int64(3), mock.Anything, 2*time.Second).Return(true, nil)

	got, err := svc.GetAvailability(ctx, 5)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, seat.StatusHeld, got[1].Status)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AvailabilityCacheTotal.WithLabelValues("miss")))
	cache.AssertExpectations(t)
}

func TestSeatService_GetAvailability_ホールドがなければ設定TTLでキャッシュ(t *testing.T) {
	cache := new(MockAvailabilityCache)
	svc, showtimes, seats, _ := newTestSeatService(cache)
	ctx := context.Background()

	cache.On("Get", ctx, int64(5)).Return(nil, errTestCacheMiss)
	showtimes.On("GetByID", ctx, int64(5)).Return(&showtime.Showtime{ID: 5}, nil)
	seats.On("ListByShowtime", ctx, int64(5)).Return([]*seat.Seat{availableSeat(1), takenSeat(2)}, nil)
	cache.On("Version", ctx, int64(5)).Return(int64(0), nil)
	cache.On("SetIfUnchanged", ctx, int64(5), int64(0), mock.Anything, 5*time.Second).Return(true, nil)

	_, err := svc.GetAvailability(ctx, 5)

	require.NoError(t, err)
	cache.AssertExpectations(t)
}

func TestSeatService_GetAvailability_キャッシュ障害でもDBから返す(t *testing.T) {
	cache := new(MockAvailabilityCache)
	svc, showtimes, seats, _ := newTestSeatService(cache)
	ctx := context.Background()

	cache.On("Get", ctx, int64(5)).Return(nil, errors.New("connection refused"))
	showtimes.On("GetByID", ctx, int64(5)).Return(&showtime.Showtime{ID: 5}, nil)
	seats.On("ListByShowtime", ctx, int64(5)).Return([]*seat.Seat{availableSeat(1)}, nil)
	cache.On("Version", ctx, int64(5)).Return(int64(0), nil)
	cache.On("SetIfUnchanged", ctx, int64(5), int64(0), mock.Anything, mock.Anything).Return(false, errors.New("connection refused"))

	got, err := svc.GetAvailability(ctx, 5)

	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSeatService_GetAvailability_世代取得に失敗したらキャッシュしない(t *testing.T) {
	cache := new(MockAvailabilityCache)
	svc, showtimes, seats, _ := newTestSeatService(cache)
	ctx := context.Background()

	cache.On("Get", ctx, int64(5)).Return(nil, errTestCacheMiss)
	showtimes.On("GetByID", ctx, int64(5)).Return(&showtime.Showtime{ID: 5}, nil)
	cache.On("Version", ctx, int64(5)).Return(int64(0), errors.New("connection refused"))
	seats.On("ListByShowtime", ctx, int64(5)).Return([]*seat.Seat{availableSeat(1)}, nil)

	got, err := svc.GetAvailability(ctx, 5)

	require.NoError(t, err)
	assert.Len(t, got, 1)
	cache.AssertNotCalled(t, "SetIfUnchanged", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSeatService_GetAvailability_キャッシュなし(t *testing.T) {
	svc, showtimes, seats, _ := newTestSeatService(nil)
	ctx := context.Background()
	stale := "stale"
	expiredAt := testNow

	showtimes.On("GetByID", ctx, int64(5)).Return(&showtime.Showtime{ID: 5}, nil)
	seats.On("ListByShowtime", ctx, int64(5)).Return([]*seat.Seat{
		{ID: 1, ShowtimeID: 5, Zone: "FLOOR", Number: 1, Status: seat.StatusHeld, HoldID: &stale, HoldExpiresAt: &expiredAt},
	}, nil)

	got, err := svc.GetAvailability(ctx, 5)

	require.NoError(t, err)
	assert.Equal(t, seat.StatusAvailable, got[0].Status)
}

func TestSeatService_GetAvailability_エラー(t *testing.T) {
	t.Run("公演回IDが不正", func(t *testing.T) {
		svc, _, _, _ := newTestSeatService(nil)
		_, err := svc.GetAvailability(context.Background(), 0)
		assert.ErrorIs(t, err, showtime.ErrInvalidShowtimeID)
	})

	t.Run("公演回が存在しない", func(t *testing.T) {
		svc, showtimes, seats, _ := newTestSeatService(nil)
		ctx := context.Background()
		showtimes.On("GetByID", ctx, int64(404)).Return(nil, showtime.ErrShowtimeNotFound)

		_, err := svc.GetAvailability(ctx, 404)

		assert.ErrorIs(t, err, showtime.ErrShowtimeNotFound)
		seats.AssertNotCalled(t, "ListByShowtime", mock.Anything, mock.Anything)
	})
}
