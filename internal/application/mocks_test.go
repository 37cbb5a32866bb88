package application

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/booking"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/event"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/hold"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/lock"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/showtime"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
)

// === Mock implementations ===

type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

type MockShowtimeRepository struct {
	mock.Mock
}

func (m *MockShowtimeRepository) CreateIfAbsent(ctx context.Context, tx transaction.Tx, st *showtime.Showtime) (bool, error) {
	args := m.Called(ctx, tx, st)
	return args.Bool(0), args.Error(1)
}

func (m *MockShowtimeRepository) GetByID(ctx context.Context, id int64) (*showtime.Showtime, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*showtime.Showtime), args.Error(1)
}

func (m *MockShowtimeRepository) GetByKey(ctx context.Context, externalID string, startAt time.Time) (*showtime.Showtime, error) {
	args := m.Called(ctx, externalID, startAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*showtime.Showtime), args.Error(1)
}

type MockSeatRepository struct {
	mock.Mock
}

func (m *MockSeatRepository) CreateBulk(ctx context.Context, tx transaction.Tx, seats []*seat.Seat) error {
	args := m.Called(ctx, tx, seats)
	return args.Error(0)
}

func (m *MockSeatRepository) ListByShowtime(ctx context.Context, showtimeID int64) ([]*seat.Seat, error) {
	args := m.Called(ctx, showtimeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, showtimeID int64, seatIDs []int64) ([]*seat.Seat, error) {
	args := m.Called(ctx, tx, showtimeID, seatIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatRepository) HoldSeats(ctx context.Context, tx transaction.Tx, seatIDs []int64, holdID string) error {
	args := m.Called(ctx, tx, seatIDs, holdID)
	return args.Error(0)
}

func (m *MockSeatRepository) TakeSeats(ctx context.Context, tx transaction.Tx, seatIDs []int64, holdID string) error {
	args := m.Called(ctx, tx, seatIDs, holdID)
	return args.Error(0)
}

func (m *MockSeatRepository) ReleaseSeats(ctx context.Context, tx transaction.Tx, seatIDs []int64, holdID string) error {
	args := m.Called(ctx, tx, seatIDs, holdID)
	return args.Error(0)
}

type MockHoldRepository struct {
	mock.Mock
}

func (m *MockHoldRepository) Create(ctx context.Context, tx transaction.Tx, h *hold.Hold) error {
	args := m.Called(ctx, tx, h)
	return args.Error(0)
}

func (m *MockHoldRepository) GetByID(ctx context.Context, id string) (*hold.Hold, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hold.Hold), args.Error(1)
}

func (m *MockHoldRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*hold.Hold, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hold.Hold), args.Error(1)
}

func (m *MockHoldRepository) ListByOwnerForUpdate(ctx context.Context, tx transaction.Tx, showtimeID int64, ownerID string) ([]*hold.Hold, error) {
	args := m.Called(ctx, tx, showtimeID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*hold.Hold), args.Error(1)
}

func (m *MockHoldRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*hold.Hold, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*hold.Hold), args.Error(1)
}

func (m *MockHoldRepository) CountActive(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockHoldRepository) Delete(ctx context.Context, tx transaction.Tx, id string) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	args := m.Called(ctx, tx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

type MockLockManager struct {
	mock.Mock
}

func (m *MockLockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (lock.Lock, error) {
	args := m.Called(ctx, key, ttl, maxRetries, retryDelay)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(lock.Lock), args.Error(1)
}

type MockLock struct {
	mock.Mock
}

func (m *MockLock) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishBookingConfirmed(ctx context.Context, e event.BookingConfirmed) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockPublisher) PublishHoldReleased(ctx context.Context, e event.HoldReleased) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

type MockAvailabilityCache struct {
	mock.Mock
}

var errTestCacheMiss = errors.New("cache miss")

func (m *MockAvailabilityCache) Get(ctx context.Context, showtimeID int64) ([]seat.Availability, error) {
	args := m.Called(ctx, showtimeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]seat.Availability), args.Error(1)
}

func (m *MockAvailabilityCache) Version(ctx context.Context, showtimeID int64) (int64, error) {
	args := m.Called(ctx, showtimeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAvailabilityCache) SetIfUnchanged(ctx context.Context, showtimeID, version int64, snapshot []seat.Availability, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, showtimeID, version, snapshot, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockAvailabilityCache) Invalidate(ctx context.Context, showtimeID int64) error {
	args := m.Called(ctx, showtimeID)
	return args.Error(0)
}

func (m *MockAvailabilityCache) IsMiss(err error) bool {
	return errors.Is(err, errTestCacheMiss)
}

type MockCatalogClient struct {
	mock.Mock
}

func (m *MockCatalogClient) FetchMetadata(ctx context.Context, externalID string) (showtime.Metadata, error) {
	args := m.Called(ctx, externalID)
	return args.Get(0).(showtime.Metadata), args.Error(1)
}
