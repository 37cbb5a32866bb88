// Package memory は単一プロセス用のストレージ実装
// PostgreSQL と同じリポジトリとトランザクションのインターフェースを満たす
package memory

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/booking"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/hold"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/showtime"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
)

var (
	// ErrTxDone はコミットまたはロールバック済みのトランザクションを操作したことを表す
	ErrTxDone = errors.New("トランザクションは既に終了しています")
	// ErrForeignTx は別のストアのトランザクションが渡されたことを表す
	ErrForeignTx = errors.New("このストアのトランザクションではありません")
)

type showtimeKey struct {
	externalID string
	startAt    time.Time
}

type bookedSeatKey struct {
	showtimeID int64
	seatID     int64
}

// state はコミット済みデータのスナップショット
// 値は置き換えのみで、スライスやポインタの中身を書き換えない
type state struct {
	showtimes      map[int64]showtime.Showtime
	showtimeKeys   map[showtimeKey]int64
	seats          map[int64]seat.Seat
	showtimeSeats  map[int64][]int64
	holds          map[string]hold.Hold
	bookings       []booking.Booking
	bookedSeats    map[bookedSeatKey]int64
	nextShowtimeID int64
	nextSeatID     int64
	nextBookingID  int64
}

func newState() *state {
	return &state{
		showtimes:      make(map[int64]showtime.Showtime),
		showtimeKeys:   make(map[showtimeKey]int64),
		seats:          make(map[int64]seat.Seat),
		showtimeSeats:  make(map[int64][]int64),
		holds:          make(map[string]hold.Hold),
		bookedSeats:    make(map[bookedSeatKey]int64),
		nextShowtimeID: 1,
		nextSeatID:     1,
		nextBookingID:  1,
	}
}

func (s *state) clone() *state {
	return &state{
		showtimes:      maps.Clone(s.showtimes),
		showtimeKeys:   maps.Clone(s.showtimeKeys),
		seats:          maps.Clone(s.seats),
		showtimeSeats:  maps.Clone(s.showtimeSeats),
		holds:          maps.Clone(s.holds),
		bookings:       append([]booking.Booking(nil), s.bookings...),
		bookedSeats:    maps.Clone(s.bookedSeats),
		nextShowtimeID: s.nextShowtimeID,
		nextSeatID:     s.nextSeatID,
		nextBookingID:  s.nextBookingID,
	}
}

// seatView は座席にホールド期限を結合して返す
func (s *state) seatView(st seat.Seat) *seat.Seat {
	st.HoldExpiresAt = nil
	if st.HoldID != nil {
		if h, ok := s.holds[*st.HoldID]; ok {
			expiresAt := h.ExpiresAt
			st.HoldExpiresAt = &expiresAt
		}
	}
	return &st
}

// Store はインメモリのデータストア
// 書き込みトランザクションは一度に一つだけ実行され、読み取りはコミット済みの状態を見る
type Store struct {
	writer chan struct{}

	mu        sync.RWMutex
	committed *state
}

// NewStore は空のストアを作成する
func NewStore() *Store {
	return &Store{
		writer:    make(chan struct{}, 1),
		committed: newState(),
	}
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.committed)
}

// Tx はインメモリのトランザクション
// 開始時にコミット済み状態を複製し、コミット時に差し替える
type Tx struct {
	store *Store
	work  *state
	done  bool
}

func (t *Tx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.store.mu.Lock()
	t.store.committed = t.work
	t.store.mu.Unlock()
	<-t.store.writer
	return nil
}

func (t *Tx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	<-t.store.writer
	return nil
}

// TxManager はインメモリのトランザクションマネージャー
type TxManager struct {
	store *Store
}

func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin は書き込み権を取得してトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	select {
	case m.store.writer <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	m.store.mu.RLock()
	work := m.store.committed.clone()
	m.store.mu.RUnlock()
	return &Tx{store: m.store, work: work}, nil
}

func (s *Store) unwrapTx(tx transaction.Tx) (*state, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, ErrForeignTx
	}
	if t.done {
		return nil, ErrTxDone
	}
	return t.work, nil
}

var _ transaction.Manager = (*TxManager)(nil)
