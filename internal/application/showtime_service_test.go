package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/showtime"
)

var smallLayout = seat.Layout{
	{Zone: "FLOOR", FirstRow: 1, LastRow: 2, SeatsPerRow: 3, Price: 15000},
}

func TestShowtimeService_EnsureShowtime(t *testing.T) {
	startAt := time.Date(2025, 12, 25, 19, 30, 0, 0, time.UTC)

	t.Run("既存の公演回を返す", func(t *testing.T) {
		showtimes := new(MockShowtimeRepository)
		seats := new(MockSeatRepository)
		tm := new(MockTxManager)
		ctx := context.Background()
		existing := &showtime.Showtime{ID: 7, ExternalID: "PF132236", StartAt: startAt}
		showtimes.On("GetByKey", ctx, "PF132236", startAt).Return(existing, nil)

		svc := NewShowtimeService(tm, showtimes, seats, smallLayout, nil)
		got, err := svc.EnsureShowtime(ctx, EnsureShowtimeInput{ExternalID: "PF132236", StartAt: "2025-12-25T19:30:00", CallerID: "user-1"})

		require.NoError(t, err)
		assert.Equal(t, int64(7), got.ID)
		tm.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("新規作成時は座席も作る", func(t *testing.T) {
		showtimes := new(MockShowtimeRepository)
		seats := new(MockSeatRepository)
		tm := new(MockTxManager)
		tx := new(MockTx)
		catalog := new(MockCatalogClient)
		ctx := context.Background()

		showtimes.On("GetByKey", ctx, "PF132236", startAt).Return(nil, showtime.ErrShowtimeNotFound)
		catalog.On("FetchMetadata", ctx, "PF132236").Return(showtime.Metadata{Title: "레미제라블", Venue: "블루스퀘어"}, nil)
		tm.On("Begin", ctx).Return(tx, nil)
		showtimes.On("CreateIfAbsent", ctx, tx, mock.MatchedBy(func(st *showtime.Showtime) bool {
			return st.Metadata.Title == "레미제라블"
		})).Run(func(args mock.Arguments) {
			args.Get(2).(*showtime.Showtime).ID = 11
		}).Return(true, nil)
		seats.On("CreateBulk", ctx, tx, mock.MatchedBy(func(ss []*seat.Seat) bool {
			return len(ss) == 6 && ss[0].ShowtimeID == 11
		})).Return(nil)
		tx.On("Commit").Return(nil)
		tx.On("Rollback").Return(nil)

		svc := NewShowtimeService(tm, showtimes, seats, smallLayout, catalog)
		got, err := svc.EnsureShowtime(ctx, EnsureShowtimeInput{ExternalID: " PF132236 ", StartAt: "2025-12-25T19:30", CallerID: "user-1"})

		require.NoError(t, err)
		assert.Equal(t, int64(11), got.ID)
		assert.Equal(t, "블루스퀘어", got.Metadata.Venue)
		mock.AssertExpectationsForObjects(t, showtimes, seats, tm, tx, catalog)
	})

	t.Run("同時作成に負けた場合は座席を作らない", func(t *testing.T) {
		showtimes := new(MockShowtimeRepository)
		seats := new(MockSeatRepository)
		tm := new(MockTxManager)
		tx := new(MockTx)
		ctx := context.Background()

		showtimes.On("GetByKey", ctx, "PF1", startAt).Return(nil, showtime.ErrShowtimeNotFound)
		tm.On("Begin", ctx).Return(tx, nil)
		showtimes.On("CreateIfAbsent", ctx, tx, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(2).(*showtime.Showtime).ID = 3
		}).Return(false, nil)
		tx.On("Commit").Return(nil)
		tx.On("Rollback").Return(nil)

		svc := NewShowtimeService(tm, showtimes, seats, smallLayout, nil)
		got, err := svc.EnsureShowtime(ctx, EnsureShowtimeInput{ExternalID: "PF1", StartAt: "2025-12-25T19:30:00", CallerID: "user-1"})

		require.NoError(t, err)
		assert.Equal(t, int64(3), got.ID)
		seats.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("カタログ取得の失敗は無視する", func(t *testing.T) {
		showtimes := new(MockShowtimeRepository)
		seats := new(MockSeatRepository)
		tm := new(MockTxManager)
		tx := new(MockTx)
		catalog := new(MockCatalogClient)
		ctx := context.Background()

		showtimes.On("GetByKey", ctx, "PF1", startAt).Return(nil, showtime.ErrShowtimeNotFound)
		catalog.On("FetchMetadata", ctx, "PF1").Return(showtime.Metadata{}, errors.New("timeout"))
		tm.On("Begin", ctx).Return(tx, nil)
		showtimes.On("CreateIfAbsent", ctx, tx, mock.Anything).Return(true, nil)
		seats.On("CreateBulk", ctx, tx, mock.Anything).Return(nil)
		tx.On("Commit").Return(nil)
		tx.On("Rollback").Return(nil)

		svc := NewShowtimeService(tm, showtimes, seats, smallLayout, catalog)
		got, err := svc.EnsureShowtime(ctx, EnsureShowtimeInput{ExternalID: "PF1", StartAt: "2025-12-25T19:30:00", CallerID: "user-1"})

		require.NoError(t, err)
		assert.Empty(t, got.Metadata.Title)
	})

	t.Run("座席作成に失敗したらコミットしない", func(t *testing.T) {
		showtimes := new(MockShowtimeRepository)
		seats := new(MockSeatRepository)
		tm := new(MockTxManager)
		tx := new(MockTx)
		ctx := context.Background()

		showtimes.On("GetByKey", ctx, "PF1", startAt).Return(nil, showtime.ErrShowtimeNotFound)
		tm.On("Begin", ctx).Return(tx, nil)
		showtimes.On("CreateIfAbsent", ctx, tx, mock.Anything).Return(true, nil)
		seats.On("CreateBulk", ctx, tx, mock.Anything).Return(errors.New("db error"))
		tx.On("Rollback").Return(nil)

		svc := NewShowtimeService(tm, showtimes, seats, smallLayout, nil)
		_, err := svc.EnsureShowtime(ctx, EnsureShowtimeInput{ExternalID: "PF1", StartAt: "2025-12-25T19:30:00", CallerID: "user-1"})

		require.Error(t, err)
		tx.AssertNotCalled(t, "Commit")
		tx.AssertCalled(t, "Rollback")
	})
}

func TestShowtimeService_EnsureShowtime_入力エラー(t *testing.T) {
	tests := []struct {
		name  string
		input EnsureShowtimeInput
		want  error
	}{
		{"未認証", EnsureShowtimeInput{ExternalID: "PF1", StartAt: "2025-12-25T19:30:00"}, ErrUnauthenticated},
		{"公演IDなし", EnsureShowtimeInput{ExternalID: "  ", StartAt: "2025-12-25T19:30:00", CallerID: "u"}, showtime.ErrExternalIDRequired},
		{"開演日時なし", EnsureShowtimeInput{ExternalID: "PF1", CallerID: "u"}, showtime.ErrStartAtRequired},
		{"開演日時の形式が不正", EnsureShowtimeInput{ExternalID: "PF1", StartAt: "25/12/2025", CallerID: "u"}, showtime.ErrInvalidStartAt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			showtimes := new(MockShowtimeRepository)
			svc := NewShowtimeService(new(MockTxManager), showtimes, new(MockSeatRepository), smallLayout, nil)

			_, err := svc.EnsureShowtime(context.Background(), tt.input)

			assert.ErrorIs(t, err, tt.want)
			showtimes.AssertNotCalled(t, "GetByKey", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
