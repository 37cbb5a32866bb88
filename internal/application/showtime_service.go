package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/showtime"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
	"github.com/pmg1020/AquaTicketWeb/internal/pkg/logger"
)

// CatalogClient は公演カタログから公演情報を取得する
type CatalogClient interface {
	FetchMetadata(ctx context.Context, externalID string) (showtime.Metadata, error)
}

type ShowtimeService struct {
	txManager    transaction.Manager
	showtimeRepo showtime.Repository
	seatRepo     seat.Repository
	layout       seat.Layout
	catalog      CatalogClient
}

// NewShowtimeService は ShowtimeService を作成する（catalog は nil 可）
func NewShowtimeService(tm transaction.Manager, sr showtime.Repository, seatRepo seat.Repository, layout seat.Layout, catalog CatalogClient) *ShowtimeService {
	return &ShowtimeService{txManager: tm, showtimeRepo: sr, seatRepo: seatRepo, layout: layout, catalog: catalog}
}

type EnsureShowtimeInput struct {
	ExternalID string
	StartAt    string
	CallerID   string
}

// EnsureShowtime は (公演ID, 開演日時) の公演回を取得し、なければ座席ごと作成する
// 同時に呼ばれても公演回と座席はそれぞれ一度だけ作られる
func (s *ShowtimeService) EnsureShowtime(ctx context.Context, input EnsureShowtimeInput) (*showtime.Showtime, error) {
	if input.CallerID == "" {
		return nil, ErrUnauthenticated
	}
	startAt, err := showtime.ParseStartAt(input.StartAt)
	if err != nil {
		return nil, err
	}
	st := showtime.NewShowtime(input.ExternalID, startAt)
	if err := st.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.showtimeRepo.GetByKey(ctx, st.ExternalID, st.StartAt)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, showtime.ErrShowtimeNotFound) {
		return nil, fmt.Errorf("公演回取得に失敗: %w", err)
	}

	// カタログの失敗で公演回の作成は止めない
	if s.catalog != nil {
		md, err := s.catalog.FetchMetadata(ctx, st.ExternalID)
		if err != nil {
			logger.Warn("公演情報の取得に失敗", zap.String("external_id", st.ExternalID), zap.Error(err))
		} else {
			st.Metadata = md
		}
	}

	var created bool
	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		var err error
		created, err = s.showtimeRepo.CreateIfAbsent(ctx, tx, st)
		if err != nil || !created {
			return err
		}
		if err := s.seatRepo.CreateBulk(ctx, tx, s.layout.Build(st.ID)); err != nil {
			return fmt.Errorf("座席作成に失敗: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		logger.Info("公演回を作成しました",
			zap.Int64("showtime_id", st.ID),
			zap.String("external_id", st.ExternalID),
			zap.String("start_at", st.FormatStartAt()),
			zap.Int("seats", s.layout.Capacity()),
		)
	}
	return st, nil
}
