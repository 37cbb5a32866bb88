package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pmg1020/AquaTicketWeb/internal/pkg/logger"
)

// HoldSweeper は期限切れホールドを回収するインターフェース
type HoldSweeper interface {
	SweepExpiredHolds(ctx context.Context) (int, error)
}

// ExpiredHoldSweeper は期限切れホールドを定期的に回収するワーカー
// 空席照会は期限を遅延評価するので、回収の遅れは表示に影響しない
type ExpiredHoldSweeper struct {
	sweeper  HoldSweeper
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewExpiredHoldSweeper は新しいスイーパーを作成
func NewExpiredHoldSweeper(s HoldSweeper, interval time.Duration) *ExpiredHoldSweeper {
	return &ExpiredHoldSweeper{
		sweeper:  s,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はスイーパーを開始（Stop かコンテキストのキャンセルまでブロックする）
func (w *ExpiredHoldSweeper) Start(ctx context.Context) {
	logger.Info("期限切れホールドスイーパー開始", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れホールドスイーパー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("期限切れホールドスイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止し、実行中の回収が終わるまで待つ
func (w *ExpiredHoldSweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

func (w *ExpiredHoldSweeper) sweep(ctx context.Context) {
	log := logger.Component("hold-sweeper")
	log.Debug("期限切れホールドの回収開始")

	count, err := w.sweeper.SweepExpiredHolds(ctx)
	if err != nil {
		// 一部失敗でも回収できた分は数える
		log.Error("期限切れホールドの回収に失敗", zap.Int("released", count), zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れホールドを回収", zap.Int("count", count))
	} else {
		log.Debug("期限切れホールドなし")
	}
}
