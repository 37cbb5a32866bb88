package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/pmg1020/AquaTicketWeb/internal/config"
	"github.com/pmg1020/AquaTicketWeb/internal/pkg/logger"
)

// connectTimeout はコンテナ同時起動時に DB の起動を待つ上限
const connectTimeout = 10 * time.Second

// NewConnection はPostgreSQLへの接続を作成する
// 起動直後の接続拒否は connectTimeout まで指数バックオフで再試行する
func NewConnection(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = connectTimeout

	var db *sqlx.DB
	connect := func() error {
		var err error
		db, err = sqlx.Connect("postgres", cfg.DSN())
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("データベース接続を再試行します", zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続プール設定
	// ホールドと確定は短いトランザクションなので少数の接続で回る
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Ping はデータベース接続を確認する
func Ping(ctx context.Context, db *sqlx.DB) error {
	return db.PingContext(ctx)
}
