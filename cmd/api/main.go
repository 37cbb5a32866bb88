package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pmg1020/AquaTicketWeb/internal/api/handler"
	"github.com/pmg1020/AquaTicketWeb/internal/api/middleware"
	"github.com/pmg1020/AquaTicketWeb/internal/api/router"
	"github.com/pmg1020/AquaTicketWeb/internal/application"
	"github.com/pmg1020/AquaTicketWeb/internal/config"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/event"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/lock"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
	"github.com/pmg1020/AquaTicketWeb/internal/infrastructure/kopis"
	"github.com/pmg1020/AquaTicketWeb/internal/infrastructure/memory"
	"github.com/pmg1020/AquaTicketWeb/internal/infrastructure/postgres"
	"github.com/pmg1020/AquaTicketWeb/internal/infrastructure/rabbitmq"
	"github.com/pmg1020/AquaTicketWeb/internal/infrastructure/redis"
	"github.com/pmg1020/AquaTicketWeb/internal/pkg/logger"
	"github.com/pmg1020/AquaTicketWeb/internal/pkg/metrics"
	"github.com/pmg1020/AquaTicketWeb/internal/worker"
)

func main() {
	cfg := config.Load()

	logger.Set(logger.NewLogger(cfg.Server.Env))
	defer logger.Sync()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("JWT_SECRET が設定されていません")
	}

	m := metrics.Init()
	healthChecks := map[string]handler.HealthCheck{}

	// 永続化
	var (
		tm    transaction.Manager
		repos application.Repositories
		db    *sqlx.DB
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("インメモリストレージで起動します（再起動でデータは失われます）")
		store := memory.NewStore()
		tm = memory.NewTxManager(store)
		repos = application.Repositories{
			Showtimes: memory.NewShowtimeRepository(store),
			Seats:     memory.NewSeatRepository(store),
			Holds:     memory.NewHoldRepository(store),
			Bookings:  memory.NewBookingRepository(store),
		}
	case config.StorageDriverPostgres:
		var err error
		db, err = postgres.NewConnection(&cfg.Database)
		if err != nil {
			logger.Fatal("データベース接続に失敗しました", zap.Error(err))
		}
		if err := postgres.RunMigrations(db.DB, cfg.Storage.MigrationsPath); err != nil {
			logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
		}
		tm = postgres.NewTxManager(db)
		repos = application.Repositories{
			Showtimes: postgres.NewShowtimeRepository(db),
			Seats:     postgres.NewSeatRepository(db),
			Holds:     postgres.NewHoldRepository(db),
			Bookings:  postgres.NewBookingRepository(db),
		}
		healthChecks["database"] = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
	default:
		logger.Fatal("未知のストレージドライバーです", zap.String("driver", cfg.Storage.Driver))
	}

	// ロック・キャッシュ・失効トークン
	// 無効時は型付き nil を避けるためインターフェース変数のまま nil にしておく
	var (
		lockManager lock.Manager = memory.NewLockManager()
		cache       application.AvailabilityCache
		revocations middleware.RevocationChecker
		redisClient *goredis.Client
	)
	if cfg.Redis.Enabled() {
		var err error
		redisClient, err = redis.NewClient(context.Background(), &cfg.Redis)
		if err != nil {
			logger.Fatal("Redis接続に失敗しました", zap.Error(err))
		}
		lockManager = redis.NewLockManager(redisClient)
		cache = redis.NewAvailabilityCache(redisClient)
		revocations = redis.NewSessionStore(redisClient)
		healthChecks["redis"] = func(ctx context.Context) error { return redis.Ping(ctx, redisClient) }
	} else {
		logger.Warn("Redis が無効のためプロセス内ロックで動作します")
	}

	// イベント発行
	var publisher event.Publisher
	var rabbit *rabbitmq.Publisher
	if cfg.Broker.RabbitMQURL != "" {
		var err error
		rabbit, err = rabbitmq.NewPublisher(cfg.Broker.RabbitMQURL)
		if err != nil {
			logger.Fatal("RabbitMQ接続に失敗しました", zap.Error(err))
		}
		publisher = rabbit
	}

	// 公演カタログ
	var catalog application.CatalogClient
	if cfg.Catalog.ServiceKey != "" {
		catalog = kopis.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.ServiceKey, cfg.Catalog.Timeout)
	}

	showtimeService := application.NewShowtimeService(tm, repos.Showtimes, repos.Seats, seat.DefaultLayout, catalog)
	seatService := application.NewSeatService(repos.Showtimes, repos.Seats, cache, cfg.Booking.CacheTTL, m)
	reservationService := application.NewReservationService(tm, repos, lockManager, publisher, cache, m, application.ReservationConfig{
		HoldTTL:        cfg.Booking.HoldTTL,
		LockTTL:        cfg.Booking.LockTTL,
		LockMaxRetries: cfg.Booking.LockMaxRetries,
		LockRetryDelay: cfg.Booking.LockRetryDelay,
		SweepBatchSize: cfg.Booking.SweepBatchSize,
	})

	// 期限切れホールドの回収
	sweeper := worker.NewExpiredHoldSweeper(reservationService, cfg.Booking.SweepInterval)
	go sweeper.Start(context.Background())

	e := router.New(router.Services{
		Showtimes: showtimeService,
		Seats:     seatService,
		Bookings:  reservationService,
	}, router.Options{
		JWTSecret:    cfg.Auth.JWTSecret,
		Revocations:  revocations,
		Metrics:      m,
		MetricsAuth:  &cfg.Metrics,
		HealthChecks: healthChecks,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	go func() {
		logger.Info("サーバーを起動します",
			zap.String("port", cfg.Server.Port),
			zap.String("env", cfg.Server.Env),
			zap.String("storage", cfg.Storage.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
	}
	sweeper.Stop()

	if rabbit != nil {
		if err := rabbit.Close(); err != nil {
			logger.Warn("RabbitMQ切断エラー", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("Redis切断エラー", zap.Error(err))
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Warn("データベース切断エラー", zap.Error(err))
		}
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
