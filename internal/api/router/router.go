// Package router は HTTP ルーティングを組み立てる（main と E2E テストで共有）
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pmg1020/AquaTicketWeb/internal/api"
	"github.com/pmg1020/AquaTicketWeb/internal/api/handler"
	"github.com/pmg1020/AquaTicketWeb/internal/api/middleware"
	"github.com/pmg1020/AquaTicketWeb/internal/config"
	"github.com/pmg1020/AquaTicketWeb/internal/pkg/metrics"
)

// Services はハンドラーが使うサービス一式
type Services struct {
	Showtimes handler.ShowtimeServiceInterface
	Seats     handler.SeatServiceInterface
	Bookings  handler.BookingServiceInterface
}

// Options はルーティングの設定
type Options struct {
	JWTSecret   string
	Revocations middleware.RevocationChecker // nil なら失効確認なし

	// Metrics が nil なら /metrics を公開しない
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer // nil なら既定のレジストリ
	MetricsAuth *config.MetricsConfig

	HealthChecks map[string]handler.HealthCheck
}

// New はミドルウェアとルートを設定した Echo を返す
func New(s Services, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	middleware.SetupMiddleware(e)

	if opts.Metrics != nil {
		e.Use(middleware.PrometheusMiddleware(opts.Metrics))
		gatherer := opts.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})),
			middleware.MetricsBasicAuth(opts.MetricsAuth))
	}

	health := handler.NewHealthHandler(opts.HealthChecks)
	e.GET("/health", health.Check)
	e.GET("/health/ready", health.Ready)

	requireAuth := middleware.JWTAuth(opts.JWTSecret, opts.Revocations)
	optionalAuth := middleware.OptionalJWTAuth(opts.JWTSecret, opts.Revocations)

	showtimes := handler.NewShowtimeHandler(s.Showtimes, s.Seats)
	bookings := handler.NewBookingHandler(s.Bookings)

	g := e.Group("/api/booking")
	g.POST("/showtimes/ensure", showtimes.Ensure, requireAuth)
	g.GET("/showtimes/:showtimeId/availability", showtimes.Availability, optionalAuth)
	g.POST("/hold", bookings.CreateHold, requireAuth)
	g.DELETE("/hold/:holdId", bookings.ReleaseHold, requireAuth)
	g.POST("/confirm", bookings.Confirm, requireAuth)
	g.GET("/me", bookings.MyBookings, requireAuth)

	return e
}
