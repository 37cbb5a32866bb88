package handler

import (
	"context"

	"github.com/pmg1020/AquaTicketWeb/internal/application"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/booking"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/hold"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/showtime"
)

// ShowtimeServiceInterface は公演回サービスのインターフェース
type ShowtimeServiceInterface interface {
	EnsureShowtime(ctx context.Context, input application.EnsureShowtimeInput) (*showtime.Showtime, error)
}

// SeatServiceInterface は座席サービスのインターフェース
type SeatServiceInterface interface {
	GetAvailability(ctx context.Context, showtimeID int64) ([]seat.Availability, error)
}

// BookingServiceInterface はホールドと予約確定のインターフェース
type BookingServiceInterface interface {
	CreateHold(ctx context.Context, input application.CreateHoldInput) (*hold.Hold, error)
	ReleaseHold(ctx context.Context, holdID, callerID string) error
	ConfirmBooking(ctx context.Context, input application.ConfirmBookingInput) (*booking.Booking, error)
	ListMyBookings(ctx context.Context, callerID string, limit, offset int) ([]application.BookingSummary, error)
}
