package application

import (
	"context"
	"errors"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/booking"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/hold"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/lock"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/showtime"
)

var (
	ErrUnauthenticated = errors.New("認証が必要です")
	ErrBusy            = errors.New("座席が他のユーザーによって処理中です。しばらくしてから再試行してください")
)

// Code はクライアントに返すエラー種別
type Code int

const (
	CodeInternal Code = iota
	CodeInvalidArgument
	CodeNotFound
	CodeSeatConflict
	CodeForbidden
	CodeUnauthenticated
	CodeUnavailable
)

func (c Code) String() string {
	switch c {
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeNotFound:
		return "NotFound"
	case CodeSeatConflict:
		return "SeatConflict"
	case CodeForbidden:
		return "Forbidden"
	case CodeUnauthenticated:
		return "Unauthenticated"
	case CodeUnavailable:
		return "Unavailable"
	default:
		return "Internal"
	}
}

var classes = []struct {
	code Code
	errs []error
}{
	{CodeUnauthenticated, []error{ErrUnauthenticated}},
	{CodeUnavailable, []error{ErrBusy, lock.ErrNotAcquired, context.DeadlineExceeded}},
	{CodeForbidden, []error{hold.ErrHoldNotOwned}},
	{CodeSeatConflict, []error{
		seat.ErrSeatNotAvailable, seat.ErrSeatNotHeld,
		hold.ErrHoldMismatch, booking.ErrSeatAlreadyBooked,
	}},
	{CodeNotFound, []error{
		showtime.ErrShowtimeNotFound, seat.ErrSeatNotFound,
		hold.ErrHoldNotFound, hold.ErrHoldExpired, booking.ErrBookingNotFound,
	}},
	{CodeInvalidArgument, []error{
		showtime.ErrExternalIDRequired, showtime.ErrExternalIDTooLong,
		showtime.ErrStartAtRequired, showtime.ErrInvalidStartAt, showtime.ErrInvalidShowtimeID,
		seat.ErrSeatIDsRequired, seat.ErrDuplicateSeatID, seat.ErrInvalidSeatID,
		hold.ErrHoldIDRequired,
	}},
}

// Classify はドメインエラーをエラー種別に分類する
func Classify(err error) Code {
	if err == nil {
		return CodeInternal
	}
	for _, class := range classes {
		for _, target := range class.errs {
			if errors.Is(err, target) {
				return class.code
			}
		}
	}
	return CodeInternal
}

// Retryable はクライアントが再試行してよい種別かを返す
// SeatConflict は空席を取り直してから、Unauthenticated は再認証してから
func Retryable(code Code) bool {
	switch code {
	case CodeSeatConflict, CodeUnauthenticated, CodeUnavailable:
		return true
	default:
		return false
	}
}
