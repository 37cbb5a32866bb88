package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pmg1020/AquaTicketWeb/internal/api/middleware"
	"github.com/pmg1020/AquaTicketWeb/internal/application"
)

type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

type SeatSelectionRequest struct {
	ShowtimeID int64   `json:"showtimeId" validate:"required,gt=0" example:"5"`
	SeatIDs    []int64 `json:"seatIds" validate:"required,min=1,dive,gt=0" example:"101,102"`
}

type HoldResponse struct {
	HoldID    string    `json:"holdId" example:"550e8400-e29b-41d4-a716-446655440000"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ConfirmResponse struct {
	ReservationID int64  `json:"reservationId" example:"42"`
	Result        string `json:"result" example:"OK"`
}

type BookingHistoryResponse struct {
	BookingID        int64  `json:"bookingId"`
	PerformanceTitle string `json:"performanceTitle"`
	PosterURL        string `json:"posterUrl"`
	ViewingDate      string `json:"viewingDate"`
	BookingDate      string `json:"bookingDate"`
	BookingNumber    string `json:"bookingNumber"`
	TotalPrice       int    `json:"totalPrice"`
	Status           string `json:"status"`
}

const historyDateLayout = "2006-01-02 15:04"

func toBookingHistoryResponse(s application.BookingSummary) BookingHistoryResponse {
	resp := BookingHistoryResponse{
		BookingID:     s.Booking.ID,
		BookingDate:   s.Booking.ConfirmedAt.Format(historyDateLayout),
		BookingNumber: s.Booking.BookingNumber,
		TotalPrice:    s.Booking.TotalPrice,
		Status:        string(s.Booking.Status),
	}
	if s.Showtime != nil {
		resp.PerformanceTitle = s.Showtime.Metadata.Title
		resp.PosterURL = s.Showtime.Metadata.PosterURL
		resp.ViewingDate = s.Showtime.StartAt.Format(historyDateLayout)
		if resp.PerformanceTitle == "" {
			resp.PerformanceTitle = s.Showtime.ExternalID
		}
	}
	return resp
}

// CreateHold godoc
// @Summary 座席をホールド
// @Description 指定座席をすべて押さえます（10分間有効）。一つでも押さえられなければ何も押さえません
// @Tags booking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SeatSelectionRequest true "座席"
// @Success 201 {object} HoldResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "既に選択された座席を含む"
// @Failure 503 {object} api.ErrorResponse
// @Router /booking/hold [post]
func (h *BookingHandler) CreateHold(c echo.Context) error {
	var req SeatSelectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	held, err := h.service.CreateHold(c.Request().Context(), application.CreateHoldInput{
		ShowtimeID: req.ShowtimeID,
		SeatIDs:    req.SeatIDs,
		CallerID:   middleware.CallerID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, HoldResponse{HoldID: held.ID, ExpiresAt: held.ExpiresAt})
}

// ReleaseHold godoc
// @Summary ホールドを解放
// @Tags booking
// @Security BearerAuth
// @Param holdId path string true "ホールドID"
// @Success 204
// @Failure 401 {object} api.ErrorResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /booking/hold/{holdId} [delete]
func (h *BookingHandler) ReleaseHold(c echo.Context) error {
	if err := h.service.ReleaseHold(c.Request().Context(), c.Param("holdId"), middleware.CallerID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Confirm godoc
// @Summary 予約を確定
// @Description 座席集合が完全一致する有効なホールドを予約に変えます
// @Tags booking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SeatSelectionRequest true "座席"
// @Success 200 {object} ConfirmResponse
// @Failure 401 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse "ホールドの期限切れ"
// @Failure 409 {object} api.ErrorResponse "ホールドと座席が一致しない"
// @Router /booking/confirm [post]
func (h *BookingHandler) Confirm(c echo.Context) error {
	var req SeatSelectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.service.ConfirmBooking(c.Request().Context(), application.ConfirmBookingInput{
		ShowtimeID: req.ShowtimeID,
		SeatIDs:    req.SeatIDs,
		CallerID:   middleware.CallerID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ConfirmResponse{ReservationID: b.ID, Result: "OK"})
}

// MyBookings godoc
// @Summary 自分の予約履歴
// @Tags booking
// @Produce json
// @Security BearerAuth
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookingHistoryResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /booking/me [get]
func (h *BookingHandler) MyBookings(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return err
	}
	summaries, err := h.service.ListMyBookings(c.Request().Context(), middleware.CallerID(c), limit, offset)
	if err != nil {
		return err
	}
	resp := make([]BookingHistoryResponse, len(summaries))
	for i, s := range summaries {
		resp[i] = toBookingHistoryResponse(s)
	}
	return c.JSON(http.StatusOK, resp)
}

// queryInt は0以上の整数クエリを読む。未指定は0（サービス側の既定値）
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" は0以上の整数で指定してください")
	}
	return n, nil
}
