package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pmg1020/AquaTicketWeb/internal/api/middleware"
	"github.com/pmg1020/AquaTicketWeb/internal/application"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/showtime"
)

type ShowtimeHandler struct {
	showtimes ShowtimeServiceInterface
	seats     SeatServiceInterface
}

func NewShowtimeHandler(showtimes ShowtimeServiceInterface, seats SeatServiceInterface) *ShowtimeHandler {
	return &ShowtimeHandler{showtimes: showtimes, seats: seats}
}

type EnsureShowtimeRequest struct {
	KopisID string `json:"kopisId" validate:"required,max=50" example:"PF132236"`
	StartAt string `json:"startAt" validate:"required" example:"2025-12-19T19:30:00"`
}

type EnsureShowtimeResponse struct {
	ShowtimeID int64 `json:"showtimeId" example:"5"`
}

// Ensure godoc
// @Summary 公演回を確保
// @Description 公演IDと開演日時から公演回を取得し、なければ座席ごと作成します
// @Tags booking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EnsureShowtimeRequest true "公演回"
// @Success 200 {object} EnsureShowtimeResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /booking/showtimes/ensure [post]
func (h *ShowtimeHandler) Ensure(c echo.Context) error {
	var req EnsureShowtimeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	st, err := h.showtimes.EnsureShowtime(c.Request().Context(), application.EnsureShowtimeInput{
		ExternalID: req.KopisID,
		StartAt:    req.StartAt,
		CallerID:   middleware.CallerID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, EnsureShowtimeResponse{ShowtimeID: st.ID})
}

// Availability godoc
// @Summary 空席状況を取得
// @Description 公演回の全座席の状態を返します（認証は任意）
// @Tags booking
// @Produce json
// @Param showtimeId path int true "公演回ID"
// @Success 200 {array} seat.Availability
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /booking/showtimes/{showtimeId}/availability [get]
func (h *ShowtimeHandler) Availability(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("showtimeId"), 10, 64)
	if err != nil || id <= 0 {
		return showtime.ErrInvalidShowtimeID
	}
	snapshot, err := h.seats.GetAvailability(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if snapshot == nil {
		snapshot = []seat.Availability{}
	}
	return c.JSON(http.StatusOK, snapshot)
}
