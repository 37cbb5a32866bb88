package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pmg1020/AquaTicketWeb/internal/application"
	"github.com/pmg1020/AquaTicketWeb/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      int    `json:"code,omitempty"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

const busyMessage = "処理が混み合っています。しばらくしてから再試行してください"

// HTTPStatus はエラー種別に対応するHTTPステータスを返す
func HTTPStatus(code application.Code) int {
	switch code {
	case application.CodeInvalidArgument:
		return http.StatusBadRequest
	case application.CodeUnauthenticated:
		return http.StatusUnauthorized
	case application.CodeForbidden:
		return http.StatusForbidden
	case application.CodeNotFound:
		return http.StatusNotFound
	case application.CodeSeatConflict:
		return http.StatusConflict
	case application.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
// ハンドラーが返したドメインエラーは種別ごとのステータスに変換する
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code      = http.StatusInternalServerError
		message   = "内部サーバーエラー"
		retryable bool
	)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	} else {
		kind := application.Classify(err)
		code = HTTPStatus(kind)
		// 座席の取り直しや再認証の後なら同じ操作をやり直せる
		retryable = application.Retryable(kind)
		switch {
		case kind == application.CodeUnavailable:
			message = busyMessage
			c.Response().Header().Set("Retry-After", "1")
		case code < http.StatusInternalServerError:
			message = err.Error()
		}
	}

	// エラーログを出力（5xx エラーの場合）
	if code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	// HEAD にはボディを返さない
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Error: message, Code: code, Retryable: retryable})
	}
	if err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
