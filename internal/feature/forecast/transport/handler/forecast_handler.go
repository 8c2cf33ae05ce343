// Package handler はforecastフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"forecast_backend/internal/feature/forecast/domain"
	"forecast_backend/internal/feature/forecast/domain/entity"
	"forecast_backend/internal/feature/forecast/transport/http/dto"
)

// ForecastUsecase は予測のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type ForecastUsecase interface {
	ForecastSales(ctx context.Context, months string) (entity.ForecastResult, error)
	ForecastIncome(ctx context.Context, months string) (entity.ForecastResult, error)
}

// ForecastHandler は売上・収入予測のHTTPリクエストを処理します。
type ForecastHandler struct {
	uc ForecastUsecase
}

// NewForecastHandler は指定されたusecaseでForecastHandlerの新しいインスタンスを生成します。
func NewForecastHandler(uc ForecastUsecase) *ForecastHandler {
	return &ForecastHandler{uc: uc}
}

// GetSales は売上系列の予測をJSONで返します。
//
// エンドポイント例:
// GET /sales/12
func (h *ForecastHandler) GetSales(c *gin.Context) {
	res, err := h.uc.ForecastSales(c.Request.Context(), c.Param("months"))
	h.respond(c, res, err)
}

// GetIncome は収入系列の予測をJSONで返します。
//
// エンドポイント例:
// GET /income/12
func (h *ForecastHandler) GetIncome(c *gin.Context) {
	res, err := h.uc.ForecastIncome(c.Request.Context(), c.Param("months"))
	h.respond(c, res, err)
}

func (h *ForecastHandler) respond(c *gin.Context, res entity.ForecastResult, err error) {
	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			slog.Error("forecast failed", "path", c.FullPath(), "months", c.Param("months"), "error", err)
		} else {
			slog.Warn("forecast rejected", "path", c.FullPath(), "months", c.Param("months"), "error", err)
		}
		c.JSON(status, dto.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.ForecastResponse{
		Original:   res.Original,
		Forecast:   res.Forecast,
		StartMonth: res.StartMonth,
		EndMonth:   res.EndMonth,
	})
}

// StatusFor はドメインエラーをHTTPステータスに変換します。
// データ不足はモデル学習エラーと同時に報告されることがあるため先に判定します。
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidHorizon):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownMetric):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
