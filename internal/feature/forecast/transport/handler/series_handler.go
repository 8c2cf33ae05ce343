package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"forecast_backend/internal/feature/forecast/domain"
	"forecast_backend/internal/feature/forecast/domain/entity"
	"forecast_backend/internal/feature/forecast/transport/http/dto"
)

// SeriesUsecase は月次系列の登録ユースケースを定義します。
type SeriesUsecase interface {
	Upsert(ctx context.Context, metric entity.Metric, points []entity.Observation) error
}

// SeriesHandler は系列データの登録リクエストを処理します。
type SeriesHandler struct {
	uc SeriesUsecase
}

// NewSeriesHandler はSeriesHandlerの新しいインスタンスを生成します。
func NewSeriesHandler(uc SeriesUsecase) *SeriesHandler {
	return &SeriesHandler{uc: uc}
}

// Upsert は指標の月次観測値を登録・上書きします。
// - リクエストJSONのバリデーションエラーや日付形式エラー時は400を返却
// - 未知の指標は404を返却
// - 成功時は保存件数付きで200を返却
func (h *SeriesHandler) Upsert(c *gin.Context) {
	metric := entity.Metric(c.Param("metric"))

	var req dto.SeriesUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("series upsert validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
		return
	}

	points := make([]entity.Observation, 0, len(req.Points))
	for i, p := range req.Points {
		month, err := parseRequestMonth(p.Month)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: fmt.Sprintf("points[%d]: %v", i, err)})
			return
		}
		points = append(points, entity.Observation{Month: month, Value: *p.Value})
	}

	if err := h.uc.Upsert(c.Request.Context(), metric, points); err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownMetric):
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrInvalidSeries):
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		default:
			slog.Error("series upsert failed", "metric", metric, "error", err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to store series"})
		}
		return
	}

	slog.Info("series upserted", "metric", metric, "points", len(points), "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.SeriesUpsertResponse{Metric: string(metric), Points: len(points)})
}

func parseRequestMonth(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("month %q must be YYYY-MM-DD or YYYY-MM", s)
}
