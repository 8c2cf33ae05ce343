// Package usecase は売上・収入系列の予測ユースケースを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"forecast_backend/internal/feature/forecast/domain"
	"forecast_backend/internal/feature/forecast/domain/entity"
)

// SeriesRepository は指標ごとの月次系列の読み取りレイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type SeriesRepository interface {
	// Load は指標の月次系列を期間の昇順で返します。
	Load(ctx context.Context, metric entity.Metric) (entity.TimeSeries, error)
}

// MetricsRecorder は予測処理の計測値を記録します。
type MetricsRecorder interface {
	ObserveForecast(metric string, d time.Duration)
	CountRequest(metric, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveForecast(string, time.Duration) {}
func (noopRecorder) CountRequest(string, string)           {}

// forecastUsecase は予測リクエストごとに系列を読み込み、毎回モデルを学習し直します。
// 学習済みモデルはキャッシュしません。
type forecastUsecase struct {
	series   SeriesRepository
	pipeline *Orchestrator
	metrics  MetricsRecorder
	offset   int
}

// NewForecastUsecase はforecastUsecaseの新しいインスタンスを生成します。
// metricsがnilの場合は計測を行いません。
func NewForecastUsecase(series SeriesRepository, pipeline *Orchestrator, metrics MetricsRecorder) *forecastUsecase {
	if pipeline == nil {
		pipeline = NewOrchestrator(nil)
	}
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &forecastUsecase{
		series:   series,
		pipeline: pipeline,
		metrics:  metrics,
		offset:   entity.PredictionStartOffset,
	}
}

// ForecastSales は売上系列（季節周期47）の予測を返します。
func (u *forecastUsecase) ForecastSales(ctx context.Context, months string) (entity.ForecastResult, error) {
	return u.Forecast(ctx, entity.MetricSales, months)
}

// ForecastIncome は収入系列（季節周期9）の予測を返します。
func (u *forecastUsecase) ForecastIncome(ctx context.Context, months string) (entity.ForecastResult, error) {
	return u.Forecast(ctx, entity.MetricIncome, months)
}

// Forecast は指標metricの系列をmonthsか月先まで予測します。
func (u *forecastUsecase) Forecast(ctx context.Context, metric entity.Metric, months string) (res entity.ForecastResult, err error) {
	defer func() {
		u.metrics.CountRequest(string(metric), outcome(err))
	}()

	cfg, ok := entity.ConfigFor(metric)
	if !ok {
		return entity.ForecastResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownMetric, metric)
	}

	horizon, err := ParseHorizon(months)
	if err != nil {
		return entity.ForecastResult{}, err
	}

	series, err := u.series.Load(ctx, metric)
	if err != nil {
		return entity.ForecastResult{}, fmt.Errorf("%w: %s: %v", domain.ErrDataUnavailable, metric, err)
	}
	// DBへの部分的な登録で月が欠けている可能性があるため、学習前に連続性を確認する
	if err := ValidateContiguous(series.Observations); err != nil {
		return entity.ForecastResult{}, fmt.Errorf("%w: %s: %w", domain.ErrDataUnavailable, metric, err)
	}
	if err := ctx.Err(); err != nil {
		return entity.ForecastResult{}, err
	}

	started := time.Now()
	res, err = u.pipeline.Run(series, horizon, cfg, u.offset)
	u.metrics.ObserveForecast(string(metric), time.Since(started))
	return res, err
}

// ParseHorizon は月数の文字列を0以上の整数に変換します。
func ParseHorizon(months string) (int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(months))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidHorizon, months)
	}
	if h < 0 {
		return 0, fmt.Errorf("%w: %d", domain.ErrInvalidHorizon, h)
	}
	return h, nil
}

// outcome はメトリクスのラベルに使う結果種別を返します。
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidHorizon):
		return "invalid_horizon"
	case errors.Is(err, domain.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, domain.ErrModelFit):
		return "model_fit"
	case errors.Is(err, domain.ErrDataUnavailable):
		return "data_unavailable"
	default:
		return "error"
	}
}
