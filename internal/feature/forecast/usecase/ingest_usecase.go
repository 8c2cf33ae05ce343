package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"forecast_backend/internal/feature/forecast/calendar"
	"forecast_backend/internal/feature/forecast/domain"
	"forecast_backend/internal/feature/forecast/domain/entity"
)

// SeriesWriter は月次系列の書き込みレイヤーを抽象化します。
type SeriesWriter interface {
	// UpsertBatch は同じ指標・同じ月の値を上書きしながら一括で保存します。
	UpsertBatch(ctx context.Context, metric entity.Metric, points []entity.Observation) error
}

// IngestUsecase は取り込み元（CSVなど）の系列を検証し、保存先に永続化します。
type IngestUsecase struct {
	source SeriesRepository
	store  SeriesWriter
}

// NewIngestUsecase は新しい IngestUsecase を作成します。sourceはUpsertのみ使う場合nilでも構いません。
func NewIngestUsecase(source SeriesRepository, store SeriesWriter) *IngestUsecase {
	return &IngestUsecase{source: source, store: store}
}

// Upsert は月初に正規化した観測値を検証して保存します。
func (iu *IngestUsecase) Upsert(ctx context.Context, metric entity.Metric, points []entity.Observation) error {
	if _, ok := entity.ConfigFor(metric); !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownMetric, metric)
	}
	normalized, err := NormalizeObservations(points)
	if err != nil {
		return err
	}
	return iu.store.UpsertBatch(ctx, metric, normalized)
}

// IngestAll は指定された全指標の系列を取り込み元から読み込み、保存先に書き込みます。
// 1つの指標で失敗しても処理を止めずにログに出力し、最後にまとめてエラーを返します。
func (iu *IngestUsecase) IngestAll(ctx context.Context, metrics []entity.Metric) error {
	if iu.source == nil {
		return errors.New("ingest source is not configured")
	}
	var errs []error
	for _, m := range metrics {
		series, err := iu.source.Load(ctx, m)
		if err != nil {
			slog.Error("failed to load series", "metric", m, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", m, err))
			continue
		}
		if err := iu.Upsert(ctx, m, series.Observations); err != nil {
			slog.Error("failed to store series", "metric", m, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", m, err))
			continue
		}
		slog.Info("series ingested", "metric", m, "points", series.Len())
	}
	return errors.Join(errs...)
}

// NormalizeObservations は各観測を月初に丸め、期間の昇順に並べます。
// 同じ月が2回現れる場合や、途中の月が欠けている場合はエラーを返します。
func NormalizeObservations(points []entity.Observation) ([]entity.Observation, error) {
	out := make([]entity.Observation, len(points))
	for i, p := range points {
		out[i] = entity.Observation{Month: calendar.MonthStart(p.Month), Value: p.Value}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	if err := ValidateContiguous(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateContiguous は昇順の観測が1か月ずつ途切れずに並んでいることを検証します。
func ValidateContiguous(points []entity.Observation) error {
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1].Month, points[i].Month
		if cur.Equal(prev) {
			return fmt.Errorf("%w: duplicate observation for %s", domain.ErrInvalidSeries, cur.Format("2006-01"))
		}
		if want := calendar.AddMonths(prev, 1); !cur.Equal(want) {
			return fmt.Errorf("%w: expected %s after %s, got %s", domain.ErrInvalidSeries,
				want.Format("2006-01"), prev.Format("2006-01"), cur.Format("2006-01"))
		}
	}
	return nil
}
