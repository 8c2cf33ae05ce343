package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"forecast_backend/internal/feature/forecast/domain/entity"
	"forecast_backend/internal/feature/forecast/usecase"
)

type seriesGorm struct {
	db *gorm.DB
}

var (
	_ usecase.SeriesRepository = (*seriesGorm)(nil)
	_ usecase.SeriesWriter     = (*seriesGorm)(nil)
)

// NewSeriesRepository returns a series repository backed by db.
func NewSeriesRepository(db *gorm.DB) *seriesGorm {
	return &seriesGorm{db: db}
}

// SeriesPointModel is one row of series_points: a metric value for one month.
// (metric, month) is unique.
type SeriesPointModel struct {
	ID     uint      `gorm:"primaryKey"`
	Metric string    `gorm:"size:32;not null;uniqueIndex:series_metric_month,priority:1"`
	Month  time.Time `gorm:"not null;uniqueIndex:series_metric_month,priority:2"`
	Value  float64   `gorm:"not null"`
}

// TableName returns the table name used by gorm.
func (SeriesPointModel) TableName() string {
	return "series_points"
}

// UpsertBatch inserts points, overwriting the value of rows that already exist for the same month.
func (r *seriesGorm) UpsertBatch(ctx context.Context, metric entity.Metric, points []entity.Observation) error {
	if len(points) == 0 {
		return nil
	}
	ms := make([]SeriesPointModel, 0, len(points))
	for _, p := range points {
		ms = append(ms, SeriesPointModel{
			Metric: string(metric),
			Month:  p.Month.UTC(),
			Value:  p.Value,
		})
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "metric"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&ms).Error
}

// Load returns every stored point for metric ordered by month.
func (r *seriesGorm) Load(ctx context.Context, metric entity.Metric) (entity.TimeSeries, error) {
	var rows []SeriesPointModel
	if err := r.db.WithContext(ctx).
		Where("metric = ?", string(metric)).
		Order("month ASC").
		Find(&rows).Error; err != nil {
		return entity.TimeSeries{}, err
	}
	obs := make([]entity.Observation, 0, len(rows))
	for _, m := range rows {
		obs = append(obs, entity.Observation{Month: m.Month.UTC(), Value: m.Value})
	}
	return entity.TimeSeries{Metric: metric, Observations: obs}, nil
}
