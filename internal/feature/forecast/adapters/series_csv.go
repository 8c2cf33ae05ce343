package adapters

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"forecast_backend/internal/feature/forecast/domain/entity"
	"forecast_backend/internal/feature/forecast/usecase"
)

// DateColumn is the period column shared by the monthly CSV files.
const DateColumn = "Month"

// dateLayouts are tried in order when parsing the period column.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	time.RFC3339,
}

type csvSource struct {
	file        string
	valueColumn string
}

type seriesCSV struct {
	dir     string
	sources map[entity.Metric]csvSource
}

var _ usecase.SeriesRepository = (*seriesCSV)(nil)

// NewCSVSeriesRepository reads MonthlySales.csv and MonthlyIncome.csv from dir.
func NewCSVSeriesRepository(dir string) *seriesCSV {
	return &seriesCSV{
		dir: dir,
		sources: map[entity.Metric]csvSource{
			entity.MetricSales:  {file: "MonthlySales.csv", valueColumn: entity.SalesConfig.ValueColumn},
			entity.MetricIncome: {file: "MonthlyIncome.csv", valueColumn: entity.IncomeConfig.ValueColumn},
		},
	}
}

// Load reads the metric's file on every call so edits to the file show up on the next request.
func (r *seriesCSV) Load(ctx context.Context, metric entity.Metric) (entity.TimeSeries, error) {
	src, ok := r.sources[metric]
	if !ok {
		return entity.TimeSeries{}, fmt.Errorf("no csv source for metric %q", metric)
	}
	if err := ctx.Err(); err != nil {
		return entity.TimeSeries{}, err
	}

	path := filepath.Join(r.dir, src.file)
	f, err := os.Open(path)
	if err != nil {
		return entity.TimeSeries{}, err
	}
	defer func() { _ = f.Close() }()

	obs, err := ReadSeries(f, DateColumn, src.valueColumn)
	if err != nil {
		return entity.TimeSeries{}, fmt.Errorf("%s: %w", path, err)
	}
	return entity.TimeSeries{Metric: metric, Observations: obs}, nil
}

// ReadSeries parses a headed CSV into monthly observations ordered by period.
func ReadSeries(r io.Reader, dateColumn, valueColumn string) ([]entity.Observation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv is empty")
		}
		return nil, err
	}
	dateIdx, valueIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case dateColumn:
			dateIdx = i
		case valueColumn:
			valueIdx = i
		}
	}
	if dateIdx < 0 || valueIdx < 0 {
		return nil, fmt.Errorf("csv header must contain %q and %q", dateColumn, valueColumn)
	}

	var obs []entity.Observation
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		month, err := parseMonth(rec[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		raw := strings.TrimSpace(rec[valueIdx])
		if raw == "" {
			return nil, fmt.Errorf("line %d: missing %s value", line, valueColumn)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s value %q", line, valueColumn, raw)
		}
		obs = append(obs, entity.Observation{Month: month, Value: v})
	}

	return usecase.NormalizeObservations(obs)
}

func parseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
