package usecase

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecast_backend/internal/feature/forecast/calendar"
	"forecast_backend/internal/feature/forecast/domain"
	"forecast_backend/internal/feature/forecast/domain/entity"
)

var testConfig = entity.SeasonalConfig{
	Metric:      "test",
	ValueColumn: "Value",
	Order:       entity.Order{P: 1, D: 1, SP: 1, SD: 1, S: 12},
}

// monthlySeries は2016年1月から始まるn か月分の季節性のある系列を生成します。
func monthlySeries(n int, seed uint64) entity.TimeSeries {
	r := rand.New(rand.NewPCG(seed, seed+7))
	start := time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]entity.Observation, n)
	for i := range obs {
		obs[i] = entity.Observation{
			Month: calendar.AddMonths(start, i),
			Value: 200 + 1.5*float64(i) + 25*math.Sin(2*math.Pi*float64(i)/12) + 4*r.NormFloat64(),
		}
	}
	return entity.TimeSeries{Metric: "test", Observations: obs}
}

func definedPositions(vals []*float64) []int {
	var out []int
	for i, v := range vals {
		if v != nil {
			out = append(out, i)
		}
	}
	return out
}

func rangeInts(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

// mockTester はStationarityTesterのモック実装です。
type mockTester struct {
	TestFunc  func(values []float64) (entity.StationarityReport, error)
	TestCalls int
}

func (m *mockTester) Test(values []float64) (entity.StationarityReport, error) {
	m.TestCalls++
	return m.TestFunc(values)
}

func TestOrchestrator_Run_EndToEnd(t *testing.T) {
	t.Parallel()

	series := monthlySeries(100, 1)

	res, err := NewOrchestrator(nil).Run(series, 12, testConfig, 87)
	require.NoError(t, err)

	assert.Len(t, res.Original, 100+11)
	assert.Len(t, res.Forecast, 100+11)
	assert.Equal(t, rangeInts(87, 99), definedPositions(res.Forecast))
	assert.Equal(t, rangeInts(0, 99), definedPositions(res.Original))
	assert.Equal(t, "1/1/2016", res.StartMonth)
	assert.Equal(t, "01/04/2024", res.EndMonth)
	assert.Equal(t, entity.Metric("test"), res.Metric)

	for i, o := range series.Observations {
		assert.Equal(t, o.Value, *res.Original[i])
	}
}

func TestOrchestrator_Run_ForecastPositions(t *testing.T) {
	t.Parallel()

	series := monthlySeries(100, 2)
	o := NewOrchestrator(nil)

	for _, h := range []int{0, 1, 5, 12, 20, 30} {
		res, err := o.Run(series, h, testConfig, 87)
		require.NoError(t, err, "horizon %d", h)

		assert.Equal(t, rangeInts(87, 87+h), definedPositions(res.Forecast), "horizon %d", h)
		assert.Equal(t, len(res.Original), len(res.Forecast))
		assert.Equal(t, calendar.AddMonths(AnchorDate, h).Format(calendar.LabelLayout), res.EndMonth)
	}
}

func TestOrchestrator_Run_ZeroHorizon(t *testing.T) {
	t.Parallel()

	res, err := NewOrchestrator(nil).Run(monthlySeries(100, 3), 0, testConfig, 87)
	require.NoError(t, err)

	assert.Len(t, res.Forecast, 100)
	assert.Equal(t, []int{87}, definedPositions(res.Forecast))
	assert.Equal(t, "01/04/2023", res.EndMonth)
}

func TestOrchestrator_Run_ExtendsShortHistory(t *testing.T) {
	t.Parallel()

	// 最終観測がoffsetの位置にある場合でも予測範囲全体が延長カレンダーに収まる
	series := monthlySeries(88, 4)

	res, err := NewOrchestrator(nil).Run(series, 12, testConfig, 87)
	require.NoError(t, err)

	assert.Len(t, res.Forecast, 88+12)
	assert.Equal(t, rangeInts(87, 99), definedPositions(res.Forecast))
	assert.Equal(t, rangeInts(0, 87), definedPositions(res.Original))
}

func TestOrchestrator_Run_CapsExtension(t *testing.T) {
	t.Parallel()

	series := monthlySeries(88, 5)

	res, err := NewOrchestrator(nil).Run(series, 40, testConfig, 87)
	require.NoError(t, err)

	assert.Len(t, res.Forecast, 88+ExtensionWindow-1)
	assert.Equal(t, rangeInts(87, 88+ExtensionWindow-2), definedPositions(res.Forecast))
}

func TestOrchestrator_Run_HugeHorizonStaysOnCalendar(t *testing.T) {
	t.Parallel()

	series := monthlySeries(100, 9)

	for _, h := range []int{1 << 40, math.MaxInt - 10, math.MaxInt} {
		res, err := NewOrchestrator(nil).Run(series, h, testConfig, 87)
		require.NoError(t, err, "horizon %d", h)

		total := 100 + ExtensionWindow - 1
		assert.Len(t, res.Original, total)
		assert.Len(t, res.Forecast, total)
		assert.Equal(t, rangeInts(87, total-1), definedPositions(res.Forecast))
		assert.NotEmpty(t, res.EndMonth)
	}
}

func TestOrchestrator_Run_IsDeterministic(t *testing.T) {
	t.Parallel()

	series := monthlySeries(100, 6)
	o := NewOrchestrator(nil)

	a, err := o.Run(series, 12, testConfig, 87)
	require.NoError(t, err)
	b, err := o.Run(series, 12, testConfig, 87)
	require.NoError(t, err)

	for _, i := range definedPositions(a.Forecast) {
		require.NotNil(t, b.Forecast[i])
		assert.InDelta(t, *a.Forecast[i], *b.Forecast[i], 1e-9)
	}
}

func TestOrchestrator_Run_DiagnosticDoesNotGate(t *testing.T) {
	t.Parallel()

	series := monthlySeries(100, 7)
	var seen []float64
	tester := &mockTester{
		TestFunc: func(values []float64) (entity.StationarityReport, error) {
			seen = values
			return entity.StationarityReport{PValue: 0.9, IsStationary: false}, nil
		},
	}

	res, err := NewOrchestrator(tester).Run(series, 3, testConfig, 87)
	require.NoError(t, err)

	assert.Equal(t, 1, tester.TestCalls)
	assert.Len(t, seen, 100-12, "tester receives the lag-12 differenced series")
	assert.False(t, res.Diagnostic.IsStationary)
	assert.Equal(t, rangeInts(87, 90), definedPositions(res.Forecast))
}

func TestOrchestrator_Run_Errors(t *testing.T) {
	t.Parallel()

	testerErr := errors.New("boom")

	tests := []struct {
		name    string
		series  entity.TimeSeries
		horizon int
		tester  StationarityTester
		offset  int
		wantErr error
	}{
		{
			name:    "negative horizon",
			series:  monthlySeries(100, 1),
			horizon: -1,
			offset:  87,
			wantErr: domain.ErrInvalidHorizon,
		},
		{
			name:    "empty series",
			series:  entity.TimeSeries{},
			horizon: 12,
			offset:  0,
			wantErr: domain.ErrInsufficientData,
		},
		{
			name:    "series shorter than offset",
			series:  monthlySeries(60, 1),
			horizon: 12,
			offset:  87,
			wantErr: domain.ErrInsufficientData,
		},
		{
			name:    "tester failure propagates unchanged",
			series:  monthlySeries(100, 1),
			horizon: 12,
			offset:  87,
			tester: &mockTester{TestFunc: func([]float64) (entity.StationarityReport, error) {
				return entity.StationarityReport{}, testerErr
			}},
			wantErr: testerErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewOrchestrator(tt.tester).Run(tt.series, tt.horizon, testConfig, tt.offset)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOrchestrator_Run_FitFailurePropagates(t *testing.T) {
	t.Parallel()

	cfg := testConfig
	cfg.Order.S = 24
	series := monthlySeries(26, 1)
	tester := &mockTester{TestFunc: func([]float64) (entity.StationarityReport, error) {
		return entity.StationarityReport{}, nil
	}}

	_, err := NewOrchestrator(tester).Run(series, 1, cfg, 20)
	assert.ErrorIs(t, err, domain.ErrModelFit)
}

func TestExtensionLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		n       int
		horizon int
		offset  int
		want    int
	}{
		{"room in history", 100, 12, 87, 11},
		{"zero horizon", 100, 0, 87, 0},
		{"range past history", 88, 12, 87, 12},
		{"capped", 88, 60, 87, ExtensionWindow - 1},
		{"max int horizon", 100, math.MaxInt, 87, ExtensionWindow - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, extensionLength(tt.n, tt.horizon, tt.offset))
		})
	}
}
