package usecase

import (
	"fmt"
	"log/slog"
	"time"

	"forecast_backend/internal/feature/forecast/calendar"
	"forecast_backend/internal/feature/forecast/domain"
	"forecast_backend/internal/feature/forecast/domain/entity"
	"forecast_backend/internal/feature/forecast/sarima"
	"forecast_backend/internal/feature/forecast/stationarity"
)

const (
	// StartLabel は結果の開始ラベルです（データに依存しない固定値）。
	StartLabel = "1/1/2016"
	// ExtensionWindow は最終観測月を含めて何か月先までカレンダーを延長するかの上限です。
	ExtensionWindow = 36
)

// AnchorDate は終了ラベル計算の基準日です。
// データの実際の最終観測月ではなく固定日を使います。
var AnchorDate = time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC)

// StationarityTester は差分系列の単位根検定を抽象化します。
type StationarityTester interface {
	Test(values []float64) (entity.StationarityReport, error)
}

// Orchestrator は検定・学習・カレンダー延長・予測を順番に実行し、結果を組み立てます。
// 状態を持たないため、複数のリクエストから同時に呼び出しても安全です。
type Orchestrator struct {
	tester StationarityTester
}

// NewOrchestrator はOrchestratorの新しいインスタンスを生成します。
// testerがnilの場合はADF検定を使用します。
func NewOrchestrator(tester StationarityTester) *Orchestrator {
	if tester == nil {
		tester = stationarity.NewTester()
	}
	return &Orchestrator{tester: tester}
}

// Run はseriesに対してhorizonか月分の予測を行います。
// 予測値は[offset, offset+horizon]の位置にのみ入り、それ以外はnilです。
func (o *Orchestrator) Run(series entity.TimeSeries, horizon int, cfg entity.SeasonalConfig, offset int) (entity.ForecastResult, error) {
	if horizon < 0 {
		return entity.ForecastResult{}, fmt.Errorf("%w: got %d", domain.ErrInvalidHorizon, horizon)
	}
	values := series.Values()
	n := len(values)
	if offset < 0 || offset > n {
		return entity.ForecastResult{}, fmt.Errorf("%w: prediction start %d is outside a series of %d months",
			domain.ErrInsufficientData, offset, n)
	}

	// 1-2) 季節差分に対する単位根検定（診断のみ、結果で分岐しない）
	report, err := o.tester.Test(stationarity.SeasonalDiff(values, cfg.Order.S))
	if err != nil {
		return entity.ForecastResult{}, err
	}
	slog.Info("stationarity diagnostic",
		"metric", cfg.Metric,
		"adf_statistic", report.Statistic,
		"p_value", report.PValue,
		"lags_used", report.LagsUsed,
		"n_observations", report.NObservations,
		"stationary", report.IsStationary,
	)

	// 3) 差分前の系列で学習（和分はモデル側の次数で扱う）
	model, err := sarima.Fit(values, cfg.Order)
	if err != nil {
		return entity.ForecastResult{}, err
	}

	// 4) カレンダー延長
	last, _ := series.Last()
	future := calendar.Extend(last, extensionLength(n, horizon, offset))
	total := n + len(future)

	// 5) 動的予測（延長カレンダーに収まる位置までに制限する）
	end := offset + min(horizon, total-1-offset)
	preds, err := model.Predict(offset, end)
	if err != nil {
		return entity.ForecastResult{}, fmt.Errorf("%w: %v", domain.ErrModelFit, err)
	}

	original := make([]*float64, total)
	for i := range values {
		v := values[i]
		original[i] = &v
	}
	forecast := make([]*float64, total)
	for i, p := range preds {
		v := p
		forecast[offset+i] = &v
	}

	// 6-7) ラベルと結果の組み立て
	return entity.ForecastResult{
		Metric:     cfg.Metric,
		Original:   original,
		Forecast:   forecast,
		StartMonth: StartLabel,
		EndMonth:   calendar.AddMonths(AnchorDate, horizon).Format(calendar.LabelLayout),
		Diagnostic: report,
	}, nil
}

// extensionLength は履歴の後ろに追加する将来月の数を返します。
// 少なくともhorizon-1か月、予測範囲が収まるだけ追加し、ExtensionWindow-1か月で打ち切ります。
func extensionLength(n, horizon, offset int) int {
	if horizon >= n+ExtensionWindow {
		return ExtensionWindow - 1
	}
	need := max(0, horizon-1, offset+horizon-(n-1))
	return min(need, ExtensionWindow-1)
}
