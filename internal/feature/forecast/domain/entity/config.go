package entity

// Metric identifies one of the forecastable monthly series.
type Metric string

const (
	MetricSales  Metric = "sales"
	MetricIncome Metric = "income"
)

// Order is a seasonal ARIMA order (p, d, q) x (P, D, Q, S).
type Order struct {
	P, D, Q    int
	SP, SD, SQ int
	S          int // Seasonal period in observations
}

// SeasonalConfig holds the fixed per-metric model constants. Orders are never learned.
type SeasonalConfig struct {
	Metric      Metric
	ValueColumn string // Column name of the metric in its source table (e.g. "Sales")
	Order       Order
}

// PredictionStartOffset is the zero-based index from which dynamic prediction starts for every metric.
const PredictionStartOffset = 87

// seasonalOrder returns the (1,1,0)x(1,1,0,period) order shared by all metrics.
func seasonalOrder(period int) Order {
	return Order{P: 1, D: 1, Q: 0, SP: 1, SD: 1, SQ: 0, S: period}
}

// SalesConfig is the model configuration of the monthly sales series.
var SalesConfig = SeasonalConfig{
	Metric:      MetricSales,
	ValueColumn: "Sales",
	Order:       seasonalOrder(47),
}

// IncomeConfig is the model configuration of the monthly income series.
var IncomeConfig = SeasonalConfig{
	Metric:      MetricIncome,
	ValueColumn: "Income",
	Order:       seasonalOrder(9),
}

// ConfigFor returns the configuration registered for a metric.
func ConfigFor(m Metric) (SeasonalConfig, bool) {
	switch m {
	case MetricSales:
		return SalesConfig, true
	case MetricIncome:
		return IncomeConfig, true
	default:
		return SeasonalConfig{}, false
	}
}
