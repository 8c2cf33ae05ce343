// Package stationarity implements the differencing and unit-root diagnostics run before fitting.
package stationarity

// SeasonalDiff returns y[i] - y[i-lag] for every i >= lag. The lag undefined leading
// positions are dropped, so the result has len(values)-lag elements (or none).
func SeasonalDiff(values []float64, lag int) []float64 {
	if lag <= 0 || len(values) <= lag {
		return []float64{}
	}
	out := make([]float64, len(values)-lag)
	for i := lag; i < len(values); i++ {
		out[i-lag] = values[i] - values[i-lag]
	}
	return out
}

// Diff returns the first difference of values.
func Diff(values []float64) []float64 {
	return SeasonalDiff(values, 1)
}
