package entity

// StationarityReport is the outcome of the augmented Dickey-Fuller diagnostic.
type StationarityReport struct {
	Statistic      float64
	PValue         float64
	LagsUsed       int
	NObservations  int
	CriticalValues map[string]float64 // "1%", "5%", "10%"
	IsStationary   bool
}

// ForecastResult aligns the historical and forecast values to one contiguous monthly calendar.
// A nil element marks an absent value.
type ForecastResult struct {
	Metric     Metric
	Original   []*float64
	Forecast   []*float64
	StartMonth string
	EndMonth   string

	// Diagnostic is informational and does not influence the forecast.
	Diagnostic StationarityReport
}
