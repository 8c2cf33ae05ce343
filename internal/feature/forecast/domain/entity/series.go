// Package entity defines the domain models for the forecast feature.
package entity

import "time"

// Observation is a single monthly data point of a metric.
type Observation struct {
	Month time.Time // First day of the month this value belongs to
	Value float64
}

// TimeSeries is an ordered, strictly increasing sequence of monthly observations.
// It is owned by a single request and never shared.
type TimeSeries struct {
	Metric       Metric
	Observations []Observation
}

// Len returns the number of observations.
func (s TimeSeries) Len() int {
	return len(s.Observations)
}

// Values returns a copy of the observation values in period order.
func (s TimeSeries) Values() []float64 {
	out := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.Value
	}
	return out
}

// Months returns the observation periods in order.
func (s TimeSeries) Months() []time.Time {
	out := make([]time.Time, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.Month
	}
	return out
}

// Last returns the last observed period and false when the series is empty.
func (s TimeSeries) Last() (time.Time, bool) {
	if len(s.Observations) == 0 {
		return time.Time{}, false
	}
	return s.Observations[len(s.Observations)-1].Month, true
}
