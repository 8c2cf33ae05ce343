// Package domain defines domain-level errors for the forecast feature.
package domain

import "errors"

// Domain errors for forecasting operations.
// Transport layers map them to status codes with errors.Is; no layer retries on any of them.
var (
	// ErrInvalidHorizon indicates that the requested horizon is not a non-negative integer.
	// This is a client input fault.
	ErrInvalidHorizon = errors.New("horizon must be a non-negative integer number of months")

	// ErrInsufficientData indicates that the series is too short for the stationarity test
	// or for the configured seasonal period.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrModelFit indicates that the likelihood optimizer failed to converge or produced a
	// numerically invalid likelihood.
	ErrModelFit = errors.New("model fit failed")

	// ErrDataUnavailable indicates that the backing series for a metric could not be loaded.
	ErrDataUnavailable = errors.New("series data unavailable")

	// ErrUnknownMetric indicates that no seasonal configuration exists for the requested metric.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrInvalidSeries indicates that submitted observations are malformed, such as two values
	// for the same month.
	ErrInvalidSeries = errors.New("invalid series")
)
