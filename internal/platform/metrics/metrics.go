package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for forecast requests.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts forecast requests by metric and outcome.
	RequestsTotal *prometheus.CounterVec
	// FitDuration observes the time spent fitting and predicting per request.
	FitDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on reg. A nil reg gets a fresh registry
// with the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_requests_total",
				Help: "Number of forecast requests by metric and outcome",
			},
			[]string{"metric", "outcome"},
		),
		FitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecast_fit_duration_seconds",
				Help:    "Time spent fitting the seasonal model and predicting",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"metric"},
		),
	}
}

func (m *Metrics) ObserveForecast(metric string, d time.Duration) {
	m.FitDuration.WithLabelValues(metric).Observe(d.Seconds())
}

func (m *Metrics) CountRequest(metric, outcome string) {
	m.RequestsTotal.WithLabelValues(metric, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
