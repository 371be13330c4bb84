package refresh

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks refresh unit outcomes on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	units    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the refresh collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		units: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "unirecords",
				Subsystem: "refresh",
				Name:      "units_total",
				Help:      "Refresh units run, by category and outcome status",
			},
			[]string{"category", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "unirecords",
				Subsystem: "refresh",
				Name:      "unit_duration_seconds",
				Help:      "Refresh unit duration in seconds",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"category"},
		),
	}
	m.registry.MustRegister(m.units, m.duration)
	return m
}

// Registry exposes the collectors for scraping or inspection.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observe(category Category, status Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.units.WithLabelValues(string(category), string(status)).Inc()
	m.duration.WithLabelValues(string(category)).Observe(elapsed.Seconds())
}
