package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	SettlesTotal    prometheus.Counter
	DeltaNames      prometheus.Counter
	TrackedSessions prometheus.Gauge
	Sessions        prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SettlesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "privwatch_settles_total",
			Help: "Settled privilege change notifications published.",
		}),
		DeltaNames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "privwatch_delta_names_total",
			Help: "Privilege names reported as added or removed across all settles.",
		}),
		TrackedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "privwatch_tracked_sessions",
			Help: "Sessions currently wrapped by the privilege watcher.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "privwatch_sessions",
			Help: "Authenticated sessions in world state.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.SettlesTotal,
		m.DeltaNames,
		m.TrackedSessions,
		m.Sessions,
	)
	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
