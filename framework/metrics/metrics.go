// Package metrics records Prometheus metrics for dispatched requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mvc"

// Metrics holds the dispatch collectors and the registry they live in.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	misses   prometheus.Counter
	failures *prometheus.CounterVec
}

// New registers the collectors on a fresh registry. Process and Go runtime
// collectors are included when withRuntime is set.
func New(withRuntime bool) *Metrics {
	registry := prometheus.NewRegistry()
	if withRuntime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "requests_total",
				Help:      "Total number of dispatched controller actions",
			},
			[]string{"controller", "action", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "Duration of controller actions in seconds",
				Buckets: []float64{
					.001, .005, .01, .025,
					.05, .1, .25, .5,
					1, 2.5, 5, 10,
				},
			},
			[]string{"controller", "action"},
		),
		misses: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "misses_total",
				Help:      "Total number of requests no route matched",
			},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "failures_total",
				Help:      "Total number of failed requests by status",
			},
			[]string{"status"},
		),
	}
}

// Observe records one dispatched action.
func (m *Metrics) Observe(controller, action string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(controller, action, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(controller, action).Observe(d.Seconds())
}

// Miss records a request no route matched.
func (m *Metrics) Miss() {
	if m == nil {
		return
	}
	m.misses.Inc()
}

// Failure records a request that ended on the error page.
func (m *Metrics) Failure(status int) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(strconv.Itoa(status)).Inc()
}

// Registry returns the registry the collectors are registered in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
