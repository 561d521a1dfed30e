// # internal/observability/metrics.go
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	CompileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loomc_compile_seconds",
		Help:    "Time spent compiling a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"grammar"})

	CompiledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loomc_compiled_total",
		Help: "Total number of file compilations by outcome.",
	}, []string{"outcome"})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loomc_diagnostics_total",
		Help: "Total number of diagnostics emitted, by kind.",
	}, []string{"kind"})

	RoutesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loomc_routes_total",
		Help: "Current number of entries in the route manifest.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loomc_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RebuildsThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loomc_rebuilds_throttled_total",
		Help: "Total number of rebuild batches delayed by the rate limiter.",
	})
)
