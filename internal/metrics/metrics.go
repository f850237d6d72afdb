package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records promo code and earnings operations
type EngineMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	retries    *prometheus.CounterVec
	claimed    prometheus.Counter
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics
)

// Engine returns the lazily-initialised engine metrics registry.
func Engine() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "holidaysri",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total engine operations segmented by operation and outcome kind.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "holidaysri",
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for engine operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			retries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "holidaysri",
				Subsystem: "engine",
				Name:      "retries_total",
				Help:      "Transient failures that were retried, by operation.",
			}, []string{"operation"}),
			claimed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "holidaysri",
				Subsystem: "earnings",
				Name:      "claimed_fiat_total",
				Help:      "Fiat value of earnings moved into claim requests.",
			}),
		}
		prometheus.MustRegister(
			engineRegistry.operations,
			engineRegistry.latency,
			engineRegistry.retries,
			engineRegistry.claimed,
		)
	})
	return engineRegistry
}

// Observe records the outcome of one operation. outcome is "ok" or an error kind.
func (m *EngineMetrics) Observe(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// Retry counts a retried attempt
func (m *EngineMetrics) Retry(operation string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(operation).Inc()
}

// Claimed adds the fiat value of a new claim request
func (m *EngineMetrics) Claimed(fiat float64) {
	if m == nil || fiat <= 0 {
		return
	}
	m.claimed.Add(fiat)
}
