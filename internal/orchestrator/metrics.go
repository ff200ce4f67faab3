package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"emojigen/internal/core"
)

// Metrics holds the orchestrator's Prometheus metrics. Counters are
// process-lifetime; they reset only on restart.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can serve it.
	Registry *prometheus.Registry

	requestsTotal    prometheus.Counter
	resultsTotal     *prometheus.CounterVec
	emergencyTotal   prometheus.Counter
	costSavings      prometheus.Counter
	responseDuration prometheus.Histogram
}

// NewMetrics creates a dedicated Prometheus registry and registers the
// orchestrator metrics in it. A private registry avoids duplicate-collector
// panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "emojigen_requests_total",
			Help: "Total generation requests resolved.",
		}),
		resultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emojigen_results_total",
				Help: "Resolved results by source.",
			},
			[]string{"source"},
		),
		emergencyTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "emojigen_emergency_fallbacks_total",
			Help: "Requests resolved by the hard-coded emergency pattern.",
		}),
		costSavings: factory.NewCounter(prometheus.CounterOpts{
			Name: "emojigen_cost_savings_estimate",
			Help: "Estimated cost avoided by serving from cache or local.",
		}),
		responseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "emojigen_response_duration_seconds",
			Help:    "End-to-end generate call duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordRequest counts one resolved generate call and its duration.
func (m *Metrics) RecordRequest(d time.Duration) {
	m.requestsTotal.Inc()
	m.responseDuration.Observe(d.Seconds())
}

// RecordResult counts one resolved result by source. savedCost is the cost a
// remote call would have incurred, credited when a non-remote source served
// the request.
func (m *Metrics) RecordResult(source core.Source, savedCost float64) {
	m.resultsTotal.WithLabelValues(string(source)).Inc()
	if savedCost > 0 {
		m.costSavings.Add(savedCost)
	}
}

// RecordEmergency counts one emergency-pattern resolution.
func (m *Metrics) RecordEmergency() {
	m.emergencyTotal.Inc()
}

// MetricsSnapshot is the aggregate view exposed through SystemHealth.
type MetricsSnapshot struct {
	TotalRequests   int64         `json:"total_requests"`
	CacheHits       int64         `json:"cache_hits"`
	APISuccesses    int64         `json:"api_successes"`
	LocalFallbacks  int64         `json:"local_fallbacks"`
	EmergencyCount  int64         `json:"emergency_count"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	CostSavings     float64       `json:"cost_savings"`
}

// Snapshot reads the current counter values back out of the registry.
func (m *Metrics) Snapshot() MetricsSnapshot {
	sum, count := histogramValues(m.responseDuration)
	avg := time.Duration(0)
	if count > 0 {
		avg = time.Duration(sum / float64(count) * float64(time.Second))
	}

	return MetricsSnapshot{
		TotalRequests:   int64(counterValue(m.requestsTotal)),
		CacheHits:       int64(counterValue(m.resultsTotal.WithLabelValues(string(core.SourceCache)))),
		APISuccesses:    int64(counterValue(m.resultsTotal.WithLabelValues(string(core.SourceAPI)))),
		LocalFallbacks:  int64(counterValue(m.resultsTotal.WithLabelValues(string(core.SourceLocal)))),
		EmergencyCount:  int64(counterValue(m.emergencyTotal)),
		AvgResponseTime: avg,
		CostSavings:     counterValue(m.costSavings),
	}
}

// counterValue extracts the current value from a counter.
func counterValue(c prometheus.Counter) float64 {
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		return 0
	}
	if metric.Counter != nil && metric.Counter.Value != nil {
		return *metric.Counter.Value
	}
	return 0
}

// histogramValues extracts the sample sum and count from a histogram.
func histogramValues(h prometheus.Histogram) (sum float64, count uint64) {
	metric := &dto.Metric{}
	if err := h.Write(metric); err != nil {
		return 0, 0
	}
	if metric.Histogram == nil {
		return 0, 0
	}
	if metric.Histogram.SampleSum != nil {
		sum = *metric.Histogram.SampleSum
	}
	if metric.Histogram.SampleCount != nil {
		count = *metric.Histogram.SampleCount
	}
	return sum, count
}
