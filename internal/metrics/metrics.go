// Package metrics exposes Prometheus metrics for address searches.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names
const (
	MetricSearchRequestsTotal   = "address_search_requests_total"
	MetricSearchCandidates      = "address_search_candidates"
	MetricSearchDurationSeconds = "address_search_duration_seconds"
)

// Search outcomes
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Metrics holds the search collectors. All methods are safe for concurrent use
type Metrics struct {
	requests   *prometheus.CounterVec
	candidates *prometheus.HistogramVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates unregistered collectors; call Register to expose them
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSearchRequestsTotal,
				Help: "Total number of address searches by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		candidates: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricSearchCandidates,
				Help:    "Number of candidate addresses evaluated per search",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"mode"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricSearchDurationSeconds,
				Help:    "Time spent fetching and ranking addresses per search",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
	}
}

// Register registers all collectors with reg
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns every collector owned by m
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.candidates, m.duration}
}

// ObserveSearch records a completed search
func (m *Metrics) ObserveSearch(mode, outcome string, candidates int, elapsed time.Duration) {
	m.requests.WithLabelValues(mode, outcome).Inc()
	m.candidates.WithLabelValues(mode).Observe(float64(candidates))
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}
