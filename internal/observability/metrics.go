package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion session and the evaluator.
type Metrics struct {
	RowsMerged  *prometheus.CounterVec // labels: feed={population,bounds,counts}
	RowsSkipped *prometheus.CounterVec // labels: feed={population,bounds,counts}

	FeedFetchDuration *prometheus.HistogramVec // labels: feed
	FeedFetchErrors   *prometheus.CounterVec   // labels: feed

	IngestRunning   prometheus.Gauge
	EntriesTotal    prometheus.Gauge
	EntriesComplete prometheus.Gauge

	EvaluateDuration prometheus.Histogram
	EvaluateCache    *prometheus.CounterVec // labels: result={hit,miss,shared}
	EvaluateErrors   prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsMerged,
		m.RowsSkipped,
		m.FeedFetchDuration,
		m.FeedFetchErrors,
		m.IngestRunning,
		m.EntriesTotal,
		m.EntriesComplete,
		m.EvaluateDuration,
		m.EvaluateCache,
		m.EvaluateErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsMerged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbreak_map",
			Name:      "rows_merged_total",
			Help:      "Rows merged into the region table, by feed.",
		}, []string{"feed"}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbreak_map",
			Name:      "rows_skipped_total",
			Help:      "Malformed rows skipped during merge, by feed.",
		}, []string{"feed"}),
		FeedFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "outbreak_map",
			Name:      "feed_fetch_duration_seconds",
			Help:      "Duration of one feed download and decode.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"feed"}),
		FeedFetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbreak_map",
			Name:      "feed_fetch_errors_total",
			Help:      "Feed downloads that failed, by feed.",
		}, []string{"feed"}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outbreak_map",
			Name:      "ingest_running",
			Help:      "1 while the ingestion session is active.",
		}),
		EntriesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outbreak_map",
			Name:      "entries_total",
			Help:      "Region entries in the table, complete or not.",
		}),
		EntriesComplete: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outbreak_map",
			Name:      "entries_complete",
			Help:      "Region entries satisfying the completeness rule.",
		}),
		EvaluateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "outbreak_map",
			Name:      "evaluate_duration_seconds",
			Help:      "Duration of one whole-table formula evaluation.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		EvaluateCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbreak_map",
			Name:      "evaluate_cache_total",
			Help:      "Formula evaluation cache lookups by result.",
		}, []string{"result"}),
		EvaluateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outbreak_map",
			Name:      "evaluate_errors_total",
			Help:      "Formula evaluations rejected as invalid.",
		}),
	}
}
