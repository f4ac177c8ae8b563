// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Per-feed record accounting
	RecordsProcessed *prometheus.CounterVec
	RecordsSkipped   *prometheus.CounterVec
	RecordsFailed    *prometheus.CounterVec

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "llamaetl"
	}

	return &Metrics{
		RecordsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_processed_total",
			Help:      "Total number of feed records upserted, by feed",
		}, []string{"feed"}),
		RecordsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_skipped_total",
			Help:      "Total number of feed records skipped (missing identifiers, slug collisions), by feed",
		}, []string{"feed"}),
		RecordsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_failed_total",
			Help:      "Total number of feed records that failed to write, by feed",
		}, []string{"feed"}),
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "runs_total",
			Help:      "Total number of ingestion runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "run_duration_seconds",
			Help:      "Ingestion run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last fully successful run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordProcessed increments the processed counter for a feed.
func RecordProcessed(feed string) {
	DefaultMetrics.RecordsProcessed.WithLabelValues(feed).Inc()
}

// RecordSkipped increments the skipped counter for a feed.
func RecordSkipped(feed string) {
	DefaultMetrics.RecordsSkipped.WithLabelValues(feed).Inc()
}

// RecordFailed increments the failed counter for a feed.
func RecordFailed(feed string) {
	DefaultMetrics.RecordsFailed.WithLabelValues(feed).Inc()
}

// RecordRun records a completed run with its status and duration.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordRunSuccess updates the last-success gauge.
func RecordRunSuccess(unixTime int64) {
	DefaultMetrics.LastSuccessfulRun.Set(float64(unixTime))
}
