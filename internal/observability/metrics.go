// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Upstream metrics
	UpstreamLatency *prometheus.HistogramVec
	UpstreamErrors  *prometheus.CounterVec
	BatchFallbacks  prometheus.Counter
	ChainEvents     *prometheus.CounterVec

	// Cache metrics
	CacheLookups       *prometheus.CounterVec
	CacheInvalidations *prometheus.CounterVec

	// Aggregation metrics
	AggregationRuns     *prometheus.CounterVec
	AggregationDuration prometheus.Histogram
	QualifiedCreators   prometheus.Gauge
	MatchedCreators     prometheus.Gauge

	// Feed metrics
	FeedItems    *prometheus.CounterVec
	FeedDuration prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered on reg.
// A nil reg registers on the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "farcaster_tv"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		UpstreamLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_latency_seconds",
			Help:      "Upstream API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "method"}),
		UpstreamErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Total number of failed upstream calls",
		}, []string{"provider", "method"}),
		BatchFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "balance_batch_fallbacks_total",
			Help:      "Total number of multicall batches that fell back to per-address calls",
		}),
		ChainEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "log_events_total",
			Help:      "Total number of chain log events received by contract",
		}, []string{"contract"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of cache lookups by tier and outcome",
		}, []string{"tier", "outcome"}),
		CacheInvalidations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Total number of tag invalidations by trigger",
		}, []string{"trigger"}),

		AggregationRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "runs_total",
			Help:      "Total number of creator pipeline runs",
		}, []string{"social"}),
		AggregationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "duration_seconds",
			Help:      "Creator pipeline duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		QualifiedCreators: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "qualified_creators",
			Help:      "Qualified creators in the last run",
		}),
		MatchedCreators: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "matched_creators",
			Help:      "Creators matched to a social profile in the last run",
		}),

		FeedItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "items_total",
			Help:      "Total number of feed items admitted by source",
		}, []string{"source"}),
		FeedDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "merge_duration_seconds",
			Help:      "Feed merge duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last creator pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordUpstreamCall records latency and failure of one upstream call.
func RecordUpstreamCall(provider, method string, seconds float64, err error) {
	DefaultMetrics.UpstreamLatency.WithLabelValues(provider, method).Observe(seconds)
	if err != nil {
		DefaultMetrics.UpstreamErrors.WithLabelValues(provider, method).Inc()
	}
}

// RecordBatchFallback increments the multicall fallback counter.
func RecordBatchFallback() {
	DefaultMetrics.BatchFallbacks.Inc()
}

// RecordChainEvent counts a log event for contract.
func RecordChainEvent(contract string) {
	DefaultMetrics.ChainEvents.WithLabelValues(contract).Inc()
}

// RecordCacheLookup records a cache lookup. outcome is hit, stale or miss.
func RecordCacheLookup(tier, outcome string) {
	DefaultMetrics.CacheLookups.WithLabelValues(tier, outcome).Inc()
}

// RecordInvalidation records a tag invalidation.
func RecordInvalidation(trigger string) {
	DefaultMetrics.CacheInvalidations.WithLabelValues(trigger).Inc()
}

// RecordAggregation records a creator pipeline run.
func RecordAggregation(socialEnabled bool, durationSeconds float64, qualified, matched int, finishedAtUnix int64) {
	label := "disabled"
	if socialEnabled {
		label = "enabled"
	}
	DefaultMetrics.AggregationRuns.WithLabelValues(label).Inc()
	DefaultMetrics.AggregationDuration.Observe(durationSeconds)
	DefaultMetrics.QualifiedCreators.Set(float64(qualified))
	DefaultMetrics.MatchedCreators.Set(float64(matched))
	DefaultMetrics.LastSuccessfulRun.Set(float64(finishedAtUnix))
}

// RecordFeedMerge records a merged feed by admitted source.
func RecordFeedMerge(durationSeconds float64, perSource map[string]int) {
	DefaultMetrics.FeedDuration.Observe(durationSeconds)
	for source, n := range perSource {
		DefaultMetrics.FeedItems.WithLabelValues(source).Add(float64(n))
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
