package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts backend calls by operation and outcome
	// (success, request_failed, transport_error, decode_error)
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadwatch_api_requests_total",
			Help: "Total number of requests sent to the lead backend",
		},
		[]string{"op", "outcome"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadwatch_api_request_duration_seconds",
			Help:    "Latency of requests sent to the lead backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadwatch_cache_hits_total",
			Help: "Query cache hits by resource",
		},
		[]string{"resource"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadwatch_cache_misses_total",
			Help: "Query cache misses by resource",
		},
		[]string{"resource"},
	)

	// CacheStaleWrites counts responses dropped because a newer version or an
	// invalidation happened while they were in flight
	CacheStaleWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadwatch_cache_stale_writes_total",
			Help: "Cache writes dropped as stale",
		},
		[]string{"resource"},
	)

	AnalysisDeduplicated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadwatch_analysis_dedup_total",
			Help: "Analysis requests that shared a single in-flight call",
		},
		[]string{"kind"},
	)

	// DigestRuns counts digest runs by outcome (success, fetch_error, send_error)
	DigestRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadwatch_digest_runs_total",
			Help: "Digest runs by outcome",
		},
		[]string{"outcome"},
	)

	HotLeadAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadwatch_hot_lead_alerts_total",
			Help: "Hot lead alerts by outcome",
		},
		[]string{"outcome"},
	)
)

// Resource maps a cache key such as "clients:new:50:0" to its resource label
func Resource(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
