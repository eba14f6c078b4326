package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalSourceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "retrieval_source_duration_seconds",
			Help:      "Duration of a single dense or sparse lookup",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"source"},
	)

	RetrievalSourceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrieval_source_requests_total",
			Help:      "Total source lookups by outcome",
		},
		[]string{"source", "status"}, // "ok" / "error" / "circuit_open"
	)

	RetrievalSourceHits = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "retrieval_source_hits",
			Help:      "Number of hits returned by a source",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
		[]string{"source"},
	)

	RetrievalFusedResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "retrieval_fused_results",
			Help:      "Number of results after rank fusion",
			Buckets:   []float64{0, 1, 3, 5, 10, 25, 50},
		},
	)

	RetrievalDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrieval_degraded_total",
			Help:      "Queries served with one source missing",
		},
		[]string{"failed_source"},
	)
)

var retrievalMetrics = newGroup(
	RetrievalSourceDuration,
	RetrievalSourceRequestsTotal,
	RetrievalSourceHits,
	RetrievalFusedResults,
	RetrievalDegradedTotal,
)

// RegisterRetrievalMetrics registers the group on the default registry; repeated calls are no-ops.
func RegisterRetrievalMetrics() {
	retrievalMetrics.register()
}
