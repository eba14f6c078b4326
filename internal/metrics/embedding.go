package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query and document embedding metrics, labelled by provider and model.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "embedding_errors_total",
			Help:      "Embedding failures by kind (api_error, count_mismatch)",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "embedding_cache_total",
			Help:      "Query embedding cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)
)

var embeddingMetrics = newGroup(
	EmbeddingRequestsTotal,
	EmbeddingRequestDuration,
	EmbeddingTokensTotal,
	EmbeddingErrorsTotal,
	EmbeddingCacheTotal,
)

// RegisterEmbeddingMetrics registers the group on the default registry; repeated calls are no-ops.
func RegisterEmbeddingMetrics() {
	embeddingMetrics.register()
}
