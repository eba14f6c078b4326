package metrics

import "github.com/prometheus/client_golang/prometheus"

// IngestMetrics tracks dataset loading progress.
// Built per run against an explicit registerer so the CLI can expose its own registry.
type IngestMetrics struct {
	RowsRead      prometheus.Counter
	RowsRejected  *prometheus.CounterVec
	MoviesStored  prometheus.Counter
	BatchesTotal  *prometheus.CounterVec
	BatchDuration *prometheus.HistogramVec
}

// NewIngestMetrics creates ingest metrics and registers them on reg.
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	m := &IngestMetrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "ingest",
			Name:      "rows_read_total",
			Help:      "Total dataset rows read",
		}),
		RowsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "ingest",
			Name:      "rows_rejected_total",
			Help:      "Dataset rows dropped during cleaning",
		}, []string{"reason"}),
		MoviesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "ingest",
			Name:      "movies_stored_total",
			Help:      "Movies embedded and written to the index",
		}),
		BatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "ingest",
			Name:      "batches_total",
			Help:      "Batches processed by outcome",
		}, []string{"status"}),
		BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "ingest",
			Name:      "batch_duration_seconds",
			Help:      "Embed + store duration per batch",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}), // "embed" / "store"
	}

	reg.MustRegister(
		m.RowsRead,
		m.RowsRejected,
		m.MoviesStored,
		m.BatchesTotal,
		m.BatchDuration,
	)
	return m
}
