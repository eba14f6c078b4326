package retrieval

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/whatmovie/internal/db"
	"github.com/kailas-cloud/whatmovie/internal/domain/search/result"
	"github.com/kailas-cloud/whatmovie/internal/metrics"
	"github.com/kailas-cloud/whatmovie/internal/resilience"
)

type source interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]result.Hit, error)
}

// Guarded runs a source through the resilience executor and records per-source metrics.
type Guarded struct {
	inner  source
	exec   *resilience.Executor
	logger *zap.Logger
}

// NewGuarded wraps inner. Breaker state is kept per source name.
func NewGuarded(inner source, exec *resilience.Executor, logger *zap.Logger) *Guarded {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guarded{inner: inner, exec: exec, logger: logger}
}

// Name returns the wrapped source name.
func (g *Guarded) Name() string { return g.inner.Name() }

// Search calls the wrapped source with retries and circuit breaking.
func (g *Guarded) Search(ctx context.Context, query string, limit int) ([]result.Hit, error) {
	name := g.inner.Name()
	start := time.Now()

	var hits []result.Hit
	err := g.exec.Execute(ctx, name, func(ctx context.Context) error {
		var err error
		hits, err = g.inner.Search(ctx, query, limit)
		return err
	}, classify)

	metrics.RetrievalSourceDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.RetrievalSourceRequestsTotal.WithLabelValues(name, "ok").Inc()
		metrics.RetrievalSourceHits.WithLabelValues(name).Observe(float64(len(hits)))
		return hits, nil
	case resilience.IsCircuitOpen(err):
		metrics.RetrievalSourceRequestsTotal.WithLabelValues(name, "circuit_open").Inc()
		g.logger.Debug("Source skipped, circuit open", zap.String("source", name))
	default:
		metrics.RetrievalSourceRequestsTotal.WithLabelValues(name, "error").Inc()
		g.logger.Debug("Source failed", zap.String("source", name), zap.Error(err))
	}
	return nil, err //nolint:wrapcheck // executor already prefixes the operation
}

// classify never retries a missing index; everything else follows the transient rules.
func classify(err error) resilience.ErrorClassification {
	if errors.Is(err, db.ErrIndexNotFound) {
		return resilience.PermanentClassifier(err)
	}
	return resilience.TransientClassifier(err)
}
