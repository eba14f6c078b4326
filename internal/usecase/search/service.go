package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/whatmovie/internal/domain"
	"github.com/kailas-cloud/whatmovie/internal/domain/search/result"
	"github.com/kailas-cloud/whatmovie/internal/logger"
	"github.com/kailas-cloud/whatmovie/internal/metrics"
)

// FailurePolicy decides what happens when one of the two sources fails.
type FailurePolicy string

const (
	// PolicyFallback treats a failed source as empty and marks the retrieval degraded.
	PolicyFallback FailurePolicy = "fallback"
	// PolicyFail fails the whole retrieval when any source fails.
	PolicyFail FailurePolicy = "fail"
)

// DefaultSourceLimit is how many hits each source is asked for.
const DefaultSourceLimit = 50

// Config tunes hybrid retrieval.
type Config struct {
	SourceLimit     int
	TopK            int
	RRFK            int
	SourceTimeout   time.Duration
	OnSourceFailure FailurePolicy
}

// Retrieval is the outcome of one hybrid lookup.
type Retrieval struct {
	Matches       []result.Fused
	Degraded      bool
	FailedSources []string
}

// Service runs the dense and sparse sources concurrently and fuses their rankings.
type Service struct {
	dense  Source
	sparse Source
	fuser  *Fuser
	cfg    Config
	logger *zap.Logger
}

// New creates a hybrid retrieval service.
func New(dense, sparse Source, cfg Config, logger *zap.Logger) *Service {
	if cfg.SourceLimit <= 0 {
		cfg.SourceLimit = DefaultSourceLimit
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.OnSourceFailure == "" {
		cfg.OnSourceFailure = PolicyFallback
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		dense:  dense,
		sparse: sparse,
		fuser:  NewFuser(cfg.RRFK),
		cfg:    cfg,
		logger: logger,
	}
}

// Retrieve returns the topK fused matches for query (topK <= 0 uses the configured default).
func (s *Service) Retrieve(ctx context.Context, query string, topK int) (Retrieval, error) {
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	limit := max(s.cfg.SourceLimit, topK)

	var (
		denseHits, sparseHits []result.Hit
		denseErr, sparseErr   error
	)

	// Each goroutine keeps its own error so one failing source does not cancel the other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		denseHits, denseErr = s.query(gctx, s.dense, query, limit)
		return nil
	})
	g.Go(func() error {
		sparseHits, sparseErr = s.query(gctx, s.sparse, query, limit)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Retrieval{}, fmt.Errorf("retrieve: %w", err)
	}

	out := Retrieval{}
	switch {
	case denseErr != nil && sparseErr != nil:
		return Retrieval{}, fmt.Errorf("retrieve: %w", errors.Join(denseErr, sparseErr))
	case denseErr != nil || sparseErr != nil:
		failed, err := s.dense.Name(), denseErr
		if sparseErr != nil {
			failed, err = s.sparse.Name(), sparseErr
		}
		if s.cfg.OnSourceFailure == PolicyFail {
			return Retrieval{}, fmt.Errorf("retrieve: %w", err)
		}
		logger.FromContext(ctx, s.logger).Warn("Retrieval source failed, continuing with partial results",
			zap.String("source", failed),
			zap.Error(err),
		)
		metrics.RetrievalDegradedTotal.WithLabelValues(failed).Inc()
		out.Degraded = true
		out.FailedSources = []string{failed}
	}

	fused, err := s.fuser.Fuse(result.RankHits(denseHits), result.RankHits(sparseHits), topK)
	if err != nil {
		return Retrieval{}, fmt.Errorf("fuse: %w", err)
	}
	metrics.RetrievalFusedResults.Observe(float64(len(fused)))

	out.Matches = fused
	return out, nil
}

func (s *Service) query(ctx context.Context, src Source, query string, limit int) ([]result.Hit, error) {
	if s.cfg.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SourceTimeout)
		defer cancel()
	}
	hits, err := src.Search(ctx, query, limit)
	if err != nil {
		var se *domain.SourceError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, domain.NewSourceError(src.Name(), err)
	}
	return hits, nil
}
