// Package ingest loads the TMDB dataset into the movie index.
// Reader -> clean/dedupe -> channel([]Movie) -> N workers -> embed -> store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/whatmovie/internal/domain"
	dommovie "github.com/kailas-cloud/whatmovie/internal/domain/movie"
	"github.com/kailas-cloud/whatmovie/internal/metrics"
)

// Pipeline defaults.
const (
	DefaultWorkers   = 4
	DefaultBatchSize = 100

	progressEvery = 5000
)

// Store is the movie index the pipeline writes to.
type Store interface {
	EnsureIndex(ctx context.Context) (bool, error)
	DropIndex(ctx context.Context, deleteDocs bool) error
	UpsertBatch(ctx context.Context, movies []dommovie.Movie, vectors [][]float32) error
}

// Options tunes one ingest run.
type Options struct {
	Workers   int
	BatchSize int
	// MaxMovies stops after that many admitted movies (0 = all).
	MaxMovies int
	// Recreate drops the index and its documents before loading.
	Recreate bool
}

// Summary reports the outcome of a run.
type Summary struct {
	RowsRead   int64
	Rejected   int64
	Duplicates int64
	Stored     int64
	Failed     int64
	Tokens     int64
	Duration   time.Duration
}

// Service runs the ingest pipeline.
type Service struct {
	embedder domain.Embedder
	store    Store
	metrics  *metrics.IngestMetrics
	logger   *zap.Logger
}

// New creates an ingest service. m may be nil.
func New(embedder domain.Embedder, store Store, m *metrics.IngestMetrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embedder: embedder, store: store, metrics: m, logger: logger}
}

type counters struct {
	read, rejected, duplicates, stored, failed, tokens atomic.Int64
}

func (c *counters) summary(start time.Time) Summary {
	return Summary{
		RowsRead:   c.read.Load(),
		Rejected:   c.rejected.Load(),
		Duplicates: c.duplicates.Load(),
		Stored:     c.stored.Load(),
		Failed:     c.failed.Load(),
		Tokens:     c.tokens.Load(),
		Duration:   time.Since(start),
	}
}

// Run loads every admitted movie from src. Batches that fail to embed or
// store are counted in Summary.Failed; read errors abort the run.
func (s *Service) Run(ctx context.Context, src io.Reader, opts Options) (Summary, error) {
	opts = normalize(opts)
	start := time.Now()
	var c counters

	reader, err := NewReader(src)
	if err != nil {
		return c.summary(start), err
	}

	if opts.Recreate {
		if err := s.store.DropIndex(ctx, true); err != nil {
			return c.summary(start), fmt.Errorf("recreate index: %w", err)
		}
	}
	created, err := s.store.EnsureIndex(ctx)
	if err != nil {
		return c.summary(start), fmt.Errorf("ensure index: %w", err)
	}
	s.logger.Info("Movie index ready", zap.Bool("created", created))

	batches := make(chan []dommovie.Movie, opts.Workers*2)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < opts.Workers; i++ {
		workerID := i
		g.Go(func() error {
			for batch := range batches {
				s.processBatch(gctx, workerID, batch, &c)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(batches)
		return s.produce(gctx, reader, opts, batches, &c)
	})

	err = g.Wait()
	sum := c.summary(start)
	if err != nil {
		return sum, err
	}
	if err := ctx.Err(); err != nil {
		return sum, fmt.Errorf("ingest: %w", err)
	}
	return sum, nil
}

// produce cleans rows, drops duplicate IDs (first wins) and emits batches.
func (s *Service) produce(
	ctx context.Context,
	reader *Reader,
	opts Options,
	out chan<- []dommovie.Movie,
	c *counters,
) error {
	seen := make(map[string]struct{})
	batch := make([]dommovie.Movie, 0, opts.BatchSize)
	admitted := 0

	send := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case out <- batch:
		case <-ctx.Done():
			return fmt.Errorf("ingest: %w", ctx.Err())
		}
		batch = make([]dommovie.Movie, 0, opts.BatchSize)
		return nil
	}

	for opts.MaxMovies == 0 || admitted < opts.MaxMovies {
		raw, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read dataset near line %d: %w", reader.Line(), err)
		}
		c.read.Add(1)
		if s.metrics != nil {
			s.metrics.RowsRead.Inc()
		}

		m, err := dommovie.Clean(raw)
		if err != nil {
			c.rejected.Add(1)
			s.reject(err)
			continue
		}
		if _, dup := seen[m.ID()]; dup {
			c.duplicates.Add(1)
			if s.metrics != nil {
				s.metrics.RowsRejected.WithLabelValues("duplicate").Inc()
			}
			continue
		}
		seen[m.ID()] = struct{}{}
		admitted++

		batch = append(batch, m)
		if len(batch) >= opts.BatchSize {
			if err := send(); err != nil {
				return err
			}
		}
	}
	return send()
}

func (s *Service) reject(err error) {
	if s.metrics == nil {
		return
	}
	reason := "invalid"
	var rej *dommovie.RejectedError
	if errors.As(err, &rej) {
		reason = rej.Reason
	}
	s.metrics.RowsRejected.WithLabelValues(reason).Inc()
}

func (s *Service) processBatch(ctx context.Context, workerID int, batch []dommovie.Movie, c *counters) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Details()
	}

	embedStart := time.Now()
	res, err := domain.EmbedBatch(ctx, s.embedder, texts)
	s.observe("embed", embedStart)
	if err == nil && len(res.Embeddings) != len(batch) {
		err = fmt.Errorf("got %d embeddings for %d movies: %w",
			len(res.Embeddings), len(batch), domain.ErrEmbeddingProviderError)
	}
	if err != nil {
		s.fail(workerID, "embed", batch, err, c)
		return
	}
	c.tokens.Add(int64(res.TotalTokens))

	storeStart := time.Now()
	err = s.store.UpsertBatch(ctx, batch, res.Embeddings)
	s.observe("store", storeStart)
	if err != nil {
		s.fail(workerID, "store", batch, err, c)
		return
	}

	if s.metrics != nil {
		s.metrics.BatchesTotal.WithLabelValues("ok").Inc()
		s.metrics.MoviesStored.Add(float64(len(batch)))
	}
	total := c.stored.Add(int64(len(batch)))
	if total%progressEvery < int64(len(batch)) {
		s.logger.Info("Ingest progress",
			zap.Int64("stored", total),
			zap.Int64("failed", c.failed.Load()),
		)
	}
}

func (s *Service) fail(workerID int, stage string, batch []dommovie.Movie, err error, c *counters) {
	c.failed.Add(int64(len(batch)))
	if s.metrics != nil {
		s.metrics.BatchesTotal.WithLabelValues(stage + "_error").Inc()
	}
	s.logger.Warn("Ingest batch failed",
		zap.Int("worker", workerID),
		zap.String("stage", stage),
		zap.String("first_id", batch[0].ID()),
		zap.Int("size", len(batch)),
		zap.Error(err),
	)
}

func (s *Service) observe(stage string, start time.Time) {
	if s.metrics != nil {
		s.metrics.BatchDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func normalize(o Options) Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxMovies < 0 {
		o.MaxMovies = 0
	}
	return o
}
