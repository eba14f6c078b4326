// Package embedding decorates the embedding provider with request pacing,
// chunked batching and logging.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/whatmovie/internal/domain"
)

// DefaultMaxAPIBatchSize is the largest number of texts sent in one provider request.
const DefaultMaxAPIBatchSize = 256

// Options tune Paced. Zero RequestsPerSecond disables pacing.
type Options struct {
	Provider          string
	Model             string
	MaxBatchSize      int
	RequestsPerSecond float64
	Burst             int
}

// Paced spaces provider requests with a token bucket and splits large
// batches into provider-sized chunks. Request metrics live in transport/openai.
type Paced struct {
	inner    domain.Embedder
	maxBatch int
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewPaced wraps inner.
func NewPaced(inner domain.Embedder, opts Options, logger *zap.Logger) *Paced {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Paced{
		inner:    inner,
		maxBatch: opts.MaxBatchSize,
		logger:   logger.With(zap.String("provider", opts.Provider), zap.String("model", opts.Model)),
	}
	if p.maxBatch <= 0 {
		p.maxBatch = DefaultMaxAPIBatchSize
	}
	if opts.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(opts.Burst, 1))
	}
	return p
}

// Embed implements domain.Embedder.
func (p *Paced) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := p.acquire(ctx); err != nil {
		return domain.EmbeddingResult{}, err
	}

	start := time.Now()
	res, err := p.inner.Embed(ctx, text)
	if err != nil {
		p.logger.Error("Embedding request failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	p.logger.Debug("Embedding request completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("dimensions", len(res.Embedding)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// BatchEmbed implements domain.BatchEmbedder. Each chunk waits for its own
// request slot; the first failing chunk aborts the batch.
func (p *Paced) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	var out domain.BatchEmbeddingResult
	if len(texts) == 0 {
		return out, nil
	}

	start := time.Now()
	for chunk := range chunks(texts, p.maxBatch) {
		if err := p.acquire(ctx); err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		res, err := domain.EmbedBatch(ctx, p.inner, chunk.texts)
		if err != nil {
			p.logger.Error("Batch embedding request failed",
				zap.Int("chunk_offset", chunk.offset),
				zap.Int("chunk_size", len(chunk.texts)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed at %d: %w", chunk.offset, err)
		}
		out.Merge(res)
	}

	p.logger.Debug("Batch embedding completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", out.TotalTokens),
	)
	return out, nil
}

// HealthCheck implements domain.HealthChecker.
func (p *Paced) HealthCheck(ctx context.Context) error {
	return domain.CheckHealth(ctx, p.inner)
}

func (p *Paced) acquire(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("embedding rate limit: %w", err)
	}
	return nil
}

type chunk struct {
	offset int
	texts  []string
}

func chunks(texts []string, size int) func(yield func(chunk) bool) {
	return func(yield func(chunk) bool) {
		for off := 0; off < len(texts); off += size {
			if !yield(chunk{offset: off, texts: texts[off:min(off+size, len(texts))]}) {
				return
			}
		}
	}
}
