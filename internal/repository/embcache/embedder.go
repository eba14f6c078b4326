// Package embcache memoizes embedding vectors in the key-value store so that
// repeated queries skip the provider.
package embcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/whatmovie/internal/db"
	"github.com/kailas-cloud/whatmovie/internal/domain"
)

const keySegment = "emb_cache:"

// Store is the subset of db.Cache the embedder needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options tune key layout and expiry. A zero TTL keeps entries forever.
type Options struct {
	KeyPrefix string
	TTL       time.Duration
}

// Embedder serves vectors from Store and asks the inner embedder only for
// texts it has not seen. Store failures are logged and treated as misses.
type Embedder struct {
	inner   domain.Embedder
	store   Store
	prefix  string
	ttl     time.Duration
	lookups *prometheus.CounterVec
	logger  *zap.Logger
}

// New wraps inner. lookups is a counter vec labelled by result
// ("hit" or "miss"); nil disables counting.
func New(inner domain.Embedder, s Store, opts Options, lookups *prometheus.CounterVec, logger *zap.Logger) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		inner:   inner,
		store:   s,
		prefix:  opts.KeyPrefix + keySegment,
		ttl:     opts.TTL,
		lookups: lookups,
		logger:  logger,
	}
}

// Embed implements domain.Embedder. Hits report zero tokens.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := keyFor(e.prefix, text)
	if vec, ok := e.load(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	res, err := e.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	e.save(ctx, key, res.Embedding)
	return res, nil
}

// BatchEmbed implements domain.BatchEmbedder. Misses go to the inner
// embedder in a single batch; usage covers only those.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var pending []int
	for i, text := range texts {
		keys[i] = keyFor(e.prefix, text)
		if vec, ok := e.load(ctx, keys[i]); ok {
			out[i] = vec
		} else {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}

	missing := make([]string, len(pending))
	for j, i := range pending {
		missing[j] = texts[i]
	}
	res, err := domain.EmbedBatch(ctx, e.inner, missing)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(missing), err)
	}
	if len(res.Embeddings) != len(missing) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: got %d embeddings for %d texts",
			domain.ErrEmbeddingProviderError, len(res.Embeddings), len(missing))
	}

	for j, i := range pending {
		out[i] = res.Embeddings[j]
		e.save(ctx, keys[i], out[i])
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// HealthCheck implements domain.HealthChecker.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	return domain.CheckHealth(ctx, e.inner)
}

func (e *Embedder) load(ctx context.Context, key string) ([]float32, bool) {
	vec, err := e.read(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			e.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		}
		e.count("miss")
		return nil, false
	}
	e.count("hit")
	return vec, true
}

func (e *Embedder) read(ctx context.Context, key string) ([]float32, error) {
	raw, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, err //nolint:wrapcheck // classified by load
	}
	return decode(raw)
}

func (e *Embedder) save(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := e.store.SetWithTTL(ctx, key, encode(vec), e.ttl); err != nil {
		e.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (e *Embedder) count(result string) {
	if e.lookups != nil {
		e.lookups.WithLabelValues(result).Inc()
	}
}
