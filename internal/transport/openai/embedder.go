// Package openai adapts OpenAI-compatible APIs (OpenAI, Nebius, Gemini's
// compatibility endpoint) to the domain embedding and generation contracts.
package openai

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/whatmovie/internal/domain"
	"github.com/kailas-cloud/whatmovie/internal/metrics"
)

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	Logger     *zap.Logger
}

func (c *Config) client() *openai.Client {
	oc := openai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		oc.BaseURL = c.BaseURL
	}
	return openai.NewClientWithConfig(oc)
}

// Embedder calls the /embeddings endpoint.
type Embedder struct {
	client *openai.Client
	req    openai.EmbeddingRequest
	labels [2]string
	logger *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider. Dimensions
// of 0 leaves the model's native size.
func NewEmbedder(cfg *Config) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client: cfg.client(),
		req: openai.EmbeddingRequest{
			Model:          openai.EmbeddingModel(cfg.Model),
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
			Dimensions:     max(cfg.Dimensions, 0),
			User:           cfg.User,
		},
		labels: [2]string{cfg.Provider, cfg.Model},
		logger: logger,
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.create(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder in one request. Vectors come
// back in input order whatever order the provider lists them in.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	return e.create(ctx, texts)
}

// HealthCheck lists models, which costs nothing.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (e *Embedder) create(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	req := e.req
	req.Input = texts

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		e.logger.Debug("Embedding API call failed", zap.Int("inputs", len(texts)), zap.Error(err))
		e.fail("api_error")
		return domain.BatchEmbeddingResult{}, wrapAPIError("embedding", err, domain.ErrEmbeddingProviderError)
	}
	if len(resp.Data) != len(texts) {
		e.fail("count_mismatch")
		return domain.BatchEmbeddingResult{}, fmt.Errorf("got %d embeddings for %d inputs: %w",
			len(resp.Data), len(texts), domain.ErrEmbeddingProviderError)
	}
	e.succeed(time.Since(start), resp.Usage)

	slices.SortStableFunc(resp.Data, func(a, b openai.Embedding) int { return cmp.Compare(a.Index, b.Index) })
	out := domain.BatchEmbeddingResult{
		Embeddings:   make([][]float32, len(resp.Data)),
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
	for i, d := range resp.Data {
		out.Embeddings[i] = d.Embedding
	}
	return out, nil
}

func (e *Embedder) fail(kind string) {
	provider, model := e.labels[0], e.labels[1]
	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(provider, model, kind).Inc()
}

func (e *Embedder) succeed(took time.Duration, usage openai.Usage) {
	provider, model := e.labels[0], e.labels[1]
	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(provider, model).Observe(took.Seconds())
	if usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(provider, model, "total").Add(float64(usage.TotalTokens))
	}
}
