package domain

import (
	"context"
	"fmt"
)

// DefaultEmbeddingDimensions matches text-embedding-3-small.
const DefaultEmbeddingDimensions = 1536

// Embedder turns one text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder is implemented by providers with a native multi-input call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult is one vector plus the tokens billed for it.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult holds vectors in input order and the summed usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// Merge appends other's vectors and usage to r.
func (r *BatchEmbeddingResult) Merge(other BatchEmbeddingResult) {
	r.Embeddings = append(r.Embeddings, other.Embeddings...)
	r.PromptTokens += other.PromptTokens
	r.TotalTokens += other.TotalTokens
}

// EmbedBatch uses e's batch call when it has one, otherwise it embeds the
// texts one at a time and stops at the first failure.
func EmbedBatch(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	if be, ok := e.(BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts) //nolint:wrapcheck // callers wrap
	}

	out := BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("embed text %d of %d: %w", i+1, len(texts), err)
		}
		out.Merge(BatchEmbeddingResult{
			Embeddings:   [][]float32{res.Embedding},
			PromptTokens: res.PromptTokens,
			TotalTokens:  res.TotalTokens,
		})
	}
	return out, nil
}

// CheckHealth asks e for its health; embedders that cannot tell are healthy.
func CheckHealth(ctx context.Context, e Embedder) error {
	if hc, ok := e.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through
	}
	return nil
}

// Instructed prefixes every input with a fixed instruction, such as the
// "search_query: " and "search_document: " markers some models expect.
type Instructed struct {
	inner       Embedder
	instruction string
}

// WithInstruction wraps inner so each text is sent as instruction+text.
func WithInstruction(inner Embedder, instruction string) *Instructed {
	return &Instructed{inner: inner, instruction: instruction}
}

// Embed implements Embedder.
func (e *Instructed) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	res, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instructed embed: %w", err)
	}
	return res, nil
}

// BatchEmbed implements BatchEmbedder.
func (e *Instructed) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	prefixed := make([]string, 0, len(texts))
	for _, t := range texts {
		prefixed = append(prefixed, e.instruction+t)
	}
	res, err := EmbedBatch(ctx, e.inner, prefixed)
	if err != nil {
		return BatchEmbeddingResult{}, fmt.Errorf("instructed batch embed: %w", err)
	}
	return res, nil
}

// HealthCheck implements HealthChecker.
func (e *Instructed) HealthCheck(ctx context.Context) error {
	return CheckHealth(ctx, e.inner)
}
