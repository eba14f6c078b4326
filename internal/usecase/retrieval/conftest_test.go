package retrieval

import (
	"context"

	"github.com/kailas-cloud/whatmovie/internal/domain"
	"github.com/kailas-cloud/whatmovie/internal/domain/search/result"
)

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type mockRepo struct {
	knnFn  func(ctx context.Context, vector []float32, k int) ([]result.Hit, error)
	bm25Fn func(ctx context.Context, query string, k int) ([]result.Hit, error)
}

func (m *mockRepo) SearchKNN(ctx context.Context, vector []float32, k int) ([]result.Hit, error) {
	if m.knnFn != nil {
		return m.knnFn(ctx, vector, k)
	}
	return []result.Hit{}, nil
}

func (m *mockRepo) SearchBM25(ctx context.Context, query string, k int) ([]result.Hit, error) {
	if m.bm25Fn != nil {
		return m.bm25Fn(ctx, query, k)
	}
	return []result.Hit{}, nil
}

type fnSource struct {
	name     string
	searchFn func(ctx context.Context, query string, limit int) ([]result.Hit, error)
	calls    int
}

func (f *fnSource) Name() string { return f.name }

func (f *fnSource) Search(ctx context.Context, query string, limit int) ([]result.Hit, error) {
	f.calls++
	return f.searchFn(ctx, query, limit)
}

func hits(ids ...string) []result.Hit {
	out := make([]result.Hit, len(ids))
	for i, id := range ids {
		out[i] = result.NewHit(id, float64(len(ids)-i), "content "+id)
	}
	return out
}
