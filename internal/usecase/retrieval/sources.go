// Package retrieval provides the dense and sparse movie sources used by hybrid search.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/whatmovie/internal/domain"
	"github.com/kailas-cloud/whatmovie/internal/domain/search/result"
)

// Source names, also used as metric labels and breaker names.
const (
	SourceDense  = "dense"
	SourceSparse = "sparse"
)

type knnSearcher interface {
	SearchKNN(ctx context.Context, vector []float32, k int) ([]result.Hit, error)
}

type bm25Searcher interface {
	SearchBM25(ctx context.Context, query string, k int) ([]result.Hit, error)
}

// Dense embeds the query and runs a vector similarity search.
type Dense struct {
	embedder domain.Embedder
	repo     knnSearcher
}

// NewDense creates the semantic source.
func NewDense(embedder domain.Embedder, repo knnSearcher) *Dense {
	return &Dense{embedder: embedder, repo: repo}
}

// Name returns "dense".
func (d *Dense) Name() string { return SourceDense }

// Search returns up to limit movies closest in meaning to query.
func (d *Dense) Search(ctx context.Context, query string, limit int) ([]result.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return []result.Hit{}, nil
	}
	emb, err := d.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := d.repo.SearchKNN(ctx, emb.Embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}
	return hits, nil
}

// Sparse runs a BM25 keyword search over the movie details text.
type Sparse struct {
	repo bm25Searcher
}

// NewSparse creates the keyword source.
func NewSparse(repo bm25Searcher) *Sparse {
	return &Sparse{repo: repo}
}

// Name returns "sparse".
func (s *Sparse) Name() string { return SourceSparse }

// Search returns up to limit movies ranked by BM25 against query.
func (s *Sparse) Search(ctx context.Context, query string, limit int) ([]result.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return []result.Hit{}, nil
	}
	hits, err := s.repo.SearchBM25(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sparse search: %w", err)
	}
	return hits, nil
}
