package search

import (
	"context"

	"github.com/kailas-cloud/whatmovie/internal/domain/search/result"
)

// Source is one ranked retrieval backend (dense or sparse).
// Search returns at most limit hits ordered best first.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]result.Hit, error)
}
