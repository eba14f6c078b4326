package chat

import (
	"context"

	"github.com/kailas-cloud/whatmovie/internal/usecase/search"
)

// Retriever returns the fused hybrid matches for a description.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (search.Retrieval, error)
}
