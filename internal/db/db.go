// Package db defines the storage contract of whatmovie: movie hashes, one FT
// index over them, and a small KV area for cached query embeddings.
package db

import (
	"context"
	"time"
)

// Store is implemented by the Redis driver. Repositories depend on the
// narrower interfaces below or declare their own.
type Store interface {
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()

	Hashes
	Cache
	Indexes
	Searcher
}

// HashSetItem is one hash to write in a pipelined batch.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// Hashes stores movie documents.
type Hashes interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Cache stores opaque values with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Indexes manages the FT index lifecycle.
type Indexes interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Searcher queries an FT index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchBM25(ctx context.Context, q *TextQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}
