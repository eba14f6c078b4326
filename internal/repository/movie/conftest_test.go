package movie

import (
	"context"
	"testing"

	"github.com/kailas-cloud/whatmovie/internal/db"
	dommovie "github.com/kailas-cloud/whatmovie/internal/domain/movie"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string, deleteDocs bool) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	noTextSearch  bool
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchBM25Fn  func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	searchCountFn func(ctx context.Context, index, query string) (int, error)
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name, deleteDocs)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SupportsTextSearch(_ context.Context) bool {
	return !m.noTextSearch
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchBM25Fn != nil {
		return m.searchBM25Fn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

func testConfig() Config {
	return Config{
		IndexName:      "whatmovie:movies",
		KeyPrefix:      "whatmovie:",
		Dimensions:     4,
		M:              16,
		EFConstruction: 200,
		EFRuntime:      64,
		Scorer:         "BM25STD",
	}
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, testConfig()), ms
}

func testVector() []float32 {
	return []float32{0.1, 0.2, 0.3, 0.4}
}

func mustMovie(t *testing.T, id, title string) dommovie.Movie {
	t.Helper()
	m, err := dommovie.Clean(dommovie.Raw{
		ID:          id,
		Title:       title,
		Overview:    "A thief who steals corporate secrets through dream-sharing technology.",
		Genres:      "Action, Science Fiction",
		ReleaseDate: "2010-07-15",
		Status:      dommovie.StatusReleased,
		VoteAverage: 8.364,
		VoteCount:   34495,
		Popularity:  83.952,
	})
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	return m
}
