package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/whatmovie/internal/domain"
	"github.com/kailas-cloud/whatmovie/internal/domain/search/result"
)

func TestDense_Search(t *testing.T) {
	emb := &mockEmbedder{}
	repo := &mockRepo{knnFn: func(_ context.Context, vector []float32, k int) ([]result.Hit, error) {
		if len(vector) != 2 || k != 50 {
			t.Errorf("unexpected args: %v %d", vector, k)
		}
		return hits("603", "604"), nil
	}}

	d := NewDense(emb, repo)
	if d.Name() != SourceDense {
		t.Errorf("name = %q", d.Name())
	}
	got, err := d.Search(context.Background(), "hackers in a simulated reality", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID() != "603" {
		t.Errorf("unexpected hits: %v", got)
	}
}

func TestDense_EmbedError(t *testing.T) {
	emb := &mockEmbedder{embedFn: func(context.Context, string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, domain.ErrEmbeddingProviderError
	}}
	repo := &mockRepo{knnFn: func(context.Context, []float32, int) ([]result.Hit, error) {
		t.Fatal("repo must not be called when embedding fails")
		return nil, nil
	}}

	_, err := NewDense(emb, repo).Search(context.Background(), "x", 5)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected embedding error, got %v", err)
	}
}

func TestDense_BlankQuery(t *testing.T) {
	emb := &mockEmbedder{}
	got, err := NewDense(emb, &mockRepo{}).Search(context.Background(), "   ", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty hits, got %v", got)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times", emb.calls)
	}
}

func TestSparse_Search(t *testing.T) {
	repo := &mockRepo{bm25Fn: func(_ context.Context, query string, k int) ([]result.Hit, error) {
		if query != "heist train" || k != 10 {
			t.Errorf("unexpected args: %q %d", query, k)
		}
		return hits("11"), nil
	}}

	s := NewSparse(repo)
	if s.Name() != SourceSparse {
		t.Errorf("name = %q", s.Name())
	}
	got, err := s.Search(context.Background(), "heist train", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID() != "11" {
		t.Errorf("unexpected hits: %v", got)
	}
}

func TestSparse_Error(t *testing.T) {
	repoErr := errors.New("connection refused")
	repo := &mockRepo{bm25Fn: func(context.Context, string, int) ([]result.Hit, error) {
		return nil, repoErr
	}}

	_, err := NewSparse(repo).Search(context.Background(), "x", 5)
	if !errors.Is(err, repoErr) {
		t.Fatalf("expected wrapped repo error, got %v", err)
	}
}
