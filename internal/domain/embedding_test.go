package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	texts  []string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.texts = append(s.texts, text)
	return s.result, s.err
}

type stubBatchEmbedder struct {
	stubEmbedder
	batch      BatchEmbeddingResult
	batchTexts []string
	healthErr  error
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchTexts = texts
	return s.batch, nil
}

func (s *stubBatchEmbedder) HealthCheck(context.Context) error { return s.healthErr }

func TestEmbedBatch_OneByOne(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2}, PromptTokens: 5, TotalTokens: 5}}

	res, err := EmbedBatch(context.Background(), inner, []string{"alien", "heat", "ran"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 || len(inner.texts) != 3 {
		t.Fatalf("got %d embeddings from %d calls", len(res.Embeddings), len(inner.texts))
	}
	if res.PromptTokens != 15 || res.TotalTokens != 15 {
		t.Errorf("usage = %d/%d, want 15/15", res.PromptTokens, res.TotalTokens)
	}
}

func TestEmbedBatch_PrefersNativeBatch(t *testing.T) {
	inner := &stubBatchEmbedder{batch: BatchEmbeddingResult{Embeddings: [][]float32{{1}, {2}}, TotalTokens: 9}}

	res, err := EmbedBatch(context.Background(), inner, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalTokens != 9 || len(inner.texts) != 0 {
		t.Errorf("batch call not used: tokens %d, single calls %d", res.TotalTokens, len(inner.texts))
	}
}

func TestEmbedBatch_StopsAtFirstError(t *testing.T) {
	innerErr := errors.New("quota exceeded")
	inner := &stubEmbedder{err: innerErr}

	_, err := EmbedBatch(context.Background(), inner, []string{"a", "b"})
	if !errors.Is(err, innerErr) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
	if len(inner.texts) != 1 {
		t.Errorf("calls = %d, want 1", len(inner.texts))
	}
}

func TestBatchEmbeddingResult_Merge(t *testing.T) {
	var r BatchEmbeddingResult
	r.Merge(BatchEmbeddingResult{Embeddings: [][]float32{{1}}, PromptTokens: 2, TotalTokens: 3})
	r.Merge(BatchEmbeddingResult{Embeddings: [][]float32{{2}, {3}}, PromptTokens: 1, TotalTokens: 1})

	if len(r.Embeddings) != 3 || r.Embeddings[2][0] != 3 {
		t.Errorf("embeddings = %v", r.Embeddings)
	}
	if r.PromptTokens != 3 || r.TotalTokens != 4 {
		t.Errorf("usage = %d/%d", r.PromptTokens, r.TotalTokens)
	}
}

func TestInstructed_Embed(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}

	res, err := WithInstruction(inner, "search_query: ").Embed(context.Background(), "a heist on a moving train")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.texts[0] != "search_query: a heist on a moving train" {
		t.Errorf("sent %q", inner.texts[0])
	}
	if len(res.Embedding) != 3 {
		t.Errorf("dimensions = %d", len(res.Embedding))
	}

	innerErr := errors.New("provider down")
	if _, err := WithInstruction(&stubEmbedder{err: innerErr}, "q: ").Embed(context.Background(), "x"); !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructed_BatchEmbed(t *testing.T) {
	inner := &stubBatchEmbedder{batch: BatchEmbeddingResult{Embeddings: [][]float32{{0.1}, {0.2}}}}

	if _, err := WithInstruction(inner, "doc: ").BatchEmbed(context.Background(), []string{"alien", "heat"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.batchTexts) != 2 || inner.batchTexts[0] != "doc: alien" || inner.batchTexts[1] != "doc: heat" {
		t.Errorf("batch texts = %v", inner.batchTexts)
	}
}

func TestCheckHealth(t *testing.T) {
	down := errors.New("down")
	if err := CheckHealth(context.Background(), WithInstruction(&stubBatchEmbedder{healthErr: down}, "q: ")); !errors.Is(err, down) {
		t.Errorf("expected inner health error, got %v", err)
	}
	if err := CheckHealth(context.Background(), &stubEmbedder{}); err != nil {
		t.Errorf("embedder without health check: %v", err)
	}
}
