package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/whatmovie/internal/domain"
	domchat "github.com/kailas-cloud/whatmovie/internal/domain/chat"
	"github.com/kailas-cloud/whatmovie/internal/domain/search/result"
	"github.com/kailas-cloud/whatmovie/internal/resilience"
	"github.com/kailas-cloud/whatmovie/internal/usecase/search"
)

// --- Mocks ---

type mockRetriever struct {
	retrieveFn func(ctx context.Context, query string, topK int) (search.Retrieval, error)
	calls      int
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string, topK int) (search.Retrieval, error) {
	m.calls++
	if m.retrieveFn != nil {
		return m.retrieveFn(ctx, query, topK)
	}
	return search.Retrieval{Matches: []result.Fused{}}, nil
}

type mockGenerator struct {
	generateFn func(ctx context.Context, p domchat.Prompt) (domchat.Completion, error)
	prompts    []domchat.Prompt
}

func (m *mockGenerator) Generate(ctx context.Context, p domchat.Prompt) (domchat.Completion, error) {
	m.prompts = append(m.prompts, p)
	if m.generateFn != nil {
		return m.generateFn(ctx, p)
	}
	return domchat.Completion{Text: "Is it Inception (2010)?"}, nil
}

func matches() []result.Fused {
	return []result.Fused{
		result.NewFused("27205", "title: Inception", 1.0/61+1.0/62, 1, 1, 2),
		result.NewFused("1124", "title: The Prestige", 1.0/62, 2, 2, 0),
	}
}

func newTestService(r Retriever, g domchat.Generator) *Service {
	return New(r, g, nil, Config{}, zap.NewNop())
}

// --- Tests ---

func TestReply_BuildsPrompt(t *testing.T) {
	ret := &mockRetriever{retrieveFn: func(_ context.Context, query string, topK int) (search.Retrieval, error) {
		if query != "dreams inside dreams" {
			t.Errorf("query = %q", query)
		}
		if topK != search.DefaultTopK {
			t.Errorf("topK = %d, want %d", topK, search.DefaultTopK)
		}
		return search.Retrieval{Matches: matches()}, nil
	}}
	gen := &mockGenerator{}
	svc := newTestService(ret, gen)

	reply, err := svc.Reply(context.Background(), "  dreams inside dreams  ", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != "Is it Inception (2010)?" {
		t.Errorf("text = %q", reply.Text)
	}
	if _, err := uuid.Parse(reply.ID); err != nil {
		t.Errorf("reply id %q is not a uuid", reply.ID)
	}
	if len(reply.Matches) != 2 {
		t.Errorf("matches = %d", len(reply.Matches))
	}

	p := gen.prompts[0]
	wantUser := "dreams inside dreams\n\nRelevant movie suggestions from database:\n" +
		"Hybrid search match 1: title: Inception\nHybrid search match 2: title: The Prestige"
	if p.User != wantUser {
		t.Errorf("user prompt =\n%q\nwant\n%q", p.User, wantUser)
	}
	if p.System != DefaultSystemInstruction {
		t.Errorf("system instruction not defaulted")
	}
}

func TestDefaultSystemInstruction(t *testing.T) {
	lines := strings.Split(DefaultSystemInstruction, "\n")
	if len(lines) != 4 {
		t.Fatalf("persona lines = %d, want 4", len(lines))
	}
	if lines[0] != "You are a AI movie guessing chatbot named WhatMovie." {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestBuildUserMessage_NoMatches(t *testing.T) {
	got := BuildUserMessage("a shark", nil)
	if got != "a shark\n\nRelevant movie suggestions from database:\n" {
		t.Errorf("got %q", got)
	}
}

func TestReply_CustomSystemInstruction(t *testing.T) {
	gen := &mockGenerator{}
	svc := New(&mockRetriever{}, gen, nil, Config{SystemInstruction: "Be brief.", TopK: 3}, nil)

	if _, err := svc.Reply(context.Background(), "x", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.prompts[0].System != "Be brief." {
		t.Errorf("system = %q", gen.prompts[0].System)
	}
}

func TestReply_History(t *testing.T) {
	gen := &mockGenerator{}
	svc := New(&mockRetriever{}, gen, nil, Config{MaxHistoryTurns: 2}, nil)

	history := []domchat.Turn{
		{Role: domchat.RoleUser, Text: "old"},
		{Role: domchat.RoleModel, Text: "old reply"},
		{Role: domchat.RoleUser, Text: "a heist"},
		{Role: domchat.RoleModel, Text: "Heat?"},
	}
	if _, err := svc.Reply(context.Background(), "no, on a train", history); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := gen.prompts[0].History
	if len(got) != 2 || got[0].Text != "a heist" || got[1].Text != "Heat?" {
		t.Errorf("history = %+v, want last two turns", got)
	}
}

func TestReply_InvalidMessage(t *testing.T) {
	svc := New(&mockRetriever{}, &mockGenerator{}, nil, Config{MaxMessageLength: 5}, nil)

	tests := []struct {
		name    string
		message string
		history []domchat.Turn
	}{
		{"empty", "", nil},
		{"blank", "  \n\t ", nil},
		{"too long", "abcdefg", nil},
		{"bad history role", "ok", []domchat.Turn{{Role: "system", Text: "x"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Reply(context.Background(), tc.message, tc.history)
			if !errors.Is(err, domain.ErrInvalidMessage) {
				t.Fatalf("expected ErrInvalidMessage, got %v", err)
			}
		})
	}
}

func TestReply_InvalidMessageSkipsRetrieval(t *testing.T) {
	ret := &mockRetriever{}
	svc := newTestService(ret, &mockGenerator{})
	_, _ = svc.Reply(context.Background(), "", nil)
	if ret.calls != 0 {
		t.Errorf("retriever called %d times", ret.calls)
	}
}

func TestReply_RetrievalUnavailable(t *testing.T) {
	ret := &mockRetriever{retrieveFn: func(context.Context, string, int) (search.Retrieval, error) {
		return search.Retrieval{}, domain.NewSourceError("dense", errors.New("down"))
	}}
	gen := &mockGenerator{}
	svc := newTestService(ret, gen)

	_, err := svc.Reply(context.Background(), "x", nil)
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Error("generator must not be called when retrieval fails")
	}
}

func TestReply_DegradedPropagates(t *testing.T) {
	ret := &mockRetriever{retrieveFn: func(context.Context, string, int) (search.Retrieval, error) {
		return search.Retrieval{Matches: matches(), Degraded: true, FailedSources: []string{"dense"}}, nil
	}}
	reply, err := newTestService(ret, &mockGenerator{}).Reply(context.Background(), "x", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reply.Degraded {
		t.Error("expected degraded reply")
	}
}

func TestReply_GenerationUnavailable(t *testing.T) {
	genErr := errors.New("503 from provider")
	gen := &mockGenerator{generateFn: func(context.Context, domchat.Prompt) (domchat.Completion, error) {
		return domchat.Completion{}, genErr
	}}

	_, err := newTestService(&mockRetriever{}, gen).Reply(context.Background(), "x", nil)
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
	if !errors.Is(err, genErr) {
		t.Fatal("cause must stay reachable")
	}
}

func TestReply_CanceledIsNotGenerationFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &mockGenerator{generateFn: func(context.Context, domchat.Prompt) (domchat.Completion, error) {
		cancel()
		return domchat.Completion{}, context.Canceled
	}}

	_, err := newTestService(&mockRetriever{}, gen).Reply(ctx, "x", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Error("cancellation must not be reported as generation failure")
	}
}

func TestReply_RetriesTransientGeneration(t *testing.T) {
	calls := 0
	gen := &mockGenerator{generateFn: func(context.Context, domchat.Prompt) (domchat.Completion, error) {
		calls++
		if calls == 1 {
			return domchat.Completion{}, errors.New("connection reset")
		}
		return domchat.Completion{Text: "Jaws"}, nil
	}}
	exec := resilience.NewExecutor(resilience.Config{
		Retry: resilience.RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	}, zap.NewNop())

	svc := New(&mockRetriever{}, gen, exec, Config{}, nil)
	reply, err := svc.Reply(context.Background(), "a shark", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != "Jaws" || calls != 2 {
		t.Errorf("text %q after %d calls", reply.Text, calls)
	}
}

func TestReply_RejectedGenerationNotRetried(t *testing.T) {
	calls := 0
	gen := &mockGenerator{generateFn: func(context.Context, domchat.Prompt) (domchat.Completion, error) {
		calls++
		return domchat.Completion{}, domain.ErrGenerationRejected
	}}
	exec := resilience.NewExecutor(resilience.Config{
		Retry: resilience.RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	}, zap.NewNop())

	_, err := New(&mockRetriever{}, gen, exec, Config{}, nil).Reply(context.Background(), "x", nil)
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
