package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockIndex struct {
	n   int
	err error
}

func (m *mockIndex) Count(_ context.Context) (int, error) { return m.n, m.err }

type mockProvider struct {
	err error
}

func (m *mockProvider) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(Deps{
		DB:         &mockDBPinger{},
		Index:      &mockIndex{n: 4803},
		Embedding:  &mockProvider{},
		Generation: &mockProvider{},
	})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, c := range []string{ComponentDatabase, ComponentIndex, ComponentEmbedding, ComponentGeneration} {
		if r.Checks[c] != CheckOK {
			t.Errorf("%s = %q, want ok", c, r.Checks[c])
		}
	}
	if r.Movies != 4803 {
		t.Errorf("movies = %d, want 4803", r.Movies)
	}
}

func TestCheck_DBError(t *testing.T) {
	svc := New(Deps{DB: &mockDBPinger{err: errors.New("conn refused")}, Embedding: &mockProvider{}})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[ComponentDatabase] != CheckError {
		t.Errorf("expected database error")
	}
	if r.Checks[ComponentEmbedding] != CheckOK {
		t.Errorf("expected embedding ok")
	}
}

func TestCheck_IndexMissing(t *testing.T) {
	svc := New(Deps{DB: &mockDBPinger{}, Index: &mockIndex{err: errors.New("no such index")}})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[ComponentIndex] != CheckError {
		t.Errorf("expected index error")
	}
}

func TestCheck_ProviderErrorsDegrade(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
		bad  string
	}{
		{
			name: "embedding",
			deps: Deps{DB: &mockDBPinger{}, Embedding: &mockProvider{err: errors.New("timeout")}, Generation: &mockProvider{}},
			bad:  ComponentEmbedding,
		},
		{
			name: "generation",
			deps: Deps{DB: &mockDBPinger{}, Embedding: &mockProvider{}, Generation: &mockProvider{err: errors.New("401")}},
			bad:  ComponentGeneration,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := New(tc.deps).Check(context.Background())
			if r.Status != Degraded {
				t.Errorf("expected %q, got %q", Degraded, r.Status)
			}
			if r.Checks[tc.bad] != CheckError {
				t.Errorf("expected %s error", tc.bad)
			}
		})
	}
}

func TestCheck_DBErrorWinsOverProviderError(t *testing.T) {
	svc := New(Deps{
		DB:        &mockDBPinger{err: errors.New("db down")},
		Embedding: &mockProvider{err: errors.New("emb down")},
	})
	if r := svc.Check(context.Background()); r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}

func TestCheck_OptionalComponentsAbsent(t *testing.T) {
	r := New(Deps{DB: &mockDBPinger{}}).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, c := range []string{ComponentIndex, ComponentEmbedding, ComponentGeneration} {
		if _, ok := r.Checks[c]; ok {
			t.Errorf("%s check should be absent", c)
		}
	}
}

type slowPinger struct{}

func (slowPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCheck_Timeout(t *testing.T) {
	svc := New(Deps{DB: slowPinger{}, Timeout: 10 * time.Millisecond})
	r := svc.Check(context.Background())
	if r.Checks[ComponentDatabase] != CheckError {
		t.Error("expected timed-out check to fail")
	}
}
