// Package whatmovie embeds the movie guessing assistant in a Go program:
// hybrid search over a movie index built by whatmovie-ingest, and chat
// replies grounded on the fused matches.
package whatmovie

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/whatmovie/internal/db/redis"
	"github.com/kailas-cloud/whatmovie/internal/domain"
	domchat "github.com/kailas-cloud/whatmovie/internal/domain/chat"
	movierepo "github.com/kailas-cloud/whatmovie/internal/repository/movie"
	chatuc "github.com/kailas-cloud/whatmovie/internal/usecase/chat"
	"github.com/kailas-cloud/whatmovie/internal/usecase/retrieval"
	searchuc "github.com/kailas-cloud/whatmovie/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultIndexName        = "whatmovie:movies"
	defaultKeyPrefix        = "whatmovie:"
)

// ErrChatNotConfigured is returned by Chat when no Generator was given.
var ErrChatNotConfigured = errors.New("whatmovie: generator not configured (use WithGenerator)")

type searchUseCase interface {
	Retrieve(ctx context.Context, query string, topK int) (searchuc.Retrieval, error)
}

type chatUseCase interface {
	Reply(ctx context.Context, message string, history []domchat.Turn) (chatuc.Reply, error)
}

type movieIndex interface {
	EnsureIndex(ctx context.Context) (bool, error)
	Count(ctx context.Context) (int, error)
}

// Client is the whatmovie entry point.
type Client struct {
	store     *dbRedis.Store
	movies    movieIndex
	searchSvc searchUseCase
	chatSvc   chatUseCase
	obs       *observer
}

// New creates a Client and connects to Redis.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dimensions: domain.DefaultEmbeddingDimensions,
		indexName:  defaultIndexName,
		keyPrefix:  defaultKeyPrefix,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("whatmovie: address is required (use WithRedis)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("whatmovie: embedder is required (use WithEmbedder)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.addrs,
		Password:   cfg.password,
		ClientName: "whatmovie-sdk",
	})
	if err != nil {
		return nil, fmt.Errorf("whatmovie: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("whatmovie: %w", err)
	}

	c, err := wireClient(store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(store *dbRedis.Store, cfg *clientConfig) (*Client, error) {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	movies := movierepo.New(store, movierepo.Config{
		IndexName:  cfg.indexName,
		KeyPrefix:  cfg.keyPrefix,
		Dimensions: cfg.dimensions,
		EFRuntime:  cfg.efRuntime,
	})

	emb := &embedderAdapter{inner: cfg.embedder}
	searchSvc := searchuc.New(retrieval.NewDense(emb, movies), retrieval.NewSparse(movies), searchuc.Config{
		SourceLimit:     cfg.sourceLimit,
		TopK:            cfg.topK,
		OnSourceFailure: searchuc.FailurePolicy(cfg.onSourceFailure),
	}, logger)

	c := &Client{
		store:     store,
		movies:    movies,
		searchSvc: searchSvc,
		obs:       obs,
	}
	if cfg.generator != nil {
		c.chatSvc = chatuc.New(searchSvc, &generatorAdapter{inner: cfg.generator}, nil, chatuc.Config{
			SystemInstruction: cfg.systemInstruction,
			TopK:              cfg.topK,
		}, logger)
	}
	return c, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// EnsureIndex creates an empty movie index if missing. Returns true if created.
func (c *Client) EnsureIndex(ctx context.Context) (bool, error) {
	start := time.Now()
	created, err := c.movies.EnsureIndex(ctx)
	c.obs.observe("ensure_index", start, err)
	if err != nil {
		return false, fmt.Errorf("ensure index: %w", err)
	}
	return created, nil
}

// Count returns the number of indexed movies.
func (c *Client) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := c.movies.Count(ctx)
	c.obs.observe("count", start, err)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Search returns the fused dense and keyword matches for query.
// limit <= 0 uses the configured top-K.
func (c *Client) Search(ctx context.Context, query string, limit int) (SearchResult, error) {
	start := time.Now()
	r, err := c.searchSvc.Retrieve(ctx, query, limit)
	c.obs.observe("search", start, err)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	return SearchResult{
		Matches:       toMatches(r.Matches),
		Degraded:      r.Degraded,
		FailedSources: r.FailedSources,
	}, nil
}

// Chat answers message given the prior turns. The client keeps no
// conversation state; callers pass the history they want considered.
func (c *Client) Chat(ctx context.Context, message string, history []Turn) (ChatReply, error) {
	if c.chatSvc == nil {
		return ChatReply{}, ErrChatNotConfigured
	}
	start := time.Now()
	r, err := c.chatSvc.Reply(ctx, message, toDomainTurns(history))
	c.obs.observe("chat", start, err)
	if err != nil {
		return ChatReply{}, fmt.Errorf("chat: %w", err)
	}
	return ChatReply{
		ID:       r.ID,
		Text:     r.Text,
		Degraded: r.Degraded,
		Matches:  toMatches(r.Matches),
	}, nil
}

func toDomainTurns(history []Turn) []domchat.Turn {
	out := make([]domchat.Turn, len(history))
	for i, t := range history {
		out[i] = domchat.Turn{Role: domchat.Role(t.Role), Text: t.Text}
	}
	return out
}

// embedderAdapter wraps the public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// generatorAdapter wraps the public Generator to satisfy chat.Generator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, p domchat.Prompt) (domchat.Completion, error) {
	history := make([]Turn, len(p.History))
	for i, t := range p.History {
		history[i] = Turn{Role: Role(t.Role), Text: t.Text}
	}
	c, err := a.inner.Generate(ctx, Prompt{System: p.System, History: history, User: p.User})
	if err != nil {
		return domchat.Completion{}, fmt.Errorf("generate: %w", err)
	}
	return domchat.Completion{
		Text:             c.Text,
		PromptTokens:     c.PromptTokens,
		CompletionTokens: c.CompletionTokens,
	}, nil
}
