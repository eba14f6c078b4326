package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/whatmovie/internal/config"
	dbRedis "github.com/kailas-cloud/whatmovie/internal/db/redis"
	"github.com/kailas-cloud/whatmovie/internal/domain"
	logpkg "github.com/kailas-cloud/whatmovie/internal/logger"
	"github.com/kailas-cloud/whatmovie/internal/metrics"
	"github.com/kailas-cloud/whatmovie/internal/repository/embcache"
	movierepo "github.com/kailas-cloud/whatmovie/internal/repository/movie"
	"github.com/kailas-cloud/whatmovie/internal/resilience"
	chiTransport "github.com/kailas-cloud/whatmovie/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/whatmovie/internal/transport/openai"
	chatuc "github.com/kailas-cloud/whatmovie/internal/usecase/chat"
	embeddinguc "github.com/kailas-cloud/whatmovie/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/whatmovie/internal/usecase/health"
	"github.com/kailas-cloud/whatmovie/internal/usecase/retrieval"
	searchuc "github.com/kailas-cloud/whatmovie/internal/usecase/search"
	"github.com/kailas-cloud/whatmovie/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, "whatmovie", cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting whatmovie API server", append(version.Fields(),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("on_source_failure", cfg.Retrieval.OnSourceFailure),
	)...)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Password:   cfg.Database.Password,
		ClientName: "whatmovie-api",
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()
	metrics.RegisterGenerationMetrics()

	movies := movierepo.New(store, movierepo.Config{
		IndexName:      cfg.Index.Name,
		KeyPrefix:      cfg.Index.KeyPrefix,
		Dimensions:     cfg.Embedding.Dimensions,
		M:              cfg.Index.HNSWM,
		EFConstruction: cfg.Index.HNSWEFConstruct,
		EFRuntime:      cfg.Index.HNSWEFRuntime,
		Scorer:         cfg.Index.Scorer,
	})
	if created, err := movies.EnsureIndex(ctx); err != nil {
		logger.Fatal("Movie index unavailable", zap.Error(err))
	} else if created {
		logger.Warn("Movie index was missing and has been created empty; run whatmovie-ingest",
			zap.String("index", movies.IndexName()))
	}

	queryEmbedder := buildQueryEmbedder(cfg.Embedding, cfg.Index.KeyPrefix, store, logger)

	exec := resilience.NewExecutor(cfg.Resilience.ResiliencePolicy(), logger)

	dense := retrieval.NewGuarded(retrieval.NewDense(queryEmbedder, movies), exec, logger)
	sparse := retrieval.NewGuarded(retrieval.NewSparse(movies), exec, logger)
	searchSvc := searchuc.New(dense, sparse, searchuc.Config{
		SourceLimit:     cfg.Retrieval.SourceLimit,
		TopK:            cfg.Retrieval.TopK,
		RRFK:            cfg.Retrieval.RRFK,
		SourceTimeout:   cfg.Retrieval.SourceTimeout(),
		OnSourceFailure: searchuc.FailurePolicy(cfg.Retrieval.OnSourceFailure),
	}, logger)

	generator := openaiTransport.NewChatGenerator(&openaiTransport.ChatConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Timeout:     time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Logger:      logger,
	})
	chatSvc := chatuc.New(searchSvc, generator, exec, chatuc.Config{
		SystemInstruction: cfg.Generation.SystemInstruction,
		TopK:              cfg.Retrieval.TopK,
		MaxMessageLength:  cfg.Generation.MaxMessageLength,
		MaxHistoryTurns:   cfg.Generation.MaxHistoryTurns,
	}, logger)

	healthSvc := healthuc.New(healthuc.Deps{
		DB:         store,
		Index:      movies,
		Embedding:  newProviderChecker(queryEmbedder),
		Generation: generator,
	})

	server := chiTransport.NewServer(chatSvc, searchSvc, healthSvc, logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterOptions{
		APIKeys: cfg.Auth.APIKeys,
		Logger:  logger,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// providerChecker adapts an embedder chain to health.ProviderChecker.
type providerChecker struct {
	embedder domain.Embedder
}

func newProviderChecker(embedder domain.Embedder) *providerChecker {
	return &providerChecker{embedder: embedder}
}

func (h *providerChecker) HealthCheck(ctx context.Context) error {
	if err := domain.CheckHealth(ctx, h.embedder); err != nil {
		return fmt.Errorf("embedding health check: %w", err)
	}
	return nil
}

// buildQueryEmbedder assembles the decorator chain: OpenAI -> Cached -> Paced -> Instruction
func buildQueryEmbedder(
	cfg config.EmbeddingConfig,
	keyPrefix string,
	store *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = embcache.New(base, store, embcache.Options{
		KeyPrefix: keyPrefix,
		TTL:       cfg.CacheTTL(),
	}, metrics.EmbeddingCacheTotal, logger)

	embedder = embeddinguc.NewPaced(embedder, embeddinguc.Options{
		Provider:          cfg.Provider,
		Model:             cfg.Model,
		MaxBatchSize:      cfg.MaxBatchSize,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}, logger)

	// Instruction prefix is outermost so the cache key includes it.
	if cfg.QueryInstruction != "" {
		return domain.WithInstruction(embedder, cfg.QueryInstruction)
	}
	return embedder
}
