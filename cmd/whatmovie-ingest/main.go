// Command whatmovie-ingest loads the TMDB movie dataset into the Redis index.
//
// Usage:
//
//	whatmovie-ingest -file TMDB_movie_dataset_v11.csv -workers 4 -batch-size 100
//
// Connection and provider settings come from config/<ENV>.yaml, as for the API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/whatmovie/internal/config"
	dbRedis "github.com/kailas-cloud/whatmovie/internal/db/redis"
	"github.com/kailas-cloud/whatmovie/internal/domain"
	logpkg "github.com/kailas-cloud/whatmovie/internal/logger"
	"github.com/kailas-cloud/whatmovie/internal/metrics"
	movierepo "github.com/kailas-cloud/whatmovie/internal/repository/movie"
	openaiTransport "github.com/kailas-cloud/whatmovie/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/whatmovie/internal/usecase/embedding"
	"github.com/kailas-cloud/whatmovie/internal/usecase/ingest"
	"github.com/kailas-cloud/whatmovie/internal/version"
)

type flags struct {
	file        string
	workers     int
	batchSize   int
	maxMovies   int
	recreate    bool
	metricsPort string
}

func parseFlags() flags {
	f := flags{}
	flag.StringVar(&f.file, "file", "TMDB_movie_dataset_v11.csv", "path to the TMDB CSV export")
	flag.IntVar(&f.workers, "workers", ingest.DefaultWorkers, "number of parallel embed+store workers")
	flag.IntVar(&f.batchSize, "batch-size", ingest.DefaultBatchSize, "movies per embedding batch")
	flag.IntVar(&f.maxMovies, "max-movies", 0, "stop after N admitted movies (0=all)")
	flag.BoolVar(&f.recreate, "recreate", false, "drop the index and its movies before loading")
	flag.StringVar(&f.metricsPort, "metrics-port", "", "serve Prometheus metrics on this port while loading")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, f); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, "whatmovie-ingest:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, "whatmovie-ingest", cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ingest", append(version.Fields(),
		zap.String("file", f.file),
		zap.Int("workers", f.workers),
		zap.Int("batch_size", f.batchSize),
		zap.Bool("recreate", f.recreate),
	)...)

	reg := prometheus.NewRegistry()
	ingestMetrics := metrics.NewIngestMetrics(reg)
	if f.metricsPort != "" {
		srv := serveMetrics(f.metricsPort, reg, logger)
		defer func() {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			_ = srv.Shutdown(shutCtx)
		}()
	}

	// Transport metrics live on the default registry.
	metrics.RegisterEmbeddingMetrics()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Password:   cfg.Database.Password,
		ClientName: "whatmovie-ingest",
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	movies := movierepo.New(store, movierepo.Config{
		IndexName:      cfg.Index.Name,
		KeyPrefix:      cfg.Index.KeyPrefix,
		Dimensions:     cfg.Embedding.Dimensions,
		M:              cfg.Index.HNSWM,
		EFConstruction: cfg.Index.HNSWEFConstruct,
		EFRuntime:      cfg.Index.HNSWEFRuntime,
		Scorer:         cfg.Index.Scorer,
	})

	file, err := os.Open(filepath.Clean(f.file))
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = file.Close() }()

	svc := ingest.New(buildDocumentEmbedder(cfg.Embedding, logger), movies, ingestMetrics, logger)
	sum, err := svc.Run(ctx, file, ingest.Options{
		Workers:   f.workers,
		BatchSize: f.batchSize,
		MaxMovies: f.maxMovies,
		Recreate:  f.recreate,
	})

	logger.Info("Ingest finished",
		zap.Int64("rows_read", sum.RowsRead),
		zap.Int64("rejected", sum.Rejected),
		zap.Int64("duplicates", sum.Duplicates),
		zap.Int64("stored", sum.Stored),
		zap.Int64("failed", sum.Failed),
		zap.Int64("tokens", sum.Tokens),
		zap.Duration("duration", sum.Duration),
	)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	count, err := movies.Count(ctx)
	if err != nil {
		return fmt.Errorf("count movies: %w", err)
	}
	logger.Info("Index ready", zap.String("index", movies.IndexName()), zap.Int("movies", count))

	if sum.Failed > 0 {
		return fmt.Errorf("%d movies failed to load", sum.Failed)
	}
	return nil
}

// buildDocumentEmbedder assembles OpenAI -> Paced -> Instruction.
// Documents are embedded once, so no cache sits in the chain.
func buildDocumentEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) domain.Embedder {
	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})
	embedder = embeddinguc.NewPaced(embedder, embeddinguc.Options{
		Provider:          cfg.Provider,
		Model:             cfg.Model,
		MaxBatchSize:      cfg.MaxBatchSize,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}, logger)
	if cfg.DocumentInstruction != "" {
		return domain.WithInstruction(embedder, cfg.DocumentInstruction)
	}
	return embedder
}

func serveMetrics(port string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{reg, prometheus.DefaultGatherer},
		promhttp.HandlerOpts{},
	))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Metrics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()
	return srv
}
