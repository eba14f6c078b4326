package whatmovie

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	embedder  Embedder
	generator Generator

	indexName  string
	keyPrefix  string
	dimensions int
	efRuntime  int

	sourceLimit       int
	topK              int
	onSourceFailure   string
	systemInstruction string

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithRedis sets the Redis 8 address holding the movie index.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the query embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator enables Chat. Without it only Search is available.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithIndex selects the FT index and key prefix written by whatmovie-ingest.
// Defaults: "whatmovie:movies" and "whatmovie:".
func WithIndex(name, keyPrefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
		c.keyPrefix = keyPrefix
	})
}

// WithVectorDimensions must match the dimensions the index was built with.
// Defaults to 1536.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithEFRuntime sets the HNSW EF_RUNTIME used by the dense source.
func WithEFRuntime(ef int) Option {
	return optionFunc(func(c *clientConfig) {
		c.efRuntime = ef
	})
}

// WithRetrieval sets how many hits each source returns and how many fused
// matches are kept.
func WithRetrieval(sourceLimit, topK int) Option {
	return optionFunc(func(c *clientConfig) {
		c.sourceLimit = sourceLimit
		c.topK = topK
	})
}

// WithFailOnSourceError makes a single failed source fail the whole retrieval
// instead of degrading to the other one.
func WithFailOnSourceError() Option {
	return optionFunc(func(c *clientConfig) {
		c.onSourceFailure = "fail"
	})
}

// WithSystemInstruction overrides the assistant persona.
func WithSystemInstruction(s string) Option {
	return optionFunc(func(c *clientConfig) {
		c.systemInstruction = s
	})
}

// WithLogger enables structured logging for client operations.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
