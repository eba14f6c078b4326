package config

import (
	"fmt"
	"os"
)

// Retrieval failure policies.
const (
	OnSourceFailureFallback = "fallback"
	OnSourceFailureFail     = "fail"
)

// Config holds the whatmovie configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Index      IndexConfig      `yaml:"index"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the embedding provider and vectorizer settings.
type EmbeddingConfig struct {
	Provider            string  `yaml:"provider"`
	APIKey              string  `yaml:"api_key"`
	BaseURL             string  `yaml:"base_url"`
	Model               string  `yaml:"model"`
	Dimensions          int     `yaml:"dimensions"`
	DocumentInstruction string  `yaml:"document_instruction"`
	QueryInstruction    string  `yaml:"query_instruction"`
	CacheTTLSec         int     `yaml:"cache_ttl_sec"` // 0 = no expiry
	MaxBatchSize        int     `yaml:"max_batch_size"`
	RequestsPerSecond   float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst               int     `yaml:"burst"`
}

// GenerationConfig holds the chat model settings.
type GenerationConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	Temperature       float32 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	SystemInstruction string  `yaml:"system_instruction"` // empty = built-in WhatMovie persona
	MaxMessageLength  int     `yaml:"max_message_length"`
	MaxHistoryTurns   int     `yaml:"max_history_turns"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// RetrievalConfig tunes hybrid retrieval and fusion.
type RetrievalConfig struct {
	SourceLimit     int    `yaml:"source_limit"`
	TopK            int    `yaml:"top_k"`
	RRFK            int    `yaml:"rrf_k"`
	SourceTimeoutMs int    `yaml:"source_timeout_ms"`
	OnSourceFailure string `yaml:"on_source_failure"` // fallback | fail
}

// ResilienceConfig holds retry and circuit breaker settings for outbound calls.
type ResilienceConfig struct {
	RetryMaxAttempts        int     `yaml:"retry_max_attempts"`
	RetryInitialBackoffMs   int     `yaml:"retry_initial_backoff_ms"`
	RetryMaxBackoffMs       int     `yaml:"retry_max_backoff_ms"`
	BreakerEnabled          *bool   `yaml:"breaker_enabled"`
	BreakerMinRequests      uint32  `yaml:"breaker_min_requests"`
	BreakerFailureRatio     float64 `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeoutSec   int     `yaml:"breaker_open_timeout_sec"`
	BreakerHalfOpenMaxCalls uint32  `yaml:"breaker_half_open_max_calls"`
}

// IndexConfig holds the movie index layout.
type IndexConfig struct {
	Name            string `yaml:"name"`
	KeyPrefix       string `yaml:"key_prefix"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	HNSWEFRuntime   int    `yaml:"hnsw_ef_runtime"`
	Scorer          string `yaml:"scorer"` // BM25STD, BM25, TFIDF (empty = server default)
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}

	if c.Generation.Model == "" {
		c.Generation.Model = "gemini-2.0-flash-001"
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 30
	}

	if c.Retrieval.SourceLimit <= 0 {
		c.Retrieval.SourceLimit = 50
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 10
	}
	if c.Retrieval.RRFK <= 0 {
		c.Retrieval.RRFK = 60
	}
	if c.Retrieval.SourceTimeoutMs <= 0 {
		c.Retrieval.SourceTimeoutMs = 2000
	}
	if c.Retrieval.OnSourceFailure == "" {
		c.Retrieval.OnSourceFailure = OnSourceFailureFallback
	}

	if c.Resilience.BreakerEnabled == nil {
		enabled := true
		c.Resilience.BreakerEnabled = &enabled
	}

	if c.Index.Name == "" {
		c.Index.Name = "whatmovie:movies"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "whatmovie:"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Retrieval.OnSourceFailure {
	case OnSourceFailureFallback, OnSourceFailureFail:
	default:
		return fmt.Errorf("retrieval.on_source_failure must be %q or %q, got %q",
			OnSourceFailureFallback, OnSourceFailureFail, c.Retrieval.OnSourceFailure)
	}
	if c.Retrieval.TopK > c.Retrieval.SourceLimit {
		return fmt.Errorf("retrieval.top_k (%d) must not exceed retrieval.source_limit (%d)",
			c.Retrieval.TopK, c.Retrieval.SourceLimit)
	}
	if r := c.Resilience.BreakerFailureRatio; r < 0 || r > 1 {
		return fmt.Errorf("resilience.breaker_failure_ratio must be within [0, 1], got %g", r)
	}
	if t := c.Generation.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("generation.temperature must be within [0, 2], got %g", t)
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("embedding.requests_per_second must not be negative")
	}
	return nil
}
