package config

import (
	"time"

	"github.com/kailas-cloud/whatmovie/internal/resilience"
)

// ResiliencePolicy converts the YAML settings into a resilience.Config.
// Zero values fall back to resilience defaults.
func (c ResilienceConfig) ResiliencePolicy() resilience.Config {
	return resilience.Config{
		Retry: resilience.RetryPolicy{
			MaxAttempts:    c.RetryMaxAttempts,
			InitialBackoff: time.Duration(c.RetryInitialBackoffMs) * time.Millisecond,
			MaxBackoff:     time.Duration(c.RetryMaxBackoffMs) * time.Millisecond,
		},
		Breaker: resilience.BreakerPolicy{
			Enabled:          c.BreakerEnabled == nil || *c.BreakerEnabled,
			MinRequests:      c.BreakerMinRequests,
			FailureRatio:     c.BreakerFailureRatio,
			OpenTimeout:      time.Duration(c.BreakerOpenTimeoutSec) * time.Second,
			HalfOpenMaxCalls: c.BreakerHalfOpenMaxCalls,
		},
	}
}

// SourceTimeout returns the per-source retrieval deadline.
func (c RetrievalConfig) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutMs) * time.Millisecond
}

// CacheTTL returns the embedding cache expiry.
func (c EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}
