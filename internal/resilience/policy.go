package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// RetryPolicy bounds how often and how fast a failed call is repeated.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// BreakerPolicy configures the breaker kept per operation name.
type BreakerPolicy struct {
	Enabled          bool
	MinRequests      uint32
	FailureRatio     float64
	OpenTimeout      time.Duration
	HalfOpenMaxCalls uint32
}

// Config combines both policies.
type Config struct {
	Retry   RetryPolicy
	Breaker BreakerPolicy
}

// DefaultConfig returns the settings used when config leaves a field unset.
func DefaultConfig() Config {
	return Config{
		Retry: RetryPolicy{
			MaxAttempts:    2,
			InitialBackoff: 50 * time.Millisecond,
			MaxBackoff:     200 * time.Millisecond,
			Multiplier:     2,
		},
		Breaker: BreakerPolicy{
			Enabled:          true,
			MinRequests:      10,
			FailureRatio:     0.5,
			OpenTimeout:      30 * time.Second,
			HalfOpenMaxCalls: 2,
		},
	}
}

// backoff is the wait before attempt+1; attempt counts from 1.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	wait := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		wait *= p.Multiplier
		if wait >= float64(p.MaxBackoff) {
			return p.MaxBackoff
		}
	}
	return min(time.Duration(wait), p.MaxBackoff)
}

func (p RetryPolicy) withDefaults(def RetryPolicy) RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	p.MaxBackoff = max(p.MaxBackoff, p.InitialBackoff)
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	return p
}

// shouldTrip opens the breaker once enough calls were seen and the failure
// share reaches FailureRatio.
func (p BreakerPolicy) shouldTrip(counts gobreaker.Counts) bool {
	if counts.Requests == 0 || counts.Requests < p.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= p.FailureRatio
}

func (p BreakerPolicy) withDefaults(def BreakerPolicy) BreakerPolicy {
	if p.MinRequests == 0 {
		p.MinRequests = def.MinRequests
	}
	if p.FailureRatio <= 0 || p.FailureRatio > 1 {
		p.FailureRatio = def.FailureRatio
	}
	if p.OpenTimeout <= 0 {
		p.OpenTimeout = def.OpenTimeout
	}
	if p.HalfOpenMaxCalls == 0 {
		p.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return p
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	return Config{
		Retry:   c.Retry.withDefaults(def.Retry),
		Breaker: c.Breaker.withDefaults(def.Breaker),
	}
}
