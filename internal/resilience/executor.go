// Package resilience guards calls to remote backends with bounded retries
// and a per-operation circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var errNilOperation = errors.New("resilience: operation callback is nil")

// ErrorClassification tells the executor how to treat a failed attempt.
type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

// ErrorClassifier maps an error to its classification.
type ErrorClassifier func(err error) ErrorClassification

// Executor runs operations through retries and named circuit breakers.
type Executor struct {
	retry   RetryPolicy
	breaker BreakerPolicy
	logger  *zap.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

// NewExecutor creates an executor; unset config fields take DefaultConfig values.
func NewExecutor(cfg Config, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.normalize()
	return &Executor{
		retry:    cfg.Retry,
		breaker:  cfg.Breaker,
		logger:   logger,
		breakers: map[string]*gobreaker.CircuitBreaker[struct{}]{},
	}
}

// Execute runs fn under the breaker named operation. A nil classifier uses
// TransientClassifier. The breaker sees one outcome per Execute, after retries.
func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	if fn == nil {
		return errNilOperation
	}
	if classifier == nil {
		classifier = TransientClassifier
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}

	attempt := func() error { return e.withRetry(ctx, op, fn, classifier) }
	if !e.breaker.Enabled {
		return attempt()
	}

	if _, err := e.breakerFor(op, classifier).Execute(func() (struct{}, error) {
		return struct{}{}, attempt()
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// State reports the breaker state for operation ("closed" if never used).
func (e *Executor) State(operation string) gobreaker.State {
	e.mu.Lock()
	b, ok := e.breakers[operation]
	e.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return b.State()
}

func (e *Executor) withRetry(
	ctx context.Context,
	op string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	var last error
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return last
			}
			return err //nolint:wrapcheck // context errors are returned as-is
		}

		last = fn(ctx)
		if last == nil {
			return nil
		}
		if n >= e.retry.MaxAttempts || !classifier(last).Retryable {
			return last
		}

		wait := e.retry.backoff(n)
		e.logger.Warn("Retrying operation",
			zap.String("operation", op),
			zap.Int("attempt", n),
			zap.Int("max_attempts", e.retry.MaxAttempts),
			zap.Duration("backoff", wait),
			zap.Error(last),
		)
		if !sleep(ctx, wait) {
			return last
		}
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (e *Executor) breakerFor(op string, classifier ErrorClassifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.breakers[op]; ok {
		return b
	}

	b := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        op,
		MaxRequests: e.breaker.HalfOpenMaxCalls,
		Timeout:     e.breaker.OpenTimeout,
		ReadyToTrip: e.breaker.shouldTrip,
		IsSuccessful: func(err error) bool {
			return err == nil || !classifier(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("Circuit breaker state changed",
				zap.String("operation", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
	e.breakers[op] = b
	return b
}

// IsCircuitOpen reports whether err was produced by an open or saturated breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// TransientClassifier retries everything except caller cancellation, which is
// also not counted against the breaker.
func TransientClassifier(err error) ErrorClassification {
	switch {
	case errors.Is(err, context.Canceled):
		return ErrorClassification{}
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorClassification{RecordFailure: true}
	default:
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
}

// PermanentClassifier never retries and counts every failure.
func PermanentClassifier(error) ErrorClassification {
	return ErrorClassification{RecordFailure: true}
}
