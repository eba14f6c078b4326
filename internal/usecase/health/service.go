package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means answers are still possible with reduced quality.
	Degraded Status = "degraded"
	// Unhealthy means the movie index cannot be searched at all.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as report keys.
const (
	ComponentDatabase   = "database"
	ComponentIndex      = "index"
	ComponentEmbedding  = "embedding"
	ComponentGeneration = "generation"
)

const defaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Movies int
}

// Service coordinates health checks.
type Service struct {
	db         DBPinger
	index      IndexCounter
	embedding  ProviderChecker
	generation ProviderChecker
	timeout    time.Duration
}

// Deps lists the checked components. Only DB is required.
type Deps struct {
	DB         DBPinger
	Index      IndexCounter
	Embedding  ProviderChecker
	Generation ProviderChecker
	Timeout    time.Duration
}

// New creates a Service.
func New(d Deps) *Service {
	if d.Timeout <= 0 {
		d.Timeout = defaultCheckTimeout
	}
	return &Service{
		db:         d.DB,
		index:      d.Index,
		embedding:  d.Embedding,
		generation: d.Generation,
		timeout:    d.Timeout,
	}
}

// Check runs health checks against all components.
// Database or index failure is Unhealthy; a provider failure only Degraded,
// since keyword search keeps working without embeddings.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	report := Report{Status: Healthy, Checks: checks}

	checks[ComponentDatabase] = s.run(ctx, s.db.Ping)

	if s.index != nil {
		checks[ComponentIndex] = s.run(ctx, func(ctx context.Context) error {
			n, err := s.index.Count(ctx)
			report.Movies = n
			return err
		})
	}
	if s.embedding != nil {
		checks[ComponentEmbedding] = s.run(ctx, s.embedding.HealthCheck)
	}
	if s.generation != nil {
		checks[ComponentGeneration] = s.run(ctx, s.generation.HealthCheck)
	}

	for name, v := range checks {
		if v != CheckError {
			continue
		}
		if name == ComponentDatabase || name == ComponentIndex {
			report.Status = Unhealthy
			break
		}
		report.Status = Degraded
	}

	return report
}

func (s *Service) run(ctx context.Context, fn func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
