package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexCounter reports how many movies the search index holds.
type IndexCounter interface {
	Count(ctx context.Context) (int, error)
}

// ProviderChecker checks an external model provider (embedding or generation).
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
