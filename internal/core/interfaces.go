package core

import "context"

// Service is the descriptor for a remote pattern generation service.
// Implementations are registered once at startup; the set of registered
// services is read-only afterwards.
type Service interface {
	// Name returns the unique service name used for health and rate-limit
	// accounting.
	Name() string

	// Priority is the relative selection priority (higher wins).
	Priority() int

	// IsAvailable is a cheap availability probe checked before selection.
	IsAvailable(ctx context.Context) bool

	// Generate executes a generation request against the service and
	// returns a multi-candidate response.
	Generate(ctx context.Context, req *GenerationRequest) (*ServiceResponse, error)

	// HealthCheck probes the service's health endpoint.
	HealthCheck(ctx context.Context) error

	// CostPerCall is the estimated cost of one generate call, 0 for free
	// services.
	CostPerCall() float64

	// MaxCallsPerMinute is the outbound rate limit, 0 for unlimited.
	MaxCallsPerMinute() int
}

// LocalEngine is the deterministic, no-network generation strategy.
// By contract it never fails for any syntactically valid request, including
// an entirely empty one, and responds well under the process's soft latency
// budget.
type LocalEngine interface {
	Generate(ctx context.Context, req *GenerationRequest) (*LocalResult, error)
}
