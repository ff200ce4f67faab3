// Package services manages the registered remote generation services:
// the descriptor registry, per-service outbound rate limiting, and health
// tracking with a background probe loop.
package services

import (
	"log/slog"
	"sort"
	"sync"

	"emojigen/internal/core"
)

// Registry holds the registered service descriptors along with their rate
// limiters. Services are registered at startup; the set is read-only
// afterwards.
type Registry struct {
	mu       sync.RWMutex
	services []core.Service
	limiters map[string]*Limiter
}

// NewRegistry creates an empty service registry.
func NewRegistry() *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
	}
}

// Register adds a service descriptor and builds its rate limiter from the
// descriptor's MaxCallsPerMinute. Duplicate names overwrite the limiter but
// keep both descriptors out of caution; the first registration wins during
// selection.
func (r *Registry) Register(svc core.Service) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.services = append(r.services, svc)
	r.limiters[svc.Name()] = NewLimiter(svc.MaxCallsPerMinute())

	slog.Info("service registered",
		"service", svc.Name(),
		"priority", svc.Priority(),
		"cost_per_call", svc.CostPerCall(),
		"max_calls_per_minute", svc.MaxCallsPerMinute(),
	)
}

// Services returns a snapshot of all registered services sorted by
// descending priority.
func (r *Registry) Services() []core.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.Service, len(r.services))
	copy(out, r.services)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority() > out[j].Priority()
	})
	return out
}

// Limiter returns the rate limiter for the named service, or nil if the
// service is not registered.
func (r *Registry) Limiter(name string) *Limiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[name]
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}
