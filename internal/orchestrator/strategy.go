package orchestrator

import (
	"context"
	"fmt"
	"time"

	"emojigen/internal/cache"
	"emojigen/internal/core"
)

// Strategy priorities. The plan for a call is every strategy with a positive
// priority, attempted in descending order.
const (
	priorityCacheStaleOK    = 100
	priorityCacheStrict     = 60
	priorityAPIPreferred    = 90
	priorityAPIDefault      = 50
	priorityLocalPreferred  = 90
	priorityLocalDefault    = 40
	priorityHybridPreferred = 80
	priorityHybridDefault   = 30
)

// strategy is one pluggable way to satisfy a generation request. attempt
// returns an error for any failure, including normal control-flow signals
// like a cache miss; the orchestrator moves on to the next strategy.
type strategy interface {
	name() string
	priority(gc core.GenerationContext) int
	attempt(ctx context.Context, req *core.GenerationRequest, gc core.GenerationContext) (*core.FallbackResult, error)
}

// buildPlan assembles the priority-sorted strategy list for one call.
func (o *Orchestrator) buildPlan(gc core.GenerationContext) []strategy {
	all := []strategy{
		&cacheFirst{o},
		&apiPrimary{o},
		&localPrimary{o},
		&hybridQuality{o},
	}

	plan := make([]strategy, 0, len(all))
	for _, s := range all {
		if s.priority(gc) > 0 {
			plan = append(plan, s)
		}
	}
	// Insertion sort keeps registration order for equal priorities.
	for i := 1; i < len(plan); i++ {
		for j := i; j > 0 && plan[j].priority(gc) > plan[j-1].priority(gc); j-- {
			plan[j], plan[j-1] = plan[j-1], plan[j]
		}
	}
	return plan
}

// cacheFirst serves a previously generated result from the cache. A miss is
// normal control flow and falls through to the next strategy.
type cacheFirst struct {
	o *Orchestrator
}

func (s *cacheFirst) name() string { return "cache-first" }

func (s *cacheFirst) priority(gc core.GenerationContext) int {
	if gc.StaleOK() {
		return priorityCacheStaleOK
	}
	return priorityCacheStrict
}

func (s *cacheFirst) attempt(ctx context.Context, req *core.GenerationRequest, gc core.GenerationContext) (*core.FallbackResult, error) {
	start := time.Now()
	entry, ok := s.o.store.Get(ctx, req.Fingerprint(), gc.StaleOK())
	if !ok {
		return nil, core.ErrCacheMiss
	}

	return &core.FallbackResult{
		Pattern:      entry.Payload.Pattern,
		Source:       core.SourceCache,
		Quality:      entry.Payload.Confidence,
		ResponseTime: time.Since(start),
		Cost:         0,
		Rationale:    "Served from the result cache. / 結果キャッシュから提供しました。",
		Alternatives: entry.Payload.Alternatives,
	}, nil
}

// apiPrimary calls the highest-priority healthy remote service, bounded by
// the caller's latency budget. Failures degrade the service's health record.
type apiPrimary struct {
	o *Orchestrator
}

func (s *apiPrimary) name() string { return "api-primary" }

func (s *apiPrimary) priority(gc core.GenerationContext) int {
	if gc.Offline {
		return 0
	}
	if gc.Preference == core.PreferAPIFirst {
		return priorityAPIPreferred
	}
	return priorityAPIDefault
}

func (s *apiPrimary) attempt(ctx context.Context, req *core.GenerationRequest, gc core.GenerationContext) (*core.FallbackResult, error) {
	if gc.Offline {
		return nil, core.NewUnavailableError("api-primary", "offline mode")
	}

	svc := s.selectService(ctx)
	if svc == nil {
		return nil, core.NewUnavailableError("api-primary", "no healthy service available")
	}

	if limiter := s.o.registry.Limiter(svc.Name()); limiter != nil && !limiter.Allow() {
		return nil, core.NewRateLimitedError(svc.Name())
	}

	callCtx, cancel := context.WithTimeout(ctx, gc.MaxLatency)
	defer cancel()

	start := time.Now()
	resp, err := svc.Generate(callCtx, req)
	elapsed := time.Since(start)
	if err != nil {
		s.o.tracker.RecordFailure(svc.Name(), err)
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		err := core.NewMalformedError(svc.Name(), "response carried no candidates", nil)
		s.o.tracker.RecordFailure(svc.Name(), err)
		return nil, err
	}
	s.o.tracker.RecordSuccess(svc.Name(), elapsed)

	primary := resp.Candidates[0]
	pattern := candidatePattern(primary, req)
	alternatives := make([]core.Pattern, 0, len(resp.Candidates)-1)
	for _, c := range resp.Candidates[1:] {
		alternatives = append(alternatives, candidatePattern(c, req))
	}

	s.o.store.Set(ctx, req.Fingerprint(), cache.Payload{
		Pattern:      pattern,
		Confidence:   primary.Confidence,
		Alternatives: alternatives,
	}, cache.Options{
		TTL:     s.o.cacheTTL,
		Quality: primary.Confidence,
		Source:  core.SourceAPI,
	})

	return &core.FallbackResult{
		Pattern:      pattern,
		Source:       core.SourceAPI,
		Quality:      primary.Confidence,
		ResponseTime: elapsed,
		Cost:         svc.CostPerCall(),
		Rationale: fmt.Sprintf("Generated by the %s service. / %s サービスが生成しました。",
			svc.Name(), svc.Name()),
		Alternatives: alternatives,
	}, nil
}

// selectService returns the highest-priority registered service that is both
// available and currently healthy, or nil when none qualifies. The registry
// snapshot is already sorted by descending priority.
func (s *apiPrimary) selectService(ctx context.Context) core.Service {
	for _, svc := range s.o.registry.Services() {
		if svc.IsAvailable(ctx) && s.o.tracker.IsHealthy(svc.Name()) {
			return svc
		}
	}
	return nil
}

// candidatePattern converts a remote candidate into the common pattern
// shape, carrying over the request's theme and complexity.
func candidatePattern(c core.PatternCandidate, req *core.GenerationRequest) core.Pattern {
	return core.Pattern{
		Name:       c.Name,
		Emojis:     c.Emojis,
		Theme:      req.Theme,
		Complexity: req.Complexity,
	}
}

// localPrimary invokes the local generation engine, which by contract never
// fails for a valid request.
type localPrimary struct {
	o *Orchestrator
}

func (s *localPrimary) name() string { return "local-primary" }

func (s *localPrimary) priority(gc core.GenerationContext) int {
	if gc.Preference == core.PreferLocalFirst {
		return priorityLocalPreferred
	}
	return priorityLocalDefault
}

func (s *localPrimary) attempt(ctx context.Context, req *core.GenerationRequest, _ core.GenerationContext) (*core.FallbackResult, error) {
	start := time.Now()
	lr, err := s.o.engine.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	s.o.store.Set(ctx, req.Fingerprint(), cache.Payload{
		Pattern:      lr.Pattern,
		Confidence:   lr.Confidence,
		Alternatives: lr.Alternatives,
	}, cache.Options{
		TTL:     s.o.cacheTTL,
		Quality: lr.Confidence,
		Source:  core.SourceLocal,
	})

	return &core.FallbackResult{
		Pattern:      lr.Pattern,
		Source:       core.SourceLocal,
		Quality:      lr.Confidence,
		ResponseTime: elapsed,
		Cost:         0,
		Rationale:    lr.Rationale,
		Alternatives: lr.Alternatives,
	}, nil
}
