// Package orchestrator implements the generation fallback orchestrator: per
// request it picks among cached results, remote services, the local engine
// and a hedged combination, deduplicates concurrent identical requests, and
// always resolves to a usable pattern.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"emojigen/internal/cache"
	"emojigen/internal/core"
	"emojigen/internal/services"
)

// Config wires the orchestrator's collaborators. All fields except Logger
// and Hybrid are required.
type Config struct {
	Registry *services.Registry
	Tracker  *services.Tracker
	Engine   core.LocalEngine
	Cache    cache.Store
	Hybrid   HybridPolicy
	Logger   *slog.Logger

	// CacheTTL overrides the store's default TTL for entries written by
	// strategies. Zero keeps the default.
	CacheTTL time.Duration
}

// Orchestrator owns all mutable generation state: the in-flight request
// group, health tracker, rate limiters (via the registry), cache and
// metrics. Construct one instance at startup and inject it into callers;
// there is no package-level singleton.
type Orchestrator struct {
	registry *services.Registry
	tracker  *services.Tracker
	engine   core.LocalEngine
	store    cache.Store
	hybrid   HybridPolicy
	cacheTTL time.Duration
	metrics  *Metrics
	logger   *slog.Logger

	flight singleflight.Group
}

// New creates an orchestrator from its configuration.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hybrid := cfg.Hybrid
	if hybrid == (HybridPolicy{}) {
		hybrid = DefaultHybridPolicy()
	}
	return &Orchestrator{
		registry: cfg.Registry,
		tracker:  cfg.Tracker,
		engine:   cfg.Engine,
		store:    cfg.Cache,
		hybrid:   hybrid,
		cacheTTL: cfg.CacheTTL,
		metrics:  NewMetrics(),
		logger:   logger,
	}
}

// Metrics exposes the orchestrator's metrics, e.g. for the /metrics
// endpoint.
func (o *Orchestrator) Metrics() *Metrics { return o.metrics }

// Generate resolves a request to a result. It never fails: strategy errors
// are swallowed internally and the worst case is the hard-coded emergency
// pattern at the guaranteed quality floor.
//
// Concurrent calls with an identical request fingerprint share one
// resolution; the in-flight entry is dropped once it resolves, so a later
// identical call starts fresh work (caching is a separate, explicit
// strategy).
func (o *Orchestrator) Generate(ctx context.Context, req *core.GenerationRequest, gc core.GenerationContext) *core.FallbackResult {
	if req == nil {
		req = &core.GenerationRequest{}
	}
	gc = gc.WithDefaults()

	key := req.Fingerprint()
	v, _, shared := o.flight.Do(key, func() (any, error) {
		return o.resolve(ctx, req, gc), nil
	})
	if shared {
		o.logger.Debug("request deduplicated", "fingerprint", key)
	}
	return v.(*core.FallbackResult)
}

// resolve walks the strategy plan in descending priority order and returns
// the first acceptable result, falling back to the local engine and finally
// the emergency pattern.
func (o *Orchestrator) resolve(ctx context.Context, req *core.GenerationRequest, gc core.GenerationContext) *core.FallbackResult {
	start := time.Now()

	for _, s := range o.buildPlan(gc) {
		res, err := s.attempt(ctx, req, gc)
		if err != nil {
			o.logger.Debug("strategy failed",
				"strategy", s.name(),
				"error", err,
			)
			continue
		}
		if !acceptable(res, gc) {
			o.logger.Debug("strategy result below thresholds",
				"strategy", s.name(),
				"quality", res.Quality,
				"response_time", res.ResponseTime,
			)
			continue
		}

		o.recordResolved(res, start, false)
		o.logger.Info("request resolved",
			"strategy", s.name(),
			"source", res.Source,
			"quality", res.Quality,
			"response_time", res.ResponseTime,
		)
		return res
	}

	return o.finalFallback(ctx, req, start)
}

// acceptable reports whether a strategy result satisfies the caller's
// quality and latency thresholds.
func acceptable(res *core.FallbackResult, gc core.GenerationContext) bool {
	return res.Quality >= gc.QualityThreshold && res.ResponseTime <= gc.MaxLatency
}

// finalFallback invokes the local engine with complexity forced to simple.
// The engine never fails by contract; if it does anyway, the hard-coded
// emergency pattern resolves the call.
func (o *Orchestrator) finalFallback(ctx context.Context, req *core.GenerationRequest, start time.Time) *core.FallbackResult {
	o.logger.Warn("all strategies failed, running final fallback")

	lr, err := o.engine.Generate(ctx, req.WithComplexity(core.ComplexitySimple))
	if err == nil && lr != nil {
		res := &core.FallbackResult{
			Pattern:      lr.Pattern,
			Source:       core.SourceLocal,
			Quality:      lr.Confidence,
			ResponseTime: time.Since(start),
			Cost:         0,
			Rationale:    lr.Rationale,
			Alternatives: lr.Alternatives,
		}
		o.recordResolved(res, start, false)
		return res
	}

	o.logger.Error("local engine failed in final fallback", "error", err)
	res := emergencyResult(time.Since(start))
	o.recordResolved(res, start, true)
	return res
}

// emergencyResult is the absolute terminal case: a pre-validated minimal
// pattern at the guaranteed quality floor. It must never itself fail.
func emergencyResult(elapsed time.Duration) *core.FallbackResult {
	return &core.FallbackResult{
		Pattern: core.Pattern{
			Name:       "emergency stars",
			Emojis:     []string{"⭐", "✨", "💫", "🌟"},
			Theme:      "stars",
			Complexity: core.ComplexitySimple,
		},
		Source:       core.SourceLocal,
		Quality:      core.QualityFloor,
		ResponseTime: elapsed,
		Cost:         0,
		Rationale:    "Emergency fallback: every generation strategy failed. / 緊急フォールバック:すべての生成手段が失敗しました。",
	}
}

// recordResolved updates metrics for one resolved call. Non-remote sources
// are credited the cost a remote call would have incurred.
func (o *Orchestrator) recordResolved(res *core.FallbackResult, start time.Time, emergency bool) {
	o.metrics.RecordRequest(time.Since(start))
	o.metrics.RecordResult(res.Source, o.savedCost(res))
	if emergency {
		o.metrics.RecordEmergency()
	}
}

// savedCost estimates the remote cost avoided by a non-remote result: the
// cost per call of the highest-priority registered remote service.
func (o *Orchestrator) savedCost(res *core.FallbackResult) float64 {
	if res.Source == core.SourceAPI {
		return 0
	}
	for _, svc := range o.registry.Services() {
		if c := svc.CostPerCall(); c > 0 {
			return c
		}
	}
	return 0
}

// SystemHealth is the operational snapshot exposed by the health endpoint.
type SystemHealth struct {
	Online   bool                         `json:"online"`
	Services map[string]core.HealthRecord `json:"services"`
	Metrics  MetricsSnapshot              `json:"metrics"`
	Cache    cache.Stats                  `json:"cache"`
}

// SystemHealth returns the current health of the whole generation system.
// Online means at least one registered remote service is currently healthy.
func (o *Orchestrator) SystemHealth() SystemHealth {
	snapshot := o.tracker.Snapshot()

	online := false
	for _, rec := range snapshot {
		if rec.Healthy {
			online = true
			break
		}
	}

	return SystemHealth{
		Online:   online,
		Services: snapshot,
		Metrics:  o.metrics.Snapshot(),
		Cache:    o.store.Stats(),
	}
}
