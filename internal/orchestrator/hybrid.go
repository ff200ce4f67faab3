package orchestrator

import (
	"context"
	"sync"
	"time"

	"emojigen/internal/core"
)

// HybridPolicy tunes how the hybrid strategy picks between a successful API
// result and a successful local result. The numbers are product-tuning
// values, so they are configurable rather than hard-coded.
type HybridPolicy struct {
	// QualityMargin is how much the API quality must exceed the local
	// quality before the API result is preferred.
	QualityMargin float64 `yaml:"quality_margin"`

	// CostAwareMargin replaces QualityMargin when the API call costs money
	// and the local result was clearly faster.
	CostAwareMargin float64 `yaml:"cost_aware_margin"`

	// FastLocalRatio defines "clearly faster": the local response time is
	// under this fraction of the API response time.
	FastLocalRatio float64 `yaml:"fast_local_ratio"`
}

// DefaultHybridPolicy returns the tuned defaults.
func DefaultHybridPolicy() HybridPolicy {
	return HybridPolicy{
		QualityMargin:   0.1,
		CostAwareMargin: 0.3,
		FastLocalRatio:  0.5,
	}
}

// hybridQuality hedges the API and local strategies: both run concurrently,
// either may fail independently, and a policy picks between two successes.
// The loser is not force-terminated; its side effects (cache writes) may
// complete after the winner has been returned.
type hybridQuality struct {
	o *Orchestrator
}

func (s *hybridQuality) name() string { return "hybrid-quality" }

func (s *hybridQuality) priority(gc core.GenerationContext) int {
	if gc.Preference == core.PreferBalanced {
		return priorityHybridPreferred
	}
	return priorityHybridDefault
}

func (s *hybridQuality) attempt(ctx context.Context, req *core.GenerationRequest, gc core.GenerationContext) (*core.FallbackResult, error) {
	api := &apiPrimary{s.o}
	local := &localPrimary{s.o}

	var (
		wg               sync.WaitGroup
		apiRes, localRes *core.FallbackResult
		apiErr, localErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		apiRes, apiErr = api.attempt(ctx, req, gc)
	}()
	go func() {
		defer wg.Done()
		localRes, localErr = local.attempt(ctx, req, gc)
	}()
	wg.Wait()

	switch {
	case apiRes == nil && localRes == nil:
		if localErr != nil {
			return nil, localErr
		}
		return nil, apiErr
	case apiRes == nil:
		return localRes, nil
	case localRes == nil:
		return apiRes, nil
	}

	if s.o.hybrid.preferAPI(apiRes, localRes) {
		return apiRes, nil
	}
	return localRes, nil
}

// preferAPI decides between two successful hedged results. Local wins by
// default because it is free and generally faster; the API result must beat
// it by a quality margin, which grows when the API call costs money and the
// local result came back well inside the API's response time.
func (p HybridPolicy) preferAPI(api, local *core.FallbackResult) bool {
	margin := p.QualityMargin
	if api.Cost > 0 && local.ResponseTime < time.Duration(p.FastLocalRatio*float64(api.ResponseTime)) {
		margin = p.CostAwareMargin
	}
	return api.Quality-local.Quality > margin
}
