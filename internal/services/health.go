package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"emojigen/internal/core"
)

const (
	// DefaultProbeInterval is how often the monitor probes every service.
	DefaultProbeInterval = 60 * time.Second

	// failureNudge is added to a service's error rate on each live-call
	// failure; unhealthyThreshold is the rate at which the healthy flag
	// flips. Three consecutive failures from a clean record cross it.
	failureNudge       = 0.2
	successDecay       = 0.8
	unhealthyThreshold = 0.5

	probeTimeout = 10 * time.Second
)

// Tracker maintains one HealthRecord per registered service. Records are
// overwritten by the periodic probe and nudged reactively when live calls
// fail, so health stays current both during idle periods and under load.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]*core.HealthRecord
}

// NewTracker creates an empty health tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]*core.HealthRecord)}
}

// Init creates a clean healthy record for a newly registered service.
func (t *Tracker) Init(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[name] = &core.HealthRecord{Healthy: true, Quality: 1, CheckedAt: time.Now()}
}

// Record returns a copy of the service's health record.
func (t *Tracker) Record(name string) (core.HealthRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.records[name]
	if !ok {
		return core.HealthRecord{}, false
	}
	return *rec, true
}

// IsHealthy reports whether the named service is currently healthy.
// Unknown services are treated as healthy so a missing probe never blocks
// selection.
func (t *Tracker) IsHealthy(name string) bool {
	rec, ok := t.Record(name)
	if !ok {
		return true
	}
	return rec.Healthy
}

// Snapshot returns copies of every record keyed by service name.
func (t *Tracker) Snapshot() map[string]core.HealthRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]core.HealthRecord, len(t.records))
	for name, rec := range t.records {
		out[name] = *rec
	}
	return out
}

// RecordFailure degrades the service's record after a live-call failure:
// the error rate is nudged up, the healthy flag recomputed, and the error
// remembered.
func (t *Tracker) RecordFailure(name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[name]
	if !ok {
		rec = &core.HealthRecord{Healthy: true, Quality: 1}
		t.records[name] = rec
	}

	rec.ErrorRate = min(1, rec.ErrorRate+failureNudge)
	rec.Healthy = rec.ErrorRate < unhealthyThreshold
	if err != nil {
		rec.LastError = err.Error()
	}

	if !rec.Healthy {
		slog.Warn("service marked unhealthy",
			"service", name,
			"error_rate", rec.ErrorRate,
			"last_error", rec.LastError,
		)
	}
}

// RecordSuccess decays the error rate after a successful live call and
// refreshes the observed latency.
func (t *Tracker) RecordSuccess(name string, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[name]
	if !ok {
		rec = &core.HealthRecord{Quality: 1}
		t.records[name] = rec
	}

	rec.ErrorRate *= successDecay
	rec.Healthy = rec.ErrorRate < unhealthyThreshold
	rec.Latency = latency
}

// setProbeResult overwrites the record from a scheduled probe.
func (t *Tracker) setProbeResult(name string, latency time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := &core.HealthRecord{
		Latency:   latency,
		Quality:   1,
		CheckedAt: time.Now(),
	}
	if err != nil {
		rec.Healthy = false
		rec.ErrorRate = 1
		rec.LastError = err.Error()
		rec.Quality = 0
	} else {
		rec.Healthy = true
	}
	t.records[name] = rec
}

// Monitor probes every registered service on a fixed interval for the
// process lifetime, independent of the reactive degradation done by the
// orchestrator on live-call failures.
type Monitor struct {
	registry *Registry
	tracker  *Tracker
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a health monitor. A non-positive interval falls back
// to the 60-second default.
func NewMonitor(registry *Registry, tracker *Tracker, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Monitor{
		registry: registry,
		tracker:  tracker,
		interval: interval,
	}
}

// Start launches the probe loop. It probes once immediately so records are
// populated before the first tick. Stop cancels the loop.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)

		m.probeAll(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.probeAll(ctx)
			}
		}
	}()
}

// Stop cancels the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

func (m *Monitor) probeAll(ctx context.Context) {
	for _, svc := range m.registry.Services() {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		start := time.Now()
		err := svc.HealthCheck(probeCtx)
		latency := time.Since(start)
		cancel()

		m.tracker.setProbeResult(svc.Name(), latency, err)

		if err != nil {
			slog.Warn("health probe failed", "service", svc.Name(), "error", err)
		} else {
			slog.Debug("health probe ok", "service", svc.Name(), "latency", latency)
		}
	}
}
