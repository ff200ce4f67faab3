package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"emojigen/internal/core"
)

// fakeService is a controllable core.Service for registry and health tests.
type fakeService struct {
	name        string
	priority    int
	available   bool
	cost        float64
	maxPerMin   int
	healthErr   error
	healthCalls atomic.Int32
}

func (f *fakeService) Name() string                     { return f.name }
func (f *fakeService) Priority() int                    { return f.priority }
func (f *fakeService) IsAvailable(context.Context) bool { return f.available }
func (f *fakeService) CostPerCall() float64             { return f.cost }
func (f *fakeService) MaxCallsPerMinute() int           { return f.maxPerMin }
func (f *fakeService) HealthCheck(context.Context) error {
	f.healthCalls.Add(1)
	return f.healthErr
}

func (f *fakeService) Generate(context.Context, *core.GenerationRequest) (*core.ServiceResponse, error) {
	return &core.ServiceResponse{Candidates: []core.PatternCandidate{
		{Name: "fake", Emojis: []string{"✨"}, Confidence: 0.9},
	}}, nil
}

func TestTracker(t *testing.T) {
	t.Run("ThreeFailuresFlipUnhealthy", func(t *testing.T) {
		tr := NewTracker()
		tr.Init("svc")

		tr.RecordFailure("svc", errors.New("boom"))
		tr.RecordFailure("svc", errors.New("boom"))
		if !tr.IsHealthy("svc") {
			t.Fatal("two failures should not yet flip the healthy flag")
		}

		tr.RecordFailure("svc", errors.New("boom"))
		if tr.IsHealthy("svc") {
			t.Error("three consecutive failures must mark the service unhealthy")
		}

		rec, _ := tr.Record("svc")
		if rec.LastError != "boom" {
			t.Errorf("last error not recorded: %q", rec.LastError)
		}
	})

	t.Run("SuccessDecaysErrorRate", func(t *testing.T) {
		tr := NewTracker()
		tr.Init("svc")
		for i := 0; i < 3; i++ {
			tr.RecordFailure("svc", errors.New("boom"))
		}

		for i := 0; i < 5; i++ {
			tr.RecordSuccess("svc", 20*time.Millisecond)
		}
		if !tr.IsHealthy("svc") {
			t.Error("sustained successes should restore the healthy flag")
		}
		rec, _ := tr.Record("svc")
		if rec.Latency != 20*time.Millisecond {
			t.Errorf("latency not refreshed: %v", rec.Latency)
		}
	})

	t.Run("UnknownServiceTreatedHealthy", func(t *testing.T) {
		tr := NewTracker()
		if !tr.IsHealthy("never-registered") {
			t.Error("unknown services must not block selection")
		}
	})
}

func TestMonitor(t *testing.T) {
	t.Run("ProbeFailureOverwritesRecord", func(t *testing.T) {
		reg := NewRegistry()
		tr := NewTracker()
		svc := &fakeService{name: "svc", healthErr: errors.New("connection refused")}
		reg.Register(svc)
		tr.Init("svc")

		m := NewMonitor(reg, tr, time.Hour)
		m.Start(context.Background())
		defer m.Stop()

		// Start probes immediately; wait for the record to flip.
		deadline := time.After(2 * time.Second)
		for tr.IsHealthy("svc") {
			select {
			case <-deadline:
				t.Fatal("probe result never recorded")
			case <-time.After(5 * time.Millisecond):
			}
		}

		rec, _ := tr.Record("svc")
		if rec.ErrorRate != 1 {
			t.Errorf("probe failure must set error rate to 1, got %v", rec.ErrorRate)
		}
		if rec.LastError == "" {
			t.Error("probe failure must record the triggering error")
		}
	})

	t.Run("PeriodicReprobe", func(t *testing.T) {
		reg := NewRegistry()
		tr := NewTracker()
		svc := &fakeService{name: "svc"}
		reg.Register(svc)

		m := NewMonitor(reg, tr, 10*time.Millisecond)
		m.Start(context.Background())

		deadline := time.After(2 * time.Second)
		for svc.healthCalls.Load() < 3 {
			select {
			case <-deadline:
				t.Fatal("monitor did not reprobe on its interval")
			case <-time.After(5 * time.Millisecond):
			}
		}
		m.Stop()

		if !tr.IsHealthy("svc") {
			t.Error("healthy probe should leave the service healthy")
		}
	})

	t.Run("StopHaltsLoop", func(t *testing.T) {
		reg := NewRegistry()
		tr := NewTracker()
		reg.Register(&fakeService{name: "svc"})

		m := NewMonitor(reg, tr, 5*time.Millisecond)
		m.Start(context.Background())
		m.Stop()

		// A second Stop must be safe.
		m.Stop()
	})
}

func TestRegistry(t *testing.T) {
	t.Run("ServicesSortedByPriority", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register(&fakeService{name: "low", priority: 1})
		reg.Register(&fakeService{name: "high", priority: 10})
		reg.Register(&fakeService{name: "mid", priority: 5})

		svcs := reg.Services()
		if svcs[0].Name() != "high" || svcs[1].Name() != "mid" || svcs[2].Name() != "low" {
			t.Errorf("wrong ordering: %s, %s, %s", svcs[0].Name(), svcs[1].Name(), svcs[2].Name())
		}
	})

	t.Run("LimiterBuiltFromDescriptor", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register(&fakeService{name: "svc", maxPerMin: 2})

		l := reg.Limiter("svc")
		if l == nil {
			t.Fatal("limiter not created at registration")
		}
		l.Allow()
		l.Allow()
		if l.Allow() {
			t.Error("limiter did not enforce the descriptor's max calls per minute")
		}
	})

	t.Run("UnknownLimiterIsNil", func(t *testing.T) {
		reg := NewRegistry()
		if reg.Limiter("nope") != nil {
			t.Error("expected nil limiter for unregistered service")
		}
	})
}
