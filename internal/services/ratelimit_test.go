package services

import (
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	t.Run("AdmitsUpToMax", func(t *testing.T) {
		l := NewLimiter(3)
		for i := 0; i < 3; i++ {
			if !l.Allow() {
				t.Fatalf("call %d should have been admitted", i+1)
			}
		}
		if l.Allow() {
			t.Error("call beyond the window maximum should be rejected")
		}
	})

	t.Run("UnlimitedWhenMaxZero", func(t *testing.T) {
		l := NewLimiter(0)
		for i := 0; i < 100; i++ {
			if !l.Allow() {
				t.Fatal("unlimited limiter rejected a call")
			}
		}
	})

	t.Run("WindowSlides", func(t *testing.T) {
		now := time.Now()
		l := NewLimiter(2)
		l.now = func() time.Time { return now }

		if !l.Allow() || !l.Allow() {
			t.Fatal("first two calls should be admitted")
		}
		if l.Allow() {
			t.Fatal("third call in the window should be rejected")
		}

		// Advance past the window; old timestamps are purged.
		now = now.Add(Window + time.Second)
		if !l.Allow() {
			t.Error("call after the window slid should be admitted")
		}
		if got := l.InFlight(); got != 1 {
			t.Errorf("expected 1 call in the new window, got %d", got)
		}
	})

	t.Run("RejectionRecordsNothing", func(t *testing.T) {
		l := NewLimiter(1)
		l.Allow()
		l.Allow()
		if got := l.InFlight(); got != 1 {
			t.Errorf("rejected call must not consume window capacity, got %d", got)
		}
	})
}
