package services

import (
	"sync"
	"time"
)

// Window is the rolling window over which outbound calls are counted.
const Window = 60 * time.Second

// Limiter is a sliding-window counter gating outbound calls to one service.
// Rejected calls are not queued and there is no backoff; the caller's
// strategy simply fails and the orchestrator moves on.
type Limiter struct {
	mu     sync.Mutex
	max    int
	stamps []time.Time
	now    func() time.Time
}

// NewLimiter creates a limiter admitting at most max calls per rolling
// 60-second window. max <= 0 means unlimited.
func NewLimiter(max int) *Limiter {
	return &Limiter{max: max, now: time.Now}
}

// Allow purges timestamps older than the window, then admits the call
// (recording its timestamp) only if the remaining count is below the
// maximum.
func (l *Limiter) Allow() bool {
	if l.max <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-Window)

	kept := l.stamps[:0]
	for _, ts := range l.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.stamps = kept

	if len(l.stamps) >= l.max {
		return false
	}
	l.stamps = append(l.stamps, now)
	return true
}

// InFlight returns the number of calls currently counted in the window.
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-Window)
	n := 0
	for _, ts := range l.stamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}
