// Package cache provides the result cache for generation outcomes.
// Supports an in-memory LRU backend and a Redis backend for multi-instance
// deployments. Entries expire after their TTL; expired entries are only
// returned to callers that explicitly tolerate staleness.
package cache

import (
	"context"
	"time"

	"emojigen/internal/core"
)

// DefaultTTL is the time-to-live applied when Options.TTL is zero.
const DefaultTTL = 30 * time.Minute

// Payload is the cached generation outcome.
type Payload struct {
	Pattern      core.Pattern   `json:"pattern"`
	Confidence   float64        `json:"confidence"`
	Alternatives []core.Pattern `json:"alternatives,omitempty"`
}

// Entry is a stored generation outcome with its cache metadata.
type Entry struct {
	Payload   Payload     `json:"payload"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	Source    core.Source `json:"source"`
	Quality   float64     `json:"quality"`
	Tags      []string    `json:"tags,omitempty"`
}

// Expired reports whether the entry is past its TTL.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Options control how an entry is stored.
type Options struct {
	TTL     time.Duration
	Quality float64
	Source  core.Source
	Tags    []string
}

// Stats is a point-in-time snapshot of cache effectiveness, exposed through
// the system health endpoint.
type Stats struct {
	Entries   int     `json:"entries"`
	SizeBytes int64   `json:"size_bytes"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// Loader produces a payload for a prefetched key.
type Loader func(ctx context.Context, key string) (Payload, Options, error)

// Store is the result cache interface. Implementations must be safe for
// concurrent use. A lookup miss is normal control flow, not an error;
// backend failures (e.g. Redis connectivity) are logged internally and
// likewise surface as misses.
type Store interface {
	// Get retrieves the entry for the key. Expired entries are returned
	// only when allowStale is true.
	Get(ctx context.Context, key string, allowStale bool) (*Entry, bool)

	// Set stores a payload under the key.
	Set(ctx context.Context, key string, payload Payload, opts Options)

	// Prefetch warms the cache for anticipated keys using the loader.
	// Loader failures never surface to the caller.
	Prefetch(ctx context.Context, keys []string, load Loader)

	// Stats returns a snapshot of cache statistics.
	Stats() Stats

	// Close releases any resources held by the cache.
	Close() error
}
