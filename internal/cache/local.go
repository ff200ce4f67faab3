package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultMaxEntries bounds the in-memory cache by entry count.
	DefaultMaxEntries = 1000
	// DefaultMaxBytes bounds the in-memory cache by approximate payload size.
	DefaultMaxBytes = 8 << 20 // 8 MiB
)

// LocalStore is a thread-safe in-memory result cache with TTL and
// least-recently-used eviction. Suitable for single-instance deployments.
type LocalStore struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	maxEntries int
	maxBytes   int64
	sizeBytes  int64

	hits      int64
	misses    int64
	evictions int64
}

type localEntry struct {
	key   string
	entry *Entry
	size  int64
}

// NewLocalStore creates an in-memory cache bounded by maxEntries and
// maxBytes. Zero values fall back to the package defaults.
func NewLocalStore(maxEntries int, maxBytes int64) *LocalStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &LocalStore{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
	}
}

// Get retrieves the entry for the key and marks it most recently used.
// Expired entries behave as misses unless allowStale is true; a strict
// lookup that finds an expired entry removes it.
func (s *LocalStore) Get(_ context.Context, key string, allowStale bool) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		s.misses++
		return nil, false
	}

	le := el.Value.(*localEntry)
	if le.entry.Expired(time.Now()) && !allowStale {
		s.removeLocked(el)
		s.misses++
		return nil, false
	}

	s.order.MoveToFront(el)
	s.hits++
	return le.entry, true
}

// Set stores a payload under the key, evicting least-recently-used entries
// until the store is back within its bounds.
func (s *LocalStore) Set(_ context.Context, key string, payload Payload, opts Options) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	entry := &Entry{
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Source:    opts.Source,
		Quality:   opts.Quality,
		Tags:      opts.Tags,
	}
	size := approxSize(entry)

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		s.removeLocked(el)
	}
	el := s.order.PushFront(&localEntry{key: key, entry: entry, size: size})
	s.entries[key] = el
	s.sizeBytes += size

	for (len(s.entries) > s.maxEntries || s.sizeBytes > s.maxBytes) && s.order.Len() > 1 {
		oldest := s.order.Back()
		s.removeLocked(oldest)
		s.evictions++
	}
}

// Prefetch warms the cache for keys that are not yet present. Loader
// failures are logged and swallowed.
func (s *LocalStore) Prefetch(ctx context.Context, keys []string, load Loader) {
	for _, key := range keys {
		if _, ok := s.peek(key); ok {
			continue
		}
		payload, opts, err := load(ctx, key)
		if err != nil {
			slog.Debug("cache prefetch failed", "key", key, "error", err)
			continue
		}
		s.Set(ctx, key, payload, opts)
	}
}

// Stats returns a snapshot of cache statistics.
func (s *LocalStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Entries:   len(s.entries),
		SizeBytes: s.sizeBytes,
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evictions,
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}

// Close is a no-op for the in-memory store.
func (s *LocalStore) Close() error {
	return nil
}

// peek checks presence without touching recency or hit counters.
func (s *LocalStore) peek(key string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	le := el.Value.(*localEntry)
	if le.entry.Expired(time.Now()) {
		return nil, false
	}
	return le.entry, true
}

// removeLocked unlinks an element; caller holds the lock.
func (s *LocalStore) removeLocked(el *list.Element) {
	le := el.Value.(*localEntry)
	delete(s.entries, le.key)
	s.order.Remove(el)
	s.sizeBytes -= le.size
}

// approxSize estimates the memory footprint of an entry by its JSON
// serialization. Good enough for capacity bounding; exactness is not needed.
func approxSize(e *Entry) int64 {
	data, err := json.Marshal(e)
	if err != nil {
		return 256
	}
	return int64(len(data))
}
