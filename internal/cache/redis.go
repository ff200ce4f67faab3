package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix is the key prefix used for cached results in Redis.
const DefaultRedisPrefix = "emojigen:result:"

// stalePhysicalFactor stretches the physical Redis TTL past the logical
// expiry so stale-tolerant lookups still find recently expired entries.
const stalePhysicalFactor = 2

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g. "redis://localhost:6379").
	URL string

	// Prefix is prepended to every cache key (defaults to "emojigen:result:").
	Prefix string
}

// RedisStore implements Store using Redis for distributed storage, suitable
// for multi-instance deployments behind a load balancer. Backend errors are
// logged and reported as misses so Redis outages never break generation.
type RedisStore struct {
	client *redis.Client
	prefix string

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisStore creates a Redis-backed result cache and verifies the
// connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	slog.Info("redis result cache connected", "prefix", prefix)

	return &RedisStore{client: client, prefix: prefix}, nil
}

// Get retrieves the entry for the key. The logical expiry stored in the
// entry is authoritative; the physical Redis TTL only garbage-collects.
func (s *RedisStore) Get(ctx context.Context, key string, allowStale bool) (*Entry, bool) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("redis cache get failed", "key", key, "error", err)
		}
		s.misses.Add(1)
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.Warn("redis cache entry corrupt", "key", key, "error", err)
		s.misses.Add(1)
		return nil, false
	}

	if entry.Expired(time.Now()) && !allowStale {
		s.misses.Add(1)
		return nil, false
	}

	s.hits.Add(1)
	return &entry, true
}

// Set stores a payload under the key with a stretched physical TTL.
func (s *RedisStore) Set(ctx context.Context, key string, payload Payload, opts Options) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	entry := Entry{
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Source:    opts.Source,
		Quality:   opts.Quality,
		Tags:      opts.Tags,
	}

	data, err := json.Marshal(&entry)
	if err != nil {
		slog.Warn("redis cache marshal failed", "key", key, "error", err)
		return
	}

	if err := s.client.Set(ctx, s.prefix+key, data, ttl*stalePhysicalFactor).Err(); err != nil {
		slog.Warn("redis cache set failed", "key", key, "error", err)
	}
}

// Prefetch warms the cache for keys that are not yet present. Loader and
// backend failures are logged and swallowed.
func (s *RedisStore) Prefetch(ctx context.Context, keys []string, load Loader) {
	for _, key := range keys {
		exists, err := s.client.Exists(ctx, s.prefix+key).Result()
		if err != nil {
			slog.Debug("cache prefetch existence check failed", "key", key, "error", err)
			continue
		}
		if exists > 0 {
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

// Stats returns hit/miss counters tracked by this instance. Entry counts are
// not reported for the distributed backend.
func (s *RedisStore) Stats() Stats {
	st := Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
