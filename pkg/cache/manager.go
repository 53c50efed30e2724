package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultStaleRetention is how long an entry stays in Redis after it became
// stale, so it can still be revalidated with a conditional request.
const DefaultStaleRetention = 24 * time.Hour

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis          *redis.Client
	staleRetention time.Duration
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis:          redisClient,
		staleRetention: DefaultStaleRetention,
	}
}

// SetStaleRetention overrides DefaultStaleRetention.
func (m *Manager) SetStaleRetention(d time.Duration) {
	m.staleRetention = d
}

// Get retrieves a cache entry by key.
// Stale entries are returned too; callers check IsExpired and revalidate.
// Returns ErrCacheMiss if the key doesn't exist.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		CacheHits.WithLabelValues("stale").Inc()
	} else {
		CacheHits.WithLabelValues("fresh").Inc()
	}

	return &entry, nil
}

// Set stores a cache entry. Redis drops it staleRetention after Expires.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL() + m.staleRetention
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheStores.Inc()
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// UpdateTTL moves the freshness deadline of an existing entry.
// Used when a 304 Not Modified confirms a stale entry.
func (m *Manager) UpdateTTL(ctx context.Context, key CacheKey, newExpires time.Time) error {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return err
	}

	entry.Expires = newExpires

	return m.Set(ctx, key, entry)
}

// Pages returns the cached entries of a paginated endpoint ordered by page.
// Entries that fail to decode are skipped.
func (m *Manager) Pages(ctx context.Context, endpoint string) ([]*CacheEntry, error) {
	keys, err := m.endpointKeys(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	entries := make([]*CacheEntry, 0, len(keys))
	for _, key := range keys {
		data, err := m.redis.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			CacheErrors.WithLabelValues("get").Inc()
			return nil, fmt.Errorf("redis get %s: %w", key, err)
		}

		var entry CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Page < entries[j].Page })
	return entries, nil
}

// Purge removes every cached page of an endpoint and reports how many keys
// were deleted.
func (m *Manager) Purge(ctx context.Context, endpoint string) (int, error) {
	keys, err := m.endpointKeys(ctx, endpoint)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := m.redis.Del(ctx, keys...).Result()
	if err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return 0, fmt.Errorf("redis del: %w", err)
	}
	return int(n), nil
}

func (m *Manager) endpointKeys(ctx context.Context, endpoint string) ([]string, error) {
	pattern := CacheKey{Endpoint: endpoint}.String() + ":*"

	var keys []string
	iter := m.redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("scan").Inc()
		return nil, fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	return keys, nil
}
