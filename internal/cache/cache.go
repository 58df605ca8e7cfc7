package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/clienthunter/leadwatch/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Well-known cache keys
const (
	KeyTemplates      = "templates"
	KeySettings       = "settings"
	KeyDashboardStats = "dashboard_stats"
	PrefixClients     = "clients:"
)

// Version orders fetches against each other and against invalidations.
// A fetch takes a Version before it starts and hands it back to Set.
type Version uint64

// Cache is a keyed snapshot cache for server-backed collections.
//
// A write is dropped when its Version is older than the last stored Version
// for the key or older than the last invalidation covering the key, so a
// slow read that started before a mutation can never overwrite fresher data.
type Cache struct {
	store Store
	ttl   time.Duration

	mu          sync.Mutex
	clock       Version
	stored      map[string]Version
	invalidated map[string]Version
	prefixes    map[string]Version
}

// New creates a cache over store. A ttl of zero keeps entries until invalidated.
func New(store Store, ttl time.Duration) *Cache {
	return &Cache{
		store:       store,
		ttl:         ttl,
		stored:      make(map[string]Version),
		invalidated: make(map[string]Version),
		prefixes:    make(map[string]Version),
	}
}

// NewMemory creates a cache backed by a MemoryStore
func NewMemory(ttl time.Duration) *Cache {
	return New(NewMemoryStore(), ttl)
}

// ClientsKey is the cache key of one filtered client listing
func ClientsKey(status string, limit, offset int) string {
	return fmt.Sprintf("%s%s:%d:%d", PrefixClients, status, limit, offset)
}

// Begin issues a fresh Version for a fetch of key
func (c *Cache) Begin(key string) Version {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clock++
	return c.clock
}

// Get decodes the entry for key into dst. It reports false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// A corrupt entry is treated as a miss and removed
		_ = c.store.Delete(ctx, key)
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key if version is not stale. It reports whether the
// value was written.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, version Version) (bool, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if version <= c.stored[key] || version <= c.invalidatedAt(key) {
		metrics.CacheStaleWrites.WithLabelValues(metrics.Resource(key)).Inc()
		logrus.WithFields(logrus.Fields{
			"key":     key,
			"version": version,
		}).Debug("Dropping stale cache write")
		return false, nil
	}

	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		return false, err
	}
	c.stored[key] = version
	return true, nil
}

// Invalidate drops key and rejects every write begun before this call.
// It is a no-op on a nil cache.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clock++
	for _, key := range keys {
		c.invalidated[key] = c.clock
	}
	return c.store.Delete(ctx, keys...)
}

// InvalidatePrefix drops every key starting with prefix
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clock++
	c.prefixes[prefix] = c.clock
	return c.store.DeletePrefix(ctx, prefix)
}

// invalidatedAt returns the latest invalidation covering key. Caller holds mu.
func (c *Cache) invalidatedAt(key string) Version {
	latest := c.invalidated[key]
	for prefix, v := range c.prefixes {
		if v > latest && strings.HasPrefix(key, prefix) {
			latest = v
		}
	}
	return latest
}

// Load returns the cached value for key or fetches and caches it. A nil cache
// always fetches. Cache failures are logged and never fail the call.
func Load[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return fetch(ctx)
	}

	resource := metrics.Resource(key)

	var cached T
	ok, err := c.Get(ctx, key, &cached)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Cache read failed")
	}
	if ok {
		metrics.CacheHits.WithLabelValues(resource).Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues(resource).Inc()

	version := c.Begin(key)
	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}

	if _, err := c.Set(ctx, key, value, version); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
	return value, nil
}
