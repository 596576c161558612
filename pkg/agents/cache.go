package agents

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// DefaultCacheTTL is how long a cached agent configuration is considered
// fresh before the next read triggers a refetch.
const DefaultCacheTTL = 24 * time.Hour

// entry carries its own fetch time instead of using the cache's eviction
// TTL, so a stale entry survives and can be served when a refetch fails.
type entry struct {
	config    *Config
	fetchedAt time.Time
}

// Cache is a read-through agent configuration cache. Fresh entries are
// served without touching the platform; stale entries trigger a refetch
// and fall back to the stale value when the platform is unreachable.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	logger  *zap.Logger
	cache   *ristretto.Cache

	mu     sync.Mutex
	misses uint64
	hits   uint64
	keys   map[string]struct{}
}

// CacheStats is a point-in-time snapshot of cache effectiveness.
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// NewCache wraps fetcher with a TTL cache. A non-positive ttl falls back
// to DefaultCacheTTL.
func NewCache(fetcher Fetcher, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		logger:  logger,
		cache:   cache,
		keys:    make(map[string]struct{}),
	}, nil
}

// Get returns the agent's configuration, fetching from the platform only
// when the cached copy is missing or stale. When a refetch fails and a
// stale copy exists, the stale copy is returned rather than an error.
func (c *Cache) Get(ctx context.Context, agentID string) (*Config, error) {
	var stale *entry

	if v, ok := c.cache.Get(agentID); ok {
		e := v.(*entry)
		if time.Since(e.fetchedAt) < c.ttl {
			c.count(true)
			return e.config, nil
		}
		stale = e
	}
	c.count(false)

	config, err := c.fetcher.Fetch(ctx, agentID)
	if err != nil {
		if stale != nil {
			c.logger.Warn("serving stale agent config after fetch failure",
				zap.String("agent_id", agentID),
				zap.Duration("age", time.Since(stale.fetchedAt)),
				zap.Error(err))
			return stale.config, nil
		}
		return nil, err
	}

	c.cache.Set(agentID, &entry{config: config, fetchedAt: time.Now()}, 1)
	c.cache.Wait()

	c.mu.Lock()
	c.keys[agentID] = struct{}{}
	c.mu.Unlock()

	return config, nil
}

// Invalidate drops one agent's cached configuration.
func (c *Cache) Invalidate(agentID string) {
	c.cache.Del(agentID)
	c.mu.Lock()
	delete(c.keys, agentID)
	c.mu.Unlock()
}

// InvalidateAll drops every cached configuration.
func (c *Cache) InvalidateAll() {
	c.cache.Clear()
	c.mu.Lock()
	c.keys = make(map[string]struct{})
	c.mu.Unlock()
}

// Stats reports hit and miss counts since the cache was created, and how
// many agents are currently cached.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Entries: len(c.keys)}
}

func (c *Cache) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}
