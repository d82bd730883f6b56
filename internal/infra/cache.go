package infra

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olgasafonova/smw-ask-mcp-server/metrics"
)

// Cache size limits to prevent unbounded memory growth
const (
	DefaultMaxCacheEntries = 500             // Maximum number of cached query results
	DefaultCacheTTL        = 5 * time.Minute // Lifetime of a cached query result
	DefaultCacheCleanup    = time.Minute     // How often expired entries are swept
)

type cacheEntry[V any] struct {
	value      V
	expiresAt  time.Time
	accessedAt atomic.Int64 // unix nanos, for LRU eviction
}

// Cache is an LRU cache with a fixed TTL per entry. Query results are
// immutable once built, so values are shared between readers.
type Cache[V any] struct {
	entries    sync.Map // key (string) -> *cacheEntry[V]
	count      atomic.Int64
	maxEntries int64
	ttl        time.Duration
	evictMu    sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCache creates a cache holding at most maxEntries values for ttl each.
// Non-positive arguments select the defaults.
func NewCache[V any](maxEntries int, ttl time.Duration) *Cache[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxCacheEntries
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cache[V]{
		maxEntries: int64(maxEntries),
		ttl:        ttl,
		stopCh:     make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// CacheKey derives a fixed size key from its parts. Parts are joined with
// a separator that cannot appear in a normalized ask query.
func CacheKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// Get returns a live entry and records the hit or miss
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := c.entries.Load(key)
	if !ok {
		metrics.RecordCacheAccess(false)
		return zero, false
	}
	e := raw.(*cacheEntry[V])
	now := time.Now()
	if now.After(e.expiresAt) {
		c.Delete(key)
		metrics.RecordCacheAccess(false)
		return zero, false
	}
	e.accessedAt.Store(now.UnixNano())
	metrics.RecordCacheAccess(true)
	return e.value, true
}

// Set stores value under key, replacing any previous entry
func (c *Cache[V]) Set(key string, value V) {
	now := time.Now()
	e := &cacheEntry[V]{value: value, expiresAt: now.Add(c.ttl)}
	e.accessedAt.Store(now.UnixNano())

	if _, existed := c.entries.Swap(key, e); existed {
		return
	}
	n := c.count.Add(1)
	metrics.SetCacheSize(n)
	if n > c.maxEntries {
		c.evictLRU(int(n - c.maxEntries + c.maxEntries/10))
	}
}

// Delete removes a key from the cache
func (c *Cache[V]) Delete(key string) {
	if _, existed := c.entries.LoadAndDelete(key); existed {
		metrics.SetCacheSize(c.count.Add(-1))
	}
}

// Purge removes every entry
func (c *Cache[V]) Purge() {
	c.entries.Range(func(key, _ any) bool {
		c.Delete(key.(string))
		return true
	})
}

// Size returns the current number of entries
func (c *Cache[V]) Size() int64 {
	return c.count.Load()
}

// Close stops the background cleanup goroutine
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (c *Cache[V]) cleanupLoop() {
	ticker := time.NewTicker(DefaultCacheCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired entries
func (c *Cache[V]) cleanup() {
	now := time.Now()
	c.entries.Range(func(key, raw any) bool {
		if now.After(raw.(*cacheEntry[V]).expiresAt) {
			c.Delete(key.(string))
		}
		return true
	})
}

// evictLRU removes the n least recently used entries
func (c *Cache[V]) evictLRU(n int) {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	type candidate struct {
		key        string
		accessedAt int64
	}
	var candidates []candidate
	c.entries.Range(func(key, raw any) bool {
		candidates = append(candidates, candidate{
			key:        key.(string),
			accessedAt: raw.(*cacheEntry[V]).accessedAt.Load(),
		})
		return true
	})

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].accessedAt < candidates[j].accessedAt
	})
	for i := 0; i < n && i < len(candidates); i++ {
		c.Delete(candidates[i].key)
	}
}
