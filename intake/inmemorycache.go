package intake

import (
	"sync"
	"time"
)

type cacheEntry struct {
	prospects []*Prospect
	cachedAt  time.Time
}

// InMemoryLookupCache is a simple in-memory implementation of LookupCache.
// Thread-safe for concurrent access. Expired entries are dropped on Get and
// swept on Set, so the map only holds live keys.
type InMemoryLookupCache struct {
	entries    map[string]cacheEntry
	config     CacheConfig
	now        func() time.Time
	generation uint64
	mu         sync.RWMutex
}

// NewInMemoryLookupCache creates a new in-memory lookup cache.
func NewInMemoryLookupCache(config CacheConfig) *InMemoryLookupCache {
	return &InMemoryLookupCache{
		entries: make(map[string]cacheEntry),
		config:  config,
		now:     time.Now,
	}
}

func cloneAll(prospects []*Prospect) []*Prospect {
	out := make([]*Prospect, len(prospects))
	for i, p := range prospects {
		out[i] = p.Clone()
	}
	return out
}

func (c *InMemoryLookupCache) expired(entry cacheEntry, now time.Time) bool {
	return c.config.TTL > 0 && now.Sub(entry.cachedAt) > c.config.TTL
}

// Get returns copies of the cached prospects. Expired entries are a miss
// and are removed.
func (c *InMemoryLookupCache) Get(key string) ([]*Prospect, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.expired(entry, c.now()) {
		c.mu.Lock()
		// a fresher Set may have replaced it meanwhile
		if current, ok := c.entries[key]; ok && c.expired(current, c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return cloneAll(entry.prospects), true
}

func (c *InMemoryLookupCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.generation
}

// Set stores copies of prospects unless an invalidation happened after gen.
func (c *InMemoryLookupCache) Set(key string, gen uint64, prospects []*Prospect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}

	now := c.now()
	for k, entry := range c.entries {
		if c.expired(entry, now) {
			delete(c.entries, k)
		}
	}

	c.entries[key] = cacheEntry{
		prospects: cloneAll(prospects),
		cachedAt:  now,
	}
}

func (c *InMemoryLookupCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	delete(c.entries, key)
}

func (c *InMemoryLookupCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of entries, expired ones included.
func (c *InMemoryLookupCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
