package intake

import (
	"context"
	"time"
)

// LookupCache caches duplicate lookups keyed by name and industry. This
// allows swapping between in-memory, Redis, or other implementations.
type LookupCache interface {
	// Get returns cached prospects and true, or false on a miss or expiry.
	Get(key string) ([]*Prospect, bool)

	// Generation returns a token that changes on every invalidation. Read
	// it before the lookup whose result is passed to Set.
	Generation() uint64

	// Set stores prospects under key unless the cache was invalidated after
	// gen was read. A result read before a write must not outlive the
	// write's invalidation.
	Set(key string, gen uint64, prospects []*Prospect)

	// Invalidate drops one key.
	Invalidate(key string)

	// InvalidateAll clears the cache.
	InvalidateAll()
}

// CacheConfig holds configuration for cache behavior.
type CacheConfig struct {
	// TTL is the time-to-live for cached entries. Zero disables expiry
	// (manual invalidation only).
	TTL time.Duration
}

// DefaultCacheConfig returns the lookup cache settings used when caching
// is enabled.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL: 30 * time.Second,
	}
}

func lookupKey(name, industry string) string {
	return name + "\x00" + industry
}

// CachedRepository serves FindByNameAndIndustry from a LookupCache and
// invalidates affected keys on writes. Everything else passes through.
type CachedRepository struct {
	Repository
	cache LookupCache
}

// NewCachedRepository wraps repo with cache.
func NewCachedRepository(repo Repository, cache LookupCache) *CachedRepository {
	return &CachedRepository{Repository: repo, cache: cache}
}

func (r *CachedRepository) FindByNameAndIndustry(ctx context.Context, name, industry string) ([]*Prospect, error) {
	key := lookupKey(name, industry)
	gen := r.cache.Generation()
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	found, err := r.Repository.FindByNameAndIndustry(ctx, name, industry)
	if err != nil {
		return nil, err
	}

	r.cache.Set(key, gen, found)
	return found, nil
}

func (r *CachedRepository) Create(ctx context.Context, p *Prospect) (*Prospect, error) {
	// a failed child insert may still have written the parent row
	defer r.cache.Invalidate(lookupKey(p.Name, p.Industry))
	return r.Repository.Create(ctx, p)
}

func (r *CachedRepository) Delete(ctx context.Context, id string) error {
	if err := r.Repository.Delete(ctx, id); err != nil {
		return err
	}
	r.cache.InvalidateAll()
	return nil
}
