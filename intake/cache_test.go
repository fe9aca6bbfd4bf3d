package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepository counts lookups that reach the backing store.
type countingRepository struct {
	Repository
	lookups int
}

func (r *countingRepository) FindByNameAndIndustry(ctx context.Context, name, industry string) ([]*Prospect, error) {
	r.lookups++
	return r.Repository.FindByNameAndIndustry(ctx, name, industry)
}

func TestInMemoryLookupCacheTTL(t *testing.T) {
	cache := NewInMemoryLookupCache(CacheConfig{TTL: time.Minute})
	clock := monday
	cache.now = func() time.Time { return clock }

	cache.Set("k", cache.Generation(), []*Prospect{{Name: "Acme Corp"}})

	got, ok := cache.Get("k")
	require.True(t, ok)
	require.Len(t, got, 1)

	got[0].Name = "mutated"
	again, _ := cache.Get("k")
	assert.Equal(t, "Acme Corp", again[0].Name, "cache hands out copies")

	clock = clock.Add(2 * time.Minute)
	_, ok = cache.Get("k")
	assert.False(t, ok, "expired")
}

func TestInMemoryLookupCacheNoTTL(t *testing.T) {
	cache := NewInMemoryLookupCache(CacheConfig{})
	clock := monday
	cache.now = func() time.Time { return clock }

	cache.Set("k", cache.Generation(), nil)
	clock = clock.Add(24 * time.Hour)

	got, ok := cache.Get("k")
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestInMemoryLookupCacheInvalidate(t *testing.T) {
	cache := NewInMemoryLookupCache(DefaultCacheConfig())
	cache.Set("a", cache.Generation(), nil)
	cache.Set("b", cache.Generation(), nil)

	cache.Invalidate("a")
	_, ok := cache.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Len())

	cache.InvalidateAll()
	assert.Equal(t, 0, cache.Len())
}

func TestCachedRepository(t *testing.T) {
	ctx := context.Background()
	backing := &countingRepository{Repository: NewInMemoryRepository()}
	repo := NewCachedRepository(backing, NewInMemoryLookupCache(DefaultCacheConfig()))

	found, err := repo.FindByNameAndIndustry(ctx, "Acme Corp", "Manufacturing")
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = repo.FindByNameAndIndustry(ctx, "Acme Corp", "Manufacturing")
	require.NoError(t, err)
	assert.Equal(t, 1, backing.lookups, "second lookup is cached")

	stored, err := repo.Create(ctx, mustCandidate(t, validPayload()).Record())
	require.NoError(t, err)

	found, err = repo.FindByNameAndIndustry(ctx, "Acme Corp", "Manufacturing")
	require.NoError(t, err)
	require.Len(t, found, 1, "create invalidates the key")
	assert.Equal(t, 2, backing.lookups)

	require.NoError(t, repo.Delete(ctx, stored.ID))
	found, err = repo.FindByNameAndIndustry(ctx, "Acme Corp", "Manufacturing")
	require.NoError(t, err)
	assert.Empty(t, found, "delete invalidates the cache")
	assert.Equal(t, 3, backing.lookups)
}

func TestInMemoryLookupCacheEvictsExpired(t *testing.T) {
	cache := NewInMemoryLookupCache(CacheConfig{TTL: time.Minute})
	clock := monday
	cache.now = func() time.Time { return clock }

	cache.Set("a", cache.Generation(), nil)
	cache.Set("b", cache.Generation(), nil)
	require.Equal(t, 2, cache.Len())

	clock = clock.Add(2 * time.Minute)
	_, ok := cache.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Len(), "expired entry is removed on read")

	cache.Set("c", cache.Generation(), nil)
	assert.Equal(t, 1, cache.Len(), "set sweeps the other expired entries")
	_, ok = cache.Get("c")
	assert.True(t, ok)
}

func TestLookupCacheDropsFillAfterInvalidation(t *testing.T) {
	caches := map[string]func(t *testing.T) LookupCache{
		"in-memory": func(t *testing.T) LookupCache { return NewInMemoryLookupCache(DefaultCacheConfig()) },
		"redis": func(t *testing.T) LookupCache {
			_, client := setupTestRedis(t)
			return NewRedisLookupCache(client, DefaultCacheConfig())
		},
	}

	for name, newCache := range caches {
		t.Run(name, func(t *testing.T) {
			cache := newCache(t)

			gen := cache.Generation()
			cache.Invalidate("k")
			cache.Set("k", gen, nil)
			_, ok := cache.Get("k")
			assert.False(t, ok, "fill read before a key invalidation is dropped")

			gen = cache.Generation()
			cache.InvalidateAll()
			cache.Set("k", gen, nil)
			_, ok = cache.Get("k")
			assert.False(t, ok, "fill read before a full invalidation is dropped")

			cache.Set("k", cache.Generation(), nil)
			_, ok = cache.Get("k")
			assert.True(t, ok)
		})
	}
}

// gatedRepository holds its first lookup after reading until released.
type gatedRepository struct {
	Repository
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedRepository(repo Repository) *gatedRepository {
	return &gatedRepository{Repository: repo, read: make(chan struct{}), release: make(chan struct{})}
}

func (r *gatedRepository) FindByNameAndIndustry(ctx context.Context, name, industry string) ([]*Prospect, error) {
	found, err := r.Repository.FindByNameAndIndustry(ctx, name, industry)
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.read)
		<-r.release
	}
	return found, err
}

func TestCachedRepositorySlowLookupDoesNotHideSubmission(t *testing.T) {
	caches := map[string]func(t *testing.T) LookupCache{
		"in-memory": func(t *testing.T) LookupCache { return NewInMemoryLookupCache(DefaultCacheConfig()) },
		"redis": func(t *testing.T) LookupCache {
			_, client := setupTestRedis(t)
			return NewRedisLookupCache(client, DefaultCacheConfig())
		},
	}

	for name, newCache := range caches {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			gated := newGatedRepository(NewInMemoryRepository())
			svc := newTestService(t, NewCachedRepository(gated, newCache(t)))

			checked := make(chan error, 1)
			go func() {
				match, err := svc.CheckDuplicate(ctx, validPayload())
				if err == nil && match != nil {
					err = errors.New("unexpected match before any submission")
				}
				checked <- err
			}()
			<-gated.read

			first, err := svc.Submit(ctx, validPayload(), false)
			require.NoError(t, err)

			close(gated.release)
			require.NoError(t, <-checked)

			_, err = svc.Submit(ctx, validPayload(), false)
			var dupErr *DuplicateDetectedError
			require.True(t, errors.As(err, &dupErr), "got %v", err)
			assert.Equal(t, first.ID, dupErr.MatchID)
		})
	}
}
