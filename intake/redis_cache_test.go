package intake

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLookupCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, client := setupTestRedis(t)
	cache := NewRedisLookupCache(client, DefaultCacheConfig())

	payload := validPayload()
	payload.CompetingAgainst = []string{"Progyny"}
	payload.DueDate = "2024-01-08"
	stored, err := NewInMemoryRepository().Create(ctx, mustCandidate(t, payload).Record())
	require.NoError(t, err)

	cache.Set("k", cache.Generation(), []*Prospect{stored})

	got, ok := cache.Get("k")
	require.True(t, ok)
	require.Len(t, got, 1)
	if diff := cmp.Diff(stored, got[0], cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("cached prospect mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, Equivalent(stored, got[0]))
}

func TestRedisLookupCacheEmptyResult(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := NewRedisLookupCache(client, DefaultCacheConfig())

	_, ok := cache.Get("k")
	assert.False(t, ok)

	cache.Set("k", cache.Generation(), nil)
	got, ok := cache.Get("k")
	assert.True(t, ok, "an empty lookup is cached too")
	assert.Empty(t, got)
}

func TestRedisLookupCacheTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewRedisLookupCache(client, CacheConfig{TTL: time.Minute})

	cache.Set("k", cache.Generation(), nil)
	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get("k")
	assert.False(t, ok, "expired")
}

func TestRedisLookupCacheInvalidate(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewRedisLookupCache(client, DefaultCacheConfig())
	require.NoError(t, mr.Set("unrelated", "v"))

	cache.Set("a", cache.Generation(), nil)
	cache.Set("b", cache.Generation(), nil)

	cache.Invalidate("a")
	_, ok := cache.Get("a")
	assert.False(t, ok)
	_, ok = cache.Get("b")
	assert.True(t, ok)

	cache.InvalidateAll()
	_, ok = cache.Get("b")
	assert.False(t, ok)
	assert.True(t, mr.Exists("unrelated"), "only lookup keys are cleared")
}

func TestRedisLookupCacheCorruptEntry(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewRedisLookupCache(client, DefaultCacheConfig())
	require.NoError(t, mr.Set(cache.redisKey("k"), "{not json"))

	_, ok := cache.Get("k")
	assert.False(t, ok)
	assert.False(t, mr.Exists(cache.redisKey("k")), "unreadable entry is dropped")
}

func TestRedisLookupCacheUnavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewRedisLookupCache(client, DefaultCacheConfig())
	mr.Close()

	cache.Set("k", cache.Generation(), nil)
	_, ok := cache.Get("k")
	assert.False(t, ok, "redis errors are misses")
	cache.InvalidateAll()
}

func TestCachedRepositoryWithRedis(t *testing.T) {
	ctx := context.Background()
	_, client := setupTestRedis(t)
	backing := &countingRepository{Repository: NewInMemoryRepository()}
	repo := NewCachedRepository(backing, NewRedisLookupCache(client, DefaultCacheConfig()))

	dup, err := NewDuplicateDetector(repo).IsDuplicate(ctx, mustCandidate(t, validPayload()).Record())
	require.NoError(t, err)
	assert.False(t, dup)

	_, err = repo.Create(ctx, mustCandidate(t, validPayload()).Record())
	require.NoError(t, err)

	dup, err = NewDuplicateDetector(repo).IsDuplicate(ctx, mustCandidate(t, validPayload()).Record())
	require.NoError(t, err)
	assert.True(t, dup, "150.00 survives the cache round trip")

	dup, err = NewDuplicateDetector(repo).IsDuplicate(ctx, mustCandidate(t, validPayload()).Record())
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, 2, backing.lookups, "third lookup is served from redis")
}
