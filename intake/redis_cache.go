package intake

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/liamcoop/prospects/internal/logger"
)

const (
	redisLookupPrefix = "prospects:lookup:"
	// outside the lookup prefix so InvalidateAll never resets it
	redisGenerationKey = "prospects:lookupgen"
)

// setIfGeneration writes KEYS[1] only while KEYS[2] still holds ARGV[1].
var setIfGeneration = redis.NewScript(`
local current = redis.call("GET", KEYS[2]) or "0"
if current ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

// RedisLookupCache is a LookupCache shared by every server instance. Redis
// failures are logged and treated as misses so lookups fall through to the
// repository. The generation counter lives in Redis too, so a fill started
// on one instance is dropped when another instance invalidates.
type RedisLookupCache struct {
	client  redis.UniversalClient
	ctx     context.Context
	config  CacheConfig
	timeout time.Duration
}

func NewRedisLookupCache(client redis.UniversalClient, config CacheConfig) *RedisLookupCache {
	return &RedisLookupCache{
		client:  client,
		ctx:     context.Background(),
		config:  config,
		timeout: time.Second,
	}
}

func (c *RedisLookupCache) redisKey(key string) string {
	return redisLookupPrefix + strconv.FormatUint(xxhash.Sum64String(key), 16)
}

func (c *RedisLookupCache) Get(key string) ([]*Prospect, bool) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	data, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("lookup cache read failed", "error", err)
		}
		return nil, false
	}

	var prospects []*Prospect
	if err := json.Unmarshal(data, &prospects); err != nil {
		logger.Warn("dropping unreadable lookup cache entry", "error", err)
		c.Invalidate(key)
		return nil, false
	}
	return prospects, true
}

func (c *RedisLookupCache) Generation() uint64 {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	gen, err := c.client.Get(ctx, redisGenerationKey).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Warn("lookup cache generation read failed", "error", err)
	}
	return gen
}

func (c *RedisLookupCache) Set(key string, gen uint64, prospects []*Prospect) {
	if prospects == nil {
		prospects = []*Prospect{}
	}
	data, err := json.Marshal(prospects)
	if err != nil {
		logger.Warn("failed to encode lookup cache entry", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	keys := []string{c.redisKey(key), redisGenerationKey}
	stored, err := setIfGeneration.Run(ctx, c.client, keys, strconv.FormatUint(gen, 10), data, c.config.TTL.Milliseconds()).Int()
	if err != nil {
		logger.Warn("lookup cache write failed", "error", err)
		return
	}
	if stored == 0 {
		logger.Debug("lookup cache fill dropped after invalidation", "generation", gen)
	}
}

func (c *RedisLookupCache) bumpGeneration(ctx context.Context) {
	if err := c.client.Incr(ctx, redisGenerationKey).Err(); err != nil {
		logger.Error("lookup cache generation bump failed", "error", err)
	}
}

func (c *RedisLookupCache) Invalidate(key string) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	// bump first: a fill holding the old generation must fail from here on
	c.bumpGeneration(ctx)
	if err := c.client.Del(ctx, c.redisKey(key)).Err(); err != nil {
		logger.Error("lookup cache invalidation failed", "error", err)
	}
}

func (c *RedisLookupCache) InvalidateAll() {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	c.bumpGeneration(ctx)
	iter := c.client.Scan(ctx, 0, redisLookupPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Error("lookup cache scan failed", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Error("lookup cache invalidation failed", "error", err)
	}
}
