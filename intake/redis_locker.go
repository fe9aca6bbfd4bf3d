package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/liamcoop/prospects/internal/logger"
)

// RedisLockOptions configures RedisLocker.
type RedisLockOptions struct {
	// Expiry is how long the lock is held before auto-expiring.
	Expiry time.Duration
	// Tries is the number of acquisition attempts before giving up.
	Tries int
	// RetryDelay is the wait between attempts.
	RetryDelay time.Duration
}

// DefaultRedisLockOptions returns the submission lock defaults.
func DefaultRedisLockOptions() RedisLockOptions {
	return RedisLockOptions{
		Expiry:     10 * time.Second,
		Tries:      20,
		RetryDelay: 100 * time.Millisecond,
	}
}

// RedisLocker is a Locker shared across server instances, backed by a
// redsync mutex per key.
type RedisLocker struct {
	rs   *redsync.Redsync
	opts RedisLockOptions
}

func NewRedisLocker(client redis.UniversalClient, opts RedisLockOptions) *RedisLocker {
	if opts.Tries < 1 {
		opts.Tries = 1
	}
	return &RedisLocker{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
	}
}

func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		logger.Warn("failed to acquire submission lock", "lock_key", key, "error", err)

		var taken *redsync.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, redsync.ErrFailed) {
			return ErrLockUnavailable
		}
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	logger.Debug("submission lock acquired", "lock_key", key)

	defer func() {
		// release even if the request context was cancelled
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if ok, err := mutex.UnlockContext(releaseCtx); !ok || err != nil {
			logger.Error("failed to release submission lock", "lock_key", key, "unlock_ok", ok, "error", err)
		}
	}()

	return fn(ctx)
}
