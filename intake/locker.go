package intake

import (
	"context"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Locker serializes submissions that share a duplicate key, closing the gap
// between the duplicate read and the write.
type Locker interface {
	// WithLock runs fn while holding the lock for key.
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// LockKey derives the lock key for a name and industry.
func LockKey(name, industry string) string {
	return "prospects:lock:" + strconv.FormatUint(xxhash.Sum64String(lookupKey(name, industry)), 16)
}

// NoopLocker runs fn without locking. Two identical submissions racing
// between the duplicate check and the write can both be stored.
type NoopLocker struct{}

func (NoopLocker) WithLock(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker with one mutex per key. Entries are
// dropped once nobody holds or waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) acquire(key string) *keyedEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedMutex) release(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

func (k *KeyedMutex) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	e := k.acquire(key)
	defer k.release(key, e)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.ch }()

	return fn(ctx)
}
