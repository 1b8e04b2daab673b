// Package redislock provides a per-conversation mutual exclusion lock backed
// by Redis. This is part of the platform layer and contains no business logic.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock could not be acquired before the
// caller's wait budget ran out.
var ErrNotAcquired = errors.New("redislock: lock not acquired")

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by another worker is never released by us.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// Locker acquires and releases named locks against a Redis instance.
type Locker struct {
	client    *redis.Client
	retryWait time.Duration
}

// New creates a Locker using the given Redis client.
func New(client *redis.Client) *Locker {
	return &Locker{
		client:    client,
		retryWait: 100 * time.Millisecond,
	}
}

// Lock is a held lock. Release it exactly once.
type Lock struct {
	locker *Locker
	key    string
	token  string
}

// Acquire blocks until the lock named key is acquired or waitTimeout elapses.
// The lock auto-expires after lease, which bounds the damage of a crashed
// holder. Returns ErrNotAcquired on timeout.
func (l *Locker) Acquire(ctx context.Context, key string, lease, waitTimeout time.Duration) (*Lock, error) {
	token := uuid.NewString()

	deadline := time.Now().Add(waitTimeout)
	for {
		ok, err := l.client.SetNX(ctx, key, token, lease).Result()
		if err != nil {
			return nil, fmt.Errorf("redislock: setnx %s: %w", key, err)
		}
		if ok {
			return &Lock{locker: l, key: key, token: token}, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryWait):
		}
	}
}

// Release frees the lock if it is still held by this owner. Releasing a lock
// whose lease already expired is a no-op.
func (lk *Lock) Release(ctx context.Context) error {
	err := lk.locker.client.Eval(ctx, releaseScript, []string{lk.key}, lk.token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redislock: release %s: %w", lk.key, err)
	}
	return nil
}
