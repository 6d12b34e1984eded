package locker

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/lock"
	"lotkeeper/pkg/logger"
)

var _ lock.Locker = (*Redis)(nil)

// Redis holds product locks in Redis so several server processes exclude each
// other. Locks expire after ttl if the holder dies.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedis creates a Redis-backed locker.
func NewRedis(rdb *redis.Client, ttl, wait time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{client: redislock.New(rdb), ttl: ttl, wait: wait}
}

const retryStep = 50 * time.Millisecond

// Acquire implements lock.Locker.
func (r *Redis) Acquire(ctx context.Context, keys ...string) (lock.Release, error) {
	retries := int(r.wait / retryStep)
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(retryStep), retries),
	}

	held := make([]*redislock.Lock, 0, len(keys))
	for _, k := range keys {
		l, err := r.client.Obtain(ctx, k, r.ttl, opts)
		if err != nil {
			r.release(held)
			if errors.Is(err, redislock.ErrNotObtained) {
				return nil, apperror.NewConcurrentModification("lock", k)
			}
			return nil, apperror.NewInternal(err).WithDetail("lock", k)
		}
		held = append(held, l)
	}

	return func() { r.release(held) }, nil
}

func (r *Redis) release(held []*redislock.Lock) {
	// the caller's context may already be canceled
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(held) - 1; i >= 0; i-- {
		if err := held[i].Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx, "failed to release redis lock", "key", held[i].Key(), "error", err)
		}
	}
}
