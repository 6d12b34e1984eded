// Package locker implements core/lock.Locker in-process and on Redis.
package locker

import (
	"context"
	"sync"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/lock"
)

var _ lock.Locker = (*Local)(nil)

// Local serializes holders of the same key within one process.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot

	// wait bounds how long Acquire blocks; zero waits for ctx only
	wait time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal creates an in-process locker.
func NewLocal(wait time.Duration) *Local {
	return &Local{slots: make(map[string]*slot), wait: wait}
}

// Acquire implements lock.Locker.
func (l *Local) Acquire(ctx context.Context, keys ...string) (lock.Release, error) {
	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	held := make([]string, 0, len(keys))
	for _, k := range keys {
		s := l.ref(k)
		select {
		case s.ch <- struct{}{}:
			held = append(held, k)
		case <-ctx.Done():
			l.unref(k)
			l.release(held)
			return nil, apperror.NewConcurrentModification("lock", k).WithCause(ctx.Err())
		}
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(held) }) }, nil
}

func (l *Local) release(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		s := l.slots[keys[i]]
		l.mu.Unlock()
		<-s.ch
		l.unref(keys[i])
	}
}

func (l *Local) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.slots[key]
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
