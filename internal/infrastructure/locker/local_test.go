package locker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotkeeper/internal/core/apperror"
)

func TestLocal_ExcludesSameKey(t *testing.T) {
	l := NewLocal(0)
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "lock:product:a")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, l.slots)
}

func TestLocal_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal(50 * time.Millisecond)
	ctx := context.Background()

	releaseA, err := l.Acquire(ctx, "a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := l.Acquire(ctx, "b")
	require.NoError(t, err)
	releaseB()
}

func TestLocal_TimeoutIsConcurrentModification(t *testing.T) {
	l := NewLocal(20 * time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "a", "b")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "b")
	require.Error(t, err)
	assert.True(t, apperror.IsConcurrentModification(err))

	release()
	release() // second call is a no-op

	again, err := l.Acquire(ctx, "a", "b")
	require.NoError(t, err)
	again()
	assert.Empty(t, l.slots)
}

func TestLocal_FailedAcquireReleasesPartialKeys(t *testing.T) {
	l := NewLocal(20 * time.Millisecond)
	ctx := context.Background()

	holdB, err := l.Acquire(ctx, "b")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "a", "b")
	require.Error(t, err)

	// "a" must be free again
	releaseA, err := l.Acquire(ctx, "a")
	require.NoError(t, err)
	releaseA()
	holdB()
}
