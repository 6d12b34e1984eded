//go:build integration

package locker

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"lotkeeper/internal/core/apperror"
)

func TestRedis_AcquireRelease(t *testing.T) {
	ctx := context.Background()

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedis(rdb, 5*time.Second, 100*time.Millisecond)

	release, err := l.Acquire(ctx, "lock:product:a", "lock:product:b")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "lock:product:b")
	require.Error(t, err)
	assert.True(t, apperror.IsConcurrentModification(err))

	release()

	again, err := l.Acquire(ctx, "lock:product:b")
	require.NoError(t, err)
	again()
}
