package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T) (*RedisCheckoutLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCheckoutLock(client, time.Minute), mr
}

func TestRedisCheckoutLock_OneHolderPerUser(t *testing.T) {
	lock, _ := newTestLock(t)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "u1")
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, "u1")
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	other, err := lock.Acquire(ctx, "u2")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	again, err := lock.Acquire(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestRedisCheckoutLock_StaleReleaseKeepsNewHolder(t *testing.T) {
	lock, mr := newTestLock(t)
	ctx := context.Background()

	stale, err := lock.Acquire(ctx, "u1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = lock.Acquire(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists("checkout:lock:u1"))

	_, err = lock.Acquire(ctx, "u1")
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
}

func TestRedisCheckoutLock_RedisDownIsUpstreamError(t *testing.T) {
	lock, mr := newTestLock(t)
	mr.Close()

	_, err := lock.Acquire(context.Background(), "u1")
	var up *UpstreamUnavailableError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, "redis", up.Service)
}
