package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCountCache(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	c := NewCountCache(rdb, 30*time.Second, nil)

	_, ok := c.Get(ctx, "dt:count:farms:all")
	assert.False(t, ok)

	c.Set(ctx, "dt:count:farms:all", 12)
	c.Set(ctx, "dt:count:farms:[1 2]", 3)
	c.Set(ctx, "dt:count:coops:all", 7)

	n, ok := c.Get(ctx, "dt:count:farms:all")
	require.True(t, ok)
	assert.EqualValues(t, 12, n)

	require.NoError(t, c.Invalidate(ctx, "farms"))
	_, ok = c.Get(ctx, "dt:count:farms:[1 2]")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "dt:count:coops:all")
	assert.True(t, ok)

	mr.FastForward(31 * time.Second)
	_, ok = c.Get(ctx, "dt:count:coops:all")
	assert.False(t, ok)
}

func TestCountCacheToleratesOutage(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewCountCache(rdb, time.Minute, nil)
	mr.Close()

	c.Set(context.Background(), "k", 1)
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestRevocations(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	r := NewRevocations(rdb)

	revoked, err := r.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "abc", time.Now().Add(time.Hour)))
	require.NoError(t, r.Revoke(ctx, "old", time.Now().Add(-time.Hour)))

	revoked, err = r.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.IsRevoked(ctx, "old")
	require.NoError(t, err)
	assert.False(t, revoked)
}
