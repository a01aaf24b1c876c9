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

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), DisableIdentity: true})
	c := NewRedisCacheWithClient(client, "test:")
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCacheGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)
	require.NoError(t, c.Ping(ctx))

	_, ok, err := c.Get(ctx, "bank:verify:058:0123456789")
	require.NoError(t, err)
	assert.False(t, ok, "missing key is not an error")

	require.NoError(t, c.Set(ctx, "bank:verify:058:0123456789", "ADA OBI", time.Minute))
	v, ok, err := c.Get(ctx, "bank:verify:058:0123456789")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ADA OBI", v)

	raw, err := mr.Get("test:bank:verify:058:0123456789")
	require.NoError(t, err)
	assert.Equal(t, "ADA OBI", raw, "keys carry the configured prefix")

	require.NoError(t, c.Delete(ctx, "bank:verify:058:0123456789"))
	_, ok, err = c.Get(ctx, "bank:verify:058:0123456789")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheSetNXAndExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)

	ok, err := c.SetNX(ctx, "conversion:inflight:wallet", "1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "conversion:inflight:wallet", "1", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire")

	mr.FastForward(31 * time.Second)
	ok, err = c.SetNX(ctx, "conversion:inflight:wallet", "1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "lock is free once the ttl lapses")
}

func TestRedisCacheUnavailable(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)
	mr.Close()

	_, _, err := c.Get(ctx, "k")
	assert.Error(t, err)
	_, err = c.SetNX(ctx, "k", "1", time.Second)
	assert.Error(t, err)
}
