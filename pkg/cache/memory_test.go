package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "nuban:058:0123456789", "ADA OBI", time.Minute))
	v, ok, err := c.Get(ctx, "nuban:058:0123456789")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ADA OBI", v)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.Get(ctx, "nuban:058:0123456789")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheSetNX(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	ok, err := c.SetNX(ctx, "conversion:inflight:wallet", "1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "conversion:inflight:wallet", "1", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while the first is live")

	now = now.Add(31 * time.Second)
	ok, err = c.SetNX(ctx, "conversion:inflight:wallet", "1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired entries can be re-acquired")

	require.NoError(t, c.Delete(ctx, "conversion:inflight:wallet"))
	ok, _ = c.SetNX(ctx, "conversion:inflight:wallet", "1", 0)
	assert.True(t, ok)
}

func TestMemoryCacheSweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "a", "1", time.Second)
	_ = c.Set(ctx, "b", "1", 0)
	now = now.Add(time.Minute)

	assert.Equal(t, 1, c.Sweep())
	_, ok, _ := c.Get(ctx, "b")
	assert.True(t, ok)
}
