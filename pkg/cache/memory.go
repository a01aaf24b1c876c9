package cache

import (
	"context"
	"sync"
	"time"
)

type cachedValue struct {
	value     string
	expiresAt time.Time
}

func (v cachedValue) expired(now time.Time) bool {
	return !v.expiresAt.IsZero() && now.After(v.expiresAt)
}

// MemoryCache is a process-local Cache. A zero ttl keeps the value until deleted.
type MemoryCache struct {
	mu     sync.Mutex
	values map[string]cachedValue
	now    func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		values: make(map[string]cachedValue),
		now:    time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.values[key]
	if !ok {
		return "", false, nil
	}
	if v.expired(c.now()) {
		delete(c.values, key)
		return "", false, nil
	}
	return v.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[key] = c.entry(value, ttl)
	return nil
}

func (c *MemoryCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.values[key]; ok && !v.expired(c.now()) {
		return false, nil
	}
	c.values[key] = c.entry(value, ttl)
	return true, nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.values, key)
	return nil
}

// Sweep drops expired entries.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, v := range c.values {
		if v.expired(now) {
			delete(c.values, k)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps on every tick until ctx is done.
func (c *MemoryCache) RunSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *MemoryCache) entry(value string, ttl time.Duration) cachedValue {
	v := cachedValue{value: value}
	if ttl > 0 {
		v.expiresAt = c.now().Add(ttl)
	}
	return v
}
