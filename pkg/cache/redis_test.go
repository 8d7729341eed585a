package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	c := &Cache{prefix: "reimu"}
	assert.Equal(t, "reimu:balance:guild:user", c.Key("balance", "guild", "user"))

	bare := &Cache{}
	assert.Equal(t, "lock:guild:user", bare.Key("lock", "guild", "user"))
}

func newIntegrationCache(t *testing.T) *Cache {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping Redis integration test")
	}
	c, err := NewRedisCache(url, "reimu-test-"+time.Now().Format("150405.000000"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisJSONRoundTrip(t *testing.T) {
	c := newIntegrationCache(t)
	ctx := context.Background()
	key := c.Key("json")
	t.Cleanup(func() { c.Delete(ctx, key) })

	var dest map[string]int
	assert.ErrorIs(t, c.GetJSON(ctx, key, &dest), ErrMiss)

	require.NoError(t, c.SetJSON(ctx, key, map[string]int{"primary": 10}, time.Minute))
	require.NoError(t, c.GetJSON(ctx, key, &dest))
	assert.Equal(t, 10, dest["primary"])
}

func TestRedisLock(t *testing.T) {
	c := newIntegrationCache(t)
	ctx := context.Background()
	key := c.Key("lock")
	t.Cleanup(func() { c.Delete(ctx, key) })

	ok, err := c.AcquireLock(ctx, key, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, key, "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lock is held by a")

	released, err := c.ReleaseLock(ctx, key, "b")
	require.NoError(t, err)
	assert.False(t, released, "b cannot release a's lock")

	released, err = c.ReleaseLock(ctx, key, "a")
	require.NoError(t, err)
	assert.True(t, released)

	ok, err = c.AcquireLock(ctx, key, "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
