package daily

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	ok, err := g.Claim(ctx, day(10))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = g.Claim(ctx, day(10))
	assert.False(t, ok)

	require.NoError(t, g.Release(ctx, day(10)))
	ok, _ = g.Claim(ctx, day(10))
	assert.True(t, ok)
}

func TestRedisGuardFallsBackWhenUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	g := NewRedisGuard(client, nil)
	ctx := context.Background()

	ok, err := g.Claim(ctx, day(10))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = g.Claim(ctx, day(10))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisGuard(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	d := time.Date(1999, 1, 2, 0, 0, 0, 0, time.UTC)
	client.Del(ctx, guardKey(d))

	g := NewRedisGuard(client, nil)
	ok, err := g.Claim(ctx, d)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewRedisGuard(client, nil).Claim(ctx, d)
	require.NoError(t, err)
	assert.False(t, ok, "a second replica must not claim the same day")

	ttl, err := client.TTL(ctx, guardKey(d)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 47*time.Hour)

	require.NoError(t, g.Release(ctx, d))
	ok, err = g.Claim(ctx, d)
	require.NoError(t, err)
	assert.True(t, ok)
	client.Del(ctx, guardKey(d))
}
