package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/concierge/pkg/adapters/redis"
	"github.com/aretw0/concierge/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*redis.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewFromClient(client, redis.WithPrefix("test:")), mr
}

func TestRedisCache_Contract(t *testing.T) {
	ports.RunCategoryCacheContract(t, func(t *testing.T) ports.CategoryCache {
		cache, _ := newCache(t)
		return cache
	})
}

func TestRedisCache_TTL(t *testing.T) {
	cache, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, []string{"Catering"}, time.Minute))
	assert.True(t, mr.Exists("test:categories"))
	assert.Equal(t, time.Minute, mr.TTL("test:categories"))

	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_Corrupt(t *testing.T) {
	cache, mr := newCache(t)
	require.NoError(t, mr.Set("test:categories", "not json"))

	_, _, err := cache.Get(context.Background())
	assert.ErrorContains(t, err, "unmarshal")
}

func TestRedisCache_Unavailable(t *testing.T) {
	cache, mr := newCache(t)
	mr.Close()

	_, _, err := cache.Get(context.Background())
	assert.Error(t, err)
	assert.Error(t, cache.Ping(context.Background()))
}
