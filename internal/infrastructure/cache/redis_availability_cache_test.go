package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/device-stock-api/internal/domain/entity"
	"github.com/jhoicas/device-stock-api/internal/infrastructure/cache"
)

func newCache(t *testing.T, ttl time.Duration) (*cache.RedisAvailabilityCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisAvailabilityCache(client, ttl), srv
}

func sampleView() *entity.DeviceAvailability {
	return &entity.DeviceAvailability{
		DeviceID:       "pixel-9",
		TotalAvailable: 7,
		Variants: []entity.VariantAvailability{
			{Color: "verde", Storage: "128GB", Total: 10, Available: 7, Reserved: 3, InStock: true},
		},
	}
}

func TestRedisAvailabilityCache_SetGetInvalidate(t *testing.T) {
	c, _ := newCache(t, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "pixel-9")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, sampleView()))
	got, ok, err := c.Get(ctx, "pixel-9")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleView(), got)

	require.NoError(t, c.Invalidate(ctx, "pixel-9"))
	_, ok, err = c.Get(ctx, "pixel-9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisAvailabilityCache_TTL(t *testing.T) {
	c, srv := newCache(t, 30*time.Second)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, sampleView()))

	assert.Equal(t, 30*time.Second, srv.TTL("availability:pixel-9"))
	srv.FastForward(31 * time.Second)

	_, ok, err := c.Get(ctx, "pixel-9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisAvailabilityCache_EntradaCorrupta(t *testing.T) {
	c, srv := newCache(t, time.Minute)
	require.NoError(t, srv.Set("availability:pixel-9", "{no-json"))

	_, ok, err := c.Get(context.Background(), "pixel-9")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, srv.Exists("availability:pixel-9"))
}

func TestRedisAvailabilityCache_ServidorCaido(t *testing.T) {
	c, srv := newCache(t, time.Minute)
	srv.Close()

	_, _, err := c.Get(context.Background(), "pixel-9")
	assert.Error(t, err)
}
