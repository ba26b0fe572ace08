// Package cache implementa la caché distribuida de vistas de disponibilidad sobre Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/device-stock-api/internal/domain/entity"
)

const defaultPrefix = "availability:"

// RedisAvailabilityCache guarda cada vista como JSON con TTL. Varias réplicas de la API
// comparten la misma caché y la invalidación del ledger es visible para todas.
type RedisAvailabilityCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisAvailabilityCache ttl <= 0 deja las claves sin expiración.
func NewRedisAvailabilityCache(client redis.UniversalClient, ttl time.Duration) *RedisAvailabilityCache {
	return &RedisAvailabilityCache{client: client, prefix: defaultPrefix, ttl: ttl}
}

func (c *RedisAvailabilityCache) key(deviceID string) string {
	return c.prefix + deviceID
}

func (c *RedisAvailabilityCache) Get(ctx context.Context, deviceID string) (*entity.DeviceAvailability, bool, error) {
	raw, err := c.client.Get(ctx, c.key(deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", deviceID, err)
	}
	var view entity.DeviceAvailability
	if err := json.Unmarshal(raw, &view); err != nil {
		// Entrada corrupta: se descarta y se trata como fallo de caché.
		_ = c.client.Del(ctx, c.key(deviceID)).Err()
		return nil, false, nil
	}
	return &view, true, nil
}

func (c *RedisAvailabilityCache) Set(ctx context.Context, view *entity.DeviceAvailability) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("serializar disponibilidad: %w", err)
	}
	if err := c.client.Set(ctx, c.key(view.DeviceID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", view.DeviceID, err)
	}
	return nil
}

func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, deviceID string) error {
	if err := c.client.Del(ctx, c.key(deviceID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", deviceID, err)
	}
	return nil
}
