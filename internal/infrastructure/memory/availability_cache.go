package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/device-stock-api/internal/domain/entity"
)

type cachedAvailability struct {
	view      entity.DeviceAvailability
	expiresAt time.Time
}

// AvailabilityCache caché local de vistas por dispositivo, con TTL.
type AvailabilityCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]cachedAvailability
	now   func() time.Time
}

// NewAvailabilityCache ttl <= 0 significa sin expiración.
func NewAvailabilityCache(ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{ttl: ttl, items: make(map[string]cachedAvailability), now: time.Now}
}

func (c *AvailabilityCache) Get(_ context.Context, deviceID string) (*entity.DeviceAvailability, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[deviceID]
	if !ok {
		return nil, false, nil
	}
	if c.ttl > 0 && c.now().After(item.expiresAt) {
		delete(c.items, deviceID)
		return nil, false, nil
	}
	view := item.view
	view.Variants = append([]entity.VariantAvailability(nil), item.view.Variants...)
	return &view, true, nil
}

func (c *AvailabilityCache) Set(_ context.Context, view *entity.DeviceAvailability) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := *view
	stored.Variants = append([]entity.VariantAvailability(nil), view.Variants...)
	c.items[view.DeviceID] = cachedAvailability{view: stored, expiresAt: c.now().Add(c.ttl)}
	return nil
}

func (c *AvailabilityCache) Invalidate(_ context.Context, deviceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, deviceID)
	return nil
}
