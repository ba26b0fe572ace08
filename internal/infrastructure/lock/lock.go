// Package lock implementa inventory.MutualExclusion sobre distintos sustratos de coordinación:
// memoria (un solo proceso), Redis, ZooKeeper y advisory locks de PostgreSQL.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/device-stock-api/internal/domain"
)

// unavailable envuelve la causa con domain.ErrLockUnavailable.
func unavailable(key string, cause error) error {
	return fmt.Errorf("%w: clave %s: %v", domain.ErrLockUnavailable, key, cause)
}

// acquireContext limita la espera de adquisición; wait <= 0 deja solo el contexto del llamador.
func acquireContext(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

// releaseContext contexto para liberar aunque el del llamador ya esté cancelado.
func releaseContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
}
