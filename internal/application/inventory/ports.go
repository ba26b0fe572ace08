package inventory

import (
	"context"

	"github.com/jhoicas/device-stock-api/internal/domain/entity"
)

// MutualExclusion provee una sección crítica exclusiva por clave, efectiva entre procesos.
// WithLock bloquea hasta adquirir la clave, ejecuta fn y libera en toda salida de fn
// (error o panic). Si la adquisición falla devuelve un error que envuelve
// domain.ErrLockUnavailable y fn no se ejecuta.
type MutualExclusion interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// ChangeListener recibe una notificación síncrona después de cada mutación confirmada.
type ChangeListener interface {
	StockChanged(ctx context.Context, sku entity.SKU) error
}

// Metrics contadores del ledger. Implementado por infrastructure/metrics.
type Metrics interface {
	StockOperation(op string, outcome string)
	Clamp(op string)
	LockUnavailable(op string)
}

type nopMetrics struct{}

func (nopMetrics) StockOperation(string, string) {}
func (nopMetrics) Clamp(string)                  {}
func (nopMetrics) LockUnavailable(string)        {}
