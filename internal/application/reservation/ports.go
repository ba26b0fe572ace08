package reservation

import (
	"context"

	"github.com/jhoicas/device-stock-api/internal/domain/entity"
)

// StockLedger operaciones del ledger que usa el ciclo de vida. Implementado por inventory.StockLedger.
type StockLedger interface {
	Reserve(ctx context.Context, sku entity.SKU, quantity int) (*entity.StockRecord, error)
	Release(ctx context.Context, sku entity.SKU, quantity int) (*entity.StockRecord, error)
	Allocate(ctx context.Context, sku entity.SKU, quantity int) (*entity.StockRecord, error)
	Restore(ctx context.Context, sku entity.SKU, quantity int) (*entity.StockRecord, error)
}

// Metrics contadores del ciclo de vida y del barrido.
type Metrics interface {
	ReservationTransition(status entity.ReservationStatus)
	ReservationWriteRetry(op string)
	SweepCompleted(expired, failed int)
}

type nopMetrics struct{}

func (nopMetrics) ReservationTransition(entity.ReservationStatus) {}
func (nopMetrics) ReservationWriteRetry(string)                  {}
func (nopMetrics) SweepCompleted(int, int)                       {}
