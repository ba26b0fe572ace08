package repository

import (
	"context"

	"github.com/jhoicas/device-stock-api/internal/domain/entity"
)

// StockRecordRepository define el puerto de persistencia de contadores por SKU.
// Las escrituras solo las hace el ledger de inventario dentro de la sección crítica del SKU.
type StockRecordRepository interface {
	// Get devuelve nil, nil si el registro no existe.
	Get(ctx context.Context, sku entity.SKU) (*entity.StockRecord, error)
	// GetOrCreate crea un registro en cero con el umbral indicado si no existe.
	GetOrCreate(ctx context.Context, sku entity.SKU, alertThreshold int) (*entity.StockRecord, error)
	Save(ctx context.Context, record *entity.StockRecord) error
	ListByDevice(ctx context.Context, deviceID string) ([]*entity.StockRecord, error)
	// ListLowStock devuelve los registros con available_stock <= alert_threshold.
	ListLowStock(ctx context.Context) ([]*entity.StockRecord, error)
}
