package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/device-stock-api/internal/domain/entity"
	"github.com/jhoicas/device-stock-api/internal/domain/repository"
)

var _ repository.StockRecordRepository = (*StockRecordRepo)(nil)

// StockRecordRepo almacén de registros de stock en memoria (despliegue de un solo proceso y tests).
// Devuelve siempre copias: nadie fuera del repositorio comparte punteros con el estado interno.
type StockRecordRepo struct {
	mu      sync.RWMutex
	records map[entity.SKU]*entity.StockRecord
	now     func() time.Time
}

// NewStockRecordRepository construye el repositorio vacío.
func NewStockRecordRepository() *StockRecordRepo {
	return &StockRecordRepo{records: make(map[entity.SKU]*entity.StockRecord), now: time.Now}
}

func (r *StockRecordRepo) Get(_ context.Context, sku entity.SKU) (*entity.StockRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[sku]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (r *StockRecordRepo) GetOrCreate(_ context.Context, sku entity.SKU, alertThreshold int) (*entity.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[sku]
	if !ok {
		rec = entity.NewStockRecord(sku, alertThreshold, r.now())
		r.records[sku] = rec
	}
	return rec.Clone(), nil
}

func (r *StockRecordRepo) Save(_ context.Context, record *entity.StockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.SKU] = record.Clone()
	return nil
}

func (r *StockRecordRepo) ListByDevice(_ context.Context, deviceID string) ([]*entity.StockRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*entity.StockRecord
	for sku, rec := range r.records {
		if sku.DeviceID == deviceID {
			list = append(list, rec.Clone())
		}
	}
	sortRecords(list)
	return list, nil
}

func (r *StockRecordRepo) ListLowStock(_ context.Context) ([]*entity.StockRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*entity.StockRecord
	for _, rec := range r.records {
		if rec.AvailableStock <= rec.AlertThreshold {
			list = append(list, rec.Clone())
		}
	}
	sortRecords(list)
	return list, nil
}

func sortRecords(list []*entity.StockRecord) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i].SKU, list[j].SKU
		if a.DeviceID != b.DeviceID {
			return a.DeviceID < b.DeviceID
		}
		if a.Color != b.Color {
			return a.Color < b.Color
		}
		return a.Storage < b.Storage
	})
}
