package entity

import "time"

// StockRecord representa los contadores de stock de un SKU.
// Solo el ledger de inventario los modifica, siempre dentro de la sección crítica del SKU.
type StockRecord struct {
	SKU            SKU
	TotalStock     int
	AvailableStock int
	ReservedStock  int
	AllocatedStock int
	AlertThreshold int
	UpdatedAt      time.Time
}

// NewStockRecord crea un registro con todos los contadores en cero.
func NewStockRecord(sku SKU, alertThreshold int, now time.Time) *StockRecord {
	return &StockRecord{SKU: sku, AlertThreshold: alertThreshold, UpdatedAt: now}
}

// Balanced indica si available + reserved + allocated == total.
func (r *StockRecord) Balanced() bool {
	return r.AvailableStock+r.ReservedStock+r.AllocatedStock == r.TotalStock
}

// Clone devuelve una copia independiente.
func (r *StockRecord) Clone() *StockRecord {
	c := *r
	return &c
}
