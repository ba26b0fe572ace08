package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/device-stock-api/internal/domain/entity"
	"github.com/jhoicas/device-stock-api/internal/domain/repository"
)

var _ repository.StockRecordRepository = (*StockRecordRepo)(nil)

const stockRecordColumns = `device_id, color, storage, total_stock, available_stock, reserved_stock,
	allocated_stock, alert_threshold, updated_at`

// StockRecordRepo implementación de StockRecordRepository sobre PostgreSQL (usable con pool o tx).
type StockRecordRepo struct {
	q Querier
}

// NewStockRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockRecordRepository(q Querier) *StockRecordRepo {
	return &StockRecordRepo{q: q}
}

func (r *StockRecordRepo) Get(ctx context.Context, sku entity.SKU) (*entity.StockRecord, error) {
	query := `SELECT ` + stockRecordColumns + `
		FROM stock_records WHERE device_id = $1 AND color = $2 AND storage = $3`
	rec, err := scanStockRecord(r.q.QueryRow(ctx, query, sku.DeviceID, sku.Color, sku.Storage))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock record: %w", err)
	}
	return rec, nil
}

// GetOrCreate inserta la fila en cero si falta. ON CONFLICT DO NOTHING hace segura la
// carrera entre dos creadores; ambos leen luego la misma fila.
func (r *StockRecordRepo) GetOrCreate(ctx context.Context, sku entity.SKU, alertThreshold int) (*entity.StockRecord, error) {
	insert := `
		INSERT INTO stock_records (device_id, color, storage, total_stock, available_stock,
			reserved_stock, allocated_stock, alert_threshold, updated_at)
		VALUES ($1, $2, $3, 0, 0, 0, 0, $4, now())
		ON CONFLICT (device_id, color, storage) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, sku.DeviceID, sku.Color, sku.Storage, alertThreshold); err != nil {
		return nil, fmt.Errorf("create stock record: %w", err)
	}
	rec, err := r.Get(ctx, sku)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("stock record %s desapareció tras crearse", sku)
	}
	return rec, nil
}

func (r *StockRecordRepo) Save(ctx context.Context, rec *entity.StockRecord) error {
	query := `
		INSERT INTO stock_records (device_id, color, storage, total_stock, available_stock,
			reserved_stock, allocated_stock, alert_threshold, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (device_id, color, storage) DO UPDATE SET
			total_stock = EXCLUDED.total_stock,
			available_stock = EXCLUDED.available_stock,
			reserved_stock = EXCLUDED.reserved_stock,
			allocated_stock = EXCLUDED.allocated_stock,
			alert_threshold = EXCLUDED.alert_threshold,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		rec.SKU.DeviceID, rec.SKU.Color, rec.SKU.Storage,
		rec.TotalStock, rec.AvailableStock, rec.ReservedStock, rec.AllocatedStock,
		rec.AlertThreshold, rec.UpdatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("save stock record %s: contador negativo: %w", rec.SKU, err)
		}
		return fmt.Errorf("save stock record: %w", err)
	}
	return nil
}

func (r *StockRecordRepo) ListByDevice(ctx context.Context, deviceID string) ([]*entity.StockRecord, error) {
	query := `SELECT ` + stockRecordColumns + `
		FROM stock_records WHERE device_id = $1 ORDER BY color, storage`
	return r.list(ctx, query, deviceID)
}

func (r *StockRecordRepo) ListLowStock(ctx context.Context) ([]*entity.StockRecord, error) {
	query := `SELECT ` + stockRecordColumns + `
		FROM stock_records WHERE available_stock <= alert_threshold
		ORDER BY available_stock, device_id, color, storage`
	return r.list(ctx, query)
}

func (r *StockRecordRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock records: %w", err)
	}
	defer rows.Close()

	var list []*entity.StockRecord
	for rows.Next() {
		rec, err := scanStockRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock record: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func scanStockRecord(row pgx.Row) (*entity.StockRecord, error) {
	var rec entity.StockRecord
	err := row.Scan(
		&rec.SKU.DeviceID, &rec.SKU.Color, &rec.SKU.Storage,
		&rec.TotalStock, &rec.AvailableStock, &rec.ReservedStock, &rec.AllocatedStock,
		&rec.AlertThreshold, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
