package availability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/device-stock-api/internal/application/availability"
	"github.com/jhoicas/device-stock-api/internal/application/inventory"
	"github.com/jhoicas/device-stock-api/internal/domain"
	"github.com/jhoicas/device-stock-api/internal/domain/entity"
	"github.com/jhoicas/device-stock-api/internal/infrastructure/lock"
	"github.com/jhoicas/device-stock-api/internal/infrastructure/memory"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

type capturePublisher struct {
	batches [][]entity.LowStockAlert
	err     error
}

func (p *capturePublisher) Publish(_ context.Context, alerts []entity.LowStockAlert) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, alerts)
	return nil
}

// countingRepo cuenta las lecturas que llegan al almacén. afterList, si está, corre una
// vez después de leer y antes de devolver los registros.
type countingRepo struct {
	*memory.StockRecordRepo
	listByDevice int
	afterList    func()
}

func (r *countingRepo) ListByDevice(ctx context.Context, deviceID string) ([]*entity.StockRecord, error) {
	r.listByDevice++
	records, err := r.StockRecordRepo.ListByDevice(ctx, deviceID)
	if hook := r.afterList; hook != nil {
		r.afterList = nil
		hook()
	}
	return records, err
}

func setup(t *testing.T, publisher availability.AlertPublisher) (*availability.Service, *inventory.StockLedger, *countingRepo) {
	t.Helper()
	repo := &countingRepo{StockRecordRepo: memory.NewStockRecordRepository()}
	svc := availability.NewService(repo, memory.NewAvailabilityCache(time.Minute), publisher, logger.Nop())
	ledger := inventory.NewStockLedger(repo, lock.NewMemoryMutex(time.Second), logger.Nop(), 3,
		inventory.WithChangeListener(svc))
	return svc, ledger, repo
}

func sku(color, storage string) entity.SKU {
	return entity.SKU{DeviceID: "iphone-15", Color: color, Storage: storage}
}

func TestGetAvailability_DesglosePorVariante(t *testing.T) {
	svc, ledger, _ := setup(t, nil)
	ctx := context.Background()

	_, err := ledger.ResizeCapacity(ctx, sku("negro", "256GB"), 4)
	require.NoError(t, err)
	_, err = ledger.ResizeCapacity(ctx, sku("azul", "128GB"), 6)
	require.NoError(t, err)
	_, err = ledger.Reserve(ctx, sku("azul", "128GB"), 2)
	require.NoError(t, err)
	_, err = ledger.ResizeCapacity(ctx, sku("negro", "128GB"), 0)
	require.NoError(t, err)

	view, err := svc.GetAvailability(ctx, "iphone-15")
	require.NoError(t, err)
	assert.Equal(t, "iphone-15", view.DeviceID)
	assert.Equal(t, 8, view.TotalAvailable)
	require.Len(t, view.Variants, 3)
	assert.Equal(t, entity.VariantAvailability{
		Color: "azul", Storage: "128GB", Total: 6, Available: 4, Reserved: 2, InStock: true,
	}, view.Variants[0])
	assert.Equal(t, "negro", view.Variants[1].Color)
	assert.Equal(t, "128GB", view.Variants[1].Storage)
	assert.False(t, view.Variants[1].InStock)
}

func TestGetAvailability_DispositivoSinStock(t *testing.T) {
	svc, _, _ := setup(t, nil)

	view, err := svc.GetAvailability(context.Background(), "desconocido")
	require.NoError(t, err)
	assert.Equal(t, 0, view.TotalAvailable)
	assert.Empty(t, view.Variants)

	_, err = svc.GetAvailability(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetAvailability_CacheSeInvalidaTrasMutacion(t *testing.T) {
	svc, ledger, repo := setup(t, nil)
	ctx := context.Background()
	_, err := ledger.ResizeCapacity(ctx, sku("negro", "256GB"), 5)
	require.NoError(t, err)

	first, err := svc.GetAvailability(ctx, "iphone-15")
	require.NoError(t, err)
	second, err := svc.GetAvailability(ctx, "iphone-15")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.listByDevice, "la segunda lectura sale de caché")

	_, err = ledger.Reserve(ctx, sku("negro", "256GB"), 2)
	require.NoError(t, err)

	third, err := svc.GetAvailability(ctx, "iphone-15")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listByDevice)
	assert.Equal(t, 3, third.TotalAvailable)
}

func TestGetAvailability_MutacionDuranteLecturaNoCacheaVistaVieja(t *testing.T) {
	svc, ledger, repo := setup(t, nil)
	ctx := context.Background()
	_, err := ledger.ResizeCapacity(ctx, sku("negro", "256GB"), 5)
	require.NoError(t, err)

	repo.afterList = func() {
		_, err := ledger.Reserve(ctx, sku("negro", "256GB"), 2)
		require.NoError(t, err)
	}
	first, err := svc.GetAvailability(ctx, "iphone-15")
	require.NoError(t, err)
	assert.Equal(t, 5, first.TotalAvailable, "la lectura en curso ve el estado anterior")

	second, err := svc.GetAvailability(ctx, "iphone-15")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listByDevice, "la vista anterior no quedó en caché")
	assert.Equal(t, 3, second.TotalAvailable)

	third, err := svc.GetAvailability(ctx, "iphone-15")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listByDevice)
	assert.Equal(t, second, third)
}

func TestGetLowStockAlerts_Orden(t *testing.T) {
	svc, ledger, _ := setup(t, nil)
	ctx := context.Background()

	_, err := ledger.ResizeCapacity(ctx, sku("azul", "128GB"), 3) // WARNING (3 <= 3)
	require.NoError(t, err)
	_, err = ledger.ResizeCapacity(ctx, sku("negro", "128GB"), 1) // WARNING
	require.NoError(t, err)
	_, err = ledger.ResizeCapacity(ctx, sku("rojo", "512GB"), 0) // CRITICAL
	require.NoError(t, err)
	_, err = ledger.ResizeCapacity(ctx, sku("blanco", "256GB"), 20) // sin alerta
	require.NoError(t, err)

	alerts, err := svc.GetLowStockAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, entity.AlertSeverityCritical, alerts[0].Severity)
	assert.Equal(t, "rojo", alerts[0].SKU.Color)
	assert.Equal(t, 1, alerts[1].AvailableStock)
	assert.Equal(t, entity.AlertSeverityWarning, alerts[1].Severity)
	assert.Equal(t, 3, alerts[2].AvailableStock)
	assert.Equal(t, 3, alerts[2].AlertThreshold)
}

func TestPublishLowStockAlerts(t *testing.T) {
	pub := &capturePublisher{}
	svc, ledger, _ := setup(t, pub)
	ctx := context.Background()

	n, err := svc.PublishLowStockAlerts(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, pub.batches, "sin alertas no se publica")

	_, err = ledger.ResizeCapacity(ctx, sku("rojo", "512GB"), 0)
	require.NoError(t, err)
	n, err = svc.PublishLowStockAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.batches, 1)
	assert.Equal(t, entity.AlertSeverityCritical, pub.batches[0][0].Severity)

	pub.err = errors.New("broker caído")
	_, err = svc.PublishLowStockAlerts(ctx)
	assert.ErrorContains(t, err, "broker caído")
}
