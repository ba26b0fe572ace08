package bootstrap_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/device-stock-api/internal/bootstrap"
	"github.com/jhoicas/device-stock-api/internal/domain/entity"
	"github.com/jhoicas/device-stock-api/pkg/config"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

func memoryConfig(t *testing.T, values map[string]string) *config.Config {
	t.Helper()
	v := viper.New()
	v.Set("DB_DRIVER", "memory")
	for k, val := range values {
		v.Set(k, val)
	}
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestNew_MemoriaCableaServicios(t *testing.T) {
	ctx := context.Background()
	c, err := bootstrap.New(ctx, memoryConfig(t, nil), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	sku := entity.SKU{DeviceID: "nokia-x", Color: "gris", Storage: "64GB"}
	_, err = c.Ledger.ResizeCapacity(ctx, sku, 3)
	require.NoError(t, err)
	res, err := c.Lifecycle.CreateReservation(ctx, sku, "c-1", 2)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusReserved, res.Status)

	view, err := c.Availability.GetAvailability(ctx, "nokia-x")
	require.NoError(t, err)
	assert.Equal(t, 1, view.TotalAvailable)

	report := c.Sweeper.Run(ctx)
	assert.Zero(t, report.Expired)
}

func TestNew_RedisComoCache(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	v := viper.New()
	v.Set("DB_DRIVER", "memory")
	v.Set("REDIS_ADDR", srv.Addr())
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	// El almacén en memoria solo admite el lock local; la caché sí usa Redis.
	c, err := bootstrap.New(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	sku := entity.SKU{DeviceID: "nokia-x", Color: "gris", Storage: "64GB"}
	_, err = c.Ledger.ResizeCapacity(ctx, sku, 3)
	require.NoError(t, err)
	_, err = c.Availability.GetAvailability(ctx, "nokia-x")
	require.NoError(t, err)
	assert.True(t, srv.Exists("availability:nokia-x"))

	_, err = c.Ledger.Reserve(ctx, sku, 1)
	require.NoError(t, err)
	assert.False(t, srv.Exists("availability:nokia-x"), "la mutación invalida la vista en Redis")
}

func TestNew_RedisInalcanzable(t *testing.T) {
	cfg := memoryConfig(t, map[string]string{"REDIS_ADDR": "127.0.0.1:1"})

	_, err := bootstrap.New(context.Background(), cfg, logger.Nop())
	assert.ErrorContains(t, err, "Redis")
}
