// Package availability expone la proyección de lectura del stock: disponibilidad por
// dispositivo y alertas de stock bajo. Nunca muta contadores.
package availability

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jhoicas/device-stock-api/internal/application/inventory"
	"github.com/jhoicas/device-stock-api/internal/domain"
	"github.com/jhoicas/device-stock-api/internal/domain/entity"
	"github.com/jhoicas/device-stock-api/internal/domain/repository"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

// Cache almacena vistas por dispositivo. Implementado por memory.AvailabilityCache y cache.RedisAvailabilityCache.
type Cache interface {
	Get(ctx context.Context, deviceID string) (*entity.DeviceAvailability, bool, error)
	Set(ctx context.Context, view *entity.DeviceAvailability) error
	Invalidate(ctx context.Context, deviceID string) error
}

// AlertPublisher entrega alertas de stock bajo a un consumidor externo.
type AlertPublisher interface {
	Publish(ctx context.Context, alerts []entity.LowStockAlert) error
}

var _ inventory.ChangeListener = (*Service)(nil)

// Service vista de lectura cache-aside sobre el repositorio de contadores.
//
// versions cuenta invalidaciones por dispositivo: una lectura que empezó antes de una
// invalidación no puebla la caché con la vista anterior. Solo cubre invalidaciones de
// este proceso; entre réplicas el límite sigue siendo CACHE_TTL.
type Service struct {
	records   repository.StockRecordRepository
	cache     Cache
	publisher AlertPublisher
	log       *logger.Logger

	mu       sync.Mutex
	versions map[string]uint64
}

// NewService cache y publisher pueden ser nil.
func NewService(records repository.StockRecordRepository, cache Cache, publisher AlertPublisher, log *logger.Logger) *Service {
	return &Service{
		records:   records,
		cache:     cache,
		publisher: publisher,
		log:       log.Named("availability"),
		versions:  make(map[string]uint64),
	}
}

// GetAvailability desglose por color y almacenamiento. Un dispositivo sin registros
// devuelve una vista vacía, no un error.
func (s *Service) GetAvailability(ctx context.Context, deviceID string) (*entity.DeviceAvailability, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, fmt.Errorf("%w: device_id obligatorio", domain.ErrInvalidInput)
	}

	if s.cache != nil {
		view, ok, err := s.cache.Get(ctx, deviceID)
		if err != nil {
			s.log.Warn().Err(err).Str("device_id", deviceID).Msg("caché de disponibilidad no disponible")
		} else if ok {
			return view, nil
		}
	}

	version := s.version(deviceID)
	records, err := s.records.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("listar stock del dispositivo: %w", err)
	}
	view := buildView(deviceID, records)

	if s.cache != nil {
		s.populate(ctx, view, version)
	}
	return view, nil
}

// populate guarda la vista solo si no hubo invalidaciones desde que se leyó. El mutex
// cubre la comparación y el Set para que una invalidación no quede entre ambos.
func (s *Service) populate(ctx context.Context, view *entity.DeviceAvailability, version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[view.DeviceID] != version {
		s.log.Debug().Str("device_id", view.DeviceID).Msg("vista descartada: el stock cambió durante la lectura")
		return
	}
	if err := s.cache.Set(ctx, view); err != nil {
		s.log.Warn().Err(err).Str("device_id", view.DeviceID).Msg("no se pudo poblar la caché de disponibilidad")
	}
}

func (s *Service) version(deviceID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[deviceID]
}

// InvalidateDevice descarta la vista cacheada del dispositivo.
func (s *Service) InvalidateDevice(ctx context.Context, deviceID string) error {
	if s.cache == nil {
		return nil
	}
	s.mu.Lock()
	s.versions[deviceID]++
	s.mu.Unlock()
	if err := s.cache.Invalidate(ctx, deviceID); err != nil {
		return fmt.Errorf("invalidar disponibilidad de %s: %w", deviceID, err)
	}
	return nil
}

// StockChanged lo invoca el ledger tras cada mutación confirmada.
func (s *Service) StockChanged(ctx context.Context, sku entity.SKU) error {
	return s.InvalidateDevice(ctx, sku.DeviceID)
}

// GetLowStockAlerts registros con available <= umbral. CRITICAL primero y luego por
// stock disponible ascendente.
func (s *Service) GetLowStockAlerts(ctx context.Context) ([]entity.LowStockAlert, error) {
	records, err := s.records.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar stock bajo: %w", err)
	}
	alerts := make([]entity.LowStockAlert, 0, len(records))
	for _, r := range records {
		if r.AvailableStock > r.AlertThreshold {
			continue
		}
		alerts = append(alerts, entity.LowStockAlert{
			SKU:            r.SKU,
			AvailableStock: r.AvailableStock,
			AlertThreshold: r.AlertThreshold,
			Severity:       entity.SeverityFor(r.AvailableStock),
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		ci := alerts[i].Severity == entity.AlertSeverityCritical
		cj := alerts[j].Severity == entity.AlertSeverityCritical
		if ci != cj {
			return ci
		}
		if alerts[i].AvailableStock != alerts[j].AvailableStock {
			return alerts[i].AvailableStock < alerts[j].AvailableStock
		}
		return alerts[i].SKU.String() < alerts[j].SKU.String()
	})
	return alerts, nil
}

// PublishLowStockAlerts calcula las alertas actuales y las entrega al publisher.
// Devuelve la cantidad publicada.
func (s *Service) PublishLowStockAlerts(ctx context.Context) (int, error) {
	alerts, err := s.GetLowStockAlerts(ctx)
	if err != nil {
		return 0, err
	}
	if len(alerts) == 0 || s.publisher == nil {
		return 0, nil
	}
	if err := s.publisher.Publish(ctx, alerts); err != nil {
		return 0, fmt.Errorf("publicar alertas de stock bajo: %w", err)
	}
	s.log.Info().Int("alerts", len(alerts)).Msg("alertas de stock bajo publicadas")
	return len(alerts), nil
}

// Job punto de entrada para el scheduler.
func (s *Service) Job() func() {
	return func() {
		if _, err := s.PublishLowStockAlerts(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("falló la publicación programada de alertas")
		}
	}
}

func buildView(deviceID string, records []*entity.StockRecord) *entity.DeviceAvailability {
	view := &entity.DeviceAvailability{
		DeviceID: deviceID,
		Variants: make([]entity.VariantAvailability, 0, len(records)),
	}
	for _, r := range records {
		view.TotalAvailable += r.AvailableStock
		view.Variants = append(view.Variants, entity.VariantAvailability{
			Color:     r.SKU.Color,
			Storage:   r.SKU.Storage,
			Total:     r.TotalStock,
			Available: r.AvailableStock,
			Reserved:  r.ReservedStock,
			Allocated: r.AllocatedStock,
			InStock:   r.AvailableStock > 0,
		})
	}
	sort.Slice(view.Variants, func(i, j int) bool {
		if view.Variants[i].Color != view.Variants[j].Color {
			return view.Variants[i].Color < view.Variants[j].Color
		}
		return view.Variants[i].Storage < view.Variants[j].Storage
	})
	return view
}
