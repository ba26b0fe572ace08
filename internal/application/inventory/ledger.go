package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/device-stock-api/internal/domain"
	"github.com/jhoicas/device-stock-api/internal/domain/entity"
	"github.com/jhoicas/device-stock-api/internal/domain/repository"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

// Nombres de operación usados en logs y métricas.
const (
	OpGetOrCreate       = "get_or_create"
	OpResize            = "resize_capacity"
	OpReserve           = "reserve"
	OpRelease           = "release"
	OpAllocate          = "allocate"
	OpRestore           = "restore"
	OpSetAlertThreshold = "set_alert_threshold"
)

// StockLedger es el único componente que modifica los contadores de stock.
// Cada mutación es una unidad atómica: adquirir la sección crítica del SKU, leer,
// validar, escribir y liberar. Ninguna operación se aplica parcialmente.
type StockLedger struct {
	records          repository.StockRecordRepository
	mutex            MutualExclusion
	listener         ChangeListener
	metrics          Metrics
	log              *logger.Logger
	defaultThreshold int
	now              func() time.Time
}

// Option configura dependencias opcionales del ledger.
type Option func(*StockLedger)

// WithChangeListener registra quien invalida vistas derivadas tras cada mutación.
func WithChangeListener(l ChangeListener) Option {
	return func(s *StockLedger) { s.listener = l }
}

// WithMetrics registra el colector de métricas.
func WithMetrics(m Metrics) Option {
	return func(s *StockLedger) { s.metrics = m }
}

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(s *StockLedger) { s.now = now }
}

// NewStockLedger construye el ledger sobre el repositorio de registros y la exclusión mutua.
func NewStockLedger(
	records repository.StockRecordRepository,
	mutex MutualExclusion,
	log *logger.Logger,
	defaultAlertThreshold int,
	opts ...Option,
) *StockLedger {
	l := &StockLedger{
		records:          records,
		mutex:            mutex,
		metrics:          nopMetrics{},
		log:              log.Named("stock_ledger"),
		defaultThreshold: defaultAlertThreshold,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ResizeResult resultado de ResizeCapacity. Clamped indica que la reducción superó el
// stock disponible y este quedó en cero; en ese caso el invariante
// available+reserved+allocated == total queda roto hasta que un operador lo concilie.
type ResizeResult struct {
	Record         *entity.StockRecord
	RequestedDelta int
	AppliedDelta   int
	Clamped        bool
}

// GetOrCreate devuelve el registro del SKU creándolo en cero si no existe.
func (l *StockLedger) GetOrCreate(ctx context.Context, sku entity.SKU) (*entity.StockRecord, error) {
	if err := sku.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	var out *entity.StockRecord
	err := l.mutex.WithLock(ctx, sku.LockKey(), func(ctx context.Context) error {
		rec, err := l.records.GetOrCreate(ctx, sku, l.defaultThreshold)
		if err != nil {
			return fmt.Errorf("leer registro de stock: %w", err)
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, l.fail(OpGetOrCreate, sku, err)
	}
	return out, nil
}

// Get devuelve el registro sin crearlo. ErrStockRecordNotFound si no existe.
func (l *StockLedger) Get(ctx context.Context, sku entity.SKU) (*entity.StockRecord, error) {
	if err := sku.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	rec, err := l.records.Get(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("leer registro de stock: %w", err)
	}
	if rec == nil {
		return nil, domain.ErrStockRecordNotFound
	}
	return rec, nil
}

// CheckAvailability lectura pura: available >= quantity. No toma la sección crítica;
// lee una fila completa confirmada, nunca un estado intermedio.
func (l *StockLedger) CheckAvailability(ctx context.Context, sku entity.SKU, quantity int) (bool, error) {
	if err := validateQuantity(sku, quantity); err != nil {
		return false, err
	}
	rec, err := l.records.Get(ctx, sku)
	if err != nil {
		return false, fmt.Errorf("leer registro de stock: %w", err)
	}
	if rec == nil {
		return false, nil
	}
	return rec.AvailableStock >= quantity, nil
}

// ResizeCapacity fija total_stock y traslada la diferencia a available_stock con piso en cero.
func (l *StockLedger) ResizeCapacity(ctx context.Context, sku entity.SKU, newTotal int) (ResizeResult, error) {
	if err := sku.Validate(); err != nil {
		return ResizeResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if newTotal < 0 {
		return ResizeResult{}, fmt.Errorf("%w: total_stock negativo", domain.ErrInvalidInput)
	}
	var res ResizeResult
	rec, err := l.mutate(ctx, OpResize, sku, false, func(r *entity.StockRecord) error {
		res.RequestedDelta = newTotal - r.TotalStock
		available := r.AvailableStock + res.RequestedDelta
		if available < 0 {
			available = 0
			res.Clamped = true
		}
		res.AppliedDelta = available - r.AvailableStock
		r.TotalStock = newTotal
		r.AvailableStock = available
		return nil
	})
	if err != nil {
		return ResizeResult{}, err
	}
	res.Record = rec
	if res.Clamped {
		l.clamped(OpResize, sku, res.RequestedDelta, res.AppliedDelta)
	}
	return res, nil
}

// Reserve mueve quantity de available a reserved. ErrInsufficientStock si no alcanza.
func (l *StockLedger) Reserve(ctx context.Context, sku entity.SKU, quantity int) (*entity.StockRecord, error) {
	if err := validateQuantity(sku, quantity); err != nil {
		return nil, err
	}
	return l.mutate(ctx, OpReserve, sku, false, func(r *entity.StockRecord) error {
		if r.AvailableStock < quantity {
			return fmt.Errorf("%w: %s disponible=%d solicitado=%d", domain.ErrInsufficientStock, sku, r.AvailableStock, quantity)
		}
		r.AvailableStock -= quantity
		r.ReservedStock += quantity
		return nil
	})
}

// Release devuelve a available una reserva nunca asignada. reserved tiene piso en cero
// para tolerar llamadas repetidas; solo se mueve lo que realmente estaba reservado.
func (l *StockLedger) Release(ctx context.Context, sku entity.SKU, quantity int) (*entity.StockRecord, error) {
	if err := validateQuantity(sku, quantity); err != nil {
		return nil, err
	}
	moved := quantity
	rec, err := l.mutate(ctx, OpRelease, sku, false, func(r *entity.StockRecord) error {
		moved = min(quantity, r.ReservedStock)
		r.ReservedStock -= moved
		r.AvailableStock += moved
		return nil
	})
	if err != nil {
		return nil, err
	}
	if moved != quantity {
		l.clamped(OpRelease, sku, quantity, moved)
	}
	return rec, nil
}

// Allocate mueve quantity de reserved a allocated. ErrInsufficientReservedStock si no alcanza.
func (l *StockLedger) Allocate(ctx context.Context, sku entity.SKU, quantity int) (*entity.StockRecord, error) {
	if err := validateQuantity(sku, quantity); err != nil {
		return nil, err
	}
	return l.mutate(ctx, OpAllocate, sku, false, func(r *entity.StockRecord) error {
		if r.ReservedStock < quantity {
			return fmt.Errorf("%w: %s reservado=%d solicitado=%d", domain.ErrInsufficientReservedStock, sku, r.ReservedStock, quantity)
		}
		r.ReservedStock -= quantity
		r.AllocatedStock += quantity
		return nil
	})
}

// Restore revierte una asignación: allocated -> available, con piso en cero del lado asignado.
func (l *StockLedger) Restore(ctx context.Context, sku entity.SKU, quantity int) (*entity.StockRecord, error) {
	if err := validateQuantity(sku, quantity); err != nil {
		return nil, err
	}
	moved := quantity
	rec, err := l.mutate(ctx, OpRestore, sku, false, func(r *entity.StockRecord) error {
		moved = min(quantity, r.AllocatedStock)
		r.AllocatedStock -= moved
		r.AvailableStock += moved
		return nil
	})
	if err != nil {
		return nil, err
	}
	if moved != quantity {
		l.clamped(OpRestore, sku, quantity, moved)
	}
	return rec, nil
}

// SetAlertThreshold cambia el umbral de alerta de un SKU existente.
func (l *StockLedger) SetAlertThreshold(ctx context.Context, sku entity.SKU, threshold int) (*entity.StockRecord, error) {
	if err := sku.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if threshold < 0 {
		return nil, fmt.Errorf("%w: umbral negativo", domain.ErrInvalidInput)
	}
	return l.mutate(ctx, OpSetAlertThreshold, sku, true, func(r *entity.StockRecord) error {
		r.AlertThreshold = threshold
		return nil
	})
}

// mutate ejecuta read-validate-write dentro de la sección crítica del SKU y notifica al listener.
func (l *StockLedger) mutate(
	ctx context.Context,
	op string,
	sku entity.SKU,
	mustExist bool,
	apply func(r *entity.StockRecord) error,
) (*entity.StockRecord, error) {
	var out *entity.StockRecord
	err := l.mutex.WithLock(ctx, sku.LockKey(), func(ctx context.Context) error {
		var (
			current *entity.StockRecord
			err     error
		)
		if mustExist {
			current, err = l.records.Get(ctx, sku)
			if err == nil && current == nil {
				return domain.ErrStockRecordNotFound
			}
		} else {
			current, err = l.records.GetOrCreate(ctx, sku, l.defaultThreshold)
		}
		if err != nil {
			return fmt.Errorf("leer registro de stock: %w", err)
		}

		next := current.Clone()
		if err := apply(next); err != nil {
			return err
		}
		next.UpdatedAt = l.now()
		if err := l.records.Save(ctx, next); err != nil {
			return fmt.Errorf("guardar registro de stock: %w", err)
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, l.fail(op, sku, err)
	}

	l.metrics.StockOperation(op, "ok")
	if l.listener != nil {
		if lerr := l.listener.StockChanged(ctx, sku); lerr != nil {
			l.log.Warn().Err(lerr).Str("op", op).Str("sku", sku.String()).Msg("no se pudo invalidar la vista de disponibilidad")
		}
	}
	return out, nil
}

func (l *StockLedger) fail(op string, sku entity.SKU, err error) error {
	switch {
	case errors.Is(err, domain.ErrLockUnavailable):
		l.metrics.LockUnavailable(op)
		l.metrics.StockOperation(op, "lock_unavailable")
		l.log.Warn().Err(err).Str("op", op).Str("sku", sku.String()).Msg("sección crítica no disponible, sin mutación")
	case domain.IsUnavailable(err), errors.Is(err, domain.ErrStockRecordNotFound):
		l.metrics.StockOperation(op, "rejected")
	default:
		l.metrics.StockOperation(op, "error")
		l.log.Error().Err(err).Str("op", op).Str("sku", sku.String()).Msg("operación de stock fallida")
	}
	return err
}

// clamped registra cuando el piso en cero cambió el delta pedido; suele indicar llamadas duplicadas aguas arriba.
func (l *StockLedger) clamped(op string, sku entity.SKU, requested, applied int) {
	l.metrics.Clamp(op)
	l.log.Warn().
		Str("op", op).
		Str("sku", sku.String()).
		Int("requested", requested).
		Int("applied", applied).
		Msg("delta recortado por piso en cero")
}

func validateQuantity(sku entity.SKU, quantity int) error {
	if err := sku.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: la cantidad debe ser positiva", domain.ErrInvalidInput)
	}
	return nil
}
