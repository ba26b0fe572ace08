package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/device-stock-api/internal/application/inventory"
	"github.com/jhoicas/device-stock-api/internal/domain"
	"github.com/jhoicas/device-stock-api/internal/domain/entity"
	"github.com/jhoicas/device-stock-api/internal/domain/repository"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

// Config parámetros del ciclo de vida.
type Config struct {
	HoldDuration time.Duration // desplazamiento fijo de expires_at desde la creación
	WriteRetries int           // reintentos de la escritura de la reserva tras mutar stock
	RetryBackoff time.Duration // espera base entre reintentos (crece linealmente)
}

// Lifecycle es el único dueño del estado de las reservas. Al crear, el ledger retiene
// primero y la reserva se persiste después (con compensación si la escritura se agota).
// En el resto de transiciones el estado se escribe primero de forma condicional y el
// ledger muta después; si el ledger rechaza, el estado vuelve al anterior. Así un fallo
// de escritura nunca deja stock movido sin su estado y repetir la operación no mueve
// el stock dos veces.
//
// Las transiciones de una misma reserva se serializan con la clave "reservation:<id>",
// que se toma siempre antes de la clave del SKU que toma el ledger. El orden fijo evita
// interbloqueos.
type Lifecycle struct {
	ledger       StockLedger
	reservations repository.ReservationRepository
	mutex        inventory.MutualExclusion
	cfg          Config
	metrics      Metrics
	log          *logger.Logger
	now          func() time.Time
	newID        func() string
}

// Option configura dependencias opcionales.
type Option func(*Lifecycle)

// WithMetrics registra el colector de métricas.
func WithMetrics(m Metrics) Option { return func(l *Lifecycle) { l.metrics = m } }

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option { return func(l *Lifecycle) { l.now = now } }

// WithIDGenerator reemplaza el generador de IDs (tests).
func WithIDGenerator(gen func() string) Option { return func(l *Lifecycle) { l.newID = gen } }

// NewLifecycle construye el servicio de reservas.
func NewLifecycle(
	ledger StockLedger,
	reservations repository.ReservationRepository,
	mutex inventory.MutualExclusion,
	cfg Config,
	log *logger.Logger,
	opts ...Option,
) *Lifecycle {
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = 7 * 24 * time.Hour
	}
	if cfg.WriteRetries < 0 {
		cfg.WriteRetries = 0
	}
	l := &Lifecycle{
		ledger:       ledger,
		reservations: reservations,
		mutex:        mutex,
		cfg:          cfg,
		metrics:      nopMetrics{},
		log:          log.Named("reservation_lifecycle"),
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateReservation reserva stock y persiste la reserva en RESERVED.
// Si el ledger rechaza no se crea ninguna reserva y se propaga el error (p. ej. ErrInsufficientStock).
func (l *Lifecycle) CreateReservation(ctx context.Context, sku entity.SKU, customerID string, quantity int) (*entity.Reservation, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("%w: customer_id obligatorio", domain.ErrInvalidInput)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: la cantidad debe ser positiva", domain.ErrInvalidInput)
	}
	if err := sku.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if _, err := l.ledger.Reserve(ctx, sku, quantity); err != nil {
		return nil, err
	}

	now := l.now()
	res := &entity.Reservation{
		ID:         l.newID(),
		SKU:        sku,
		CustomerID: customerID,
		Quantity:   quantity,
		Status:     entity.ReservationStatusReserved,
		ExpiresAt:  now.Add(l.cfg.HoldDuration),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := l.retry(ctx, "create", func(ctx context.Context) error {
		return l.reservations.Create(ctx, res)
	})
	if err != nil {
		// Sin reserva persistida el stock retenido quedaría huérfano: se devuelve.
		if _, rerr := l.ledger.Release(context.WithoutCancel(ctx), sku, quantity); rerr != nil {
			l.log.Error().Err(rerr).Str("sku", sku.String()).Int("quantity", quantity).
				Msg("no se pudo compensar la reserva fallida; requiere conciliación manual")
		}
		return nil, fmt.Errorf("persistir reserva: %w", err)
	}

	l.metrics.ReservationTransition(entity.ReservationStatusReserved)
	l.log.Info().Str("reservation_id", res.ID).Str("sku", sku.String()).
		Str("customer_id", customerID).Int("quantity", quantity).Msg("reserva creada")
	return res, nil
}

// AllocateReservation confirma una reserva vigente. No asigna retenciones vencidas:
// devuelve ErrReservationExpired y la deja para el barrido.
func (l *Lifecycle) AllocateReservation(ctx context.Context, id string) (*entity.Reservation, error) {
	return l.withReservation(ctx, id, func(ctx context.Context, res *entity.Reservation) (*entity.Reservation, error) {
		if res.Status != entity.ReservationStatusReserved {
			return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, res.Status, entity.ReservationStatusAllocated)
		}
		if res.IsExpired(l.now()) {
			return nil, fmt.Errorf("%w: venció el %s", domain.ErrReservationExpired, res.ExpiresAt.Format(time.RFC3339))
		}
		return l.transition(ctx, res, entity.ReservationStatusAllocated, func(ctx context.Context) error {
			_, err := l.ledger.Allocate(ctx, res.SKU, res.Quantity)
			return err
		})
	})
}

// CancelReservation cancela una reserva RESERVED (libera) o ALLOCATED (restaura).
// Cancelar una reserva ya terminal es un no-op exitoso.
func (l *Lifecycle) CancelReservation(ctx context.Context, id string) (*entity.Reservation, error) {
	return l.withReservation(ctx, id, func(ctx context.Context, res *entity.Reservation) (*entity.Reservation, error) {
		if res.Status.IsTerminal() {
			return res, nil
		}
		var move func(ctx context.Context, sku entity.SKU, qty int) (*entity.StockRecord, error)
		switch res.Status {
		case entity.ReservationStatusReserved:
			move = l.ledger.Release
		case entity.ReservationStatusAllocated:
			move = l.ledger.Restore
		default:
			return nil, fmt.Errorf("%w: estado desconocido %q", domain.ErrInvalidStateTransition, res.Status)
		}
		return l.transition(ctx, res, entity.ReservationStatusCancelled, func(ctx context.Context) error {
			_, err := move(ctx, res.SKU, res.Quantity)
			return err
		})
	})
}

// ExpireReservation libera una reserva RESERVED vencida y la marca EXPIRED.
// Devuelve false sin error si la reserva ya no está en condiciones de expirar.
func (l *Lifecycle) ExpireReservation(ctx context.Context, id string) (bool, error) {
	expired := false
	_, err := l.withReservation(ctx, id, func(ctx context.Context, res *entity.Reservation) (*entity.Reservation, error) {
		if res.Status != entity.ReservationStatusReserved || !res.IsExpired(l.now()) {
			return res, nil
		}
		out, err := l.transition(ctx, res, entity.ReservationStatusExpired, func(ctx context.Context) error {
			_, err := l.ledger.Release(ctx, res.SKU, res.Quantity)
			return err
		})
		if err != nil {
			return nil, err
		}
		expired = true
		return out, nil
	})
	return expired, err
}

// GetReservation lectura pura.
func (l *Lifecycle) GetReservation(ctx context.Context, id string) (*entity.Reservation, error) {
	res, err := l.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("leer reserva: %w", err)
	}
	if res == nil {
		return nil, domain.ErrReservationNotFound
	}
	return res, nil
}

// ListByCustomer lectura pura, más recientes primero.
func (l *Lifecycle) ListByCustomer(ctx context.Context, customerID string) ([]*entity.Reservation, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("%w: customer_id obligatorio", domain.ErrInvalidInput)
	}
	list, err := l.reservations.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("listar reservas: %w", err)
	}
	return list, nil
}

func (l *Lifecycle) withReservation(
	ctx context.Context,
	id string,
	fn func(ctx context.Context, res *entity.Reservation) (*entity.Reservation, error),
) (*entity.Reservation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrReservationNotFound
	}
	var out *entity.Reservation
	err := l.mutex.WithLock(ctx, "reservation:"+id, func(ctx context.Context) error {
		res, err := l.reservations.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("leer reserva: %w", err)
		}
		if res == nil {
			return domain.ErrReservationNotFound
		}
		out, err = fn(ctx, res)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// transition escribe from -> to con una escritura condicional y después aplica la mutación
// del ledger. Si la escritura se agota el stock no se tocó. Si el ledger falla se revierte
// to -> from; solo si esa reversión también se agota queda un desajuste que se registra.
func (l *Lifecycle) transition(
	ctx context.Context,
	res *entity.Reservation,
	to entity.ReservationStatus,
	apply func(ctx context.Context) error,
) (*entity.Reservation, error) {
	if !res.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, res.Status, to)
	}
	now := l.now()
	err := l.retry(ctx, strings.ToLower(string(to)), func(ctx context.Context) error {
		return l.reservations.UpdateStatus(ctx, res.ID, res.Status, to, now)
	})
	if err != nil {
		l.log.Warn().Err(err).
			Str("reservation_id", res.ID).
			Str("from", string(res.Status)).
			Str("to", string(to)).
			Msg("no se pudo escribir el estado de la reserva; el stock no se modificó")
		return nil, fmt.Errorf("actualizar estado de reserva: %w", err)
	}

	if err := apply(ctx); err != nil {
		rerr := l.retry(ctx, "revert", func(ctx context.Context) error {
			return l.reservations.UpdateStatus(ctx, res.ID, to, res.Status, l.now())
		})
		if rerr != nil {
			l.log.Error().Err(rerr).AnErr("ledger_error", err).
				Str("reservation_id", res.ID).
				Str("sku", res.SKU.String()).
				Str("from", string(res.Status)).
				Str("to", string(to)).
				Msg("el ledger rechazó la mutación y el estado no se pudo revertir; requiere conciliación")
		}
		return nil, err
	}

	out := *res
	out.Status = to
	out.UpdatedAt = now
	l.metrics.ReservationTransition(to)
	l.log.Info().Str("reservation_id", res.ID).Str("from", string(res.Status)).Str("to", string(to)).Msg("transición de reserva")
	return &out, nil
}

// retry reintenta escrituras de reservas ante fallos transitorios del almacén. Los errores
// de negocio (transición inválida, no encontrada) no se reintentan. Se usa un contexto sin
// cancelación: abandonar una compensación o una reversión a mitad deja el estado desalineado.
func (l *Lifecycle) retry(ctx context.Context, op string, write func(ctx context.Context) error) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 0; attempt <= l.cfg.WriteRetries; attempt++ {
		if attempt > 0 {
			l.metrics.ReservationWriteRetry(op)
			l.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("reintentando escritura de reserva")
			time.Sleep(time.Duration(attempt) * l.cfg.RetryBackoff)
		}
		if err = write(ctx); err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrInvalidStateTransition) || errors.Is(err, domain.ErrReservationNotFound) {
			return err
		}
	}
	return err
}
