package repository

import (
	"context"
	"time"

	"github.com/jhoicas/device-stock-api/internal/domain/entity"
)

// ReservationRepository define el puerto de persistencia de reservas.
type ReservationRepository interface {
	Create(ctx context.Context, r *entity.Reservation) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Reservation, error)
	// UpdateStatus cambia el estado solo si el actual es from; devuelve domain.ErrInvalidStateTransition si no.
	UpdateStatus(ctx context.Context, id string, from, to entity.ReservationStatus, now time.Time) error
	ListByCustomer(ctx context.Context, customerID string) ([]*entity.Reservation, error)
	// ListExpired devuelve reservas RESERVED con expires_at < now, más antiguas primero.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error)
}
