package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/device-stock-api/internal/domain"
	"github.com/jhoicas/device-stock-api/internal/domain/entity"
	"github.com/jhoicas/device-stock-api/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo almacén de reservas en memoria.
type ReservationRepo struct {
	mu    sync.RWMutex
	items map[string]*entity.Reservation
}

// NewReservationRepository construye el repositorio vacío.
func NewReservationRepository() *ReservationRepo {
	return &ReservationRepo{items: make(map[string]*entity.Reservation)}
}

func (r *ReservationRepo) Create(_ context.Context, res *entity.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[res.ID]; ok {
		return fmt.Errorf("reserva duplicada %s", res.ID)
	}
	c := *res
	r.items[res.ID] = &c
	return nil
}

func (r *ReservationRepo) GetByID(_ context.Context, id string) (*entity.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	c := *res
	return &c, nil
}

func (r *ReservationRepo) UpdateStatus(_ context.Context, id string, from, to entity.ReservationStatus, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.items[id]
	if !ok {
		return domain.ErrReservationNotFound
	}
	if res.Status != from {
		return fmt.Errorf("%w: estado actual %s, esperado %s", domain.ErrInvalidStateTransition, res.Status, from)
	}
	res.Status = to
	res.UpdatedAt = now
	return nil
}

func (r *ReservationRepo) ListByCustomer(_ context.Context, customerID string) ([]*entity.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*entity.Reservation
	for _, res := range r.items {
		if res.CustomerID == customerID {
			c := *res
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *ReservationRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*entity.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*entity.Reservation
	for _, res := range r.items {
		if res.Status == entity.ReservationStatusReserved && res.ExpiresAt.Before(now) {
			c := *res
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ExpiresAt.Before(list[j].ExpiresAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}
