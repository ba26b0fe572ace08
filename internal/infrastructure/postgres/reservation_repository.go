package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/device-stock-api/internal/domain"
	"github.com/jhoicas/device-stock-api/internal/domain/entity"
	"github.com/jhoicas/device-stock-api/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

const reservationColumns = `id, device_id, color, storage, customer_id, quantity, status,
	expires_at, created_at, updated_at`

// ReservationRepo implementación de ReservationRepository sobre PostgreSQL.
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

func (r *ReservationRepo) Create(ctx context.Context, res *entity.Reservation) error {
	id, err := uuid.Parse(res.ID)
	if err != nil {
		return fmt.Errorf("%w: id de reserva %q", domain.ErrInvalidInput, res.ID)
	}
	query := `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.q.Exec(ctx, query,
		id, res.SKU.DeviceID, res.SKU.Color, res.SKU.Storage, res.CustomerID, res.Quantity,
		string(res.Status), res.ExpiresAt, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("reserva duplicada %s: %w", res.ID, err)
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// GetByID un id que no es UUID no puede existir: devuelve nil, nil.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*entity.Reservation, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	res, err := scanReservation(r.q.QueryRow(ctx, query, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// UpdateStatus escritura condicional: solo aplica si el estado actual es from.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id string, from, to entity.ReservationStatus, now time.Time) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return domain.ErrReservationNotFound
	}
	tag, err := r.q.Exec(ctx,
		`UPDATE reservations SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		uid, string(from), string(to), now,
	)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = r.q.QueryRow(ctx, `SELECT status FROM reservations WHERE id = $1`, uid).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrReservationNotFound
	}
	if err != nil {
		return fmt.Errorf("read reservation status: %w", err)
	}
	return fmt.Errorf("%w: estado actual %s, esperado %s", domain.ErrInvalidStateTransition, current, from)
}

func (r *ReservationRepo) ListByCustomer(ctx context.Context, customerID string) ([]*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM reservations WHERE customer_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, customerID)
}

// ListExpired usa el índice parcial sobre expires_at de las reservas RESERVED.
func (r *ReservationRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT ` + reservationColumns + `
		FROM reservations WHERE status = 'RESERVED' AND expires_at < $1
		ORDER BY expires_at LIMIT $2`
	return r.list(ctx, query, now, limit)
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Reservation, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var list []*entity.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		list = append(list, res)
	}
	return list, rows.Err()
}

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var (
		res    entity.Reservation
		id     uuid.UUID
		status string
	)
	err := row.Scan(
		&id, &res.SKU.DeviceID, &res.SKU.Color, &res.SKU.Storage, &res.CustomerID, &res.Quantity,
		&status, &res.ExpiresAt, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.ID = id.String()
	res.Status = entity.ReservationStatus(status)
	if !res.Status.Valid() {
		return nil, fmt.Errorf("reserva %s con estado desconocido %q", res.ID, status)
	}
	return &res, nil
}
