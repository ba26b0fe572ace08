package dto

import (
	"time"

	"github.com/jhoicas/device-stock-api/internal/domain/entity"
)

// CreateReservationRequest cuerpo de POST /api/reservations.
type CreateReservationRequest struct {
	SKURequest
	CustomerID string `json:"customer_id"`
	Quantity   int    `json:"quantity"`
}

// ReservationDTO representación pública de una reserva.
type ReservationDTO struct {
	ID         string     `json:"id"`
	SKU        entity.SKU `json:"sku"`
	CustomerID string     `json:"customer_id"`
	Quantity   int        `json:"quantity"`
	Status     string     `json:"status"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ReservationListResponse listado por cliente.
type ReservationListResponse struct {
	Total        int              `json:"total"`
	Reservations []ReservationDTO `json:"reservations"`
}

// ToReservationDTO mapea la entidad.
func ToReservationDTO(r *entity.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:         r.ID,
		SKU:        r.SKU,
		CustomerID: r.CustomerID,
		Quantity:   r.Quantity,
		Status:     string(r.Status),
		ExpiresAt:  r.ExpiresAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// ToReservationListResponse mapea un listado.
func ToReservationListResponse(list []*entity.Reservation) ReservationListResponse {
	out := ReservationListResponse{Total: len(list), Reservations: make([]ReservationDTO, 0, len(list))}
	for _, r := range list {
		out.Reservations = append(out.Reservations, ToReservationDTO(r))
	}
	return out
}
