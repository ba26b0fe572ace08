package entity

import "time"

// ReservationStatus estado de una reserva.
type ReservationStatus string

const (
	ReservationStatusReserved  ReservationStatus = "RESERVED"
	ReservationStatusAllocated ReservationStatus = "ALLOCATED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusExpired   ReservationStatus = "EXPIRED"
)

// reservationTransitions tabla de transiciones permitidas (desde -> hacia).
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusReserved:  {ReservationStatusAllocated, ReservationStatusCancelled, ReservationStatusExpired},
	ReservationStatusAllocated: {ReservationStatusCancelled},
}

// CanTransitionTo indica si la transición s -> next está permitida.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal CANCELLED y EXPIRED no tienen transiciones de salida.
func (s ReservationStatus) IsTerminal() bool {
	return len(reservationTransitions[s]) == 0
}

// Valid indica si el estado es uno de los conocidos.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationStatusReserved, ReservationStatusAllocated, ReservationStatusCancelled, ReservationStatusExpired:
		return true
	}
	return false
}

// Reservation retención temporal de stock para la compra en curso de un cliente.
type Reservation struct {
	ID         string
	SKU        SKU
	CustomerID string
	Quantity   int
	Status     ReservationStatus
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsExpired indica si la retención venció (now > ExpiresAt).
func (r *Reservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
