package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrInvalidInput              = errors.New("entrada inválida")
	ErrInsufficientStock         = errors.New("stock insuficiente")
	ErrInsufficientReservedStock = errors.New("stock reservado insuficiente")
	ErrStockRecordNotFound       = errors.New("registro de stock no encontrado")
	ErrReservationNotFound       = errors.New("reserva no encontrada")
	ErrReservationExpired        = errors.New("la reserva expiró")
	ErrInvalidStateTransition    = errors.New("transición de estado inválida")
	ErrLockUnavailable           = errors.New("sección crítica no disponible")
)

// IsUnavailable indica si el error representa un resultado de negocio "sin stock por ahora".
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrInsufficientReservedStock)
}

// IsRetryable indica si el llamador puede reintentar la operación sin riesgo.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockUnavailable)
}
