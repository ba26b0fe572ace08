package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/device-stock-api/internal/application/dto"
	"github.com/jhoicas/device-stock-api/internal/domain"
)

// retryAfterSeconds sugerencia para clientes que chocan con una sección crítica ocupada.
const retryAfterSeconds = "1"

// respondError traduce errores de dominio a códigos HTTP. Lo que no es de dominio es 500.
func respondError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case domain.IsUnavailable(err):
		status, code = fiber.StatusConflict, "UNAVAILABLE"
	case errors.Is(err, domain.ErrLockUnavailable):
		status, code = fiber.StatusServiceUnavailable, "RETRYABLE"
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
	case errors.Is(err, domain.ErrInvalidStateTransition):
		status, code = fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrReservationExpired):
		status, code = fiber.StatusGone, "RESERVATION_EXPIRED"
	case errors.Is(err, domain.ErrReservationNotFound), errors.Is(err, domain.ErrStockRecordNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	}
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "error interno"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
