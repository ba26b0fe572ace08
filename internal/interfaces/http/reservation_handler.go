package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/device-stock-api/internal/application/dto"
	"github.com/jhoicas/device-stock-api/internal/application/reservation"
)

// ReservationHandler ciclo de vida de reservas expuesto a los flujos de compra.
type ReservationHandler struct {
	lifecycle *reservation.Lifecycle
}

// NewReservationHandler construye el handler.
func NewReservationHandler(lifecycle *reservation.Lifecycle) *ReservationHandler {
	return &ReservationHandler{lifecycle: lifecycle}
}

// Create POST /api/reservations
func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.lifecycle.CreateReservation(c.Context(), in.SKU(), in.CustomerID, in.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToReservationDTO(res))
}

// Get GET /api/reservations/:id
func (h *ReservationHandler) Get(c *fiber.Ctx) error {
	res, err := h.lifecycle.GetReservation(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToReservationDTO(res))
}

// Allocate POST /api/reservations/:id/allocate
func (h *ReservationHandler) Allocate(c *fiber.Ctx) error {
	res, err := h.lifecycle.AllocateReservation(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToReservationDTO(res))
}

// Cancel POST /api/reservations/:id/cancel. Cancelar dos veces responde 200 las dos veces.
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	res, err := h.lifecycle.CancelReservation(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToReservationDTO(res))
}

// ListByCustomer GET /api/customers/:customerId/reservations
func (h *ReservationHandler) ListByCustomer(c *fiber.Ctx) error {
	list, err := h.lifecycle.ListByCustomer(c.Context(), c.Params("customerId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToReservationListResponse(list))
}
