package http

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/device-stock-api/internal/application/availability"
	"github.com/jhoicas/device-stock-api/internal/application/dto"
	"github.com/jhoicas/device-stock-api/internal/application/inventory"
	"github.com/jhoicas/device-stock-api/internal/domain"
)

// StockHandler consultas públicas de stock: disponibilidad y alertas.
type StockHandler struct {
	ledger       *inventory.StockLedger
	availability *availability.Service
}

// NewStockHandler construye el handler.
func NewStockHandler(ledger *inventory.StockLedger, availability *availability.Service) *StockHandler {
	return &StockHandler{ledger: ledger, availability: availability}
}

// Check responde si hay quantity unidades disponibles del SKU.
// GET /api/stock/check?device_id=&color=&storage=&quantity=
func (h *StockHandler) Check(c *fiber.Ctx) error {
	sku := dto.SKURequest{
		DeviceID: c.Query("device_id"),
		Color:    c.Query("color"),
		Storage:  c.Query("storage"),
	}.SKU()
	quantity := 1
	if raw := c.Query("quantity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return respondError(c, fmt.Errorf("%w: quantity debe ser un entero", domain.ErrInvalidInput))
		}
		quantity = n
	}

	ok, err := h.ledger.CheckAvailability(c.Context(), sku, quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.CheckAvailabilityResponse{SKU: sku, Quantity: quantity, Available: ok})
}

// DeviceAvailability desglose por color y almacenamiento.
// GET /api/stock/devices/:deviceId/availability
func (h *StockHandler) DeviceAvailability(c *fiber.Ctx) error {
	view, err := h.availability.GetAvailability(c.Context(), c.Params("deviceId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// LowStockAlerts feed de alertas, CRITICAL primero.
// GET /api/stock/alerts
func (h *StockHandler) LowStockAlerts(c *fiber.Ctx) error {
	alerts, err := h.availability.GetLowStockAlerts(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.LowStockAlertsResponse{Total: len(alerts), Alerts: alerts})
}
