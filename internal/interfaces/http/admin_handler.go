package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/device-stock-api/internal/application/dto"
	"github.com/jhoicas/device-stock-api/internal/application/inventory"
	"github.com/jhoicas/device-stock-api/internal/application/reservation"
	"github.com/jhoicas/device-stock-api/internal/domain"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

// AdminHandler operaciones de operador: capacidad, umbrales y barrido manual.
type AdminHandler struct {
	ledger  *inventory.StockLedger
	sweeper *reservation.Sweeper
	log     *logger.Logger
}

// NewAdminHandler construye el handler.
func NewAdminHandler(ledger *inventory.StockLedger, sweeper *reservation.Sweeper, log *logger.Logger) *AdminHandler {
	return &AdminHandler{ledger: ledger, sweeper: sweeper, log: log.Named("admin_http")}
}

// ResizeCapacity PUT /api/admin/stock/capacity
func (h *AdminHandler) ResizeCapacity(c *fiber.Ctx) error {
	var in dto.ResizeCapacityRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.TotalStock == nil {
		return respondError(c, fmt.Errorf("%w: total_stock obligatorio", domain.ErrInvalidInput))
	}
	res, err := h.ledger.ResizeCapacity(c.Context(), in.SKU(), *in.TotalStock)
	if err != nil {
		return respondError(c, err)
	}
	h.log.Info().Str("user_id", GetUserID(c)).Str("sku", in.SKU().String()).
		Int("total_stock", *in.TotalStock).Bool("clamped", res.Clamped).Msg("capacidad ajustada")
	return c.JSON(dto.ResizeCapacityResponse{
		Record:         dto.ToStockRecordDTO(res.Record),
		RequestedDelta: res.RequestedDelta,
		AppliedDelta:   res.AppliedDelta,
		Clamped:        res.Clamped,
	})
}

// SetAlertThreshold PUT /api/admin/stock/threshold
func (h *AdminHandler) SetAlertThreshold(c *fiber.Ctx) error {
	var in dto.SetAlertThresholdRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.AlertThreshold == nil {
		return respondError(c, fmt.Errorf("%w: alert_threshold obligatorio", domain.ErrInvalidInput))
	}
	rec, err := h.ledger.SetAlertThreshold(c.Context(), in.SKU(), *in.AlertThreshold)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToStockRecordDTO(rec))
}

// Sweep POST /api/admin/reservations/sweep ejecuta un barrido inmediato.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	report := h.sweeper.Run(c.Context())
	h.log.Info().Str("user_id", GetUserID(c)).Int("expired", report.Expired).Msg("barrido manual")
	return c.JSON(report)
}
