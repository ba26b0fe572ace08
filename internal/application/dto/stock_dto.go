package dto

import (
	"time"

	"github.com/jhoicas/device-stock-api/internal/domain/entity"
)

// SKURequest identifica una variante en query strings y cuerpos.
type SKURequest struct {
	DeviceID string `json:"device_id" query:"device_id"`
	Color    string `json:"color" query:"color"`
	Storage  string `json:"storage" query:"storage"`
}

// SKU convierte al tipo de dominio.
func (r SKURequest) SKU() entity.SKU {
	return entity.SKU{DeviceID: r.DeviceID, Color: r.Color, Storage: r.Storage}
}

// CheckAvailabilityResponse respuesta de la consulta de disponibilidad.
type CheckAvailabilityResponse struct {
	SKU       entity.SKU `json:"sku"`
	Quantity  int        `json:"quantity"`
	Available bool       `json:"available"`
}

// ResizeCapacityRequest cuerpo de PUT /api/admin/stock/capacity.
type ResizeCapacityRequest struct {
	SKURequest
	TotalStock *int `json:"total_stock"`
}

// SetAlertThresholdRequest cuerpo de PUT /api/admin/stock/threshold.
type SetAlertThresholdRequest struct {
	SKURequest
	AlertThreshold *int `json:"alert_threshold"`
}

// StockRecordDTO contadores de una variante.
type StockRecordDTO struct {
	SKU            entity.SKU `json:"sku"`
	TotalStock     int        `json:"total_stock"`
	AvailableStock int        `json:"available_stock"`
	ReservedStock  int        `json:"reserved_stock"`
	AllocatedStock int        `json:"allocated_stock"`
	AlertThreshold int        `json:"alert_threshold"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ResizeCapacityResponse incluye el aviso de recorte cuando la reducción superó lo disponible.
type ResizeCapacityResponse struct {
	Record         StockRecordDTO `json:"record"`
	RequestedDelta int            `json:"requested_delta"`
	AppliedDelta   int            `json:"applied_delta"`
	Clamped        bool           `json:"clamped"`
}

// LowStockAlertsResponse listado del feed de alertas.
type LowStockAlertsResponse struct {
	Total  int                    `json:"total"`
	Alerts []entity.LowStockAlert `json:"alerts"`
}

// ToStockRecordDTO mapea la entidad.
func ToStockRecordDTO(r *entity.StockRecord) StockRecordDTO {
	return StockRecordDTO{
		SKU:            r.SKU,
		TotalStock:     r.TotalStock,
		AvailableStock: r.AvailableStock,
		ReservedStock:  r.ReservedStock,
		AllocatedStock: r.AllocatedStock,
		AlertThreshold: r.AlertThreshold,
		UpdatedAt:      r.UpdatedAt,
	}
}
