package entity

// VariantAvailability disponibilidad de una combinación color/almacenamiento.
type VariantAvailability struct {
	Color     string `json:"color"`
	Storage   string `json:"storage"`
	Total     int    `json:"total_stock"`
	Available int    `json:"available_stock"`
	Reserved  int    `json:"reserved_stock"`
	Allocated int    `json:"allocated_stock"`
	InStock   bool   `json:"in_stock"`
}

// DeviceAvailability vista agregada por dispositivo (proyección de solo lectura, puede estar desactualizada).
type DeviceAvailability struct {
	DeviceID       string                `json:"device_id"`
	TotalAvailable int                   `json:"total_available"`
	Variants       []VariantAvailability `json:"variants"`
}

// AlertSeverity severidad de una alerta de stock bajo.
type AlertSeverity string

const (
	AlertSeverityCritical AlertSeverity = "CRITICAL"
	AlertSeverityWarning  AlertSeverity = "WARNING"
)

// LowStockAlert señal de stock bajo para consumo externo.
type LowStockAlert struct {
	SKU            SKU           `json:"sku"`
	AvailableStock int           `json:"available_stock"`
	AlertThreshold int           `json:"alert_threshold"`
	Severity       AlertSeverity `json:"severity"`
}

// SeverityFor CRITICAL cuando no queda stock disponible, WARNING en otro caso.
func SeverityFor(available int) AlertSeverity {
	if available == 0 {
		return AlertSeverityCritical
	}
	return AlertSeverityWarning
}
