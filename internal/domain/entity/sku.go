package entity

import (
	"fmt"
	"strings"
)

// SKU identifica una línea de inventario: dispositivo + color + almacenamiento.
type SKU struct {
	DeviceID string `json:"device_id"`
	Color    string `json:"color"`
	Storage  string `json:"storage"`
}

// Validate exige los tres componentes.
func (s SKU) Validate() error {
	if strings.TrimSpace(s.DeviceID) == "" || strings.TrimSpace(s.Color) == "" || strings.TrimSpace(s.Storage) == "" {
		return fmt.Errorf("sku incompleto (device_id, color y storage son obligatorios)")
	}
	return nil
}

// LockKey devuelve la clave de la sección crítica del SKU.
// El almacenamiento no forma parte de la clave: todas las variantes de un mismo
// dispositivo+color se serializan juntas.
func (s SKU) LockKey() string {
	return "stock:" + s.DeviceID + ":" + s.Color
}

func (s SKU) String() string {
	return s.DeviceID + "/" + s.Color + "/" + s.Storage
}
