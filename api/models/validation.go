// api/models/validation.go
package models

import (
	"strings"

	"github.com/devadigapratham/spoolkeeper/inventory"
)

// IsValidFilamentType checks if a filament type is valid
func IsValidFilamentType(filamentType string) bool {
	validTypes := []string{"PLA", "PETG", "ABS", "ASA", "TPU", "PA", "PC", "PVA", "HIPS"}
	upperType := strings.ToUpper(strings.TrimSpace(filamentType))

	for _, vt := range validTypes {
		if upperType == vt {
			return true
		}
	}
	return false
}

// IsValidConsumptionKind checks if a consumption kind is valid
func IsValidConsumptionKind(kind string) bool {
	return kind == "" || inventory.Kind(kind).Valid()
}
