// api/models/usage.go
package models

import "github.com/shopspring/decimal"

// Defaults used when a machine file reports filament length but not mass.
var (
	DefaultFilamentDiameterMM = decimal.RequireFromString("1.75")
	DefaultFilamentDensity    = decimal.RequireFromString("1.24") // g/cm³
)

var pi = decimal.RequireFromString("3.14159265358979")

// MetersToGrams estimates the mass of a length of filament from its volume
// at the default diameter and density, rounded to 0.01 g.
func MetersToGrams(meters decimal.Decimal) decimal.Decimal {
	radiusCM := DefaultFilamentDiameterMM.Div(decimal.NewFromInt(20))
	lengthCM := meters.Mul(decimal.NewFromInt(100))
	volume := pi.Mul(radiusCM).Mul(radiusCM).Mul(lengthCM)
	return volume.Mul(DefaultFilamentDensity).Round(2)
}
