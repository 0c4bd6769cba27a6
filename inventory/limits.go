package inventory

import (
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

const (
	// MaxRestockQuantity caps the spools created by one restock.
	MaxRestockQuantity = 1000
	// GramsScale is the number of decimal places kept for weights.
	GramsScale = 3
)

// MaxGrams caps any single weight or amount (one tonne).
var MaxGrams = decimal.NewFromInt(1_000_000)

// CheckGrams rejects weights with more than GramsScale decimal places or a
// magnitude above MaxGrams. The exponent is checked before any arithmetic
// so pathological inputs like 1e-20000000 are refused in constant time.
func CheckGrams(field string, d decimal.Decimal) error {
	exp := d.Exponent()
	if exp < -18 {
		return eris.Wrapf(ErrInvalidInput, "%s has more than %d decimal places", field, GramsScale)
	}
	if exp > 6 {
		return eris.Wrapf(ErrInvalidInput, "%s exceeds %s", field, MaxGrams.String())
	}
	if !d.Equal(d.Round(GramsScale)) {
		return eris.Wrapf(ErrInvalidInput, "%s has more than %d decimal places", field, GramsScale)
	}
	if d.Abs().GreaterThan(MaxGrams) {
		return eris.Wrapf(ErrInvalidInput, "%s exceeds %s", field, MaxGrams.String())
	}
	return nil
}

func checkGramsPtr(field string, d *decimal.Decimal) error {
	if d == nil {
		return nil
	}
	return CheckGrams(field, *d)
}
