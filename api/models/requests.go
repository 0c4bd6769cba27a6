// api/models/requests.go
package models

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/devadigapratham/spoolkeeper/inventory"
)

// CreateFilamentRequest is the body of POST /filaments
type CreateFilamentRequest struct {
	Material     string           `json:"material" binding:"required"`
	Color        string           `json:"color"`
	Manufacturer string           `json:"manufacturer"`
	Spools       int              `json:"spools" binding:"min=0,max=1000"`
	SpoolWeight  *decimal.Decimal `json:"spool_weight"`
	EmptyWeight  *decimal.Decimal `json:"empty_weight"`
}

// Validate checks the fields the binding tags cannot express
func (r *CreateFilamentRequest) Validate() error {
	if !IsValidFilamentType(r.Material) {
		return eris.Wrapf(inventory.ErrInvalidInput, "invalid filament type %q", r.Material)
	}
	if r.Spools > 0 {
		if r.SpoolWeight == nil {
			return eris.Wrap(inventory.ErrInvalidInput, "spool_weight is required when spools is set")
		}
		if err := positive("spool_weight", *r.SpoolWeight); err != nil {
			return err
		}
	}
	return nonNegative("empty_weight", r.EmptyWeight)
}

// UpdateFilamentRequest is the body of PATCH /filaments/:id
type UpdateFilamentRequest struct {
	Material     *string `json:"material"`
	Color        *string `json:"color"`
	Manufacturer *string `json:"manufacturer"`
}

// Validate checks the material when one is given
func (r *UpdateFilamentRequest) Validate() error {
	if r.Material != nil && !IsValidFilamentType(*r.Material) {
		return eris.Wrapf(inventory.ErrInvalidInput, "invalid filament type %q", *r.Material)
	}
	return nil
}

// ArchiveRequest is the body of the archive endpoints
type ArchiveRequest struct {
	Archived *bool `json:"archived" binding:"required"`
}

// RestockRequest is the body of POST /filaments/:id/restock
type RestockRequest struct {
	Quantity       int              `json:"quantity" binding:"required,min=1,max=1000"`
	WeightPerSpool decimal.Decimal  `json:"weight_per_spool"`
	EmptyWeight    *decimal.Decimal `json:"empty_weight"`
}

// Validate checks the weights
func (r *RestockRequest) Validate() error {
	if err := positive("weight_per_spool", r.WeightPerSpool); err != nil {
		return err
	}
	return nonNegative("empty_weight", r.EmptyWeight)
}

// CreateSpoolRequest is the body of POST /filaments/:id/spools
type CreateSpoolRequest struct {
	StartingWeight decimal.Decimal  `json:"starting_weight"`
	EmptyWeight    *decimal.Decimal `json:"empty_weight"`
	Weight         *decimal.Decimal `json:"weight"`
}

// Validate checks the weights
func (r *CreateSpoolRequest) Validate() error {
	if err := positive("starting_weight", r.StartingWeight); err != nil {
		return err
	}
	if err := nonNegative("empty_weight", r.EmptyWeight); err != nil {
		return err
	}
	return nonNegative("weight", r.Weight)
}

// UpdateSpoolRequest is the body of PATCH /spools/:id
type UpdateSpoolRequest struct {
	StartingWeight   *decimal.Decimal `json:"starting_weight"`
	EmptyWeight      *decimal.Decimal `json:"empty_weight"`
	ClearEmptyWeight bool             `json:"clear_empty_weight"`
	Weight           *decimal.Decimal `json:"weight"`
	Archived         *bool            `json:"archived"`
}

// Validate rejects negative weights
func (r *UpdateSpoolRequest) Validate() error {
	if r.StartingWeight != nil {
		if err := positive("starting_weight", *r.StartingWeight); err != nil {
			return err
		}
	}
	if err := nonNegative("empty_weight", r.EmptyWeight); err != nil {
		return err
	}
	return nonNegative("weight", r.Weight)
}

// Patch converts the request into a ledger patch
func (r *UpdateSpoolRequest) Patch() inventory.SpoolPatch {
	return inventory.SpoolPatch{
		StartingWeight:   r.StartingWeight,
		EmptyWeight:      r.EmptyWeight,
		ClearEmptyWeight: r.ClearEmptyWeight,
		Weight:           r.Weight,
		Archived:         r.Archived,
	}
}

// CreateConsumptionRequest is the body of POST /consumption
type CreateConsumptionRequest struct {
	FilamentID   string           `json:"filament_id" binding:"required"`
	PrinterID    string           `json:"printer_id"`
	AmountGrams  decimal.Decimal  `json:"amount_grams"`
	AmountMeters *decimal.Decimal `json:"amount_meters"`
	Kind         string           `json:"kind" binding:"omitempty,oneof=success failed test manual"`
	PrintName    string           `json:"print_name"`
	Notes        string           `json:"notes"`
}

// Validate checks the amounts
func (r *CreateConsumptionRequest) Validate() error {
	if err := positive("amount_grams", r.AmountGrams); err != nil {
		return err
	}
	return nonNegative("amount_meters", r.AmountMeters)
}

// UpdateConsumptionRequest is the body of PATCH /consumption/:id
type UpdateConsumptionRequest struct {
	FilamentID   *string          `json:"filament_id"`
	PrinterID    *string          `json:"printer_id"`
	AmountGrams  *decimal.Decimal `json:"amount_grams"`
	AmountMeters *decimal.Decimal `json:"amount_meters"`
	// ClearAmountMeters drops a recorded length
	ClearAmountMeters bool    `json:"clear_amount_meters"`
	Kind              *string `json:"kind" binding:"omitempty,oneof=success failed test manual"`
	PrintName         *string `json:"print_name"`
	Notes             *string `json:"notes"`
}

// Validate checks the amounts when given
func (r *UpdateConsumptionRequest) Validate() error {
	if r.AmountGrams != nil {
		if err := positive("amount_grams", *r.AmountGrams); err != nil {
			return err
		}
	}
	if r.FilamentID != nil && strings.TrimSpace(*r.FilamentID) == "" {
		return eris.Wrap(inventory.ErrInvalidInput, "filament_id must not be empty")
	}
	if r.ClearAmountMeters && r.AmountMeters != nil {
		return eris.Wrap(inventory.ErrInvalidInput, "amount_meters and clear_amount_meters are exclusive")
	}
	return nonNegative("amount_meters", r.AmountMeters)
}

// Patch converts the request into an accountant patch
func (r *UpdateConsumptionRequest) Patch() inventory.EntryPatch {
	p := inventory.EntryPatch{
		FilamentID:   r.FilamentID,
		PrinterID:    r.PrinterID,
		AmountGrams:  r.AmountGrams,
		AmountMeters: r.AmountMeters,
		PrintName:    r.PrintName,
		Notes:        r.Notes,

		ClearAmountMeters: r.ClearAmountMeters,
	}
	if r.Kind != nil {
		k := inventory.Kind(*r.Kind)
		p.Kind = &k
	}
	return p
}

// MetadataUsageRequest carries what a slicer metadata extractor found in a
// machine file. Grams win over meters when both are present.
type MetadataUsageRequest struct {
	FilamentID    string           `json:"filament_id"`
	MaterialType  string           `json:"material_type"`
	Color         string           `json:"color"`
	UsedFilamentG *decimal.Decimal `json:"used_filament_g"`
	UsedFilamentM *decimal.Decimal `json:"used_filament_m"`
	PrintName     string           `json:"print_name"`
	PrinterID     string           `json:"printer_id"`
	Kind          string           `json:"kind" binding:"omitempty,oneof=success failed test manual"`
}

// Validate requires a usage amount and a way to find the filament
func (r *MetadataUsageRequest) Validate() error {
	if r.UsedFilamentG == nil && r.UsedFilamentM == nil {
		return eris.Wrap(inventory.ErrInvalidInput, "used_filament_g or used_filament_m is required")
	}
	if r.FilamentID == "" && strings.TrimSpace(r.MaterialType) == "" {
		return eris.Wrap(inventory.ErrInvalidInput, "filament_id or material_type is required")
	}
	if r.UsedFilamentG != nil {
		return positive("used_filament_g", *r.UsedFilamentG)
	}
	return positive("used_filament_m", *r.UsedFilamentM)
}

// Grams returns the usage in grams, converting meters if needed
func (r *MetadataUsageRequest) Grams() decimal.Decimal {
	if r.UsedFilamentG != nil {
		return *r.UsedFilamentG
	}
	return MetersToGrams(*r.UsedFilamentM)
}

func positive(field string, d decimal.Decimal) error {
	if err := inventory.CheckGrams(field, d); err != nil {
		return err
	}
	if !d.IsPositive() {
		return eris.Wrapf(inventory.ErrInvalidInput, "%s must be positive", field)
	}
	return nil
}

func nonNegative(field string, d *decimal.Decimal) error {
	if d == nil {
		return nil
	}
	if err := inventory.CheckGrams(field, *d); err != nil {
		return err
	}
	if d.IsNegative() {
		return eris.Wrapf(inventory.ErrInvalidInput, "%s must not be negative", field)
	}
	return nil
}
