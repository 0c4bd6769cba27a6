package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a consumption entry.
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailed  Kind = "failed"
	KindTest    Kind = "test"
	KindManual  Kind = "manual"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSuccess, KindFailed, KindTest, KindManual:
		return true
	}
	return false
}

// Filament is the logical material/color/manufacturer record. Its remaining
// quantity is never stored; see FilamentAggregate.GrossRemaining.
type Filament struct {
	ID           string    `json:"id"`
	Material     string    `json:"material"`
	Color        string    `json:"color"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	Archived     bool      `json:"archived"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Spool is one physical container of a filament with its own weight ledger.
// All weights are grams. Weight is gross, i.e. it includes the tare.
type Spool struct {
	ID             string           `json:"id"`
	FilamentID     string           `json:"filament_id"`
	StartingWeight decimal.Decimal  `json:"starting_weight"`
	EmptyWeight    *decimal.Decimal `json:"empty_weight,omitempty"`
	Weight         decimal.Decimal  `json:"weight"`
	Archived       bool             `json:"archived"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	// CreatedSeq and UpdatedSeq come from the state's monotonic sequence and
	// are what "most recent" means for allocation.
	CreatedSeq uint64 `json:"created_seq"`
	UpdatedSeq uint64 `json:"updated_seq"`
}

// Tare returns the empty spool weight, zero when unknown.
func (s Spool) Tare() decimal.Decimal {
	if s.EmptyWeight == nil {
		return decimal.Zero
	}
	return *s.EmptyWeight
}

// NetRemaining is the material left on the spool: weight minus tare.
func (s Spool) NetRemaining() decimal.Decimal {
	return s.Weight.Sub(s.Tare())
}

// Used reports whether any material has been taken from the spool.
func (s Spool) Used() bool {
	return s.Weight.LessThan(s.StartingWeight)
}

// RemainingPercent is the net remaining as a percentage of the spool's net
// starting material, clamped to [0, 100] and rounded to one decimal place.
func (s Spool) RemainingPercent() decimal.Decimal {
	capacity := s.StartingWeight.Sub(s.Tare())
	if !capacity.IsPositive() {
		return decimal.Zero
	}
	pct := s.NetRemaining().Div(capacity).Mul(decimal.NewFromInt(100))
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return pct.Round(1)
}

// Entry is a recorded consumption against a filament. The spread of the
// amount over the filament's spools is not recorded.
type Entry struct {
	ID           string           `json:"id"`
	FilamentID   string           `json:"filament_id"`
	PrinterID    string           `json:"printer_id,omitempty"`
	AmountGrams  decimal.Decimal  `json:"amount_grams"`
	AmountMeters *decimal.Decimal `json:"amount_meters,omitempty"`
	Kind         Kind             `json:"kind"`
	PrintName    string           `json:"print_name,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// SpoolView is a spool with its derived quantities.
type SpoolView struct {
	Spool
	NetRemaining     decimal.Decimal `json:"net_remaining"`
	RemainingPercent decimal.Decimal `json:"remaining_percent"`
}

// NewSpoolView derives the read-side quantities for s.
func NewSpoolView(s Spool) SpoolView {
	return SpoolView{
		Spool:            s,
		NetRemaining:     s.NetRemaining(),
		RemainingPercent: s.RemainingPercent(),
	}
}

// FilamentView is a filament with its spools and both notions of remaining.
type FilamentView struct {
	Filament
	// GrossRemaining sums weight over active spools, tare included.
	GrossRemaining decimal.Decimal `json:"gross_remaining"`
	// NetRemaining sums each active spool's weight minus its own tare.
	NetRemaining decimal.Decimal `json:"net_remaining"`
	Spools       []SpoolView     `json:"spools"`
}
