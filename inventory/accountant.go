package inventory

import (
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NewEntry describes a consumption to record. ID is chosen by the caller.
type NewEntry struct {
	ID           string           `json:"id"`
	FilamentID   string           `json:"filament_id"`
	PrinterID    string           `json:"printer_id,omitempty"`
	AmountGrams  decimal.Decimal  `json:"amount_grams"`
	AmountMeters *decimal.Decimal `json:"amount_meters,omitempty"`
	Kind         Kind             `json:"kind"`
	PrintName    string           `json:"print_name,omitempty"`
	Notes        string           `json:"notes,omitempty"`
}

// EntryPatch lists the fields to change on an entry. Nil fields are kept.
type EntryPatch struct {
	FilamentID   *string          `json:"filament_id,omitempty"`
	PrinterID    *string          `json:"printer_id,omitempty"`
	AmountGrams  *decimal.Decimal `json:"amount_grams,omitempty"`
	AmountMeters *decimal.Decimal `json:"amount_meters,omitempty"`
	// ClearAmountMeters removes a recorded length.
	ClearAmountMeters bool    `json:"clear_amount_meters,omitempty"`
	Kind              *Kind   `json:"kind,omitempty"`
	PrintName         *string `json:"print_name,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

// ConsumptionAccountant applies and reverses consumption amounts against a
// filament's active spools and owns the consumption entries.
type ConsumptionAccountant struct {
	ledger    *SpoolLedger
	allocator Allocator
}

// NewConsumptionAccountant returns an accountant writing through ledger.
func NewConsumptionAccountant(ledger *SpoolLedger, allocator Allocator) *ConsumptionAccountant {
	if allocator == nil {
		allocator = RecencyFirstAllocator{}
	}
	return &ConsumptionAccountant{ledger: ledger, allocator: allocator}
}

// Allocator returns the deduction policy in use.
func (a *ConsumptionAccountant) Allocator() Allocator { return a.allocator }

// Deduct removes amount from the filament's active spools. Nothing is
// written when the spools hold less than amount.
func (a *ConsumptionAccountant) Deduct(tx *Txn, filamentID string, amount decimal.Decimal) ([]Allocation, error) {
	if _, ok := tx.Filament(filamentID); !ok {
		return nil, eris.Wrapf(ErrNotFound, "filament %s", filamentID)
	}
	active := a.ledger.ListActive(tx.State, filamentID)
	plan, err := a.allocator.PlanDeduct(active, amount)
	if err != nil {
		return nil, eris.Wrapf(err, "deduct from filament %s", filamentID)
	}
	if err := a.apply(tx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Restore returns amount to the filament. With no active spools a fresh
// spool holding exactly amount is created; otherwise the allocator's target
// receives the whole amount. Restore does not know how the amount was spread
// when deducted, so reversing a deduction that touched several spools, or
// archived one, does not return each spool to its prior weight.
func (a *ConsumptionAccountant) Restore(tx *Txn, filamentID string, amount decimal.Decimal) ([]Allocation, error) {
	if _, ok := tx.Filament(filamentID); !ok {
		return nil, eris.Wrapf(ErrNotFound, "filament %s", filamentID)
	}
	if !amount.IsPositive() {
		return nil, nil
	}
	active := a.ledger.ListActive(tx.State, filamentID)
	target, ok := a.allocator.PlanRestore(active, amount)
	if !ok {
		sp, err := a.ledger.Create(tx, NewSpool{FilamentID: filamentID, StartingWeight: amount})
		if err != nil {
			return nil, err
		}
		return []Allocation{{SpoolID: sp.ID, Delta: amount}}, nil
	}
	plan := []Allocation{target}
	if err := a.apply(tx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (a *ConsumptionAccountant) apply(tx *Txn, plan []Allocation) error {
	for _, al := range plan {
		sp, ok := tx.Spool(al.SpoolID)
		if !ok {
			return eris.Wrapf(ErrNotFound, "spool %s", al.SpoolID)
		}
		updated, err := a.ledger.SetWeight(tx, sp.ID, sp.Weight.Add(al.Delta))
		if err != nil {
			return err
		}
		if updated.Archived && !sp.Archived {
			zap.L().Info("spool auto-archived",
				zap.String("spool_id", sp.ID),
				zap.String("filament_id", sp.FilamentID),
				zap.String("weight", updated.Weight.String()))
		}
	}
	return nil
}

// CreateEntry records the entry and deducts its amount.
func (a *ConsumptionAccountant) CreateEntry(tx *Txn, in NewEntry) (Entry, error) {
	if in.ID == "" {
		return Entry{}, eris.Wrap(ErrInvalidInput, "entry id is required")
	}
	if _, exists := tx.Entry(in.ID); exists {
		return Entry{}, eris.Wrapf(ErrInvalidInput, "entry %s already exists", in.ID)
	}
	if err := validateAmount(in.AmountGrams); err != nil {
		return Entry{}, err
	}
	if err := checkGramsPtr("amount meters", in.AmountMeters); err != nil {
		return Entry{}, err
	}
	kind := in.Kind
	if kind == "" {
		kind = KindSuccess
	}
	if !kind.Valid() {
		return Entry{}, eris.Wrapf(ErrInvalidInput, "unknown kind %q", kind)
	}
	if _, ok := tx.Filament(in.FilamentID); !ok {
		return Entry{}, eris.Wrapf(ErrNotFound, "filament %s", in.FilamentID)
	}

	e := Entry{
		ID:           in.ID,
		FilamentID:   in.FilamentID,
		PrinterID:    in.PrinterID,
		AmountGrams:  in.AmountGrams,
		AmountMeters: copyDecimal(in.AmountMeters),
		Kind:         kind,
		PrintName:    in.PrintName,
		Notes:        in.Notes,
		CreatedAt:    tx.Now(),
		UpdatedAt:    tx.Now(),
	}
	tx.putEntry(e)
	if _, err := a.Deduct(tx, e.FilamentID, e.AmountGrams); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// UpdateEntry applies patch and rebalances spool weights.
//
// When only the amount changes, the difference is deducted from or restored
// to the filament. When the filament changes, the old amount is restored to
// the old filament and the new amount is deducted from the new one; no
// separate difference pass runs against the old filament. Running both the
// difference pass and the move would adjust the old filament twice when
// filament and amount change together.
func (a *ConsumptionAccountant) UpdateEntry(tx *Txn, id string, patch EntryPatch) (Entry, error) {
	old, ok := tx.Entry(id)
	if !ok {
		return Entry{}, eris.Wrapf(ErrNotFound, "entry %s", id)
	}
	e := old
	if patch.AmountGrams != nil {
		if err := validateAmount(*patch.AmountGrams); err != nil {
			return Entry{}, err
		}
		e.AmountGrams = *patch.AmountGrams
	}
	if patch.FilamentID != nil {
		e.FilamentID = *patch.FilamentID
	}
	if patch.PrinterID != nil {
		e.PrinterID = *patch.PrinterID
	}
	if patch.ClearAmountMeters {
		e.AmountMeters = nil
	}
	if patch.AmountMeters != nil {
		if err := CheckGrams("amount meters", *patch.AmountMeters); err != nil {
			return Entry{}, err
		}
		e.AmountMeters = copyDecimal(patch.AmountMeters)
	}
	if patch.Kind != nil {
		if !patch.Kind.Valid() {
			return Entry{}, eris.Wrapf(ErrInvalidInput, "unknown kind %q", *patch.Kind)
		}
		e.Kind = *patch.Kind
	}
	if patch.PrintName != nil {
		e.PrintName = *patch.PrintName
	}
	if patch.Notes != nil {
		e.Notes = *patch.Notes
	}
	e.UpdatedAt = tx.Now()

	if e.FilamentID != old.FilamentID {
		if _, ok := tx.Filament(e.FilamentID); !ok {
			return Entry{}, eris.Wrapf(ErrNotFound, "filament %s", e.FilamentID)
		}
		if _, err := a.Restore(tx, old.FilamentID, old.AmountGrams); err != nil {
			return Entry{}, err
		}
		if _, err := a.Deduct(tx, e.FilamentID, e.AmountGrams); err != nil {
			return Entry{}, err
		}
	} else {
		delta := e.AmountGrams.Sub(old.AmountGrams)
		switch {
		case delta.IsPositive():
			if _, err := a.Deduct(tx, old.FilamentID, delta); err != nil {
				return Entry{}, err
			}
		case delta.IsNegative():
			if _, err := a.Restore(tx, old.FilamentID, delta.Neg()); err != nil {
				return Entry{}, err
			}
		}
	}

	tx.putEntry(e)
	return e, nil
}

// DeleteEntry restores the entry's amount to its filament and removes it.
func (a *ConsumptionAccountant) DeleteEntry(tx *Txn, id string) error {
	e, ok := tx.Entry(id)
	if !ok {
		return eris.Wrapf(ErrNotFound, "entry %s", id)
	}
	if _, err := a.Restore(tx, e.FilamentID, e.AmountGrams); err != nil {
		return err
	}
	tx.deleteEntry(id)
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if err := CheckGrams("amount", amount); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return eris.Wrapf(ErrInvalidInput, "amount must be positive, got %s", amount.String())
	}
	return nil
}
