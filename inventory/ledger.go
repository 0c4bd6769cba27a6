package inventory

import (
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// NewSpool describes a spool to create.
type NewSpool struct {
	FilamentID     string           `json:"filament_id"`
	StartingWeight decimal.Decimal  `json:"starting_weight"`
	EmptyWeight    *decimal.Decimal `json:"empty_weight,omitempty"`
	// Weight defaults to StartingWeight when nil.
	Weight *decimal.Decimal `json:"weight,omitempty"`
}

// SpoolPatch lists the fields to change on a spool. Nil fields are left as
// they are. ClearEmptyWeight removes a known tare.
type SpoolPatch struct {
	StartingWeight   *decimal.Decimal `json:"starting_weight,omitempty"`
	EmptyWeight      *decimal.Decimal `json:"empty_weight,omitempty"`
	ClearEmptyWeight bool             `json:"clear_empty_weight,omitempty"`
	Weight           *decimal.Decimal `json:"weight,omitempty"`
	Archived         *bool            `json:"archived,omitempty"`
}

// SpoolLedger owns the physical spool records and the auto-archive rule.
// It does not guard signs; weights are only checked for scale and magnitude.
type SpoolLedger struct{}

// Create adds a new active spool to the filament.
func (l *SpoolLedger) Create(tx *Txn, in NewSpool) (Spool, error) {
	if _, ok := tx.Filament(in.FilamentID); !ok {
		return Spool{}, eris.Wrapf(ErrNotFound, "filament %s", in.FilamentID)
	}
	if err := CheckGrams("starting weight", in.StartingWeight); err != nil {
		return Spool{}, err
	}
	if err := checkGramsPtr("empty weight", in.EmptyWeight); err != nil {
		return Spool{}, err
	}
	if err := checkGramsPtr("weight", in.Weight); err != nil {
		return Spool{}, err
	}
	weight := in.StartingWeight
	if in.Weight != nil {
		weight = *in.Weight
	}
	seq := tx.NextSeq()
	sp := Spool{
		ID:             tx.NewID("spool"),
		FilamentID:     in.FilamentID,
		StartingWeight: in.StartingWeight,
		EmptyWeight:    copyDecimal(in.EmptyWeight),
		Weight:         weight,
		CreatedAt:      tx.Now(),
		UpdatedAt:      tx.Now(),
		CreatedSeq:     seq,
		UpdatedSeq:     seq,
	}
	tx.putSpool(sp)
	return sp, nil
}

// Update applies patch to the spool. Unless the patch sets Archived, a spool
// whose net remaining drops to zero or below is archived. The rule never
// unarchives.
func (l *SpoolLedger) Update(tx *Txn, id string, patch SpoolPatch) (Spool, error) {
	sp, ok := tx.Spool(id)
	if !ok {
		return Spool{}, eris.Wrapf(ErrNotFound, "spool %s", id)
	}
	if err := patch.check(); err != nil {
		return Spool{}, err
	}
	if patch.StartingWeight != nil {
		sp.StartingWeight = *patch.StartingWeight
	}
	if patch.ClearEmptyWeight {
		sp.EmptyWeight = nil
	}
	if patch.EmptyWeight != nil {
		sp.EmptyWeight = copyDecimal(patch.EmptyWeight)
	}
	if patch.Weight != nil {
		sp.Weight = *patch.Weight
	}
	if patch.Archived != nil {
		sp.Archived = *patch.Archived
	} else if !sp.NetRemaining().IsPositive() {
		sp.Archived = true
	}
	sp.UpdatedAt = tx.Now()
	sp.UpdatedSeq = tx.NextSeq()
	tx.putSpool(sp)
	return sp, nil
}

func (p SpoolPatch) check() error {
	if err := checkGramsPtr("starting weight", p.StartingWeight); err != nil {
		return err
	}
	if err := checkGramsPtr("empty weight", p.EmptyWeight); err != nil {
		return err
	}
	return checkGramsPtr("weight", p.Weight)
}

// SetWeight is Update with only the weight set.
func (l *SpoolLedger) SetWeight(tx *Txn, id string, weight decimal.Decimal) (Spool, error) {
	return l.Update(tx, id, SpoolPatch{Weight: &weight})
}

// ArchiveAll sets archived on every spool of the filament, ignoring weight.
func (l *SpoolLedger) ArchiveAll(tx *Txn, filamentID string, archived bool) error {
	if _, ok := tx.Filament(filamentID); !ok {
		return eris.Wrapf(ErrNotFound, "filament %s", filamentID)
	}
	for _, sp := range tx.SpoolsOf(filamentID, true) {
		if sp.Archived == archived {
			continue
		}
		sp.Archived = archived
		sp.UpdatedAt = tx.Now()
		sp.UpdatedSeq = tx.NextSeq()
		tx.putSpool(sp)
	}
	return nil
}

// ListActive returns the filament's non-archived spools, newest first.
func (l *SpoolLedger) ListActive(st *State, filamentID string) []Spool {
	return st.SpoolsOf(filamentID, false)
}

// ListAll returns every spool of the filament, newest first.
func (l *SpoolLedger) ListAll(st *State, filamentID string) []Spool {
	return st.SpoolsOf(filamentID, true)
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
