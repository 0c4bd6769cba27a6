package inventory

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// NewFilament describes a filament to create, optionally with its first
// spools.
type NewFilament struct {
	ID           string `json:"id"`
	Material     string `json:"material"`
	Color        string `json:"color"`
	Manufacturer string `json:"manufacturer,omitempty"`
	// Spools > 0 creates that many spools of SpoolWeight grams each.
	Spools      int              `json:"spools,omitempty"`
	SpoolWeight decimal.Decimal  `json:"spool_weight"`
	EmptyWeight *decimal.Decimal `json:"empty_weight,omitempty"`
}

// FilamentPatch changes a filament's descriptive fields.
type FilamentPatch struct {
	Material     *string `json:"material,omitempty"`
	Color        *string `json:"color,omitempty"`
	Manufacturer *string `json:"manufacturer,omitempty"`
}

// Restock describes a bulk spool creation.
type Restock struct {
	Quantity       int              `json:"quantity"`
	WeightPerSpool decimal.Decimal  `json:"weight_per_spool"`
	EmptyWeight    *decimal.Decimal `json:"empty_weight,omitempty"`
}

// FilamentAggregate derives a filament's remaining quantity from its spools
// and owns the filament-level archive cascade and restock.
type FilamentAggregate struct {
	ledger *SpoolLedger
}

// NewFilamentAggregate returns an aggregate over ledger.
func NewFilamentAggregate(ledger *SpoolLedger) *FilamentAggregate {
	return &FilamentAggregate{ledger: ledger}
}

// GrossRemaining sums weight, tare included, over the filament's active
// spools.
func (a *FilamentAggregate) GrossRemaining(st *State, filamentID string) (decimal.Decimal, error) {
	if _, ok := st.Filament(filamentID); !ok {
		return decimal.Zero, eris.Wrapf(ErrNotFound, "filament %s", filamentID)
	}
	return Total(a.ledger.ListActive(st, filamentID)), nil
}

// NetRemaining sums weight minus each spool's own tare over the filament's
// active spools.
func (a *FilamentAggregate) NetRemaining(st *State, filamentID string) (decimal.Decimal, error) {
	if _, ok := st.Filament(filamentID); !ok {
		return decimal.Zero, eris.Wrapf(ErrNotFound, "filament %s", filamentID)
	}
	net := decimal.Zero
	for _, sp := range a.ledger.ListActive(st, filamentID) {
		net = net.Add(sp.NetRemaining())
	}
	return net, nil
}

// View returns the filament with every spool and both remaining quantities.
func (a *FilamentAggregate) View(st *State, filamentID string) (FilamentView, error) {
	f, ok := st.Filament(filamentID)
	if !ok {
		return FilamentView{}, eris.Wrapf(ErrNotFound, "filament %s", filamentID)
	}
	gross, _ := a.GrossRemaining(st, filamentID)
	net, _ := a.NetRemaining(st, filamentID)
	spools := a.ledger.ListAll(st, filamentID)
	views := make([]SpoolView, 0, len(spools))
	for _, sp := range spools {
		views = append(views, NewSpoolView(sp))
	}
	return FilamentView{Filament: f, GrossRemaining: gross, NetRemaining: net, Spools: views}, nil
}

// Create adds a filament and its initial spools.
func (a *FilamentAggregate) Create(tx *Txn, in NewFilament) (Filament, error) {
	if in.ID == "" {
		return Filament{}, eris.Wrap(ErrInvalidInput, "filament id is required")
	}
	if _, exists := tx.Filament(in.ID); exists {
		return Filament{}, eris.Wrapf(ErrInvalidInput, "filament %s already exists", in.ID)
	}
	if strings.TrimSpace(in.Material) == "" {
		return Filament{}, eris.Wrap(ErrInvalidInput, "material is required")
	}
	f := Filament{
		ID:           in.ID,
		Material:     strings.ToUpper(strings.TrimSpace(in.Material)),
		Color:        strings.TrimSpace(in.Color),
		Manufacturer: strings.TrimSpace(in.Manufacturer),
		CreatedAt:    tx.Now(),
		UpdatedAt:    tx.Now(),
	}
	tx.putFilament(f)
	if in.Spools > 0 {
		if _, err := a.Restock(tx, f.ID, Restock{
			Quantity:       in.Spools,
			WeightPerSpool: in.SpoolWeight,
			EmptyWeight:    in.EmptyWeight,
		}); err != nil {
			return Filament{}, err
		}
	}
	return f, nil
}

// Update changes the filament's descriptive fields.
func (a *FilamentAggregate) Update(tx *Txn, filamentID string, patch FilamentPatch) (Filament, error) {
	f, ok := tx.Filament(filamentID)
	if !ok {
		return Filament{}, eris.Wrapf(ErrNotFound, "filament %s", filamentID)
	}
	if patch.Material != nil {
		m := strings.ToUpper(strings.TrimSpace(*patch.Material))
		if m == "" {
			return Filament{}, eris.Wrap(ErrInvalidInput, "material is required")
		}
		f.Material = m
	}
	if patch.Color != nil {
		f.Color = strings.TrimSpace(*patch.Color)
	}
	if patch.Manufacturer != nil {
		f.Manufacturer = strings.TrimSpace(*patch.Manufacturer)
	}
	f.UpdatedAt = tx.Now()
	tx.putFilament(f)
	return f, nil
}

// Archive sets the filament's archived flag. Archiving also archives every
// spool regardless of its remaining weight; unarchiving leaves spools alone.
func (a *FilamentAggregate) Archive(tx *Txn, filamentID string, archived bool) (Filament, error) {
	f, ok := tx.Filament(filamentID)
	if !ok {
		return Filament{}, eris.Wrapf(ErrNotFound, "filament %s", filamentID)
	}
	f.Archived = archived
	f.UpdatedAt = tx.Now()
	tx.putFilament(f)
	if archived {
		if err := a.ledger.ArchiveAll(tx, filamentID, true); err != nil {
			return Filament{}, err
		}
	}
	return f, nil
}

// Restock creates in.Quantity new active spools, each starting full at
// in.WeightPerSpool.
func (a *FilamentAggregate) Restock(tx *Txn, filamentID string, in Restock) ([]Spool, error) {
	if _, ok := tx.Filament(filamentID); !ok {
		return nil, eris.Wrapf(ErrNotFound, "filament %s", filamentID)
	}
	if in.Quantity < 1 {
		return nil, eris.Wrapf(ErrInvalidInput, "quantity must be at least 1, got %d", in.Quantity)
	}
	if in.Quantity > MaxRestockQuantity {
		return nil, eris.Wrapf(ErrInvalidInput, "quantity must be at most %d, got %d", MaxRestockQuantity, in.Quantity)
	}
	if err := CheckGrams("weight per spool", in.WeightPerSpool); err != nil {
		return nil, err
	}
	if !in.WeightPerSpool.IsPositive() {
		return nil, eris.Wrapf(ErrInvalidInput, "weight per spool must be positive, got %s", in.WeightPerSpool.String())
	}
	if err := checkGramsPtr("empty weight", in.EmptyWeight); err != nil {
		return nil, err
	}
	out := make([]Spool, 0, in.Quantity)
	for i := 0; i < in.Quantity; i++ {
		sp, err := a.ledger.Create(tx, NewSpool{
			FilamentID:     filamentID,
			StartingWeight: in.WeightPerSpool,
			EmptyWeight:    in.EmptyWeight,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, nil
}

// Delete removes the filament with its spools and consumption entries.
func (a *FilamentAggregate) Delete(tx *Txn, filamentID string) error {
	if _, ok := tx.Filament(filamentID); !ok {
		return eris.Wrapf(ErrNotFound, "filament %s", filamentID)
	}
	for _, sp := range a.ledger.ListAll(tx.State, filamentID) {
		tx.deleteSpool(sp.ID)
	}
	for _, e := range tx.EntryList(filamentID, "") {
		tx.deleteEntry(e.ID)
	}
	tx.deleteFilament(filamentID)
	return nil
}
