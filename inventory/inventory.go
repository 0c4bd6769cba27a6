// Package inventory is the weight-accounting engine for spooled filament
// stock.
//
// A filament owns spools, each with its own weight ledger. Consumption
// entries are recorded per filament and spread over the filament's active
// spools by an Allocator. Every write goes through a Txn so a failed
// operation leaves the State untouched.
package inventory

// Inventory wires the engine components over one State.
type Inventory struct {
	State      *State
	Ledger     *SpoolLedger
	Accountant *ConsumptionAccountant
	Filaments  *FilamentAggregate
}

// New returns an empty inventory using allocator for deductions.
func New(allocator Allocator) *Inventory {
	ledger := &SpoolLedger{}
	return &Inventory{
		State:      NewState(),
		Ledger:     ledger,
		Accountant: NewConsumptionAccountant(ledger, allocator),
		Filaments:  NewFilamentAggregate(ledger),
	}
}

// Reset replaces the state, e.g. after restoring a snapshot.
func (inv *Inventory) Reset(st *State) {
	if st == nil {
		st = NewState()
	}
	inv.State = st
}
