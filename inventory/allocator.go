package inventory

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// Allocation is a weight change planned for one spool. Delta is negative
// for a deduction and positive for a restoration.
type Allocation struct {
	SpoolID string          `json:"spool_id"`
	Delta   decimal.Decimal `json:"delta"`
}

// Allocator decides how an amount is spread over a filament's active spools.
// Plans are pure: they read the spools they are given and change nothing.
type Allocator interface {
	Name() string
	// PlanDeduct returns the allocations removing amount from spools. It
	// fails with ErrInsufficientStock when the spools hold less than amount.
	PlanDeduct(spools []Spool, amount decimal.Decimal) ([]Allocation, error)
	// PlanRestore picks the spool that receives a restored amount. ok is
	// false when spools is empty.
	PlanRestore(spools []Spool, amount decimal.Decimal) (a Allocation, ok bool)
}

// Allocator names accepted by NewAllocator.
const (
	AllocatorRecency = "recency"
	AllocatorFIFO    = "fifo"
)

// NewAllocator returns the allocator registered under name.
func NewAllocator(name string) (Allocator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", AllocatorRecency:
		return RecencyFirstAllocator{}, nil
	case AllocatorFIFO:
		return FIFOAllocator{}, nil
	default:
		return nil, eris.Wrapf(ErrInvalidInput, "unknown allocator %q", name)
	}
}

// RecencyFirstAllocator takes from the most recently touched spool first:
// the most recently updated used spool, or failing that the most recently
// created unused one. Any remainder is taken from the other spools, heaviest
// first. Restorations go to the lightest spool.
type RecencyFirstAllocator struct{}

func (RecencyFirstAllocator) Name() string { return AllocatorRecency }

func (RecencyFirstAllocator) PlanDeduct(spools []Spool, amount decimal.Decimal) ([]Allocation, error) {
	if err := checkStock(spools, amount); err != nil {
		return nil, err
	}
	if len(spools) == 0 || !amount.IsPositive() {
		return nil, nil
	}

	primary := -1
	for i, sp := range spools {
		if !sp.Used() {
			continue
		}
		if primary < 0 || sp.UpdatedSeq > spools[primary].UpdatedSeq {
			primary = i
		}
	}
	if primary < 0 {
		for i, sp := range spools {
			if primary < 0 || sp.CreatedSeq > spools[primary].CreatedSeq {
				primary = i
			}
		}
	}

	rest := make([]Spool, 0, len(spools)-1)
	for i, sp := range spools {
		if i != primary {
			rest = append(rest, sp)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if !rest[i].Weight.Equal(rest[j].Weight) {
			return rest[i].Weight.GreaterThan(rest[j].Weight)
		}
		return rest[i].CreatedSeq > rest[j].CreatedSeq
	})

	order := append([]Spool{spools[primary]}, rest...)
	return drain(order, amount), nil
}

func (RecencyFirstAllocator) PlanRestore(spools []Spool, amount decimal.Decimal) (Allocation, bool) {
	return restoreLightest(spools, amount)
}

// FIFOAllocator takes from the oldest spool first, then the next oldest.
// Restorations go to the lightest spool.
type FIFOAllocator struct{}

func (FIFOAllocator) Name() string { return AllocatorFIFO }

func (FIFOAllocator) PlanDeduct(spools []Spool, amount decimal.Decimal) ([]Allocation, error) {
	if err := checkStock(spools, amount); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, nil
	}
	order := append([]Spool(nil), spools...)
	sort.SliceStable(order, func(i, j int) bool { return order[i].CreatedSeq < order[j].CreatedSeq })
	return drain(order, amount), nil
}

func (FIFOAllocator) PlanRestore(spools []Spool, amount decimal.Decimal) (Allocation, bool) {
	return restoreLightest(spools, amount)
}

// Total sums the gross weight of spools.
func Total(spools []Spool) decimal.Decimal {
	total := decimal.Zero
	for _, sp := range spools {
		total = total.Add(sp.Weight)
	}
	return total
}

func checkStock(spools []Spool, amount decimal.Decimal) error {
	available := Total(spools)
	if amount.GreaterThan(available) {
		return eris.Wrapf(ErrInsufficientStock, "requested %s g, available %s g", amount.String(), available.String())
	}
	return nil
}

// drain takes amount from spools in order, emptying each before moving on.
func drain(order []Spool, amount decimal.Decimal) []Allocation {
	remaining := amount
	out := make([]Allocation, 0, 1)
	for _, sp := range order {
		if !remaining.IsPositive() {
			break
		}
		if !sp.Weight.IsPositive() {
			continue
		}
		take := decimal.Min(sp.Weight, remaining)
		out = append(out, Allocation{SpoolID: sp.ID, Delta: take.Neg()})
		remaining = remaining.Sub(take)
	}
	return out
}

func restoreLightest(spools []Spool, amount decimal.Decimal) (Allocation, bool) {
	if len(spools) == 0 {
		return Allocation{}, false
	}
	target := spools[0]
	for _, sp := range spools[1:] {
		if sp.Weight.LessThan(target.Weight) ||
			(sp.Weight.Equal(target.Weight) && sp.CreatedSeq > target.CreatedSeq) {
			target = sp
		}
	}
	return Allocation{SpoolID: target.ID, Delta: amount}, true
}
