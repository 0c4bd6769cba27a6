package inventory

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createEntry(t *testing.T, inv *Inventory, id, filamentID string, grams float64) Entry {
	t.Helper()
	var e Entry
	require.NoError(t, run(inv, func(tx *Txn) error {
		var err error
		e, err = inv.Accountant.CreateEntry(tx, NewEntry{ID: id, FilamentID: filamentID, AmountGrams: g(grams), Kind: KindSuccess})
		return err
	}))
	return e
}

func activeTotal(inv *Inventory, filamentID string) decimal.Decimal {
	return Total(inv.Ledger.ListActive(inv.State, filamentID))
}

func TestAccountant_DeductTargetsUsedSpool(t *testing.T) {
	inv := newTestInventory(t, nil)
	a := addSpool(t, inv, "fil-1", 100, 100, nil)
	b := addSpool(t, inv, "fil-1", 100, 80, nil)

	require.NoError(t, run(inv, func(tx *Txn) error {
		_, err := inv.Accountant.Deduct(tx, "fil-1", g(30))
		return err
	}))

	assertGrams(t, 50, weightOf(t, inv, b.ID))
	assertGrams(t, 100, weightOf(t, inv, a.ID))
}

func TestAccountant_RestoreTargetsLightestSpool(t *testing.T) {
	inv := newTestInventory(t, nil)
	a := addSpool(t, inv, "fil-1", 100, 100, nil)
	b := addSpool(t, inv, "fil-1", 100, 50, nil)

	require.NoError(t, run(inv, func(tx *Txn) error {
		_, err := inv.Accountant.Restore(tx, "fil-1", g(20))
		return err
	}))

	assertGrams(t, 70, weightOf(t, inv, b.ID))
	assertGrams(t, 100, weightOf(t, inv, a.ID))
}

func TestAccountant_RestoreWithoutActiveSpoolCreatesOne(t *testing.T) {
	inv := newTestInventory(t, nil)

	var plan []Allocation
	require.NoError(t, run(inv, func(tx *Txn) error {
		var err error
		plan, err = inv.Accountant.Restore(tx, "fil-1", g(42.5))
		return err
	}))

	require.Len(t, plan, 1)
	sp, ok := inv.State.Spool(plan[0].SpoolID)
	require.True(t, ok)
	assertGrams(t, 42.5, sp.Weight)
	assertGrams(t, 42.5, sp.StartingWeight)
	assert.Nil(t, sp.EmptyWeight)
	assert.False(t, sp.Archived)
}

func TestAccountant_DeductInsufficientStockLeavesSpoolsUntouched(t *testing.T) {
	inv := newTestInventory(t, nil)
	a := addSpool(t, inv, "fil-1", 100, 100, nil)
	b := addSpool(t, inv, "fil-1", 100, 80, nil)

	err := run(inv, func(tx *Txn) error {
		_, err := inv.Accountant.CreateEntry(tx, NewEntry{ID: "e1", FilamentID: "fil-1", AmountGrams: g(181)})
		return err
	})
	require.Error(t, err)
	assert.True(t, IsInsufficientStock(err))

	assertGrams(t, 100, weightOf(t, inv, a.ID))
	assertGrams(t, 80, weightOf(t, inv, b.ID))
	_, ok := inv.State.Entry("e1")
	assert.False(t, ok)
}

func TestAccountant_CreateEntry_Validation(t *testing.T) {
	inv := newTestInventory(t, nil)
	addSpool(t, inv, "fil-1", 1000, 1000, nil)

	tests := []struct {
		name  string
		in    NewEntry
		check func(error) bool
	}{
		{"missing id", NewEntry{FilamentID: "fil-1", AmountGrams: g(1)}, IsInvalidInput},
		{"zero amount", NewEntry{ID: "x", FilamentID: "fil-1", AmountGrams: g(0)}, IsInvalidInput},
		{"negative amount", NewEntry{ID: "x", FilamentID: "fil-1", AmountGrams: g(-5)}, IsInvalidInput},
		{"bad kind", NewEntry{ID: "x", FilamentID: "fil-1", AmountGrams: g(5), Kind: "spaghetti"}, IsInvalidInput},
		{"unknown filament", NewEntry{ID: "x", FilamentID: "fil-9", AmountGrams: g(5)}, IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(inv, func(tx *Txn) error {
				_, err := inv.Accountant.CreateEntry(tx, tt.in)
				return err
			})
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
	assertGrams(t, 1000, activeTotal(inv, "fil-1"))
}

func TestAccountant_CreateEntry_DefaultsKind(t *testing.T) {
	inv := newTestInventory(t, nil)
	addSpool(t, inv, "fil-1", 1000, 1000, nil)

	var e Entry
	require.NoError(t, run(inv, func(tx *Txn) error {
		var err error
		e, err = inv.Accountant.CreateEntry(tx, NewEntry{ID: "e1", FilamentID: "fil-1", AmountGrams: g(12)})
		return err
	}))
	assert.Equal(t, KindSuccess, e.Kind)
}

func TestAccountant_CreateThenDeleteRestoresExactly(t *testing.T) {
	inv := newTestInventory(t, nil)
	a := addSpool(t, inv, "fil-1", 1000, 1000, gp(250))
	b := addSpool(t, inv, "fil-1", 1000, 400, gp(250))

	createEntry(t, inv, "e1", "fil-1", 123.45)
	assertGrams(t, 276.55, weightOf(t, inv, b.ID))

	require.NoError(t, run(inv, func(tx *Txn) error {
		return inv.Accountant.DeleteEntry(tx, "e1")
	}))

	assertGrams(t, 1000, weightOf(t, inv, a.ID))
	assertGrams(t, 400, weightOf(t, inv, b.ID))
	_, ok := inv.State.Entry("e1")
	assert.False(t, ok)
}

func TestAccountant_DeleteEntry_NotFound(t *testing.T) {
	inv := newTestInventory(t, nil)

	err := run(inv, func(tx *Txn) error { return inv.Accountant.DeleteEntry(tx, "nope") })
	assert.True(t, IsNotFound(err))
}

func TestAccountant_UpdateEntry_AmountChanges(t *testing.T) {
	inv := newTestInventory(t, nil)
	sp := addSpool(t, inv, "fil-1", 1000, 1000, nil)
	createEntry(t, inv, "e1", "fil-1", 100)

	more := g(150)
	require.NoError(t, run(inv, func(tx *Txn) error {
		_, err := inv.Accountant.UpdateEntry(tx, "e1", EntryPatch{AmountGrams: &more})
		return err
	}))
	assertGrams(t, 850, weightOf(t, inv, sp.ID))

	less := g(40)
	notes := "reweighed"
	var e Entry
	require.NoError(t, run(inv, func(tx *Txn) error {
		var err error
		e, err = inv.Accountant.UpdateEntry(tx, "e1", EntryPatch{AmountGrams: &less, Notes: &notes})
		return err
	}))
	assertGrams(t, 960, weightOf(t, inv, sp.ID))
	assertGrams(t, 40, e.AmountGrams)
	assert.Equal(t, "reweighed", e.Notes)
}

func TestAccountant_UpdateEntry_IncreaseBeyondStockRollsBack(t *testing.T) {
	inv := newTestInventory(t, nil)
	sp := addSpool(t, inv, "fil-1", 200, 200, nil)
	createEntry(t, inv, "e1", "fil-1", 100)

	tooMuch := g(301)
	err := run(inv, func(tx *Txn) error {
		_, err := inv.Accountant.UpdateEntry(tx, "e1", EntryPatch{AmountGrams: &tooMuch})
		return err
	})
	assert.True(t, IsInsufficientStock(err))
	assertGrams(t, 100, weightOf(t, inv, sp.ID))
	e, _ := inv.State.Entry("e1")
	assertGrams(t, 100, e.AmountGrams)
}

// Moving an entry to another filament while changing its amount restores the
// old amount to the old filament and deducts the new amount from the new one.
func TestAccountant_UpdateEntry_MoveAndResize(t *testing.T) {
	inv := newTestInventory(t, nil)
	require.NoError(t, run(inv, func(tx *Txn) error {
		_, err := inv.Filaments.Create(tx, NewFilament{ID: "fil-2", Material: "PETG", Color: "Blue"})
		return err
	}))
	old := addSpool(t, inv, "fil-1", 1000, 1000, nil)
	dst := addSpool(t, inv, "fil-2", 1000, 1000, nil)
	createEntry(t, inv, "e1", "fil-1", 100)

	to := "fil-2"
	amount := g(250)
	var e Entry
	require.NoError(t, run(inv, func(tx *Txn) error {
		var err error
		e, err = inv.Accountant.UpdateEntry(tx, "e1", EntryPatch{FilamentID: &to, AmountGrams: &amount})
		return err
	}))

	assert.Equal(t, "fil-2", e.FilamentID)
	assertGrams(t, 1000, weightOf(t, inv, old.ID))
	assertGrams(t, 750, weightOf(t, inv, dst.ID))
}

func TestAccountant_UpdateEntry_MoveToUnknownFilament(t *testing.T) {
	inv := newTestInventory(t, nil)
	sp := addSpool(t, inv, "fil-1", 1000, 1000, nil)
	createEntry(t, inv, "e1", "fil-1", 100)

	to := "ghost"
	err := run(inv, func(tx *Txn) error {
		_, err := inv.Accountant.UpdateEntry(tx, "e1", EntryPatch{FilamentID: &to})
		return err
	})
	assert.True(t, IsNotFound(err))
	assertGrams(t, 900, weightOf(t, inv, sp.ID))
}

func TestAccountant_Conservation(t *testing.T) {
	for _, alloc := range []Allocator{RecencyFirstAllocator{}, FIFOAllocator{}} {
		t.Run(alloc.Name(), func(t *testing.T) {
			inv := newTestInventory(t, alloc)
			addSpool(t, inv, "fil-1", 1000, 1000, nil)
			addSpool(t, inv, "fil-1", 1000, 640, nil)
			addSpool(t, inv, "fil-1", 750, 750, nil)
			initial := activeTotal(inv, "fil-1")

			consumed := map[string]decimal.Decimal{}
			check := func() {
				sum := decimal.Zero
				for _, v := range consumed {
					sum = sum.Add(v)
				}
				assert.True(t, initial.Equal(activeTotal(inv, "fil-1").Add(sum)),
					"initial %s != active %s + consumed %s", initial, activeTotal(inv, "fil-1"), sum)
			}

			for i, grams := range []float64{12.5, 300, 0.25, 88, 410.75} {
				id := fmt.Sprintf("e%d", i)
				createEntry(t, inv, id, "fil-1", grams)
				consumed[id] = g(grams)
				check()
			}

			resized := g(95.5)
			require.NoError(t, run(inv, func(tx *Txn) error {
				_, err := inv.Accountant.UpdateEntry(tx, "e3", EntryPatch{AmountGrams: &resized})
				return err
			}))
			consumed["e3"] = resized
			check()

			for _, id := range []string{"e1", "e4"} {
				require.NoError(t, run(inv, func(tx *Txn) error { return inv.Accountant.DeleteEntry(tx, id) }))
				delete(consumed, id)
				check()
			}
		})
	}
}

func TestAccountant_EndToEndAutoArchive(t *testing.T) {
	inv := newTestInventory(t, nil)
	sp := addSpool(t, inv, "fil-1", 1000, 1000, gp(250))

	createEntry(t, inv, "e1", "fil-1", 500)
	createEntry(t, inv, "e2", "fil-1", 200)
	createEntry(t, inv, "e3", "fil-1", 51)

	got, _ := inv.State.Spool(sp.ID)
	assertGrams(t, 249, got.Weight)
	assertGrams(t, -1, got.NetRemaining())
	assert.True(t, got.Archived)

	gross, err := inv.Filaments.GrossRemaining(inv.State, "fil-1")
	require.NoError(t, err)
	assertGrams(t, 0, gross)
}

// Restore puts the whole amount on one spool, so undoing a deduction that
// emptied and archived the used spool lands everything on the survivor.
func TestAccountant_DeleteAfterMultiSpoolDeduction(t *testing.T) {
	inv := newTestInventory(t, nil)
	a := addSpool(t, inv, "fil-1", 100, 100, nil)
	b := addSpool(t, inv, "fil-1", 100, 80, nil)

	createEntry(t, inv, "e1", "fil-1", 90)
	assertGrams(t, 90, weightOf(t, inv, a.ID))
	assertGrams(t, 0, weightOf(t, inv, b.ID))

	require.NoError(t, run(inv, func(tx *Txn) error {
		return inv.Accountant.DeleteEntry(tx, "e1")
	}))

	assertGrams(t, 180, weightOf(t, inv, a.ID))
	assertGrams(t, 0, weightOf(t, inv, b.ID))
	spB, _ := inv.State.Spool(b.ID)
	assert.True(t, spB.Archived, "restore never unarchives")
	assertGrams(t, 180, activeTotal(inv, "fil-1"))
}

func TestAccountant_CreateEntry_RejectsExcessiveScale(t *testing.T) {
	inv := newTestInventory(t, nil)
	sp := addSpool(t, inv, "fil-1", 1000, 1000, nil)

	for _, amount := range []string{"1e-20000000", "0.0001", "1e20000000"} {
		err := run(inv, func(tx *Txn) error {
			_, err := inv.Accountant.CreateEntry(tx, NewEntry{ID: "e1", FilamentID: "fil-1", AmountGrams: decimal.RequireFromString(amount)})
			return err
		})
		assert.True(t, IsInvalidInput(err), amount)
	}
	assertGrams(t, 1000, weightOf(t, inv, sp.ID))
	_, ok := inv.State.Entry("e1")
	assert.False(t, ok)
}

func TestAccountant_UpdateEntry_ClearAmountMeters(t *testing.T) {
	inv := newTestInventory(t, nil)
	addSpool(t, inv, "fil-1", 1000, 1000, nil)
	require.NoError(t, run(inv, func(tx *Txn) error {
		_, err := inv.Accountant.CreateEntry(tx, NewEntry{ID: "e1", FilamentID: "fil-1", AmountGrams: g(30), AmountMeters: gp(10)})
		return err
	}))

	var e Entry
	require.NoError(t, run(inv, func(tx *Txn) error {
		var err error
		e, err = inv.Accountant.UpdateEntry(tx, "e1", EntryPatch{ClearAmountMeters: true})
		return err
	}))
	assert.Nil(t, e.AmountMeters)
	stored, _ := inv.State.Entry("e1")
	assert.Nil(t, stored.AmountMeters)
}
