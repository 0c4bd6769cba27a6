package inventory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func g(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func gp(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func assertGrams(t *testing.T, want float64, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.Truef(t, g(want).Equal(got), "want %v g, got %s g %v", want, got.String(), msgAndArgs)
}

// newTestInventory returns an inventory holding one empty filament "fil-1".
func newTestInventory(t *testing.T, allocator Allocator) *Inventory {
	t.Helper()
	inv := New(allocator)
	tx := inv.State.Begin(testNow)
	_, err := inv.Filaments.Create(tx, NewFilament{ID: "fil-1", Material: "pla", Color: "Black"})
	require.NoError(t, err)
	tx.Commit()
	return inv
}

// addSpool creates a spool and, if weight differs from starting, sets it
// through the ledger so the spool counts as touched.
func addSpool(t *testing.T, inv *Inventory, filamentID string, starting, weight float64, empty *decimal.Decimal) Spool {
	t.Helper()
	tx := inv.State.Begin(testNow)
	sp, err := inv.Ledger.Create(tx, NewSpool{FilamentID: filamentID, StartingWeight: g(starting), EmptyWeight: empty})
	require.NoError(t, err)
	if weight != starting {
		sp, err = inv.Ledger.SetWeight(tx, sp.ID, g(weight))
		require.NoError(t, err)
	}
	tx.Commit()
	return sp
}

func weightOf(t *testing.T, inv *Inventory, spoolID string) decimal.Decimal {
	t.Helper()
	sp, ok := inv.State.Spool(spoolID)
	require.True(t, ok, "spool %s missing", spoolID)
	return sp.Weight
}

// run executes fn in a transaction and commits or rolls back like the FSM.
func run(inv *Inventory, fn func(tx *Txn) error) error {
	tx := inv.State.Begin(testNow)
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	tx.Commit()
	return nil
}
