package inventory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilamentAggregate_CreateWithSpools(t *testing.T) {
	inv := New(nil)

	var f Filament
	require.NoError(t, run(inv, func(tx *Txn) error {
		var err error
		f, err = inv.Filaments.Create(tx, NewFilament{
			ID: "fil-1", Material: " petg ", Color: "Orange",
			Spools: 2, SpoolWeight: g(1000), EmptyWeight: gp(180),
		})
		return err
	}))

	assert.Equal(t, "PETG", f.Material)
	spools := inv.Ledger.ListAll(inv.State, "fil-1")
	require.Len(t, spools, 2)
	for _, sp := range spools {
		assertGrams(t, 1000, sp.Weight)
		assertGrams(t, 180, sp.Tare())
	}
}

func TestFilamentAggregate_CreateValidation(t *testing.T) {
	inv := newTestInventory(t, nil)

	err := run(inv, func(tx *Txn) error {
		_, err := inv.Filaments.Create(tx, NewFilament{ID: "fil-1", Material: "PLA"})
		return err
	})
	assert.True(t, IsInvalidInput(err))

	err = run(inv, func(tx *Txn) error {
		_, err := inv.Filaments.Create(tx, NewFilament{ID: "fil-2", Material: "  "})
		return err
	})
	assert.True(t, IsInvalidInput(err))

	err = run(inv, func(tx *Txn) error {
		_, err := inv.Filaments.Create(tx, NewFilament{ID: "fil-3", Material: "ABS", Spools: 1})
		return err
	})
	assert.True(t, IsInvalidInput(err))
	_, ok := inv.State.Filament("fil-3")
	assert.False(t, ok, "failed create must not leave the filament behind")
}

func TestFilamentAggregate_Restock(t *testing.T) {
	inv := newTestInventory(t, nil)

	var created []Spool
	require.NoError(t, run(inv, func(tx *Txn) error {
		var err error
		created, err = inv.Filaments.Restock(tx, "fil-1", Restock{Quantity: 3, WeightPerSpool: g(1000), EmptyWeight: gp(250)})
		return err
	}))

	require.Len(t, created, 3)
	active := inv.Ledger.ListActive(inv.State, "fil-1")
	require.Len(t, active, 3)
	for _, sp := range active {
		assert.False(t, sp.Archived)
		assertGrams(t, 1000, sp.Weight)
		assertGrams(t, 1000, sp.StartingWeight)
		require.NotNil(t, sp.EmptyWeight)
		assertGrams(t, 250, *sp.EmptyWeight)
	}
}

func TestFilamentAggregate_RestockValidation(t *testing.T) {
	inv := newTestInventory(t, nil)

	err := run(inv, func(tx *Txn) error {
		_, err := inv.Filaments.Restock(tx, "fil-1", Restock{Quantity: 0, WeightPerSpool: g(1000)})
		return err
	})
	assert.True(t, IsInvalidInput(err))

	err = run(inv, func(tx *Txn) error {
		_, err := inv.Filaments.Restock(tx, "missing", Restock{Quantity: 1, WeightPerSpool: g(1000)})
		return err
	})
	assert.True(t, IsNotFound(err))
}

func TestFilamentAggregate_ArchiveCascades(t *testing.T) {
	inv := newTestInventory(t, nil)
	full := addSpool(t, inv, "fil-1", 1000, 1000, gp(250))
	part := addSpool(t, inv, "fil-1", 1000, 600, gp(250))

	require.NoError(t, run(inv, func(tx *Txn) error {
		_, err := inv.Filaments.Archive(tx, "fil-1", true)
		return err
	}))

	f, _ := inv.State.Filament("fil-1")
	assert.True(t, f.Archived)
	for _, id := range []string{full.ID, part.ID} {
		sp, _ := inv.State.Spool(id)
		assert.True(t, sp.Archived, id)
	}

	require.NoError(t, run(inv, func(tx *Txn) error {
		_, err := inv.Filaments.Archive(tx, "fil-1", false)
		return err
	}))
	f, _ = inv.State.Filament("fil-1")
	assert.False(t, f.Archived)
	sp, _ := inv.State.Spool(full.ID)
	assert.True(t, sp.Archived, "unarchiving a filament leaves spools archived")
}

func TestFilamentAggregate_GrossAndNetRemaining(t *testing.T) {
	inv := newTestInventory(t, nil)
	addSpool(t, inv, "fil-1", 1000, 1000, gp(250))
	addSpool(t, inv, "fil-1", 1000, 600, gp(200))
	addSpool(t, inv, "fil-1", 500, 500, nil)
	archived := addSpool(t, inv, "fil-1", 1000, 1000, nil)
	yes := true
	require.NoError(t, run(inv, func(tx *Txn) error {
		_, err := inv.Ledger.Update(tx, archived.ID, SpoolPatch{Archived: &yes})
		return err
	}))

	gross, err := inv.Filaments.GrossRemaining(inv.State, "fil-1")
	require.NoError(t, err)
	assertGrams(t, 2100, gross)

	net, err := inv.Filaments.NetRemaining(inv.State, "fil-1")
	require.NoError(t, err)
	assertGrams(t, 1650, net)

	view, err := inv.Filaments.View(inv.State, "fil-1")
	require.NoError(t, err)
	assertGrams(t, 2100, view.GrossRemaining)
	assertGrams(t, 1650, view.NetRemaining)
	assert.Len(t, view.Spools, 4)

	_, err = inv.Filaments.GrossRemaining(inv.State, "missing")
	assert.True(t, IsNotFound(err))
}

func TestFilamentAggregate_Update(t *testing.T) {
	inv := newTestInventory(t, nil)

	color := "Galaxy Black"
	maker := "Prusament"
	var f Filament
	require.NoError(t, run(inv, func(tx *Txn) error {
		var err error
		f, err = inv.Filaments.Update(tx, "fil-1", FilamentPatch{Color: &color, Manufacturer: &maker})
		return err
	}))
	assert.Equal(t, "PLA", f.Material)
	assert.Equal(t, "Galaxy Black", f.Color)
	assert.Equal(t, "Prusament", f.Manufacturer)
}

func TestFilamentAggregate_DeleteCascades(t *testing.T) {
	inv := newTestInventory(t, nil)
	addSpool(t, inv, "fil-1", 1000, 1000, nil)
	createEntry(t, inv, "e1", "fil-1", 10)

	require.NoError(t, run(inv, func(tx *Txn) error { return inv.Filaments.Delete(tx, "fil-1") }))

	assert.Empty(t, inv.State.Filaments)
	assert.Empty(t, inv.State.Spools)
	assert.Empty(t, inv.State.Entries)
}

func TestFilamentAggregate_RestockRejectsHugeQuantity(t *testing.T) {
	inv := newTestInventory(t, nil)

	var err error
	assert.NotPanics(t, func() {
		err = run(inv, func(tx *Txn) error {
			_, err := inv.Filaments.Restock(tx, "fil-1", Restock{Quantity: math.MaxInt64, WeightPerSpool: g(1000)})
			return err
		})
	})
	assert.True(t, IsInvalidInput(err))
	assert.Empty(t, inv.Ledger.ListAll(inv.State, "fil-1"))

	err = run(inv, func(tx *Txn) error {
		_, err := inv.Filaments.Restock(tx, "fil-1", Restock{Quantity: MaxRestockQuantity + 1, WeightPerSpool: g(1000)})
		return err
	})
	assert.True(t, IsInvalidInput(err))
}

func TestFilamentAggregate_CreateRejectsHugeSpoolCount(t *testing.T) {
	inv := newTestInventory(t, nil)

	var err error
	assert.NotPanics(t, func() {
		err = run(inv, func(tx *Txn) error {
			_, err := inv.Filaments.Create(tx, NewFilament{ID: "fil-big", Material: "PLA", Spools: math.MaxInt, SpoolWeight: g(1000)})
			return err
		})
	})
	assert.True(t, IsInvalidInput(err))
	_, ok := inv.State.Filament("fil-big")
	assert.False(t, ok)
}
