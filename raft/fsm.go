package raft

import (
	"encoding/json"
	"io"
	"sort"
	"sync"

	"github.com/hashicorp/raft"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/devadigapratham/spoolkeeper/api/models"
	"github.com/devadigapratham/spoolkeeper/inventory"
)

// FSM implements the raft.FSM interface for the spool inventory. Every
// mutation arrives as one log entry and is applied under the write lock in a
// single inventory transaction, so a command either lands whole or not at all.
type FSM struct {
	mu sync.RWMutex

	inv      *inventory.Inventory
	printers map[string]*models.Printer
}

// NewFSM creates a new Finite State Machine for the Raft cluster
func NewFSM(allocator inventory.Allocator) *FSM {
	return &FSM{
		inv:      inventory.New(allocator),
		printers: make(map[string]*models.Printer),
	}
}

// Apply applies a Raft log entry to the FSM. It returns the command's result
// or an error.
func (f *FSM) Apply(log *raft.Log) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmd, err := models.UnmarshalCommand(log.Data)
	if err != nil {
		return eris.Wrap(err, "failed to unmarshal command")
	}

	tx := f.inv.State.Begin(cmd.Timestamp)
	result, err := f.apply(tx, cmd)
	if err != nil {
		tx.Rollback()
		zap.L().Debug("command rejected",
			zap.String("type", string(cmd.Type)),
			zap.Uint64("index", log.Index),
			zap.Error(err))
		return err
	}
	tx.Commit()
	return result
}

func (f *FSM) apply(tx *inventory.Txn, cmd *models.Command) (interface{}, error) {
	inv := f.inv
	switch cmd.Type {
	case models.AddPrinter:
		if cmd.Printer == nil {
			return nil, eris.Wrap(inventory.ErrInvalidInput, "printer is nil")
		}
		printer := *cmd.Printer
		// Printers live outside the inventory transaction; nothing after
		// this point can fail.
		f.printers[printer.ID] = &printer
		return printer, nil

	case models.AddFilament:
		if cmd.NewFilament == nil {
			return nil, eris.Wrap(inventory.ErrInvalidInput, "filament is nil")
		}
		filament, err := inv.Filaments.Create(tx, *cmd.NewFilament)
		if err != nil {
			return nil, err
		}
		return inv.Filaments.View(tx.State, filament.ID)

	case models.UpdateFilament:
		if cmd.FilamentPatch == nil {
			return nil, eris.Wrap(inventory.ErrInvalidInput, "filament patch is nil")
		}
		if _, err := inv.Filaments.Update(tx, cmd.FilamentID, *cmd.FilamentPatch); err != nil {
			return nil, err
		}
		return inv.Filaments.View(tx.State, cmd.FilamentID)

	case models.ArchiveFilament:
		if cmd.Archived == nil {
			return nil, eris.Wrap(inventory.ErrInvalidInput, "archived is nil")
		}
		if _, err := inv.Filaments.Archive(tx, cmd.FilamentID, *cmd.Archived); err != nil {
			return nil, err
		}
		return inv.Filaments.View(tx.State, cmd.FilamentID)

	case models.RestockFilament:
		if cmd.Restock == nil {
			return nil, eris.Wrap(inventory.ErrInvalidInput, "restock is nil")
		}
		return inv.Filaments.Restock(tx, cmd.FilamentID, *cmd.Restock)

	case models.DeleteFilament:
		return nil, inv.Filaments.Delete(tx, cmd.FilamentID)

	case models.AddSpool:
		if cmd.NewSpool == nil {
			return nil, eris.Wrap(inventory.ErrInvalidInput, "spool is nil")
		}
		spool, err := inv.Ledger.Create(tx, *cmd.NewSpool)
		if err != nil {
			return nil, err
		}
		return inventory.NewSpoolView(spool), nil

	case models.UpdateSpool:
		if cmd.SpoolPatch == nil {
			return nil, eris.Wrap(inventory.ErrInvalidInput, "spool patch is nil")
		}
		spool, err := inv.Ledger.Update(tx, cmd.SpoolID, *cmd.SpoolPatch)
		if err != nil {
			return nil, err
		}
		return inventory.NewSpoolView(spool), nil

	case models.AddConsumption:
		if cmd.NewEntry == nil {
			return nil, eris.Wrap(inventory.ErrInvalidInput, "consumption entry is nil")
		}
		if err := f.checkPrinter(cmd.NewEntry.PrinterID); err != nil {
			return nil, err
		}
		return inv.Accountant.CreateEntry(tx, *cmd.NewEntry)

	case models.UpdateConsumption:
		if cmd.EntryPatch == nil {
			return nil, eris.Wrap(inventory.ErrInvalidInput, "consumption patch is nil")
		}
		if cmd.EntryPatch.PrinterID != nil {
			if err := f.checkPrinter(*cmd.EntryPatch.PrinterID); err != nil {
				return nil, err
			}
		}
		return inv.Accountant.UpdateEntry(tx, cmd.EntryID, *cmd.EntryPatch)

	case models.DeleteConsumption:
		return nil, inv.Accountant.DeleteEntry(tx, cmd.EntryID)

	default:
		return nil, eris.Wrapf(inventory.ErrInvalidInput, "unknown command type: %s", cmd.Type)
	}
}

func (f *FSM) checkPrinter(id string) error {
	if id == "" {
		return nil
	}
	if _, ok := f.printers[id]; !ok {
		return eris.Wrapf(inventory.ErrNotFound, "printer %s", id)
	}
	return nil
}

// Snapshot returns a snapshot of the FSM state
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return &fsmSnapshot{
		Printers:  f.printerList(),
		Inventory: f.inv.State.Clone(),
	}, nil
}

// Restore restores the FSM from a snapshot
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var snapshot fsmSnapshot
	if err := json.NewDecoder(rc).Decode(&snapshot); err != nil {
		return eris.Wrap(err, "failed to decode snapshot")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.printers = make(map[string]*models.Printer, len(snapshot.Printers))
	for _, p := range snapshot.Printers {
		printer := p
		f.printers[p.ID] = &printer
	}
	state := snapshot.Inventory
	if state == nil {
		state = inventory.NewState()
	}
	ensureMaps(state)
	f.inv.Reset(state)

	return nil
}

// Export returns a point-in-time copy of the whole state
func (f *FSM) Export() *Export {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return &Export{
		Printers:  f.printerList(),
		Inventory: f.inv.State.Clone(),
	}
}

// GetPrinters returns all printers
func (f *FSM) GetPrinters() []models.Printer {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.printerList()
}

// GetPrinter returns a printer by ID
func (f *FSM) GetPrinter(id string) (models.Printer, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	printer, ok := f.printers[id]
	if !ok {
		return models.Printer{}, false
	}
	return *printer, true
}

// GetFilaments returns every filament view, newest first
func (f *FSM) GetFilaments(includeArchived bool) []inventory.FilamentView {
	f.mu.RLock()
	defer f.mu.RUnlock()

	filaments := f.inv.State.FilamentList(includeArchived)
	views := make([]inventory.FilamentView, 0, len(filaments))
	for _, fil := range filaments {
		view, err := f.inv.Filaments.View(f.inv.State, fil.ID)
		if err != nil {
			continue
		}
		views = append(views, view)
	}
	return views
}

// GetFilament returns one filament with its spools and remaining weights
func (f *FSM) GetFilament(id string) (inventory.FilamentView, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.inv.Filaments.View(f.inv.State, id)
}

// GetSpools returns a filament's spools, newest first
func (f *FSM) GetSpools(filamentID string, includeArchived bool) ([]inventory.SpoolView, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if _, ok := f.inv.State.Filament(filamentID); !ok {
		return nil, eris.Wrapf(inventory.ErrNotFound, "filament %s", filamentID)
	}
	var spools []inventory.Spool
	if includeArchived {
		spools = f.inv.Ledger.ListAll(f.inv.State, filamentID)
	} else {
		spools = f.inv.Ledger.ListActive(f.inv.State, filamentID)
	}
	views := make([]inventory.SpoolView, 0, len(spools))
	for _, sp := range spools {
		views = append(views, inventory.NewSpoolView(sp))
	}
	return views, nil
}

// GetSpool returns a spool by ID
func (f *FSM) GetSpool(id string) (inventory.SpoolView, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	sp, ok := f.inv.State.Spool(id)
	if !ok {
		return inventory.SpoolView{}, false
	}
	return inventory.NewSpoolView(sp), true
}

// GetConsumption returns entries filtered by filament and kind
func (f *FSM) GetConsumption(filamentID string, kind inventory.Kind) []inventory.Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.inv.State.EntryList(filamentID, kind)
}

// GetConsumptionEntry returns an entry by ID
func (f *FSM) GetConsumptionEntry(id string) (inventory.Entry, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.inv.State.Entry(id)
}

// AllocatorName reports the deduction policy in use
func (f *FSM) AllocatorName() string {
	return f.inv.Accountant.Allocator().Name()
}

func (f *FSM) printerList() []models.Printer {
	printers := make([]models.Printer, 0, len(f.printers))
	for _, printer := range f.printers {
		printers = append(printers, *printer)
	}
	sort.Slice(printers, func(i, j int) bool { return printers[i].ID < printers[j].ID })
	return printers
}

func ensureMaps(st *inventory.State) {
	if st.Filaments == nil {
		st.Filaments = make(map[string]*inventory.Filament)
	}
	if st.Spools == nil {
		st.Spools = make(map[string]*inventory.Spool)
	}
	if st.Entries == nil {
		st.Entries = make(map[string]*inventory.Entry)
	}
}

// Export is the serialized form of the FSM state, used for snapshots and
// inventory exports.
type Export struct {
	Printers  []models.Printer `json:"printers"`
	Inventory *inventory.State `json:"inventory"`
}

// fsmSnapshot implements the raft.FSMSnapshot interface
type fsmSnapshot Export

// Persist saves the snapshot to the provided sink
func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		// Encode the snapshot
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()

	if err != nil {
		sink.Cancel()
		return err
	}

	return nil
}

// Release is a no-op
func (s *fsmSnapshot) Release() {}
