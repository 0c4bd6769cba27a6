package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// idSpace namespaces the deterministic IDs minted inside the engine.
var idSpace = uuid.MustParse("5b0f6f0e-3c55-4d0e-9a53-6f7c1f1b2d41")

// State is the full inventory. It is not safe for concurrent use; the owner
// serializes access (the raft FSM applies one command at a time).
type State struct {
	Filaments map[string]*Filament `json:"filaments"`
	Spools    map[string]*Spool    `json:"spools"`
	Entries   map[string]*Entry    `json:"entries"`
	Seq       uint64               `json:"seq"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		Filaments: make(map[string]*Filament),
		Spools:    make(map[string]*Spool),
		Entries:   make(map[string]*Entry),
	}
}

// Filament returns a copy of the filament with id.
func (s *State) Filament(id string) (Filament, bool) {
	f, ok := s.Filaments[id]
	if !ok {
		return Filament{}, false
	}
	return *f, true
}

// Spool returns a copy of the spool with id.
func (s *State) Spool(id string) (Spool, bool) {
	sp, ok := s.Spools[id]
	if !ok {
		return Spool{}, false
	}
	return *sp, true
}

// Entry returns a copy of the entry with id.
func (s *State) Entry(id string) (Entry, bool) {
	e, ok := s.Entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// SpoolsOf returns copies of the filament's spools, newest first.
func (s *State) SpoolsOf(filamentID string, includeArchived bool) []Spool {
	out := make([]Spool, 0)
	for _, sp := range s.Spools {
		if sp.FilamentID != filamentID {
			continue
		}
		if sp.Archived && !includeArchived {
			continue
		}
		out = append(out, *sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedSeq > out[j].CreatedSeq })
	return out
}

// FilamentList returns copies of all filaments, newest first.
func (s *State) FilamentList(includeArchived bool) []Filament {
	out := make([]Filament, 0, len(s.Filaments))
	for _, f := range s.Filaments {
		if f.Archived && !includeArchived {
			continue
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// EntryList returns copies of entries, newest first. An empty filamentID
// matches every filament and an empty kind matches every kind.
func (s *State) EntryList(filamentID string, kind Kind) []Entry {
	out := make([]Entry, 0)
	for _, e := range s.Entries {
		if filamentID != "" && e.FilamentID != filamentID {
			continue
		}
		if kind != "" && e.Kind != kind {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := NewState()
	c.Seq = s.Seq
	for id, f := range s.Filaments {
		cp := *f
		c.Filaments[id] = &cp
	}
	for id, sp := range s.Spools {
		cp := *sp
		c.Spools[id] = &cp
	}
	for id, e := range s.Entries {
		cp := *e
		c.Entries[id] = &cp
	}
	return c
}

// Txn is a unit of work over a State. Writes are applied immediately and
// journaled so Rollback can undo them. Stored records are replaced, never
// mutated in place.
type Txn struct {
	*State
	now  time.Time
	undo []func()
	done bool
}

// Begin opens a transaction stamped with now.
func (s *State) Begin(now time.Time) *Txn {
	return &Txn{State: s, now: now.UTC()}
}

// Now is the timestamp applied to records written by the transaction.
func (t *Txn) Now() time.Time { return t.now }

// Commit keeps every write made so far.
func (t *Txn) Commit() {
	t.undo = nil
	t.done = true
}

// Rollback reverts every write, newest first. It is a no-op after Commit.
func (t *Txn) Rollback() {
	if t.done {
		return
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.done = true
}

// NextSeq advances the state's sequence.
func (t *Txn) NextSeq() uint64 {
	prev := t.State.Seq
	t.undo = append(t.undo, func() { t.State.Seq = prev })
	t.State.Seq++
	return t.State.Seq
}

// NewID mints an ID derived from the sequence so every replica computes the
// same value.
func (t *Txn) NewID(kind string) string {
	seq := t.NextSeq()
	return uuid.NewSHA1(idSpace, []byte(fmt.Sprintf("%s/%d", kind, seq))).String()
}

func (t *Txn) putFilament(f Filament) {
	prev, existed := t.State.Filaments[f.ID]
	t.undo = append(t.undo, func() {
		if existed {
			t.State.Filaments[f.ID] = prev
		} else {
			delete(t.State.Filaments, f.ID)
		}
	})
	t.State.Filaments[f.ID] = &f
}

func (t *Txn) deleteFilament(id string) {
	prev, existed := t.State.Filaments[id]
	if !existed {
		return
	}
	t.undo = append(t.undo, func() { t.State.Filaments[id] = prev })
	delete(t.State.Filaments, id)
}

func (t *Txn) putSpool(sp Spool) {
	prev, existed := t.State.Spools[sp.ID]
	t.undo = append(t.undo, func() {
		if existed {
			t.State.Spools[sp.ID] = prev
		} else {
			delete(t.State.Spools, sp.ID)
		}
	})
	t.State.Spools[sp.ID] = &sp
}

func (t *Txn) deleteSpool(id string) {
	prev, existed := t.State.Spools[id]
	if !existed {
		return
	}
	t.undo = append(t.undo, func() { t.State.Spools[id] = prev })
	delete(t.State.Spools, id)
}

func (t *Txn) putEntry(e Entry) {
	prev, existed := t.State.Entries[e.ID]
	t.undo = append(t.undo, func() {
		if existed {
			t.State.Entries[e.ID] = prev
		} else {
			delete(t.State.Entries, e.ID)
		}
	})
	t.State.Entries[e.ID] = &e
}

func (t *Txn) deleteEntry(id string) {
	prev, existed := t.State.Entries[id]
	if !existed {
		return
	}
	t.undo = append(t.undo, func() { t.State.Entries[id] = prev })
	delete(t.State.Entries, id)
}
