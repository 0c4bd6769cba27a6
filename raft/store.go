package raft

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	bolt "go.etcd.io/bbolt"
)

var exportsBucket = []byte("exports")

// ErrNoExport is returned when the store holds no export yet
var ErrNoExport = eris.New("no export stored")

// Store keeps point-in-time JSON exports of the inventory in a local BoltDB
// file, keyed by the time they were taken.
type Store struct {
	db *bolt.DB
}

// ExportInfo describes one stored export
type ExportInfo struct {
	TakenAt time.Time `json:"taken_at"`
	Size    int       `json:"size"`
}

// NewStore opens (or creates) the export store under dir
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, eris.Wrap(err, "failed to create store directory")
	}
	db, err := bolt.Open(filepath.Join(dir, "exports.db"), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, eris.Wrap(err, "failed to open export store")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(exportsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, eris.Wrap(err, "failed to create exports bucket")
	}
	return &Store{db: db}, nil
}

// SaveExport serializes export and stores it under takenAt
func (s *Store) SaveExport(takenAt time.Time, export *Export) (ExportInfo, error) {
	data, err := json.Marshal(export)
	if err != nil {
		return ExportInfo{}, eris.Wrap(err, "failed to encode export")
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(exportsBucket).Put(exportKey(takenAt), data)
	})
	if err != nil {
		return ExportInfo{}, eris.Wrap(err, "failed to save export")
	}
	return ExportInfo{TakenAt: takenAt.UTC(), Size: len(data)}, nil
}

// LatestExport returns the most recent export
func (s *Store) LatestExport() (ExportInfo, *Export, error) {
	var (
		info ExportInfo
		data []byte
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		k, v := tx.Bucket(exportsBucket).Cursor().Last()
		if k == nil {
			return ErrNoExport
		}
		info = ExportInfo{TakenAt: keyTime(k), Size: len(v)}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return ExportInfo{}, nil, err
	}

	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return ExportInfo{}, nil, eris.Wrap(err, "failed to decode export")
	}
	return info, &export, nil
}

// ListExports returns every stored export, newest first
func (s *Store) ListExports() ([]ExportInfo, error) {
	out := make([]ExportInfo, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(exportsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			out = append(out, ExportInfo{TakenAt: keyTime(k), Size: len(v)})
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "failed to list exports")
	}
	return out, nil
}

// Prune keeps the newest keep exports and deletes the rest
func (s *Store) Prune(keep int) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(exportsBucket)
		c := b.Cursor()
		seen := 0
		var stale [][]byte
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			seen++
			if seen > keep {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, eris.Wrap(err, "failed to prune exports")
	}
	return removed, nil
}

// Close closes the store
func (s *Store) Close() error {
	return s.db.Close()
}

// Keys sort by time because they are big-endian nanoseconds.
func exportKey(t time.Time) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(t.UnixNano()))
	return k
}

func keyTime(k []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(k))).UTC()
}
