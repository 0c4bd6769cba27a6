// api/models/models.go
package models

import (
	"encoding/json"
	"time"

	"github.com/devadigapratham/spoolkeeper/inventory"
)

// CommandType represents the type of command to be executed
type CommandType string

const (
	AddPrinter CommandType = "ADD_PRINTER"

	AddFilament     CommandType = "ADD_FILAMENT"
	UpdateFilament  CommandType = "UPDATE_FILAMENT"
	ArchiveFilament CommandType = "ARCHIVE_FILAMENT"
	RestockFilament CommandType = "RESTOCK_FILAMENT"
	DeleteFilament  CommandType = "DELETE_FILAMENT"

	AddSpool    CommandType = "ADD_SPOOL"
	UpdateSpool CommandType = "UPDATE_SPOOL"

	AddConsumption    CommandType = "ADD_CONSUMPTION"
	UpdateConsumption CommandType = "UPDATE_CONSUMPTION"
	DeleteConsumption CommandType = "DELETE_CONSUMPTION"
)

// Command represents a command to be applied to the FSM. Timestamp is set
// by the node that submits it so every replica stamps records identically.
type Command struct {
	Type      CommandType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`

	FilamentID string `json:"filament_id,omitempty"`
	SpoolID    string `json:"spool_id,omitempty"`
	EntryID    string `json:"entry_id,omitempty"`
	Archived   *bool  `json:"archived,omitempty"`

	Printer       *Printer                 `json:"printer,omitempty"`
	NewFilament   *inventory.NewFilament   `json:"new_filament,omitempty"`
	FilamentPatch *inventory.FilamentPatch `json:"filament_patch,omitempty"`
	Restock       *inventory.Restock       `json:"restock,omitempty"`
	NewSpool      *inventory.NewSpool      `json:"new_spool,omitempty"`
	SpoolPatch    *inventory.SpoolPatch    `json:"spool_patch,omitempty"`
	NewEntry      *inventory.NewEntry      `json:"new_entry,omitempty"`
	EntryPatch    *inventory.EntryPatch    `json:"entry_patch,omitempty"`
}

// Marshal serializes a command to JSON
func (c *Command) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a command from JSON
func UnmarshalCommand(data []byte) (*Command, error) {
	var c Command
	err := json.Unmarshal(data, &c)
	return &c, err
}
