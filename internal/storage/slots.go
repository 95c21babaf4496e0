// internal/storage/slots.go
package storage

import (
	"context"
	"fmt"
)

// Slot names one independently addressed durable entry
type Slot string

const (
	SlotProject    Slot = "ebookgen_project"
	SlotView       Slot = "ebookgen_view"
	SlotCredential Slot = "gemini_api_key"
)

// Slots lists every slot the application persists
var Slots = []Slot{SlotProject, SlotView, SlotCredential}

// Valid reports whether s is a known slot
func (s Slot) Valid() bool {
	switch s {
	case SlotProject, SlotView, SlotCredential:
		return true
	}
	return false
}

// SlotStore is the durable key-value boundary. Load reports ok=false for an
// absent slot; Remove of an absent slot is not an error. There is no
// atomicity across slots.
type SlotStore interface {
	Load(ctx context.Context, slot Slot) (value []byte, ok bool, err error)
	Save(ctx context.Context, slot Slot, value []byte) error
	Remove(ctx context.Context, slot Slot) error
	Close() error
}

// Backend names
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open creates the store for backend rooted at dataDir
func Open(backend, dataDir string) (SlotStore, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStorage(dataDir)
	case BackendSQLite:
		return NewSQLiteStore(dataDir)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func checkSlot(slot Slot) error {
	if !slot.Valid() {
		return fmt.Errorf("unknown slot %q", slot)
	}
	return nil
}
