// Package host declares the narrow surface of the host runtime that
// shelfkeeper drives: worlds and their shelves, the privileged item
// replacement command, the owner directory and owner data files.
//
// Every World, Shelf and Inventory method must be called from the mutation
// loop. LoadRegion and OwnerFiles may be called from any goroutine.
package host

import (
	"context"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/shelfkeeper/internal/item"
	"git.home.luguber.info/inful/shelfkeeper/internal/location"
)

// Runtime is the host process.
type Runtime interface {
	World(name string) (World, error)
	Worlds() []World

	// Dispatch runs the privileged replace-item command. It bypasses the
	// block's own change handling, so clients see the new state.
	Dispatch(cmd ReplaceItem) error

	Owners() Directory
	OwnerFiles() OwnerFiles
}

// World is one loaded dimension.
type World interface {
	Name() string

	// LoadRegion returns once the region is resident. It blocks and must not
	// be called from the mutation loop.
	LoadRegion(ctx context.Context, r location.Region) error

	// Shelf resolves the shelf block at the given coordinates. It reports
	// false when the block is not a shelf.
	Shelf(x, y, z int) (Shelf, bool)

	// LoadedShelves enumerates shelf blocks in every resident region.
	LoadedShelves() []location.Location
}

// Shelf is a fixed six-slot container block.
type Shelf interface {
	Location() location.Location
	Item(slot int) *item.Stack
	SetItem(slot int, s *item.Stack)

	// Update commits SetItem changes to the block state.
	Update() error
}

// ReplaceItem puts Item into Slot of the shelf at Location. A nil Item clears the slot.
type ReplaceItem struct {
	Location location.Location
	Slot     int
	Item     *item.Stack
}

// Record is a known owner.
type Record struct {
	ID       uuid.UUID
	Name     string
	LastSeen time.Time
}

// Directory resolves owners.
type Directory interface {
	// Resolve accepts an owner name (case-insensitive) or UUID string.
	Resolve(ref string) (Record, error)

	// Online returns the live owner when connected.
	Online(id uuid.UUID) (Owner, bool)

	Known() []Record
}

// Owner is a connected owner.
type Owner interface {
	ID() uuid.UUID
	Name() string
	Inventory(c Container) Inventory
}

// Inventory is a live owner container.
type Inventory interface {
	Size() int
	Item(slot int) *item.Stack
	SetItem(slot int, s *item.Stack)

	// Sync pushes the container state to the owner's client.
	Sync()
}

// OwnerFiles reads and writes the serialized data of disconnected owners.
type OwnerFiles interface {
	Read(ctx context.Context, id uuid.UUID) ([]byte, error)
	Write(ctx context.Context, id uuid.UUID, data []byte) error
}
