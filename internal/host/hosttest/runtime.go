// Package hosttest provides an in-memory host runtime for tests.
package hosttest

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/shelfkeeper/internal/host"
	"git.home.luguber.info/inful/shelfkeeper/internal/item"
	"git.home.luguber.info/inful/shelfkeeper/internal/location"
)

// ShelfSlots is the fixed slot count of a shelf block.
const ShelfSlots = 6

// Runtime is a host.Runtime backed by maps.
type Runtime struct {
	mu         sync.Mutex
	worlds     map[string]*World
	directory  *Directory
	files      *Files
	dispatched []host.ReplaceItem

	// DispatchErr, when set, fails every Dispatch.
	DispatchErr error
	// FailDispatch, when set, is consulted for each command; a non-nil
	// result fails that command without applying it.
	FailDispatch func(cmd host.ReplaceItem) error
	// IgnoreClears makes Dispatch drop commands that clear a slot, as a
	// client-side desync would.
	IgnoreClears bool
}

// New returns an empty runtime.
func New() *Runtime {
	return &Runtime{
		worlds:    make(map[string]*World),
		directory: &Directory{online: make(map[uuid.UUID]*Owner)},
		files:     &Files{data: make(map[uuid.UUID][]byte)},
	}
}

// AddWorld creates a world named name.
func (r *Runtime) AddWorld(name string) *World {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := &World{name: name, shelves: make(map[[3]int]*Shelf)}
	r.worlds[name] = w
	return w
}

func (r *Runtime) World(name string) (host.World, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.worlds[name]
	if !ok {
		return nil, ferrors.Rejected(ferrors.ReasonWorldNotFound, "World not found: "+name).Build()
	}
	return w, nil
}

func (r *Runtime) Worlds() []host.World {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.worlds))
	for name := range r.worlds {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]host.World, 0, len(names))
	for _, name := range names {
		out = append(out, r.worlds[name])
	}
	return out
}

func (r *Runtime) Dispatch(cmd host.ReplaceItem) error {
	r.mu.Lock()
	r.dispatched = append(r.dispatched, host.ReplaceItem{Location: cmd.Location, Slot: cmd.Slot, Item: cmd.Item.Clone()})
	dispatchErr := r.DispatchErr
	if dispatchErr == nil && r.FailDispatch != nil {
		dispatchErr = r.FailDispatch(cmd)
	}
	ignoreClears := r.IgnoreClears
	w := r.worlds[cmd.Location.World]
	r.mu.Unlock()

	if dispatchErr != nil {
		return dispatchErr
	}
	if w == nil {
		return ferrors.Rejected(ferrors.ReasonWorldNotFound, "World not found: "+cmd.Location.World).Build()
	}
	s, ok := w.shelf(cmd.Location.X, cmd.Location.Y, cmd.Location.Z)
	if !ok {
		return ferrors.Rejected(ferrors.ReasonNotAContainer, "No shelf at "+cmd.Location.Describe()).Build()
	}
	if cmd.Item.IsEmpty() && ignoreClears {
		return nil
	}
	s.SetItem(cmd.Slot, cmd.Item)
	return s.Update()
}

// Dispatched returns every command received so far.
func (r *Runtime) Dispatched() []host.ReplaceItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.dispatched)
}

func (r *Runtime) Owners() host.Directory { return r.directory }

func (r *Runtime) OwnerFiles() host.OwnerFiles { return r.files }

// Directory returns the concrete owner directory.
func (r *Runtime) Directory() *Directory { return r.directory }

// Files returns the concrete owner file store.
func (r *Runtime) Files() *Files { return r.files }

// World is an in-memory dimension.
type World struct {
	name string

	mu      sync.Mutex
	shelves map[[3]int]*Shelf
	loads   int

	// LoadErr, when set, fails every LoadRegion.
	LoadErr error
}

func (w *World) Name() string { return w.name }

func (w *World) LoadRegion(ctx context.Context, _ location.Region) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loads++
	return w.LoadErr
}

// Loads counts LoadRegion calls.
func (w *World) Loads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loads
}

func (w *World) Shelf(x, y, z int) (host.Shelf, bool) {
	s, ok := w.shelf(x, y, z)
	if !ok {
		return nil, false
	}
	return s, true
}

func (w *World) shelf(x, y, z int) (*Shelf, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.shelves[[3]int{x, y, z}]
	return s, ok
}

func (w *World) LoadedShelves() []location.Location {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]location.Location, 0, len(w.shelves))
	for _, s := range w.shelves {
		out = append(out, s.loc)
	}
	slices.SortFunc(out, location.Compare)
	return out
}

// PlaceShelf puts an empty shelf block at x, y, z.
func (w *World) PlaceShelf(x, y, z int) *Shelf {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := &Shelf{loc: location.New(w.name, x, y, z)}
	w.shelves[[3]int{x, y, z}] = s
	return s
}

// BreakShelf removes the shelf block at x, y, z.
func (w *World) BreakShelf(x, y, z int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.shelves, [3]int{x, y, z})
}

// Shelf is an in-memory shelf block. SetItem stages a change that Update commits.
type Shelf struct {
	loc location.Location

	mu        sync.Mutex
	committed [ShelfSlots]*item.Stack
	staged    [ShelfSlots]*item.Stack
	dirty     [ShelfSlots]bool
	updates   int
}

func (s *Shelf) Location() location.Location { return s.loc }

func (s *Shelf) Item(slot int) *item.Stack {
	if slot < 0 || slot >= ShelfSlots {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty[slot] {
		return s.staged[slot].Clone()
	}
	return s.committed[slot].Clone()
}

func (s *Shelf) SetItem(slot int, st *item.Stack) {
	if slot < 0 || slot >= ShelfSlots {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.IsEmpty() {
		st = nil
	}
	s.staged[slot] = st.Clone()
	s.dirty[slot] = true
}

func (s *Shelf) Update() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.staged {
		if s.dirty[i] {
			s.committed[i] = s.staged[i]
			s.staged[i] = nil
			s.dirty[i] = false
		}
	}
	s.updates++
	return nil
}

// Put commits st into slot directly.
func (s *Shelf) Put(slot int, st *item.Stack) {
	s.SetItem(slot, st)
	_ = s.Update()
}

// Committed returns the committed occupant of slot.
func (s *Shelf) Committed(slot int) *item.Stack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed[slot].Clone()
}

// Updates counts Update calls.
func (s *Shelf) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// Directory is an in-memory owner directory.
type Directory struct {
	mu      sync.Mutex
	records []host.Record
	online  map[uuid.UUID]*Owner
}

// Register adds a known owner.
func (d *Directory) Register(rec host.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, rec)
}

// Connect registers name as an online owner with the given container sizes.
func (d *Directory) Connect(rec host.Record, primary, secondary int) *Owner {
	o := &Owner{
		rec: rec,
		inventories: map[host.Container]*Inventory{
			host.Primary:   {items: make([]*item.Stack, primary)},
			host.Secondary: {items: make([]*item.Stack, secondary)},
		},
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !slices.ContainsFunc(d.records, func(r host.Record) bool { return r.ID == rec.ID }) {
		d.records = append(d.records, rec)
	}
	d.online[rec.ID] = o
	return o
}

// Disconnect marks id offline.
func (d *Directory) Disconnect(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.online, id)
}

func (d *Directory) Resolve(ref string) (host.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.records {
		if strings.EqualFold(r.Name, ref) || r.ID.String() == strings.ToLower(ref) {
			return r, nil
		}
	}
	return host.Record{}, ferrors.Rejected(ferrors.ReasonOwnerNotFound, "Player not found: "+ref).Build()
}

func (d *Directory) Online(id uuid.UUID) (host.Owner, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.online[id]
	if !ok {
		return nil, false
	}
	return o, true
}

func (d *Directory) Known() []host.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.records)
}

// Owner is a connected owner.
type Owner struct {
	rec         host.Record
	inventories map[host.Container]*Inventory
}

func (o *Owner) ID() uuid.UUID { return o.rec.ID }

func (o *Owner) Name() string { return o.rec.Name }

func (o *Owner) Inventory(c host.Container) host.Inventory { return o.inventories[c] }

// Live returns the concrete inventory for c.
func (o *Owner) Live(c host.Container) *Inventory { return o.inventories[c] }

// Inventory is an in-memory owner container.
type Inventory struct {
	mu    sync.Mutex
	items []*item.Stack
	syncs int
}

func (inv *Inventory) Size() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return len(inv.items)
}

func (inv *Inventory) Item(slot int) *item.Stack {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if slot < 0 || slot >= len(inv.items) {
		return nil
	}
	return inv.items[slot].Clone()
}

func (inv *Inventory) SetItem(slot int, s *item.Stack) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if slot < 0 || slot >= len(inv.items) {
		return
	}
	if s.IsEmpty() {
		s = nil
	}
	inv.items[slot] = s.Clone()
}

func (inv *Inventory) Sync() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.syncs++
}

// Syncs counts Sync calls.
func (inv *Inventory) Syncs() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.syncs
}

// Files is an in-memory owner file store.
type Files struct {
	mu     sync.Mutex
	data   map[uuid.UUID][]byte
	writes int
}

func (f *Files) Read(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[id]
	if !ok {
		return nil, ferrors.Rejected(ferrors.ReasonOwnerNotFound, "Player data file not found").Build()
	}
	return slices.Clone(data), nil
}

func (f *Files) Write(ctx context.Context, id uuid.UUID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[id] = slices.Clone(data)
	f.writes++
	return nil
}

// Writes counts Write calls.
func (f *Files) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}
