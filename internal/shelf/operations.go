package shelf

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/shelfkeeper/internal/book"
	"git.home.luguber.info/inful/shelfkeeper/internal/events"
	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/shelfkeeper/internal/host"
	"git.home.luguber.info/inful/shelfkeeper/internal/item"
	"git.home.luguber.info/inful/shelfkeeper/internal/location"
	"git.home.luguber.info/inful/shelfkeeper/internal/logfields"
	"git.home.luguber.info/inful/shelfkeeper/internal/task"
)

// Slots is the fixed slot count of a shelf.
const Slots = 6

// DefaultDeleteSettle is how long Delete waits before announcing the change.
const DefaultDeleteSettle = 100 * time.Millisecond

// AnySlot asks Add for the lowest empty slot.
const AnySlot = -1

// Operation names, used for journaling and metrics.
const (
	OpEdit    = "shelf.edit"
	OpAdd     = "shelf.add"
	OpDelete  = "shelf.delete"
	OpLock    = "shelf.lock"
	OpUnlock  = "shelf.unlock"
	OpReorder = "shelf.reorder"
)

// Locator lists tracked shelves.
type Locator interface {
	Sorted() []location.Location
}

// Operations runs book operations against shelves of a host runtime.
type Operations struct {
	rt      host.Runtime
	orch    *task.Orchestrator
	locator Locator
	settle  time.Duration
	logger  *slog.Logger
}

// Option configures Operations.
type Option func(*Operations)

// WithDeleteSettle overrides DefaultDeleteSettle.
func WithDeleteSettle(d time.Duration) Option { return func(o *Operations) { o.settle = d } }

func WithLogger(l *slog.Logger) Option { return func(o *Operations) { o.logger = l } }

// New returns shelf operations for rt. locator may be nil.
func New(rt host.Runtime, orch *task.Orchestrator, locator Locator, opts ...Option) *Operations {
	o := &Operations{
		rt:      rt,
		orch:    orch,
		locator: locator,
		settle:  DefaultDeleteSettle,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(logfields.Component("shelf"))
	return o
}

// Locations returns the tracked shelves ordered by world and coordinates.
func (o *Operations) Locations() []location.Location {
	if o.locator == nil {
		return nil
	}
	return o.locator.Sorted()
}

// Books returns the books on the shelf at loc.
func (o *Operations) Books(ctx context.Context, loc location.Location) *task.Future[[]book.Book] {
	loaded := task.Submit(o.orch.Pool(), func() (struct{}, error) {
		return struct{}{}, o.acquire(loc)(ctx)
	})
	return task.Chain(loaded, func(struct{}) *task.Future[[]book.Book] {
		return task.Submit(o.orch.Loop(), func() ([]book.Book, error) {
			shelf, err := o.shelf(loc)
			if err != nil {
				return nil, err
			}
			var books []book.Book
			for slot := range Slots {
				if b, ok := book.DecodeItem(slot, shelf.Item(slot)); ok {
					books = append(books, b)
				}
			}
			return books, nil
		})
	})
}

// Edit replaces the content of the book in slot. A draft stays a draft;
// anything else, an empty slot included, becomes a sealed book.
func (o *Operations) Edit(ctx context.Context, loc location.Location, slot int, c book.Content) *task.Future[book.Book] {
	if err := validSlot(slot); err != nil {
		return task.Failed[book.Book](err)
	}
	s := o.editStage(loc, slot, c)
	s.Acquire = o.acquire(loc)
	s.Announce = updated[book.Book](loc)
	return task.Run(ctx, o.orch, s)
}

// editStage writes c into slot without loading the region or announcing.
func (o *Operations) editStage(loc location.Location, slot int, c book.Content) task.Stage[book.Book] {
	return task.Stage[book.Book]{
		Op:     OpEdit,
		Target: target(loc, slot),
		Mutate: func(context.Context) (book.Book, error) {
			shelf, err := o.shelf(loc)
			if err != nil {
				return book.Book{}, err
			}
			kind := book.KindSealed
			if current, ok := book.DecodeItem(slot, shelf.Item(slot)); ok && current.Kind == book.KindDraft {
				kind = book.KindDraft
			}
			b := book.New(slot, kind, c)
			if err := o.write(shelf, slot, b); err != nil {
				return book.Book{}, err
			}
			return b, nil
		},
	}
}

// Add places a new draft into slot, or into the lowest empty slot for
// AnySlot, and fills it with c when c is not empty.
func (o *Operations) Add(ctx context.Context, loc location.Location, slot int, c book.Content) *task.Future[book.Book] {
	if slot != AnySlot {
		if err := validSlot(slot); err != nil {
			return task.Failed[book.Book](err)
		}
	}
	return task.Run(ctx, o.orch, task.Stage[book.Book]{
		Op:      OpAdd,
		Target:  target(loc, slot),
		Acquire: o.acquire(loc),
		Mutate: func(context.Context) (book.Book, error) {
			shelf, err := o.shelf(loc)
			if err != nil {
				return book.Book{}, err
			}
			chosen, err := pickSlot(shelf, slot)
			if err != nil {
				return book.Book{}, err
			}
			fresh := book.New(chosen, book.KindDraft, book.Content{})
			if err := o.rt.Dispatch(host.ReplaceItem{Location: loc, Slot: chosen, Item: book.EncodeItem(fresh)}); err != nil {
				return book.Book{}, err
			}
			return fresh, nil
		},
		Fanin: func(ctx context.Context, fresh book.Book) *task.Future[book.Book] {
			if c.IsEmpty() {
				return task.Resolved(fresh)
			}
			nested := o.editStage(loc, fresh.Slot, c)
			nested.Nested = true
			return task.Run(ctx, o.orch, nested)
		},
		Announce: updated[book.Book](loc),
	})
}

func pickSlot(shelf host.Shelf, slot int) (int, error) {
	if slot != AnySlot {
		if !shelf.Item(slot).IsEmpty() {
			return 0, ferrors.Rejected(ferrors.ReasonSlotOccupied, "Slot is already occupied").
				WithContext("slot", slot).
				Build()
		}
		return slot, nil
	}
	for i := range Slots {
		if shelf.Item(i).IsEmpty() {
			return i, nil
		}
	}
	return 0, ferrors.Rejected(ferrors.ReasonContainerFull, "Bookshelf is full").Build()
}

// Delete empties slot and returns the book it held.
func (o *Operations) Delete(ctx context.Context, loc location.Location, slot int) *task.Future[book.Book] {
	if err := validSlot(slot); err != nil {
		return task.Failed[book.Book](err)
	}
	return task.Run(ctx, o.orch, task.Stage[book.Book]{
		Op:      OpDelete,
		Target:  target(loc, slot),
		Acquire: o.acquire(loc),
		Mutate: func(context.Context) (book.Book, error) {
			return o.clear(loc, slot)
		},
		Settle:   o.settle,
		Announce: updated[book.Book](loc),
	})
}

// clear removes the occupant of slot in four steps: the privileged clear,
// a reload to verify it, a direct clear when the slot is still occupied, and
// a throwaway item toggled through a free slot to force a client refresh.
func (o *Operations) clear(loc location.Location, slot int) (book.Book, error) {
	shelf, err := o.shelf(loc)
	if err != nil {
		return book.Book{}, err
	}
	removed, ok := book.DecodeItem(slot, shelf.Item(slot))
	if !ok {
		if !shelf.Item(slot).IsEmpty() {
			return book.Book{}, ferrors.Rejected(ferrors.ReasonWrongKind, "Slot does not hold a book").Build()
		}
		return book.Book{}, ferrors.Rejected(ferrors.ReasonSlotEmpty, "Slot is empty").Build()
	}

	if err := o.rt.Dispatch(host.ReplaceItem{Location: loc, Slot: slot}); err != nil {
		o.logger.Warn("Replace-item clear failed", logfields.Location(loc.String()), logfields.Slot(slot), logfields.Error(err))
	}

	shelf, err = o.shelf(loc)
	if err != nil {
		return book.Book{}, err
	}
	if !shelf.Item(slot).IsEmpty() {
		o.logger.Warn("Slot still occupied after clear, clearing directly",
			logfields.Location(loc.String()), logfields.Slot(slot))
		shelf.SetItem(slot, nil)
		if err := shelf.Update(); err != nil {
			return book.Book{}, ferrors.WrapError(err, ferrors.CategoryRuntime, "commit shelf").Build()
		}
	}

	free := nearestFree(shelf, slot)
	shelf.SetItem(free, item.New(item.Paper))
	if err := shelf.Update(); err != nil {
		return book.Book{}, ferrors.WrapError(err, ferrors.CategoryRuntime, "commit shelf").Build()
	}
	shelf.SetItem(free, nil)
	if err := shelf.Update(); err != nil {
		return book.Book{}, ferrors.WrapError(err, ferrors.CategoryRuntime, "commit shelf").Build()
	}
	return removed, nil
}

// nearestFree returns the empty slot closest to slot, preferring the lower
// neighbour, or slot itself when no other slot is free.
func nearestFree(shelf host.Shelf, slot int) int {
	for d := 1; d < Slots; d++ {
		for _, i := range []int{slot - d, slot + d} {
			if i >= 0 && i < Slots && shelf.Item(i).IsEmpty() {
				return i
			}
		}
	}
	return slot
}

// Lock turns the draft in slot into a sealed book, moving its virtual title
// and author into the native fields.
func (o *Operations) Lock(ctx context.Context, loc location.Location, slot int) *task.Future[book.Book] {
	return o.convert(ctx, OpLock, loc, slot, book.KindDraft, book.KindSealed)
}

// Unlock turns the sealed book in slot back into a draft.
func (o *Operations) Unlock(ctx context.Context, loc location.Location, slot int) *task.Future[book.Book] {
	return o.convert(ctx, OpUnlock, loc, slot, book.KindSealed, book.KindDraft)
}

func (o *Operations) convert(ctx context.Context, op string, loc location.Location, slot int, from, to book.Kind) *task.Future[book.Book] {
	if err := validSlot(slot); err != nil {
		return task.Failed[book.Book](err)
	}
	return task.Run(ctx, o.orch, task.Stage[book.Book]{
		Op:      op,
		Target:  target(loc, slot),
		Acquire: o.acquire(loc),
		Mutate: func(context.Context) (book.Book, error) {
			shelf, err := o.shelf(loc)
			if err != nil {
				return book.Book{}, err
			}
			current, ok := book.DecodeItem(slot, shelf.Item(slot))
			if !ok {
				return book.Book{}, ferrors.Rejected(ferrors.ReasonSlotEmpty, "Slot is empty").Build()
			}
			if current.Kind != from {
				return book.Book{}, ferrors.Rejected(ferrors.ReasonWrongKind, "Book is already "+current.Kind.String()).Build()
			}
			b := book.New(slot, to, current.Content())
			if err := o.write(shelf, slot, b); err != nil {
				return book.Book{}, err
			}
			return b, nil
		},
		Announce: updated[book.Book](loc),
	})
}

// Reorder moves books so that slot i receives the book previously at
// permutation[i]. Slots written before a failure keep their new occupant.
func (o *Operations) Reorder(ctx context.Context, loc location.Location, permutation []int) *task.Future[[]book.Book] {
	if err := validPermutation(permutation); err != nil {
		return task.Failed[[]book.Book](err)
	}
	perm := append([]int(nil), permutation...)

	return task.Run(ctx, o.orch, task.Stage[[]book.Book]{
		Op:      OpReorder,
		Target:  loc.String(),
		Acquire: o.acquire(loc),
		Mutate: func(context.Context) ([]book.Book, error) {
			shelf, err := o.shelf(loc)
			if err != nil {
				return nil, err
			}
			var snapshot [Slots]*book.Book
			for slot := range Slots {
				if b, ok := book.DecodeItem(slot, shelf.Item(slot)); ok {
					snapshot[slot] = &b
				}
			}

			var desired []book.Book
			for dst, src := range perm {
				cmd := host.ReplaceItem{Location: loc, Slot: dst}
				if b := snapshot[src]; b != nil {
					moved := *b
					moved.Slot = dst
					desired = append(desired, moved)
					cmd.Item = item.New(moved.Kind.Material())
				}
				if err := o.rt.Dispatch(cmd); err != nil {
					return nil, err
				}
			}
			return desired, nil
		},
		Fanin: func(ctx context.Context, desired []book.Book) *task.Future[[]book.Book] {
			var restores []*task.Future[book.Book]
			for _, b := range desired {
				if !b.HasContent() {
					continue
				}
				nested := o.editStage(loc, b.Slot, b.Content())
				nested.Nested = true
				restores = append(restores, task.Run(ctx, o.orch, nested))
			}
			return task.Then(task.All(restores...), func(restored []book.Book) ([]book.Book, error) {
				out := append([]book.Book(nil), desired...)
				for _, r := range restored {
					for i := range out {
						if out[i].Slot == r.Slot {
							out[i] = r
						}
					}
				}
				return out, nil
			})
		},
		Announce: updated[[]book.Book](loc),
	})
}

// acquire loads the region holding loc.
func (o *Operations) acquire(loc location.Location) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		w, err := o.rt.World(loc.World)
		if err != nil {
			return err
		}
		if err := w.LoadRegion(ctx, loc.Region()); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryRuntime, "load region").
				WithContext("location", loc.String()).
				Build()
		}
		return nil
	}
}

// shelf resolves the shelf at loc. It must run on the mutation loop.
func (o *Operations) shelf(loc location.Location) (host.Shelf, error) {
	w, err := o.rt.World(loc.World)
	if err != nil {
		return nil, err
	}
	s, ok := w.Shelf(loc.X, loc.Y, loc.Z)
	if !ok {
		return nil, ferrors.Rejected(ferrors.ReasonNotAContainer, "No bookshelf at "+loc.Describe()).
			WithContext("location", loc.String()).
			Build()
	}
	return s, nil
}

// write stores b in slot, commits the block and refreshes clients.
func (o *Operations) write(shelf host.Shelf, slot int, b book.Book) error {
	stack := book.EncodeItem(b)
	shelf.SetItem(slot, stack)
	if err := shelf.Update(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "commit shelf").Build()
	}
	return o.rt.Dispatch(host.ReplaceItem{Location: shelf.Location(), Slot: slot, Item: stack.Clone()})
}

func updated[T any](loc location.Location) func(T) []events.Event {
	return func(T) []events.Event {
		return []events.Event{events.ContainerUpdated{Location: loc}}
	}
}

func target(loc location.Location, slot int) string {
	if slot == AnySlot {
		return loc.String()
	}
	return loc.String() + "#" + itoa(slot)
}
