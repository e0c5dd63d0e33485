package inventory

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/shelfkeeper/internal/book"
	"git.home.luguber.info/inful/shelfkeeper/internal/events"
	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/shelfkeeper/internal/host"
	"git.home.luguber.info/inful/shelfkeeper/internal/logfields"
	"git.home.luguber.info/inful/shelfkeeper/internal/ownerfile"
	"git.home.luguber.info/inful/shelfkeeper/internal/task"
)

// Default container sizes.
const (
	DefaultPrimarySlots   = 36
	DefaultSecondarySlots = 27
)

// Operation names, used for journaling and metrics.
const (
	OpEdit   = "owner.edit"
	OpAdd    = "owner.add"
	OpDelete = "owner.delete"
	OpLock   = "owner.lock"
	OpUnlock = "owner.unlock"
)

// Operations runs book operations against owner containers.
type Operations struct {
	rt     host.Runtime
	orch   *task.Orchestrator
	slots  map[host.Container]int
	logger *slog.Logger
}

// Option configures Operations.
type Option func(*Operations)

// WithSlots overrides the container sizes. Non-positive values keep the default.
func WithSlots(primary, secondary int) Option {
	return func(o *Operations) {
		if primary > 0 {
			o.slots[host.Primary] = primary
		}
		if secondary > 0 {
			o.slots[host.Secondary] = secondary
		}
	}
}

func WithLogger(l *slog.Logger) Option { return func(o *Operations) { o.logger = l } }

// New returns owner operations for rt.
func New(rt host.Runtime, orch *task.Orchestrator, opts ...Option) *Operations {
	o := &Operations{
		rt:   rt,
		orch: orch,
		slots: map[host.Container]int{
			host.Primary:   DefaultPrimarySlots,
			host.Secondary: DefaultSecondarySlots,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(logfields.Component("inventory"))
	return o
}

// Slots returns the size of container c.
func (o *Operations) Slots(c host.Container) int {
	return o.slots[c]
}

// Edit replaces the content of the book in slot. A blank or "Untitled"
// title or author keeps the current value.
func (o *Operations) Edit(ctx context.Context, ref string, c host.Container, slot int, content book.Content) *task.Future[book.Book] {
	if err := o.validSlot(c, slot); err != nil {
		return task.Failed[book.Book](err)
	}
	return o.run(ctx, OpEdit, ref, c, slot, editMutation(slot, content))
}

// Add puts a new draft holding content into slot, or into the lowest empty
// slot for AnySlot.
func (o *Operations) Add(ctx context.Context, ref string, c host.Container, slot int, content book.Content) *task.Future[book.Book] {
	if slot != AnySlot {
		if err := o.validSlot(c, slot); err != nil {
			return task.Failed[book.Book](err)
		}
	}
	return o.run(ctx, OpAdd, ref, c, slot, addMutation(slot, content))
}

// Delete removes the book in slot and returns it.
func (o *Operations) Delete(ctx context.Context, ref string, c host.Container, slot int) *task.Future[book.Book] {
	if err := o.validSlot(c, slot); err != nil {
		return task.Failed[book.Book](err)
	}
	return o.run(ctx, OpDelete, ref, c, slot, deleteMutation(slot))
}

// Lock turns the draft in slot into a sealed book.
func (o *Operations) Lock(ctx context.Context, ref string, c host.Container, slot int) *task.Future[book.Book] {
	if err := o.validSlot(c, slot); err != nil {
		return task.Failed[book.Book](err)
	}
	return o.run(ctx, OpLock, ref, c, slot, convertMutation(slot, book.KindDraft, book.KindSealed))
}

// Unlock turns the sealed book in slot back into a draft.
func (o *Operations) Unlock(ctx context.Context, ref string, c host.Container, slot int) *task.Future[book.Book] {
	if err := o.validSlot(c, slot); err != nil {
		return task.Failed[book.Book](err)
	}
	return o.run(ctx, OpUnlock, ref, c, slot, convertMutation(slot, book.KindSealed, book.KindDraft))
}

func (o *Operations) validSlot(c host.Container, slot int) error {
	size, ok := o.slots[c]
	if !ok {
		return ferrors.Rejected(ferrors.ReasonInvalidContainer, "Invalid container: "+string(c)).Build()
	}
	if slot < 0 || slot >= size {
		return ferrors.Rejected(ferrors.ReasonInvalidSlot, "Invalid slot").
			WithContext("slot", slot).
			WithContext("container", string(c)).
			Build()
	}
	return nil
}

// run resolves the owner and applies m through the matching backend.
func (o *Operations) run(ctx context.Context, op, ref string, c host.Container, slot int, m mutation) *task.Future[book.Book] {
	rec, err := o.rt.Owners().Resolve(ref)
	if err != nil {
		return task.Failed[book.Book](err)
	}
	size := o.slots[c]
	stage := task.Stage[book.Book]{
		Op:     op,
		Target: target(rec, c, slot),
	}

	if _, online := o.rt.Owners().Online(rec.ID); online {
		stage.Place = task.OnLoop
		stage.Mutate = func(context.Context) (book.Book, error) {
			owner, ok := o.rt.Owners().Online(rec.ID)
			if !ok {
				return book.Book{}, ferrors.Rejected(ferrors.ReasonOwnerOffline, "Player disconnected").
					WithContext("owner", rec.ID.String()).
					Build()
			}
			inv := owner.Inventory(c)
			if slot >= inv.Size() {
				return book.Book{}, ferrors.Rejected(ferrors.ReasonInvalidSlot, "Invalid slot").
					WithContext("slot", slot).
					WithContext("container", string(c)).
					Build()
			}
			b, err := m(liveBackend{inv: inv}, min(size, inv.Size()))
			if err != nil {
				return book.Book{}, err
			}
			b.Source = book.SourceLive
			inv.Sync()
			return b, nil
		}
		stage.Announce = func(book.Book) []events.Event {
			return []events.Event{events.OwnerBookUpdated{OwnerID: rec.ID, OwnerName: rec.Name}}
		}
		return task.Run(ctx, o.orch, stage)
	}

	stage.Place = task.OnPool
	stage.Mutate = func(ctx context.Context) (book.Book, error) {
		doc, err := o.readFile(ctx, rec.ID)
		if err != nil {
			return book.Book{}, err
		}
		b, err := m(fileBackend{doc: doc, list: listOf(c)}, size)
		if err != nil {
			return book.Book{}, err
		}
		b.Source = book.SourceSerialized
		return b, o.writeFile(ctx, rec.ID, doc)
	}
	return task.Run(ctx, o.orch, stage)
}

func (o *Operations) readFile(ctx context.Context, id uuid.UUID) (*ownerfile.Document, error) {
	data, err := o.rt.OwnerFiles().Read(ctx, id)
	if err != nil {
		return nil, err
	}
	return ownerfile.Decode(data)
}

func (o *Operations) writeFile(ctx context.Context, id uuid.UUID, doc *ownerfile.Document) error {
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	if err := o.rt.OwnerFiles().Write(ctx, id, data); err != nil {
		return err
	}
	o.logger.Debug("Owner file rewritten", logfields.Owner(id.String()), slog.Int("bytes", len(data)))
	return nil
}

func target(rec host.Record, c host.Container, slot int) string {
	name := rec.Name
	if name == "" {
		name = rec.ID.String()
	}
	t := name + "/" + string(c)
	if slot != AnySlot {
		t += "#" + itoa(slot)
	}
	return t
}
