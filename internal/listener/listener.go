// Package listener turns host world and owner events into registry updates
// and push events. The host adapter calls these handlers from the mutation
// loop; none of them blocks.
package listener

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/shelfkeeper/internal/book"
	"git.home.luguber.info/inful/shelfkeeper/internal/events"
	"git.home.luguber.info/inful/shelfkeeper/internal/host"
	"git.home.luguber.info/inful/shelfkeeper/internal/item"
	"git.home.luguber.info/inful/shelfkeeper/internal/location"
	"git.home.luguber.info/inful/shelfkeeper/internal/logfields"
	"git.home.luguber.info/inful/shelfkeeper/internal/task"
)

// Delays before owner updates are announced, so the host has applied the
// change by the time clients re-read.
const (
	DefaultSignDelay      = 250 * time.Millisecond
	DefaultInventoryDelay = 100 * time.Millisecond
)

// Registry tracks shelf locations.
type Registry interface {
	Add(loc location.Location) bool
	Remove(loc location.Location) bool
}

// Listener handles host events.
type Listener struct {
	registry       Registry
	orch           *task.Orchestrator
	signDelay      time.Duration
	inventoryDelay time.Duration
	logger         *slog.Logger
}

// Option configures a Listener.
type Option func(*Listener)

func WithSignDelay(d time.Duration) Option { return func(l *Listener) { l.signDelay = d } }

func WithInventoryDelay(d time.Duration) Option { return func(l *Listener) { l.inventoryDelay = d } }

func WithLogger(lg *slog.Logger) Option { return func(l *Listener) { l.logger = lg } }

// New returns a listener updating registry and announcing through orch.
func New(registry Registry, orch *task.Orchestrator, opts ...Option) *Listener {
	l := &Listener{
		registry:       registry,
		orch:           orch,
		signDelay:      DefaultSignDelay,
		inventoryDelay: DefaultInventoryDelay,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(logfields.Component("listener"))
	return l
}

// ShelfPlaced starts tracking loc.
func (l *Listener) ShelfPlaced(ctx context.Context, loc location.Location) {
	if !l.registry.Add(loc) {
		return
	}
	l.logger.Debug("Shelf placed", logfields.Location(loc.String()))
	l.orch.Broadcast(ctx, events.ContainerAdded{Location: loc})
}

// ShelfBroken stops tracking loc.
func (l *Listener) ShelfBroken(ctx context.Context, loc location.Location) {
	if !l.registry.Remove(loc) {
		return
	}
	l.logger.Debug("Shelf broken", logfields.Location(loc.String()))
	l.orch.Broadcast(ctx, events.ContainerRemoved{Location: loc})
}

// ShelfInteracted announces that an owner may have changed the shelf at loc by hand.
func (l *Listener) ShelfInteracted(ctx context.Context, loc location.Location) {
	l.orch.Broadcast(ctx, events.ContainerUpdated{Location: loc})
}

// BookSigned moves the virtual title and author of a draft onto the sealed
// book the owner is signing. signed is updated in place before the host stores it.
func (l *Listener) BookSigned(ctx context.Context, owner host.Owner, previous, signed *item.Meta) bool {
	applied := book.ApplySigning(previous, signed)
	if applied {
		l.logger.Info("Applied virtual metadata on signing",
			logfields.Owner(owner.Name()),
			slog.String("title", signed.Title),
			slog.String("author", signed.Author))
	}
	l.announceOwner(ctx, owner, l.signDelay)
	return applied
}

// InventoryChanged announces a change to an owner's books, for clicks, drags,
// drops and pickups that moved a book.
func (l *Listener) InventoryChanged(ctx context.Context, owner host.Owner, involvesBook bool) {
	if !involvesBook {
		return
	}
	l.announceOwner(ctx, owner, l.inventoryDelay)
}

// OwnerJoined announces that owner connected.
func (l *Listener) OwnerJoined(ctx context.Context, owner host.Owner) {
	l.orch.Broadcast(ctx, events.OwnerStatusUpdated{OwnerID: owner.ID(), OwnerName: owner.Name(), Online: true})
}

// OwnerQuit announces that owner disconnected.
func (l *Listener) OwnerQuit(ctx context.Context, owner host.Owner) {
	l.orch.Broadcast(ctx, events.OwnerStatusUpdated{OwnerID: owner.ID(), OwnerName: owner.Name(), Online: false})
}

func (l *Listener) announceOwner(ctx context.Context, owner host.Owner, delay time.Duration) {
	evt := events.OwnerBookUpdated{OwnerID: owner.ID(), OwnerName: owner.Name()}
	task.After(l.orch.Clock(), delay).OnComplete(func(struct{}, error) {
		l.orch.Broadcast(ctx, evt)
	})
}
