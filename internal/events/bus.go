package events

import (
	"context"
	"reflect"
	"slices"
	"sync"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = ferrors.RuntimeError("event bus is closed").Build()

// Bus fans push events out to typed subscriber channels in process.
//
// A subscription for T receives every published event that is a T, so
// Subscribe[Event] sees everything and Subscribe[ContainerUpdated] sees one
// kind. Publish waits until each matching subscriber has taken the event.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscription
	nextID uint64
	closed bool
}

type subscription struct {
	id    uint64
	typ   reflect.Type
	offer func(ctx context.Context, evt Event) error
	done  func()
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe returns a channel of events assignable to T and a function that
// cancels the subscription and closes the channel. On a closed bus the
// channel is returned already closed.
func Subscribe[T Event](b *Bus, buffer int) (<-chan T, func()) {
	ch := make(chan T, buffer)
	var once sync.Once
	closeCh := func() { once.Do(func() { close(ch) }) }

	sub := &subscription{
		typ: reflect.TypeFor[T](),
		offer: func(ctx context.Context, evt Event) error {
			v, ok := evt.(T)
			if !ok {
				return nil
			}
			select {
			case ch <- v:
				return nil
			case <-ctx.Done():
				return ferrors.WrapError(ctx.Err(), ferrors.CategoryRuntime, "subscriber did not accept event").
					WithContext("kind", evt.Kind()).
					Build()
			}
		},
		done: closeCh,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		closeCh()
		return ch, func() {}
	}
	b.nextID++
	sub.id = b.nextID
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return ch, func() { b.remove(sub.id) }
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	i := slices.IndexFunc(b.subs, func(s *subscription) bool { return s.id == id })
	var sub *subscription
	if i >= 0 {
		sub = b.subs[i]
		b.subs = slices.Delete(b.subs, i, i+1)
	}
	b.mu.Unlock()

	if sub != nil {
		sub.done()
	}
}

// SubscriberCount returns how many subscriptions were made for exactly T.
func SubscriberCount[T Event](b *Bus) int {
	if b == nil {
		return 0
	}
	typ := reflect.TypeFor[T]()

	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, s := range b.subs {
		if s.typ == typ {
			n++
		}
	}
	return n
}

// Publish hands evt to every matching subscriber in subscription order. The
// first subscriber that fails to take it before ctx ends aborts delivery.
// Channels are not closed while a delivery is in progress.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if evt == nil {
		return ferrors.ValidationError("event cannot be nil").Build()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	for _, s := range b.subs {
		if err := s.offer(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// Close refuses further events and closes every subscription channel.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, s := range subs {
		s.done()
	}
}
