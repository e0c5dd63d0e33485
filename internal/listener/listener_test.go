package listener

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/shelfkeeper/internal/events"
	"git.home.luguber.info/inful/shelfkeeper/internal/host"
	"git.home.luguber.info/inful/shelfkeeper/internal/host/hosttest"
	"git.home.luguber.info/inful/shelfkeeper/internal/item"
	"git.home.luguber.info/inful/shelfkeeper/internal/location"
	"git.home.luguber.info/inful/shelfkeeper/internal/task"
	"git.home.luguber.info/inful/shelfkeeper/internal/util/sets"
)

type setRegistry struct {
	s sets.Set[location.Location]
}

func (r *setRegistry) Add(loc location.Location) bool    { return r.s.Add(loc) }
func (r *setRegistry) Remove(loc location.Location) bool { return r.s.Delete(loc) }

type fixture struct {
	l     *Listener
	reg   *setRegistry
	bus   *events.Bus
	clock *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		reg:   &setRegistry{s: sets.New[location.Location]()},
		bus:   events.NewBus(),
		clock: clockwork.NewFakeClock(),
	}
	loop := task.NewLoop(nil)
	loop.Start()
	pool := task.NewPool(nil)
	orch := task.NewOrchestrator(loop, pool,
		task.WithClock(f.clock),
		task.WithBroadcaster(events.NewBroadcaster(f.bus, time.Second, nil)),
	)
	f.l = New(f.reg, orch)
	t.Cleanup(func() {
		_ = loop.Stop(context.Background())
		_ = pool.Stop(context.Background())
		f.bus.Close()
	})
	return f
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	var zero T
	return zero
}

func TestShelfPlacedAndBroken(t *testing.T) {
	f := newFixture(t)
	added, unsubAdded := events.Subscribe[events.ContainerAdded](f.bus, 2)
	defer unsubAdded()
	removed, unsubRemoved := events.Subscribe[events.ContainerRemoved](f.bus, 2)
	defer unsubRemoved()

	loc := location.New("world", 1, 2, 3)
	f.l.ShelfPlaced(t.Context(), loc)
	f.l.ShelfPlaced(t.Context(), loc)
	assert.Equal(t, loc, receive(t, added).Location)
	assert.True(t, f.reg.s.Has(loc))

	f.l.ShelfBroken(t.Context(), loc)
	f.l.ShelfBroken(t.Context(), loc)
	assert.Equal(t, loc, receive(t, removed).Location)
	assert.False(t, f.reg.s.Has(loc))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestBookSigned_TransfersVirtualMetadata(t *testing.T) {
	f := newFixture(t)
	updates, unsubscribe := events.Subscribe[events.OwnerBookUpdated](f.bus, 1)
	defer unsubscribe()

	owner := hosttest.New().Directory().Connect(host.Record{ID: uuid.New(), Name: "Steve"}, 36, 27)
	previous := &item.Meta{DisplayName: "Chronicle", Lore: []string{"by Alex", "Original"}}
	signed := &item.Meta{Title: "typed", Author: "Steve"}

	require.True(t, f.l.BookSigned(t.Context(), owner, previous, signed))
	assert.Equal(t, "Chronicle", signed.Title)
	assert.Equal(t, "Alex", signed.Author)
	assert.Empty(t, signed.Lore)

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	assert.Empty(t, updates)
	f.clock.Advance(DefaultSignDelay)
	assert.Equal(t, owner.ID(), receive(t, updates).OwnerID)
}

func TestInventoryChanged_IgnoresNonBooks(t *testing.T) {
	f := newFixture(t)
	updates, unsubscribe := events.Subscribe[events.OwnerBookUpdated](f.bus, 1)
	defer unsubscribe()
	owner := hosttest.New().Directory().Connect(host.Record{ID: uuid.New(), Name: "Steve"}, 36, 27)

	f.l.InventoryChanged(t.Context(), owner, false)
	f.l.InventoryChanged(t.Context(), owner, true)

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(DefaultInventoryDelay)
	assert.Equal(t, "Steve", receive(t, updates).OwnerName)
}

func TestOwnerStatus(t *testing.T) {
	f := newFixture(t)
	status, unsubscribe := events.Subscribe[events.OwnerStatusUpdated](f.bus, 2)
	defer unsubscribe()
	owner := hosttest.New().Directory().Connect(host.Record{ID: uuid.New(), Name: "Steve"}, 36, 27)

	f.l.OwnerJoined(t.Context(), owner)
	assert.True(t, receive(t, status).Online)
	f.l.OwnerQuit(t.Context(), owner)
	assert.False(t, receive(t, status).Online)
}
