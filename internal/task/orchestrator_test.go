package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/shelfkeeper/internal/events"
	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/shelfkeeper/internal/journal"
	"git.home.luguber.info/inful/shelfkeeper/internal/location"
)

type captureJournal struct {
	journal.Discard
	mu      sync.Mutex
	entries []journal.Entry
}

func (c *captureJournal) Append(_ context.Context, e journal.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureJournal) all() []journal.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]journal.Entry(nil), c.entries...)
}

type harness struct {
	orch    *Orchestrator
	loop    *Loop
	bus     *events.Bus
	journal *captureJournal
	clock   *clockwork.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		loop:    NewLoop(nil),
		bus:     events.NewBus(),
		journal: &captureJournal{},
		clock:   clockwork.NewFakeClock(),
	}
	h.loop.Start()
	pool := NewPool(nil)
	h.orch = NewOrchestrator(h.loop, pool,
		WithClock(h.clock),
		WithJournal(h.journal),
		WithBroadcaster(events.NewBroadcaster(h.bus, time.Second, nil)),
	)
	t.Cleanup(func() {
		_ = h.loop.Stop(context.Background())
		_ = pool.Stop(context.Background())
		h.bus.Close()
	})
	return h
}

func TestRunExecutesStagesInOrder(t *testing.T) {
	h := newHarness(t)
	updates, unsubscribe := events.Subscribe[events.ContainerUpdated](h.bus, 1)
	defer unsubscribe()

	var (
		mu    sync.Mutex
		steps []string
	)
	step := func(s string) {
		mu.Lock()
		steps = append(steps, s)
		mu.Unlock()
	}
	loc := location.New("world", 1, 2, 3)

	f := Run(t.Context(), h.orch, Stage[int]{
		Op:      "shelf.edit",
		Target:  loc.String(),
		Acquire: func(context.Context) error { step("acquire"); return nil },
		Mutate:  func(context.Context) (int, error) { step("mutate"); return 4, nil },
		Fanin: func(_ context.Context, v int) *Future[int] {
			step("fanin")
			return Submit(h.orch.Pool(), func() (int, error) { return v + 1, nil })
		},
		Announce: func(v int) []events.Event {
			step("announce")
			return []events.Event{events.ContainerUpdated{Location: loc}}
		},
	})

	v, err := f.Await(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.Equal(t, []string{"acquire", "mutate", "fanin", "announce"}, steps)
	assert.Equal(t, loc, (<-updates).Location)

	entries := h.journal.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "shelf.edit", entries[0].Op)
	assert.Equal(t, loc.String(), entries[0].Target)
	assert.Equal(t, journal.OutcomeSuccess, entries[0].Outcome)
}

func TestRunShortCircuitsOnFailure(t *testing.T) {
	h := newHarness(t)
	rejected := ferrors.Rejected(ferrors.ReasonSlotEmpty, "No book in slot 2").Build()

	mutated, announced := false, false
	f := Run(t.Context(), h.orch, Stage[struct{}]{
		Op:      "shelf.lock",
		Acquire: func(context.Context) error { return rejected },
		Mutate: func(context.Context) (struct{}, error) {
			mutated = true
			return struct{}{}, nil
		},
		Announce: func(struct{}) []events.Event {
			announced = true
			return nil
		},
	})

	_, err := f.Await(t.Context())
	require.ErrorIs(t, err, rejected)
	assert.False(t, mutated)
	assert.False(t, announced)

	entries := h.journal.all()
	require.Len(t, entries, 1)
	assert.Equal(t, journal.OutcomeRejected, entries[0].Outcome)
	assert.Equal(t, string(ferrors.ReasonSlotEmpty), entries[0].Reason)
}

func TestRunMutatesOnLoopGoroutine(t *testing.T) {
	h := newHarness(t)

	// Occupy the loop; a loop-placed mutation must wait behind it.
	release := make(chan struct{})
	require.NoError(t, h.loop.Execute(func() { <-release }))

	f := Run(t.Context(), h.orch, Stage[string]{
		Op:     "shelf.edit",
		Mutate: func(context.Context) (string, error) { return "done", nil },
	})
	time.Sleep(20 * time.Millisecond)
	assert.False(t, f.IsDone())

	close(release)
	v, err := f.Await(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestRunPoolPlacementBypassesLoop(t *testing.T) {
	h := newHarness(t)

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, h.loop.Execute(func() { <-release }))

	f := Run(t.Context(), h.orch, Stage[string]{
		Op:     "owner.edit",
		Place:  OnPool,
		Mutate: func(context.Context) (string, error) { return "offline", nil },
	})
	v, err := f.Await(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "offline", v)
}

func TestRunSettleWaitsForClock(t *testing.T) {
	h := newHarness(t)

	f := Run(t.Context(), h.orch, Stage[int]{
		Op:     "shelf.delete",
		Mutate: func(context.Context) (int, error) { return 1, nil },
		Settle: 100 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
	assert.False(t, f.IsDone())

	h.clock.Advance(100 * time.Millisecond)
	_, err := f.Await(ctx)
	require.NoError(t, err)
}

func TestRunNestedSkipsJournal(t *testing.T) {
	h := newHarness(t)

	_, err := Run(t.Context(), h.orch, Stage[int]{
		Op:     "shelf.edit",
		Nested: true,
		Mutate: func(context.Context) (int, error) { return 0, errors.New("boom") },
	}).Await(t.Context())
	require.Error(t, err)
	assert.Empty(t, h.journal.all())
}

func TestRunWithoutMutationFails(t *testing.T) {
	h := newHarness(t)
	_, err := Run(t.Context(), h.orch, Stage[int]{Op: "noop"}).Await(t.Context())
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryInternal))
}

func TestRunRejectsPanickingMutation(t *testing.T) {
	h := newHarness(t)

	var counts map[string]int
	f := Run(t.Context(), h.orch, Stage[int]{
		Op:     "shelf.edit",
		Target: "world;1;2;3",
		Mutate: func(context.Context) (int, error) {
			counts["x"]++
			return 1, nil
		},
	})

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	_, err := f.Await(ctx)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryInternal))

	require.Eventually(t, func() bool { return len(h.journal.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, journal.OutcomeFailed, h.journal.all()[0].Outcome)

	next, err := Submit(h.orch.Loop(), func() (int, error) { return 7, nil }).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, next)
}
