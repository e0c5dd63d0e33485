package shelf

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/shelfkeeper/internal/book"
	"git.home.luguber.info/inful/shelfkeeper/internal/events"
	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/shelfkeeper/internal/host"
	"git.home.luguber.info/inful/shelfkeeper/internal/host/hosttest"
	"git.home.luguber.info/inful/shelfkeeper/internal/item"
	"git.home.luguber.info/inful/shelfkeeper/internal/location"
	"git.home.luguber.info/inful/shelfkeeper/internal/task"
)

type fixture struct {
	rt    *hosttest.Runtime
	shelf *hosttest.Shelf
	loc   location.Location
	ops   *Operations
	bus   *events.Bus
	clock *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		rt:    hosttest.New(),
		bus:   events.NewBus(),
		clock: clockwork.NewFakeClock(),
	}
	w := f.rt.AddWorld("world")
	f.shelf = w.PlaceShelf(10, 64, -3)
	f.loc = f.shelf.Location()

	loop := task.NewLoop(nil)
	loop.Start()
	pool := task.NewPool(nil)
	orch := task.NewOrchestrator(loop, pool,
		task.WithClock(f.clock),
		task.WithBroadcaster(events.NewBroadcaster(f.bus, time.Second, nil)),
	)
	f.ops = New(f.rt, orch, nil)
	t.Cleanup(func() {
		_ = loop.Stop(context.Background())
		_ = pool.Stop(context.Background())
		f.bus.Close()
	})
	return f
}

func (f *fixture) put(slot int, b book.Book) {
	b.Slot = slot
	f.shelf.Put(slot, book.EncodeItem(b))
}

func (f *fixture) book(t *testing.T, slot int) book.Book {
	t.Helper()
	b, ok := book.DecodeItem(slot, f.shelf.Committed(slot))
	require.True(t, ok, "slot %d holds no book", slot)
	return b
}

func await[T any](t *testing.T, fut *task.Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	return fut.Await(ctx)
}

func draft(title, author string, pages ...string) book.Book {
	return book.New(0, book.KindDraft, book.Content{Title: title, Author: author, Pages: pages})
}

func sealed(title, author string, pages ...string) book.Book {
	return book.New(0, book.KindSealed, book.Content{Title: title, Author: author, Pages: pages})
}

func TestEdit_KeepsDraftKind(t *testing.T) {
	f := newFixture(t)
	f.put(2, draft("Old", "", "a"))
	updates, unsubscribe := events.Subscribe[events.ContainerUpdated](f.bus, 1)
	defer unsubscribe()

	got, err := await(t, f.ops.Edit(t.Context(), f.loc, 2, book.Content{Title: "New", Author: "Alex", Pages: []string{"p1", "p2"}}))
	require.NoError(t, err)
	assert.Equal(t, book.KindDraft, got.Kind)

	stored := f.book(t, 2)
	assert.Equal(t, book.KindDraft, stored.Kind)
	assert.Equal(t, "New", stored.Title)
	assert.Equal(t, "Alex", stored.Author)
	assert.Equal(t, []string{"p1", "p2"}, stored.Pages)

	select {
	case evt := <-updates:
		assert.Equal(t, f.loc, evt.Location)
	case <-time.After(time.Second):
		t.Fatal("no container-updated event")
	}
}

func TestEdit_EmptySlotBecomesSealed(t *testing.T) {
	f := newFixture(t)

	_, err := await(t, f.ops.Edit(t.Context(), f.loc, 0, book.Content{Pages: []string{"x"}}))
	require.NoError(t, err)

	committed := f.shelf.Committed(0)
	require.NotNil(t, committed)
	assert.Equal(t, item.WrittenBook, committed.Material)
	assert.Equal(t, book.PlaceholderTitle, committed.Meta.Title)

	stored := f.book(t, 0)
	assert.Empty(t, stored.Title)
	assert.Empty(t, stored.Author)
}

func TestEdit_Rejections(t *testing.T) {
	f := newFixture(t)

	_, err := await(t, f.ops.Edit(t.Context(), f.loc, 6, book.Content{}))
	assert.True(t, ferrors.HasReason(err, ferrors.ReasonInvalidSlot))

	missing := location.New("world", 0, 0, 0)
	_, err = await(t, f.ops.Edit(t.Context(), missing, 0, book.Content{}))
	assert.True(t, ferrors.HasReason(err, ferrors.ReasonNotAContainer))

	_, err = await(t, f.ops.Edit(t.Context(), location.New("nether", 0, 0, 0), 0, book.Content{}))
	assert.True(t, ferrors.HasReason(err, ferrors.ReasonWorldNotFound))

	assert.Empty(t, f.rt.Dispatched())
}

func TestAdd_LowestEmptySlot(t *testing.T) {
	f := newFixture(t)
	for _, slot := range []int{0, 2, 4} {
		f.put(slot, draft("", "", "x"))
	}

	got, err := await(t, f.ops.Add(t.Context(), f.loc, AnySlot, book.Content{Title: "Fresh", Pages: []string{"hello"}}))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Slot)

	stored := f.book(t, 1)
	assert.Equal(t, book.KindDraft, stored.Kind)
	assert.Equal(t, "Fresh", stored.Title)
	assert.Equal(t, []string{"hello"}, stored.Pages)
}

func TestAdd_EmptyContentPlacesBlankDraft(t *testing.T) {
	f := newFixture(t)

	got, err := await(t, f.ops.Add(t.Context(), f.loc, 3, book.Content{}))
	require.NoError(t, err)
	assert.Equal(t, 3, got.Slot)

	stored := f.book(t, 3)
	assert.Equal(t, book.KindDraft, stored.Kind)
	assert.Equal(t, []string{book.EmptyPage}, stored.Pages)
	assert.Len(t, f.rt.Dispatched(), 1)
}

func TestAdd_Full(t *testing.T) {
	f := newFixture(t)
	for slot := range Slots {
		f.put(slot, draft("", "", "x"))
	}

	_, err := await(t, f.ops.Add(t.Context(), f.loc, AnySlot, book.Content{}))
	assert.True(t, ferrors.HasReason(err, ferrors.ReasonContainerFull))
	assert.Empty(t, f.rt.Dispatched())
}

func TestAdd_OccupiedSlot(t *testing.T) {
	f := newFixture(t)
	f.put(1, draft("", "", "x"))

	_, err := await(t, f.ops.Add(t.Context(), f.loc, 1, book.Content{}))
	assert.True(t, ferrors.HasReason(err, ferrors.ReasonSlotOccupied))
}

func TestDelete_WaitsForSettle(t *testing.T) {
	f := newFixture(t)
	f.put(2, sealed("T", "A", "x"))
	updates, unsubscribe := events.Subscribe[events.ContainerUpdated](f.bus, 1)
	defer unsubscribe()

	fut := f.ops.Delete(t.Context(), f.loc, 2)

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	assert.Nil(t, f.shelf.Committed(2))
	assert.False(t, fut.IsDone())
	assert.Empty(t, updates)

	f.clock.Advance(DefaultDeleteSettle)
	removed, err := await(t, fut)
	require.NoError(t, err)
	assert.Equal(t, "T", removed.Title)

	for slot := range Slots {
		assert.Nil(t, f.shelf.Committed(slot), "slot %d", slot)
	}
	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("no container-updated event")
	}
}

func TestDelete_FallsBackToDirectClear(t *testing.T) {
	f := newFixture(t)
	f.ops.settle = 0
	f.rt.IgnoreClears = true
	f.put(0, draft("Doomed", "", "x"))

	_, err := await(t, f.ops.Delete(t.Context(), f.loc, 0))
	require.NoError(t, err)
	assert.Nil(t, f.shelf.Committed(0))
	assert.Nil(t, f.shelf.Committed(1))
}

func TestDelete_EmptySlot(t *testing.T) {
	f := newFixture(t)

	_, err := await(t, f.ops.Delete(t.Context(), f.loc, 4))
	assert.True(t, ferrors.HasReason(err, ferrors.ReasonSlotEmpty))
	assert.Empty(t, f.rt.Dispatched())
	assert.Equal(t, 0, f.shelf.Updates())
}

func TestLockUnlock(t *testing.T) {
	f := newFixture(t)
	f.put(1, draft("Title", "", "page"))

	locked, err := await(t, f.ops.Lock(t.Context(), f.loc, 1))
	require.NoError(t, err)
	assert.Equal(t, book.KindSealed, locked.Kind)

	committed := f.shelf.Committed(1)
	assert.Equal(t, item.WrittenBook, committed.Material)
	assert.Equal(t, "Title", committed.Meta.Title)
	assert.Equal(t, book.PlaceholderAuthor, committed.Meta.Author)
	assert.Equal(t, item.GenerationOriginal, committed.Meta.Generation)

	_, err = await(t, f.ops.Lock(t.Context(), f.loc, 1))
	assert.True(t, ferrors.HasReason(err, ferrors.ReasonWrongKind))

	unlocked, err := await(t, f.ops.Unlock(t.Context(), f.loc, 1))
	require.NoError(t, err)
	assert.Equal(t, book.KindDraft, unlocked.Kind)

	committed = f.shelf.Committed(1)
	assert.Equal(t, item.WritableBook, committed.Material)
	assert.Equal(t, "Title", committed.Meta.DisplayName)
	assert.Empty(t, committed.Meta.Lore)

	_, err = await(t, f.ops.Unlock(t.Context(), f.loc, 5))
	assert.True(t, ferrors.HasReason(err, ferrors.ReasonSlotEmpty))
}

func TestReorder_Reverse(t *testing.T) {
	f := newFixture(t)
	f.put(0, draft("zero", "A", "0"))
	f.put(1, sealed("one", "B", "1"))
	f.put(3, draft("three", "", "3"))

	updates, unsubscribe := events.Subscribe[events.ContainerUpdated](f.bus, 4)
	defer unsubscribe()

	moved, err := await(t, f.ops.Reorder(t.Context(), f.loc, []int{5, 4, 3, 2, 1, 0}))
	require.NoError(t, err)
	assert.Len(t, moved, 3)

	assert.Nil(t, f.shelf.Committed(0))
	assert.Nil(t, f.shelf.Committed(1))
	assert.Equal(t, "three", f.book(t, 2).Title)
	assert.Nil(t, f.shelf.Committed(3))

	four := f.book(t, 4)
	assert.Equal(t, book.KindSealed, four.Kind)
	assert.Equal(t, "one", four.Title)
	assert.Equal(t, "B", four.Author)

	five := f.book(t, 5)
	assert.Equal(t, book.KindDraft, five.Kind)
	assert.Equal(t, "zero", five.Title)
	assert.Equal(t, "A", five.Author)
	assert.Equal(t, []string{"0"}, five.Pages)

	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("no container-updated event")
	}
	assert.Empty(t, updates)
}

func TestLockUnlock_EmptyFieldsDoNotLeakPlaceholders(t *testing.T) {
	f := newFixture(t)
	f.put(2, draft("", "", "page"))

	locked, err := await(t, f.ops.Lock(t.Context(), f.loc, 2))
	require.NoError(t, err)
	assert.Empty(t, locked.Title)
	assert.Empty(t, locked.Author)

	committed := f.shelf.Committed(2)
	assert.Equal(t, book.PlaceholderTitle, committed.Meta.Title)
	assert.Equal(t, book.PlaceholderAuthor, committed.Meta.Author)
	assert.Equal(t, 1, committed.Meta.CustomModelData)
	assert.Empty(t, f.book(t, 2).Title)
	assert.Empty(t, f.book(t, 2).Author)

	unlocked, err := await(t, f.ops.Unlock(t.Context(), f.loc, 2))
	require.NoError(t, err)
	assert.Equal(t, book.KindDraft, unlocked.Kind)
	assert.Empty(t, unlocked.Title)
	assert.Empty(t, unlocked.Author)
	assert.Equal(t, []string{"page"}, unlocked.Pages)

	committed = f.shelf.Committed(2)
	assert.Empty(t, committed.Meta.DisplayName)
	assert.Empty(t, committed.Meta.Lore)
	assert.Zero(t, committed.Meta.CustomModelData)
}

func TestReorder_SlotRewriteFailureStopsFurtherWrites(t *testing.T) {
	f := newFixture(t)
	f.put(0, draft("zero", "A", "0"))
	f.put(1, sealed("one", "B", "1"))

	boom := errors.New("command rejected")
	f.rt.FailDispatch = func(cmd host.ReplaceItem) error {
		if cmd.Slot == 1 {
			return boom
		}
		return nil
	}

	_, err := await(t, f.ops.Reorder(t.Context(), f.loc, []int{1, 0, 2, 3, 4, 5}))
	require.ErrorIs(t, err, boom)
	assert.Len(t, f.rt.Dispatched(), 2)

	// Slot 0 keeps the bare rewrite; its metadata is not restored.
	zero := f.shelf.Committed(0)
	assert.Equal(t, item.WrittenBook, zero.Material)
	assert.Empty(t, zero.Meta.Title)
	assert.Equal(t, "one", f.book(t, 1).Title)
}

func TestReorder_RestoreFailureKeepsMovedBooks(t *testing.T) {
	f := newFixture(t)
	f.put(0, draft("zero", "A", "0"))
	f.put(1, sealed("one", "B", "1"))
	f.put(2, draft("", ""))

	boom := errors.New("refresh failed")
	f.rt.FailDispatch = func(cmd host.ReplaceItem) error {
		if cmd.Slot == 4 && cmd.Item != nil && cmd.Item.Meta != nil && cmd.Item.Meta.Title != "" {
			return boom
		}
		return nil
	}

	_, err := await(t, f.ops.Reorder(t.Context(), f.loc, []int{5, 4, 3, 2, 1, 0}))
	require.ErrorIs(t, err, boom)

	require.Eventually(t, func() bool {
		b, ok := book.DecodeItem(5, f.shelf.Committed(5))
		return ok && b.Title == "zero"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, item.WrittenBook, f.shelf.Committed(4).Material)
	assert.Equal(t, item.WritableBook, f.shelf.Committed(3).Material)
	assert.Nil(t, f.shelf.Committed(0))

	// The empty draft moved to slot 3 needs no restoring edit.
	restores := 0
	for _, cmd := range f.rt.Dispatched() {
		if cmd.Slot == 3 {
			restores++
		}
	}
	assert.Equal(t, 1, restores)
}

func TestReorder_InvalidPermutation(t *testing.T) {
	f := newFixture(t)
	f.put(0, draft("zero", "", "0"))

	for _, perm := range [][]int{
		{0, 1, 2, 3, 4},
		{0, 0, 2, 3, 4, 5},
		{0, 1, 2, 3, 4, 6},
	} {
		_, err := await(t, f.ops.Reorder(t.Context(), f.loc, perm))
		assert.True(t, ferrors.HasReason(err, ferrors.ReasonInvalidPermutation), "%v", perm)
	}
	assert.Empty(t, f.rt.Dispatched())
	assert.Equal(t, "zero", f.book(t, 0).Title)
}

func TestBooks(t *testing.T) {
	f := newFixture(t)
	f.put(0, draft("a", "", "x"))
	f.put(5, sealed("b", "c", "y"))

	books, err := await(t, f.ops.Books(t.Context(), f.loc))
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, 0, books[0].Slot)
	assert.Equal(t, 5, books[1].Slot)
	assert.Equal(t, "c", books[1].Author)
}

func TestValidPermutation(t *testing.T) {
	require.NoError(t, validPermutation([]int{1, 0, 3, 2, 5, 4}))
	require.Error(t, validPermutation(nil))
}
