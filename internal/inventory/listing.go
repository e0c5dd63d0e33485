package inventory

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/shelfkeeper/internal/book"
	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/shelfkeeper/internal/host"
	"git.home.luguber.info/inful/shelfkeeper/internal/logfields"
	"git.home.luguber.info/inful/shelfkeeper/internal/task"
)

// OwnerStatus is a directory entry with its connection state.
type OwnerStatus struct {
	ID       uuid.UUID
	Name     string
	Online   bool
	LastSeen time.Time
}

// OwnerBook is a book together with where it lives.
type OwnerBook struct {
	book.Book
	OwnerID   uuid.UUID
	OwnerName string
	Online    bool
	Container host.Container
}

// Owners lists every known owner, connected owners first, then by name.
func (o *Operations) Owners() []OwnerStatus {
	dir := o.rt.Owners()
	known := dir.Known()
	out := make([]OwnerStatus, 0, len(known))
	for _, rec := range known {
		_, online := dir.Online(rec.ID)
		out = append(out, OwnerStatus{ID: rec.ID, Name: rec.Name, Online: online, LastSeen: rec.LastSeen})
	}
	slices.SortStableFunc(out, func(a, b OwnerStatus) int {
		if a.Online != b.Online {
			if a.Online {
				return -1
			}
			return 1
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}

// Books lists the books in container c of owner ref.
func (o *Operations) Books(ctx context.Context, ref string, c host.Container) *task.Future[[]OwnerBook] {
	if _, ok := o.slots[c]; !ok {
		return task.Failed[[]OwnerBook](ferrors.Rejected(ferrors.ReasonInvalidContainer, "Invalid container: "+string(c)).Build())
	}
	rec, err := o.rt.Owners().Resolve(ref)
	if err != nil {
		return task.Failed[[]OwnerBook](err)
	}
	return o.books(ctx, rec, c)
}

func (o *Operations) books(ctx context.Context, rec host.Record, c host.Container) *task.Future[[]OwnerBook] {
	size := o.slots[c]
	wrap := func(online bool) func([]book.Book) ([]OwnerBook, error) {
		return func(books []book.Book) ([]OwnerBook, error) {
			out := make([]OwnerBook, 0, len(books))
			for _, b := range books {
				out = append(out, OwnerBook{Book: b, OwnerID: rec.ID, OwnerName: rec.Name, Online: online, Container: c})
			}
			return out, nil
		}
	}

	if _, online := o.rt.Owners().Online(rec.ID); online {
		read := task.Submit(o.orch.Loop(), func() ([]book.Book, error) {
			owner, ok := o.rt.Owners().Online(rec.ID)
			if !ok {
				return nil, ferrors.Rejected(ferrors.ReasonOwnerOffline, "Player disconnected").Build()
			}
			inv := owner.Inventory(c)
			return listBooks(liveBackend{inv: inv}, min(size, inv.Size()))
		})
		return task.Then(read, wrap(true))
	}

	read := task.Submit(o.orch.Pool(), func() ([]book.Book, error) {
		doc, err := o.readFile(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		return listBooks(fileBackend{doc: doc, list: listOf(c)}, size)
	})
	return task.Then(read, wrap(false))
}

// AllBooks lists the books of every known owner in both containers. Owners
// without a data file are skipped.
func (o *Operations) AllBooks(ctx context.Context) *task.Future[[]OwnerBook] {
	known := o.rt.Owners().Known()
	parts := make([]*task.Future[[]OwnerBook], 0, len(known)*len(host.Containers))
	for _, rec := range known {
		for _, c := range host.Containers {
			parts = append(parts, o.skipMissing(o.books(ctx, rec, c), rec))
		}
	}
	return task.Then(task.All(parts...), func(groups [][]OwnerBook) ([]OwnerBook, error) {
		var out []OwnerBook
		for _, g := range groups {
			out = append(out, g...)
		}
		return out, nil
	})
}

// skipMissing turns a missing data file or a disconnect race into an empty listing.
func (o *Operations) skipMissing(f *task.Future[[]OwnerBook], rec host.Record) *task.Future[[]OwnerBook] {
	p := task.NewPromise[[]OwnerBook]()
	f.OnComplete(func(v []OwnerBook, err error) {
		if ferrors.HasReason(err, ferrors.ReasonOwnerNotFound) || ferrors.HasReason(err, ferrors.ReasonOwnerOffline) {
			o.logger.Debug("Skipping owner books", logfields.Owner(rec.ID.String()), logfields.Error(err))
			p.Resolve(nil)
			return
		}
		p.Complete(v, err)
	})
	return p.Future()
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
