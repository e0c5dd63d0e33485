// Package registry tracks every shelf location the editor knows about and
// persists the set with a debounced, asynchronous write-out.
package registry

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/shelfkeeper/internal/location"
	"git.home.luguber.info/inful/shelfkeeper/internal/logfields"
	"git.home.luguber.info/inful/shelfkeeper/internal/metrics"
	"git.home.luguber.info/inful/shelfkeeper/internal/util/sets"
)

const (
	DefaultDebounce      = 5 * time.Second
	DefaultShutdownGrace = 6 * time.Second
)

// Registry is the set of tracked shelf locations. It is safe for concurrent use.
type Registry struct {
	store    Store
	window   time.Duration
	grace    time.Duration
	clock    clockwork.Clock
	recorder metrics.Recorder
	logger   *slog.Logger

	mu      sync.RWMutex
	set     sets.Set[location.Location]
	scanned bool

	scheduler  gocron.Scheduler
	pending    atomic.Bool
	closed     atomic.Bool
	generation atomic.Uint64

	// flushMu serializes write-outs so a shutdown flush never overlaps a scheduled one.
	flushMu sync.Mutex
	flushed uint64
}

// Option configures a Registry.
type Option func(*Registry)

func WithDebounce(d time.Duration) Option { return func(r *Registry) { r.window = d } }

func WithShutdownGrace(d time.Duration) Option { return func(r *Registry) { r.grace = d } }

func WithClock(c clockwork.Clock) Option { return func(r *Registry) { r.clock = c } }

func WithRecorder(rec metrics.Recorder) Option { return func(r *Registry) { r.recorder = rec } }

func WithLogger(l *slog.Logger) Option { return func(r *Registry) { r.logger = l } }

// New returns an empty registry backed by store. Call Load or Scan to populate it.
func New(store Store, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, ferrors.ValidationError("registry store is required").Build()
	}
	r := &Registry{
		store:    store,
		window:   DefaultDebounce,
		grace:    DefaultShutdownGrace,
		clock:    clockwork.NewRealClock(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		set:      sets.New[location.Location](),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.recorder = metrics.OrNoop(r.recorder)
	r.logger = r.logger.With(logfields.Component("registry"))

	s, err := gocron.NewScheduler(
		gocron.WithClock(r.clock),
		gocron.WithLimitConcurrentJobs(1, gocron.LimitModeWait),
		gocron.WithStopTimeout(r.grace),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "create flush scheduler").Build()
	}
	r.scheduler = s
	r.scheduler.Start()
	return r, nil
}

// Add tracks loc and reports whether it was new.
func (r *Registry) Add(loc location.Location) bool {
	r.mu.Lock()
	added := r.set.Add(loc)
	size := len(r.set)
	r.mu.Unlock()

	if added {
		r.changed(size)
	}
	return added
}

// Remove untracks loc and reports whether it was tracked.
func (r *Registry) Remove(loc location.Location) bool {
	r.mu.Lock()
	removed := r.set.Delete(loc)
	size := len(r.set)
	r.mu.Unlock()

	if removed {
		r.changed(size)
	}
	return removed
}

// Has reports whether loc is tracked.
func (r *Registry) Has(loc location.Location) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set.Has(loc)
}

// Len returns the number of tracked locations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.set)
}

// Snapshot returns a copy the caller may keep and modify.
func (r *Registry) Snapshot() sets.Set[location.Location] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set.Clone()
}

// Sorted returns the tracked locations ordered by world, x, y, z.
func (r *Registry) Sorted() []location.Location {
	return sets.Sorted(r.Snapshot(), location.Compare)
}

// Scanned reports whether the initial full scan has completed.
func (r *Registry) Scanned() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scanned
}

// Load replaces the set with the persisted document. Malformed records are skipped.
func (r *Registry) Load() error {
	doc, err := r.store.Load()
	if err != nil {
		return err
	}

	loaded := sets.New[location.Location]()
	for _, rec := range doc.Bookshelves {
		loc, err := location.Parse(rec)
		if err != nil {
			r.logger.Warn("Skipping malformed registry record", slog.String("record", rec), logfields.Error(err))
			continue
		}
		loaded.Add(loc)
	}

	r.mu.Lock()
	r.set = loaded
	r.scanned = doc.InitialScanComplete
	r.mu.Unlock()

	r.recorder.SetRegistrySize(len(loaded))
	r.logger.Info("Loaded registry", logfields.Count(len(loaded)), slog.Bool("scanned", doc.InitialScanComplete))
	return nil
}

// Scan replaces the set with locs, the result of a full enumeration of loaded
// regions, marks the scan complete, and writes the document synchronously.
func (r *Registry) Scan(locs []location.Location) error {
	r.mu.Lock()
	r.set = sets.New(locs...)
	r.scanned = true
	size := len(r.set)
	r.mu.Unlock()

	r.generation.Add(1)
	r.recorder.SetRegistrySize(size)
	r.logger.Info("Initial scan complete", logfields.Count(size))
	return r.Flush()
}

// Flush writes the current set synchronously.
func (r *Registry) Flush() error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	gen := r.generation.Load()
	r.mu.RLock()
	doc := Document{InitialScanComplete: r.scanned}
	for _, loc := range sets.Sorted(r.set, location.Compare) {
		doc.Bookshelves = append(doc.Bookshelves, loc.String())
	}
	r.mu.RUnlock()

	if err := r.store.Save(doc); err != nil {
		r.recorder.IncRegistryFlush(metrics.ResultFailed)
		return err
	}
	r.flushed = gen
	r.recorder.IncRegistryFlush(metrics.ResultSuccess)
	r.logger.Debug("Registry flushed", logfields.Count(len(doc.Bookshelves)))
	return nil
}

// Pending reports whether a debounced flush is scheduled or running.
func (r *Registry) Pending() bool {
	return r.pending.Load()
}

// Shutdown stops scheduling flushes, waits up to the grace period for an
// in-flight flush, then writes the set one final time.
func (r *Registry) Shutdown() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := r.scheduler.Shutdown(); err != nil {
		if errors.Is(err, gocron.ErrStopJobsTimedOut) {
			r.logger.Warn("Registry flush still running after grace period", slog.Duration("grace", r.grace))
		} else {
			r.logger.Warn("Registry scheduler shutdown failed", logfields.Error(err))
		}
	}
	return r.Flush()
}

func (r *Registry) changed(size int) {
	r.generation.Add(1)
	r.recorder.SetRegistrySize(size)
	r.schedule()
}

// schedule arranges one flush after the debounce window unless one is already pending.
func (r *Registry) schedule() {
	if r.closed.Load() {
		return
	}
	if !r.pending.CompareAndSwap(false, true) {
		return
	}

	startAt := gocron.OneTimeJobStartImmediately()
	if r.window > 0 {
		startAt = gocron.OneTimeJobStartDateTime(r.clock.Now().Add(r.window))
	}
	_, err := r.scheduler.NewJob(
		gocron.OneTimeJob(startAt),
		gocron.NewTask(r.scheduledFlush),
		gocron.WithName("registry-flush"),
	)
	if err != nil {
		r.pending.Store(false)
		r.logger.Warn("Failed to schedule registry flush", logfields.Error(err))
	}
}

func (r *Registry) scheduledFlush() {
	err := r.Flush()
	r.pending.Store(false)
	if err != nil {
		// The in-memory set stays authoritative; the next mutation or shutdown retries.
		r.logger.Warn("Registry flush failed", logfields.Error(err))
		return
	}

	r.flushMu.Lock()
	stale := r.flushed != r.generation.Load()
	r.flushMu.Unlock()
	if stale {
		r.schedule()
	}
}
