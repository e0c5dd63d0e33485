// Package editor assembles the shelfkeeper core around a host runtime: the
// mutation loop and worker pool, the location registry, shelf and owner
// operations, the host event listener and the ambient sinks (journal,
// metrics, event relay). It owns their start and stop order.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/shelfkeeper/internal/config"
	"git.home.luguber.info/inful/shelfkeeper/internal/events"
	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/shelfkeeper/internal/host"
	"git.home.luguber.info/inful/shelfkeeper/internal/inventory"
	"git.home.luguber.info/inful/shelfkeeper/internal/journal"
	"git.home.luguber.info/inful/shelfkeeper/internal/listener"
	"git.home.luguber.info/inful/shelfkeeper/internal/location"
	"git.home.luguber.info/inful/shelfkeeper/internal/logfields"
	"git.home.luguber.info/inful/shelfkeeper/internal/metrics"
	"git.home.luguber.info/inful/shelfkeeper/internal/registry"
	"git.home.luguber.info/inful/shelfkeeper/internal/relay"
	"git.home.luguber.info/inful/shelfkeeper/internal/shelf"
	"git.home.luguber.info/inful/shelfkeeper/internal/task"
)

// Status is the lifecycle state of an Editor.
type Status int32

const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

const publishTimeout = 2 * time.Second

// Editor is the manager component.
type Editor struct {
	cfg    *config.Config
	rt     host.Runtime
	clock  clockwork.Clock
	logger *slog.Logger

	loop     *task.Loop
	pool     *task.Pool
	bus      *events.Bus
	orch     *task.Orchestrator
	registry *registry.Registry
	journal  journal.Store
	recorder metrics.Recorder
	promReg  *prometheus.Registry
	relayPub relay.Publisher
	relay    *relay.Relay

	shelves  *shelf.Operations
	owners   *inventory.Operations
	listener *listener.Listener

	metricsSrv *http.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	mu     sync.Mutex
	closed bool
	status atomic.Int32
}

// Option configures an Editor.
type Option func(*Editor)

func WithLogger(l *slog.Logger) Option { return func(e *Editor) { e.logger = l } }

func WithClock(c clockwork.Clock) Option { return func(e *Editor) { e.clock = c } }

// WithRelayPublisher relays push events through pub instead of dialing relay.nats_url.
func WithRelayPublisher(pub relay.Publisher) Option { return func(e *Editor) { e.relayPub = pub } }

// WithJournal overrides the journal selected by configuration.
func WithJournal(j journal.Store) Option { return func(e *Editor) { e.journal = j } }

// New builds an editor for rt. Nothing runs until Start.
func New(cfg *config.Config, rt host.Runtime, opts ...Option) (*Editor, error) {
	if cfg == nil {
		return nil, ferrors.ConfigError("configuration is required").Build()
	}
	if rt == nil {
		return nil, ferrors.ValidationError("host runtime is required").Build()
	}
	e := &Editor{
		cfg:    cfg,
		rt:     rt,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		e.promReg = prometheus.NewRegistry()
		e.recorder = metrics.NewPrometheusRecorder(e.promReg)
	}

	if e.journal == nil {
		e.journal = journal.Discard{}
		if cfg.Journal.Enabled {
			store, err := journal.NewSQLiteStore(cfg.Journal.Path)
			if err != nil {
				return nil, err
			}
			e.journal = store
		}
	}

	reg, err := registry.New(registry.NewFileStore(cfg.Registry.File),
		registry.WithDebounce(cfg.Registry.Debounce),
		registry.WithShutdownGrace(cfg.Registry.ShutdownGrace),
		registry.WithClock(e.clock),
		registry.WithRecorder(e.recorder),
		registry.WithLogger(e.logger),
	)
	if err != nil {
		_ = e.journal.Close()
		return nil, err
	}
	e.registry = reg

	e.loop = task.NewLoop(e.logger)
	e.pool = task.NewPool(e.logger)
	e.bus = events.NewBus()
	e.orch = task.NewOrchestrator(e.loop, e.pool,
		task.WithClock(e.clock),
		task.WithBroadcaster(events.NewBroadcaster(e.bus, publishTimeout, e.logger)),
		task.WithJournal(e.journal),
		task.WithRecorder(e.recorder),
		task.WithLogger(e.logger),
	)
	e.shelves = shelf.New(rt, e.orch, e.registry,
		shelf.WithDeleteSettle(cfg.Shelf.DeleteSettle),
		shelf.WithLogger(e.logger),
	)
	e.owners = inventory.New(rt, e.orch,
		inventory.WithSlots(cfg.Owners.PrimarySlots, cfg.Owners.SecondarySlots),
		inventory.WithLogger(e.logger),
	)
	e.listener = listener.New(e.registry, e.orch, listener.WithLogger(e.logger))
	return e, nil
}

// Status returns the lifecycle state.
func (e *Editor) Status() Status { return Status(e.status.Load()) }

// Start launches the mutation loop, populates the registry and starts the
// relay and metrics endpoint. The registry is loaded from disk, or built
// from a scan of every loaded region on first run.
func (e *Editor) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.Status() != StatusStopped {
		return ferrors.StateError("editor cannot be started").WithContext("status", e.Status().String()).Build()
	}
	e.status.Store(int32(StatusStarting))
	e.loop.Start()

	if err := e.populate(ctx); err != nil {
		_ = e.shutdown(ctx)
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel

	if err := e.startRelay(runCtx); err != nil {
		// The relay is optional: push events still reach in-process subscribers.
		e.logger.Warn("Event relay unavailable", logfields.Error(err))
	}
	e.startMetrics()

	e.status.Store(int32(StatusRunning))
	e.logger.Info("Shelfkeeper started",
		logfields.Count(e.registry.Len()),
		logfields.Path(e.cfg.Registry.File),
		slog.Bool("journal", e.cfg.Journal.Enabled),
		slog.Bool("metrics", e.cfg.Metrics.Enabled))
	return nil
}

func (e *Editor) populate(ctx context.Context) error {
	if err := e.registry.Load(); err != nil {
		return err
	}
	if e.registry.Scanned() {
		return nil
	}
	if len(e.rt.Worlds()) == 0 {
		// Detached: nothing to enumerate, keep the document as loaded.
		e.logger.Info("No worlds loaded, initial scan deferred")
		return nil
	}

	scan := task.Submit(e.loop, func() ([]location.Location, error) {
		var found []location.Location
		for _, w := range e.rt.Worlds() {
			found = append(found, w.LoadedShelves()...)
		}
		return found, nil
	})
	found, err := scan.Await(ctx)
	if err != nil {
		return err
	}
	if err := e.registry.Scan(found); err != nil {
		return err
	}
	e.logger.Info("Initial shelf scan complete", logfields.Count(len(found)))
	return nil
}

func (e *Editor) startRelay(ctx context.Context) error {
	opts := []relay.Option{relay.WithRecorder(e.recorder), relay.WithLogger(e.logger)}
	switch {
	case e.relayPub != nil:
		e.relay = relay.New(e.relayPub, e.cfg.Relay.SubjectPrefix, opts...)
	case e.cfg.Relay.NATSURL != "":
		r, err := relay.Connect(e.cfg.Relay.NATSURL, e.cfg.Relay.SubjectPrefix, opts...)
		if err != nil {
			return err
		}
		e.relay = r
	default:
		return nil
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.relay.Run(ctx, e.bus)
	}()
	return nil
}

func (e *Editor) startMetrics() {
	if e.promReg == nil {
		return
	}
	e.metricsSrv = metrics.NewServer(e.cfg.Metrics.Listen, e.cfg.Metrics.Path, e.promReg)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("Metrics endpoint failed", logfields.Error(err))
		}
	}()
	e.logger.Info("Metrics endpoint listening", slog.String("addr", e.cfg.Metrics.Listen), logfields.Path(e.cfg.Metrics.Path))
}

// Stop drains queued mutations and worker tasks, writes the registry one
// last time and closes the sinks. Errors are logged; the first is returned.
// An editor cannot be restarted once stopped.
func (e *Editor) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.Status() != StatusRunning {
		return nil
	}
	e.logger.Info("Stopping shelfkeeper")
	return e.shutdown(ctx)
}

func (e *Editor) shutdown(ctx context.Context) error {
	e.status.Store(int32(StatusStopping))
	e.closed = true

	var first error
	note := func(what string, err error) {
		if err == nil {
			return
		}
		e.logger.Error("Shutdown step failed", logfields.Stage(what), logfields.Error(err))
		if first == nil {
			first = err
		}
	}

	note("loop", e.loop.Stop(ctx))
	note("pool", e.pool.Stop(ctx))
	note("registry", e.registry.Shutdown())

	if e.cancel != nil {
		e.cancel()
	}
	if e.metricsSrv != nil {
		note("metrics", e.metricsSrv.Shutdown(ctx))
	}
	e.bus.Close()
	e.wg.Wait()
	if e.relay != nil {
		e.relay.Close()
	}
	note("journal", e.journal.Close())

	e.status.Store(int32(StatusStopped))
	return first
}

// Shelves returns the shelf operations.
func (e *Editor) Shelves() *shelf.Operations { return e.shelves }

// Owners returns the owner container operations.
func (e *Editor) Owners() *inventory.Operations { return e.owners }

// Listener returns the host event handlers.
func (e *Editor) Listener() *listener.Listener { return e.listener }

// Registry returns the tracked shelf locations.
func (e *Editor) Registry() *registry.Registry { return e.registry }

// Journal returns the operation journal.
func (e *Editor) Journal() journal.Store { return e.journal }

// Bus returns the push event bus transport collaborators subscribe to.
func (e *Editor) Bus() *events.Bus { return e.bus }
