package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/shelfkeeper/internal/events"
	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/shelfkeeper/internal/journal"
	"git.home.luguber.info/inful/shelfkeeper/internal/logfields"
	"git.home.luguber.info/inful/shelfkeeper/internal/metrics"
)

// Place selects the executor a mutation runs on.
type Place int

const (
	// OnLoop runs the mutation on the single mutation goroutine.
	OnLoop Place = iota
	// OnPool runs the mutation on a worker, for state no other context touches.
	OnPool
)

// Stage names, used as metric labels.
const (
	StageAcquire  = "acquire"
	StageMutate   = "mutate"
	StageFanin    = "fanin"
	StageSettle   = "settle"
	StageAnnounce = "announce"
)

// Stage describes one operation. Only Op and Mutate are required.
type Stage[T any] struct {
	Op     string
	Target string

	// Acquire runs on the pool before Mutate, typically to load a region.
	Acquire func(ctx context.Context) error
	Place   Place
	Mutate  func(ctx context.Context) (T, error)

	// Fanin continues with nested asynchronous work, such as restoring
	// metadata on several slots, and completes when all of it has.
	Fanin func(ctx context.Context, v T) *Future[T]

	// Settle delays the announcement so clients observe converged state.
	Settle time.Duration

	// Announce returns the push events to publish once the work is done.
	Announce func(v T) []events.Event

	// Nested stages are part of a larger operation and are not journaled on their own.
	Nested bool
}

// Orchestrator runs stages against a loop, a pool, and the ambient sinks.
type Orchestrator struct {
	loop        Executor
	pool        Executor
	clock       clockwork.Clock
	broadcaster *events.Broadcaster
	journal     journal.Store
	recorder    metrics.Recorder
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithClock(c clockwork.Clock) Option { return func(o *Orchestrator) { o.clock = c } }

func WithBroadcaster(b *events.Broadcaster) Option {
	return func(o *Orchestrator) { o.broadcaster = b }
}

func WithJournal(j journal.Store) Option { return func(o *Orchestrator) { o.journal = j } }

func WithRecorder(r metrics.Recorder) Option { return func(o *Orchestrator) { o.recorder = r } }

func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

// NewOrchestrator returns an orchestrator running mutations on loop and
// everything else on pool.
func NewOrchestrator(loop, pool Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		loop:     loop,
		pool:     pool,
		clock:    clockwork.NewRealClock(),
		journal:  journal.Discard{},
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.recorder = metrics.OrNoop(o.recorder)
	if o.journal == nil {
		o.journal = journal.Discard{}
	}
	o.logger = o.logger.With(logfields.Component("orchestrator"))
	return o
}

// Loop returns the mutation executor.
func (o *Orchestrator) Loop() Executor { return o.loop }

// Pool returns the worker executor.
func (o *Orchestrator) Pool() Executor { return o.pool }

// Clock returns the clock used for settle delays.
func (o *Orchestrator) Clock() clockwork.Clock { return o.clock }

// Broadcast publishes evts from a pool goroutine.
func (o *Orchestrator) Broadcast(ctx context.Context, evts ...events.Event) {
	if len(evts) == 0 || o.broadcaster == nil {
		return
	}
	if err := o.pool.Execute(func() { o.broadcaster.Broadcast(ctx, evts...) }); err != nil {
		o.logger.Warn("Push events dropped", logfields.Count(len(evts)), logfields.Error(err))
	}
}

func (o *Orchestrator) executor(p Place) Executor {
	if p == OnPool {
		return o.pool
	}
	return o.loop
}

// Run composes s: acquire on the pool, mutate on the chosen executor, then
// the optional fan-in, settle delay and announcement. The first failing stage
// completes the returned future with its error and skips the rest.
func Run[T any](ctx context.Context, o *Orchestrator, s Stage[T]) *Future[T] {
	if s.Mutate == nil {
		return Failed[T](ferrors.InternalError("stage has no mutation").WithContext("op", s.Op).Build())
	}
	start := o.clock.Now()

	acquired := Resolved(struct{}{})
	if s.Acquire != nil {
		acquired = Submit(o.pool, timed(o, s.Op, StageAcquire, func() (struct{}, error) {
			return struct{}{}, s.Acquire(ctx)
		}))
	}

	result := Chain(acquired, func(struct{}) *Future[T] {
		return Submit(o.executor(s.Place), timed(o, s.Op, StageMutate, func() (T, error) {
			return s.Mutate(ctx)
		}))
	})

	if s.Fanin != nil {
		result = Chain(result, func(v T) *Future[T] {
			began := o.clock.Now()
			f := s.Fanin(ctx, v)
			f.OnComplete(func(T, error) {
				o.recorder.ObserveStageDuration(s.Op, StageFanin, o.clock.Since(began))
			})
			return f
		})
	}

	if s.Settle > 0 {
		result = Chain(result, func(v T) *Future[T] {
			return Then(After(o.clock, s.Settle), func(struct{}) (T, error) { return v, nil })
		})
	}

	if s.Announce != nil {
		result = Chain(result, func(v T) *Future[T] {
			return Submit(o.pool, timed(o, s.Op, StageAnnounce, func() (T, error) {
				if o.broadcaster != nil {
					o.broadcaster.Broadcast(ctx, s.Announce(v)...)
				}
				return v, nil
			}))
		})
	}

	if s.Nested {
		return result
	}

	done := NewPromise[T]()
	result.OnComplete(func(v T, err error) {
		finish := func() {
			o.record(ctx, s.Op, s.Target, o.clock.Since(start), err)
			done.Complete(v, err)
		}
		if execErr := o.pool.Execute(finish); execErr != nil {
			finish()
		}
	})
	return done.Future()
}

func timed[T any](o *Orchestrator, op, stage string, fn func() (T, error)) func() (T, error) {
	return func() (T, error) {
		began := o.clock.Now()
		v, err := fn()
		o.recorder.ObserveStageDuration(op, stage, o.clock.Since(began))
		return v, err
	}
}

func (o *Orchestrator) record(ctx context.Context, op, target string, d time.Duration, err error) {
	outcome, result := classify(err)

	o.recorder.ObserveOperationDuration(op, d)
	o.recorder.IncOperationResult(op, result)

	entry := journal.Entry{
		Op:       op,
		Target:   target,
		Outcome:  outcome,
		Duration: d,
		At:       o.clock.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
		entry.Reason = string(ferrors.GetReason(err))
	}
	if jerr := o.journal.Append(context.WithoutCancel(ctx), entry); jerr != nil {
		o.logger.Warn("Failed to journal operation", logfields.Operation(op), logfields.Error(jerr))
	}

	attrs := []any{logfields.Operation(op), slog.String("target", target), logfields.DurationMS(float64(d.Microseconds()) / 1000)}
	switch outcome {
	case journal.OutcomeSuccess:
		o.logger.Debug("Operation completed", attrs...)
	case journal.OutcomeRejected:
		o.logger.Info("Operation rejected", append(attrs, logfields.Error(err))...)
	default:
		o.logger.Warn("Operation failed", append(attrs, logfields.Error(err))...)
	}
}

func classify(err error) (journal.Outcome, metrics.ResultLabel) {
	switch {
	case err == nil:
		return journal.OutcomeSuccess, metrics.ResultSuccess
	case ferrors.GetReason(err) != ferrors.ReasonNone, ferrors.HasCategory(err, ferrors.CategoryValidation):
		return journal.OutcomeRejected, metrics.ResultRejected
	default:
		return journal.OutcomeFailed, metrics.ResultFailed
	}
}
