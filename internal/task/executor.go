package task

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/shelfkeeper/internal/logfields"
)

var (
	// ErrClosed is returned by executors that no longer accept work.
	ErrClosed = ferrors.RuntimeError("executor is closed").Build()

	// ErrPending is returned by Future.Result before the future completes.
	ErrPending = ferrors.InternalError("future has not completed").Build()
)

// Executor runs submitted functions asynchronously.
type Executor interface {
	Execute(fn func()) error
}

// Loop is the single mutation goroutine. Work runs one item at a time in
// submission order. The queue is unbounded.
type Loop struct {
	logger *slog.Logger

	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	closed  bool
	started bool
	done    chan struct{}
}

// NewLoop returns a stopped loop.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		logger: logger.With(logfields.Component("mutation-loop")),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the loop goroutine. It is a no-op after the first call.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.started = true
	go l.run()
}

// Execute queues fn for the loop.
func (l *Loop) Execute(fn func()) error {
	if fn == nil {
		return ferrors.ValidationError("nil task").Build()
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Stop refuses new work, drains what is queued and waits for the goroutine
// to exit, bounded by ctx.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	started := l.started
	l.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for _, fn := range batch {
			l.invoke(fn)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.wake
	}
}

func (l *Loop) invoke(fn func()) {
	guard(l.logger, "Recovered panic in mutation loop", fn)
}

func guard(logger *slog.Logger, msg string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(msg,
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	fn()
}

// Pool runs work on an unbounded set of goroutines.
type Pool struct {
	logger *slog.Logger

	mu      sync.Mutex
	running sync.WaitGroup
	closed  bool
}

// NewPool returns a pool ready to accept work.
func NewPool(logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{logger: logger.With(logfields.Component("worker-pool"))}
}

// Execute starts fn on a new pool goroutine.
func (p *Pool) Execute(fn func()) error {
	if fn == nil {
		return ferrors.ValidationError("nil task").Build()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.running.Add(1)
	go func() {
		defer p.running.Done()
		guard(p.logger, "Recovered panic in worker", fn)
	}()
	return nil
}

// Stop refuses new work and waits for running work, bounded by ctx.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	idle := make(chan struct{})
	go func() {
		p.running.Wait()
		close(idle)
	}()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
