package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

// Future is the result of an asynchronous operation. It resolves exactly once.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	resolved  bool
	value     T
	err       error
	callbacks []func(T, error)
}

// Promise is the write side of a Future.
type Promise[T any] struct {
	f *Future[T]
}

// NewPromise returns an unresolved promise.
func NewPromise[T any]() Promise[T] {
	return Promise[T]{f: &Future[T]{done: make(chan struct{})}}
}

// Future returns the read side of p.
func (p Promise[T]) Future() *Future[T] {
	return p.f
}

// Resolve completes the future with v. Later completions are ignored.
func (p Promise[T]) Resolve(v T) bool {
	return p.f.complete(v, nil)
}

// Reject completes the future with err. Later completions are ignored.
func (p Promise[T]) Reject(err error) bool {
	var zero T
	return p.f.complete(zero, err)
}

// Complete resolves or rejects depending on err.
func (p Promise[T]) Complete(v T, err error) bool {
	return p.f.complete(v, err)
}

// Resolved returns a future already completed with v.
func Resolved[T any](v T) *Future[T] {
	p := NewPromise[T]()
	p.Resolve(v)
	return p.Future()
}

// Failed returns a future already completed with err.
func Failed[T any](err error) *Future[T] {
	p := NewPromise[T]()
	p.Reject(err)
	return p.Future()
}

func (f *Future[T]) complete(v T, err error) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.resolved = true
	f.value = v
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(v, err)
	}
	return true
}

// OnComplete registers cb. It runs on the goroutine that completes the
// future, or immediately on the caller's goroutine if already complete.
func (f *Future[T]) OnComplete(cb func(T, error)) {
	f.mu.Lock()
	if !f.resolved {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	cb(v, err)
}

// Done is closed once the future has completed.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future has completed.
func (f *Future[T]) IsDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolved
}

// Result returns the outcome without blocking, or ErrPending before completion.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.resolved {
		var zero T
		return zero, ErrPending
	}
	return f.value, f.err
}

// Await blocks until the future completes or ctx ends. It is meant for
// callers outside the mutation loop, such as the CLI and tests.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then maps a successful result through fn. Failures pass through.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	p := NewPromise[U]()
	f.OnComplete(func(v T, err error) {
		if err != nil {
			p.Reject(err)
			return
		}
		p.Complete(fn(v))
	})
	return p.Future()
}

// Chain continues a successful result with another asynchronous step.
func Chain[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	p := NewPromise[U]()
	f.OnComplete(func(v T, err error) {
		if err != nil {
			p.Reject(err)
			return
		}
		next := fn(v)
		if next == nil {
			var zero U
			p.Resolve(zero)
			return
		}
		next.OnComplete(func(u U, err error) { p.Complete(u, err) })
	})
	return p.Future()
}

// All resolves with every result in order once all inputs succeed, or with
// the first failure to arrive.
func All[T any](fs ...*Future[T]) *Future[[]T] {
	if len(fs) == 0 {
		return Resolved([]T{})
	}

	p := NewPromise[[]T]()
	var (
		mu        sync.Mutex
		results   = make([]T, len(fs))
		remaining = len(fs)
	)
	for i, f := range fs {
		f.OnComplete(func(v T, err error) {
			if err != nil {
				p.Reject(err)
				return
			}
			mu.Lock()
			results[i] = v
			remaining--
			last := remaining == 0
			mu.Unlock()
			if last {
				p.Resolve(results)
			}
		})
	}
	return p.Future()
}

// Submit runs fn on ex and returns its outcome. A panic in fn rejects the
// future and is re-raised for the executor to log.
func Submit[T any](ex Executor, fn func() (T, error)) *Future[T] {
	p := NewPromise[T]()
	run := func() {
		defer func() {
			if r := recover(); r != nil {
				p.Reject(ferrors.InternalError("stage panicked").
					WithContext("panic", fmt.Sprint(r)).
					Build())
				panic(r)
			}
		}()
		p.Complete(fn())
	}
	if err := ex.Execute(run); err != nil {
		p.Reject(err)
	}
	return p.Future()
}

// After resolves once d has elapsed on clock.
func After(clock clockwork.Clock, d time.Duration) *Future[struct{}] {
	p := NewPromise[struct{}]()
	if d <= 0 {
		p.Resolve(struct{}{})
		return p.Future()
	}
	clock.AfterFunc(d, func() { p.Resolve(struct{}{}) })
	return p.Future()
}
