// Package retry provides backoff policies for transient host file failures.
package retry

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

// Mode selects how the delay grows between attempts.
type Mode string

const (
	ModeFixed       Mode = "fixed"
	ModeLinear      Mode = "linear"
	ModeExponential Mode = "exponential"
)

// Policy is immutable after construction.
type Policy struct {
	Mode       Mode
	Initial    time.Duration // base delay
	Max        time.Duration // cap for growth
	MaxRetries int           // attempts after the first failure
}

// DefaultPolicy is linear, 100ms initial, 2s cap, 3 retries.
func DefaultPolicy() Policy {
	return Policy{Mode: ModeLinear, Initial: 100 * time.Millisecond, Max: 2 * time.Second, MaxRetries: 3}
}

// NewPolicy builds a policy; zero or unknown values fall back to defaults.
func NewPolicy(mode Mode, initial, maxDelay time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDelay > 0 {
		p.Max = maxDelay
	}
	switch mode {
	case ModeFixed, ModeLinear, ModeExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the wait before retry n (1-based).
func (p Policy) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case ModeFixed:
		return p.Initial
	case ModeExponential:
		d = p.Initial << (n - 1)
		if d <= 0 { // overflow
			return p.Max
		}
	default:
		d = time.Duration(n) * p.Initial
	}
	return min(d, p.Max)
}

// Validate reports policies that cannot be applied.
func (p Policy) Validate() error {
	switch {
	case p.Initial <= 0:
		return ferrors.ValidationError("retry initial delay must be positive").Build()
	case p.Max <= 0:
		return ferrors.ValidationError("retry max delay must be positive").Build()
	case p.MaxRetries < 0:
		return ferrors.ValidationError("retry count cannot be negative").Build()
	}
	return nil
}

// Do calls fn until it succeeds, the retries are spent, or ctx ends. It
// returns the last error from fn, or ctx's error when interrupted.
func (p Policy) Do(ctx context.Context, clock clockwork.Clock, fn func() error) error {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	err := fn()
	for n := 1; err != nil && n <= p.MaxRetries; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(p.Delay(n)):
		}
		err = fn()
	}
	return err
}
