// Package journal keeps an audit trail of completed container operations.
package journal

import (
	"context"
	"time"
)

// Outcome is the final state of an operation.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Entry is one completed operation.
type Entry struct {
	ID       int64
	Op       string
	Target   string
	Outcome  Outcome
	Reason   string
	Error    string
	Duration time.Duration
	At       time.Time
	Details  map[string]string
}

// Store persists entries.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	ByTarget(ctx context.Context, target string, limit int) ([]Entry, error)
	Close() error
}

// Discard is a Store that keeps nothing.
type Discard struct{}

func (Discard) Append(context.Context, Entry) error                    { return nil }
func (Discard) Recent(context.Context, int) ([]Entry, error)           { return nil, nil }
func (Discard) ByTarget(context.Context, string, int) ([]Entry, error) { return nil, nil }
func (Discard) Close() error                                           { return nil }
