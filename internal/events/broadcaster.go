package events

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/shelfkeeper/internal/logfields"
)

const defaultPublishTimeout = 2 * time.Second

// Broadcaster publishes push events on a bus without letting a slow
// subscriber stall the caller indefinitely. Failures are logged and dropped.
type Broadcaster struct {
	bus     *Bus
	timeout time.Duration
	logger  *slog.Logger
}

// NewBroadcaster wraps bus. A nil bus yields a broadcaster that drops everything.
func NewBroadcaster(bus *Bus, timeout time.Duration, logger *slog.Logger) *Broadcaster {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{bus: bus, timeout: timeout, logger: logger.With(logfields.Component("broadcaster"))}
}

// Broadcast publishes each event in order.
func (b *Broadcaster) Broadcast(ctx context.Context, evts ...Event) {
	if b == nil || b.bus == nil {
		return
	}
	for _, evt := range evts {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		err := b.bus.Publish(pubCtx, evt)
		cancel()
		if err != nil {
			b.logger.Warn("Dropped push event",
				logfields.Kind(evt.Kind()),
				logfields.Error(err))
		}
	}
}
