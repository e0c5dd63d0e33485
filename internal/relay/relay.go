// Package relay forwards push events from the in-process bus to NATS so that
// transport collaborators in other processes can fan them out to clients.
//
// Each event is published on "<prefix>.<kind>" as a JSON envelope:
//
//	{"type":"container-updated","data":{"world":"w","x":1,"y":2,"z":3}}
package relay

import (
	"context"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/shelfkeeper/internal/events"
	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/shelfkeeper/internal/logfields"
	"git.home.luguber.info/inful/shelfkeeper/internal/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "shelfkeeper.events"

const subscriptionBuffer = 64

// Publisher is the subset of *nats.Conn the relay needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Envelope is the wire form of one event.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Relay publishes bus events to NATS.
type Relay struct {
	pub      Publisher
	conn     *nats.Conn
	prefix   string
	recorder metrics.Recorder
	logger   *slog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

func WithRecorder(r metrics.Recorder) Option { return func(rl *Relay) { rl.recorder = r } }

func WithLogger(l *slog.Logger) Option { return func(rl *Relay) { rl.logger = l } }

// New returns a relay publishing through pub.
func New(pub Publisher, prefix string, opts ...Option) *Relay {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	r := &Relay{
		pub:      pub,
		prefix:   prefix,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.recorder = metrics.OrNoop(r.recorder)
	r.logger = r.logger.With(logfields.Component("relay"))
	return r
}

// Connect dials url and returns a relay that owns the connection.
func Connect(url, prefix string, opts ...Option) (*Relay, error) {
	conn, err := nats.Connect(url,
		nats.Name("shelfkeeper"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "connect to NATS").
			WithContext("url", url).
			Retryable().
			Build()
	}
	r := New(conn, prefix, opts...)
	r.conn = conn
	r.logger.Info("NATS relay connected", slog.String("url", url), slog.String("prefix", r.prefix))
	return r, nil
}

// Subject returns the subject for events of kind.
func (r *Relay) Subject(kind string) string {
	return r.prefix + "." + kind
}

// Publish sends evt.
func (r *Relay) Publish(evt events.Wire) error {
	data, err := json.Marshal(Envelope{Type: evt.Kind(), Data: evt.Payload()})
	if err != nil {
		r.recorder.IncEventRelayed(evt.Kind(), false)
		return ferrors.WrapError(err, ferrors.CategoryInternal, "marshal event").Build()
	}
	if err := r.pub.Publish(r.Subject(evt.Kind()), data); err != nil {
		r.recorder.IncEventRelayed(evt.Kind(), false)
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "publish event").
			WithContext("subject", r.Subject(evt.Kind())).
			Build()
	}
	r.recorder.IncEventRelayed(evt.Kind(), true)
	return nil
}

// Run forwards events from bus until ctx ends or the bus closes.
func (r *Relay) Run(ctx context.Context, bus *events.Bus) {
	ch, unsubscribe := events.Subscribe[events.Wire](bus, subscriptionBuffer)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := r.Publish(evt); err != nil {
				r.logger.Warn("Failed to relay event", logfields.Kind(evt.Kind()), logfields.Error(err))
			}
		}
	}
}

// Close flushes and closes the connection opened by Connect.
func (r *Relay) Close() {
	if r.conn == nil {
		return
	}
	if err := r.conn.FlushTimeout(2 * time.Second); err != nil {
		r.logger.Debug("NATS flush on close failed", logfields.Error(err))
	}
	r.conn.Close()
}
