package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/shelfkeeper/internal/events"
	"git.home.luguber.info/inful/shelfkeeper/internal/location"
	"git.home.luguber.info/inful/shelfkeeper/internal/metrics"
)

type message struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
	sent chan struct{}
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{sent: make(chan struct{}, 16)}
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, message{subject: subject, data: append([]byte(nil), data...)})
	p.sent <- struct{}{}
	return nil
}

func (p *fakePublisher) messages() []message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]message(nil), p.msgs...)
}

func TestPublish_Envelope(t *testing.T) {
	pub := newFakePublisher()
	r := New(pub, "")

	require.NoError(t, r.Publish(events.ContainerUpdated{Location: location.New("w", 1, 2, 3)}))

	msgs := pub.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "shelfkeeper.events.container-updated", msgs[0].subject)
	assert.JSONEq(t, `{"type":"container-updated","data":{"world":"w","x":1,"y":2,"z":3}}`, string(msgs[0].data))
}

func TestPublish_OwnerStatus(t *testing.T) {
	pub := newFakePublisher()
	r := New(pub, "mc")
	id := uuid.MustParse("8667ba71-b85a-4004-af54-457a9734eed7")

	require.NoError(t, r.Publish(events.OwnerStatusUpdated{OwnerID: id, OwnerName: "Steve", Online: true}))

	msgs := pub.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "mc.owner-status-updated", msgs[0].subject)
	assert.JSONEq(t,
		`{"type":"owner-status-updated","data":{"uuid":"8667ba71-b85a-4004-af54-457a9734eed7","name":"Steve","online":true}}`,
		string(msgs[0].data))
}

func TestPublish_FailureIsCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	pub := newFakePublisher()
	pub.err = errors.New("no responders")
	r := New(pub, "", WithRecorder(rec))

	err := r.Publish(events.ContainerAdded{Location: location.New("w", 0, 0, 0)})
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "shelfkeeper_events_relayed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRun_ForwardsBusEvents(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	pub := newFakePublisher()
	r := New(pub, "")

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, bus)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return events.SubscriberCount[events.Wire](bus) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Publish(t.Context(), events.ContainerRemoved{Location: location.New("w", 4, 5, 6)}))

	select {
	case <-pub.sent:
	case <-time.After(time.Second):
		t.Fatal("event was not relayed")
	}
	assert.Equal(t, "shelfkeeper.events.container-removed", pub.messages()[0].subject)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
