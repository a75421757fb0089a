package realtime

import (
	"errors"
	"sync"
	"testing"

	"steel-copilot-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

type sentRecord struct {
	channel string
	payload interface{}
}

// fakeBackend fails the first `failures` dials, then succeeds.
type fakeBackend struct {
	mu       sync.Mutex
	failures int
	dials    int
	sent     []sentRecord
}

func (b *fakeBackend) Dial() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dials++
	if b.dials <= b.failures {
		return errors.New("dial refused")
	}
	return nil
}

func (b *fakeBackend) Send(channel string, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sentRecord{channel: channel, payload: payload})
	return nil
}

func newTestConn(backend *fakeBackend, maxAttempts int) *Conn {
	return NewConn(
		backend,
		backend,
		NewRouter(logger.NewNopLogger()),
		ImmediateScheduler{},
		maxAttempts,
		0,
		logger.NewNopLogger(),
	)
}

func TestConnectFlushesQueueInOrder(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestConn(backend, 5)

	c.SendMessage("chat", "one")
	c.SendMessage("chat", "two")
	c.SendMessage("notifications", "three")
	assert.Equal(t, 3, c.QueuedCount())
	assert.Empty(t, backend.sent)

	c.Connect()

	assert.Equal(t, StateConnected, c.State())
	assert.Equal(t, 0, c.QueuedCount())
	assert.Equal(t, []sentRecord{
		{channel: "chat", payload: "one"},
		{channel: "chat", payload: "two"},
		{channel: "notifications", payload: "three"},
	}, backend.sent)
}

func TestConnectIsIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestConn(backend, 5)

	c.Connect()
	c.Connect()

	assert.Equal(t, 1, backend.dials)
	assert.Equal(t, StateConnected, c.State())
}

func TestSendImmediateWhenConnected(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestConn(backend, 5)
	c.Connect()

	c.SendMessage("chat", "direct")

	assert.Equal(t, 0, c.QueuedCount())
	assert.Equal(t, []sentRecord{{channel: "chat", payload: "direct"}}, backend.sent)
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	backend := &fakeBackend{failures: 100}
	c := newTestConn(backend, 5)

	c.Connect()

	assert.Equal(t, StateGivenUp, c.State())
	// Initial dial plus five retries.
	assert.Equal(t, 6, backend.dials)

	// Messages sent after giving up fail fast instead of queueing forever.
	var failed []sentRecord
	c.OnSendFailure(func(channel string, payload interface{}) {
		failed = append(failed, sentRecord{channel: channel, payload: payload})
	})
	c.SendMessage("chat", "late")
	assert.Equal(t, 0, c.QueuedCount())
	assert.Equal(t, []sentRecord{{channel: "chat", payload: "late"}}, failed)
}

func TestGiveUpDrainsQueueToFailureHandlers(t *testing.T) {
	backend := &fakeBackend{failures: 100}
	c := newTestConn(backend, 2)

	var failed []sentRecord
	dispose := c.OnSendFailure(func(channel string, payload interface{}) {
		failed = append(failed, sentRecord{channel: channel, payload: payload})
	})

	c.SendMessage("chat", "one")
	c.SendMessage("notifications", "two")
	assert.Equal(t, 2, c.QueuedCount())

	c.Connect()

	// The queue drains into the failure handlers, strictly FIFO.
	assert.Equal(t, StateGivenUp, c.State())
	assert.Equal(t, 0, c.QueuedCount())
	assert.Equal(t, []sentRecord{
		{channel: "chat", payload: "one"},
		{channel: "notifications", payload: "two"},
	}, failed)

	dispose()
	c.SendMessage("chat", "after dispose")
	assert.Len(t, failed, 2)
}

func TestRecoversWithinAttemptBudget(t *testing.T) {
	backend := &fakeBackend{failures: 2}
	c := newTestConn(backend, 5)

	c.SendMessage("chat", "queued")
	c.Connect()

	assert.Equal(t, StateConnected, c.State())
	assert.Equal(t, 3, backend.dials)
	assert.Equal(t, []sentRecord{{channel: "chat", payload: "queued"}}, backend.sent)
}

func TestOnConnectFiresImmediatelyWhenAlreadyConnected(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestConn(backend, 5)
	c.Connect()

	calls := 0
	c.OnConnect(func() { calls++ })

	assert.Equal(t, 1, calls)
}

func TestOnConnectFiresOncePerConnection(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestConn(backend, 5)

	calls := 0
	dispose := c.OnConnect(func() { calls++ })

	c.Connect()
	assert.Equal(t, 1, calls)

	c.ConnectionLost(errors.New("link dropped"))
	assert.Equal(t, StateConnected, c.State())
	assert.Equal(t, 2, calls)

	dispose()
	c.ConnectionLost(errors.New("link dropped again"))
	assert.Equal(t, 2, calls)
}

func TestConnectionLostRunsDisconnectCallbacks(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestConn(backend, 5)
	c.Connect()

	disconnects := 0
	c.OnDisconnect(func() { disconnects++ })

	c.ConnectionLost(errors.New("link dropped"))

	assert.Equal(t, 1, disconnects)
	// The bounded reconnect brought the link back up.
	assert.Equal(t, StateConnected, c.State())
}

func TestDisconnectSkipsCallbacksWhenNotConnected(t *testing.T) {
	backend := &fakeBackend{failures: 100}
	c := newTestConn(backend, 0)

	disconnects := 0
	c.OnDisconnect(func() { disconnects++ })

	c.Connect()
	assert.Equal(t, StateGivenUp, c.State())

	c.Disconnect()
	assert.Equal(t, 0, disconnects)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestDeliverReachesSubscribers(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestConn(backend, 5)

	var got []interface{}
	c.OnMessage("chat", func(payload interface{}) { got = append(got, payload) })

	c.Deliver("chat", "inbound")

	assert.Equal(t, []interface{}{"inbound"}, got)
}
