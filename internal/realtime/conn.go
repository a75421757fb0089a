package realtime

import (
	"sync"
	"time"

	"steel-copilot-be/internal/pkg/logger"
)

// ConnState is the lifecycle state of one logical realtime connection.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateGivenUp
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateGivenUp:
		return "given-up"
	}
	return "unknown"
}

// Dialer establishes the underlying link. Dial blocks until the link is up
// or failed; the Conn calls it off the caller's goroutine.
type Dialer interface {
	Dial() error
}

// Transport carries outbound messages once the link is up.
type Transport interface {
	Send(channel string, payload interface{}) error
}

type queuedMessage struct {
	channel string
	payload interface{}
}

type connCallback struct {
	id int
	fn func()
}

// SendFailureHandler receives messages the connection can no longer deliver:
// the queue drained on the transition to given-up, and sends attempted after
// it.
type SendFailureHandler func(channel string, payload interface{})

type failureCallback struct {
	id int
	fn SendFailureHandler
}

// Conn owns the lifecycle of one logical realtime connection: connect,
// disconnect, queue-while-disconnected, and bounded reconnect. Inbound
// messages are fanned out through the attached Router.
type Conn struct {
	router    *Router
	dialer    Dialer
	transport Transport
	scheduler Scheduler
	logger    logger.ILogger

	maxReconnectAttempts int
	reconnectBaseDelay   time.Duration

	mu                sync.Mutex
	state             ConnState
	queue             []queuedMessage
	connectCbs        []connCallback
	disconnectCbs     []connCallback
	failureCbs        []failureCallback
	nextCbId          int
	reconnectAttempts int
	cancelDial        func()
	cancelReconnect   func()
}

func NewConn(
	dialer Dialer,
	transport Transport,
	router *Router,
	scheduler Scheduler,
	maxReconnectAttempts int,
	reconnectBaseDelay time.Duration,
	log logger.ILogger,
) *Conn {
	return &Conn{
		router:               router,
		dialer:               dialer,
		transport:            transport,
		scheduler:            scheduler,
		logger:               log,
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectBaseDelay:   reconnectBaseDelay,
		state:                StateDisconnected,
	}
}

// Router exposes the channel router backing this connection.
func (c *Conn) Router() *Router {
	return c.router
}

// State returns the current lifecycle state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected is a pure query of the current state.
func (c *Conn) IsConnected() bool {
	return c.State() == StateConnected
}

// Connect starts connection establishment. Idempotent while already
// connecting or connected. Establishment is asynchronous; OnConnect
// callbacks observe completion.
func (c *Conn) Connect() {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		c.logger.Info("Conn", "Already connected", nil)
		return
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.startDial()
}

func (c *Conn) startDial() {
	// The scheduler may run the callback synchronously, so the lock must not
	// be held across After.
	cancel := c.scheduler.After(0, c.dial)
	c.mu.Lock()
	c.cancelDial = cancel
	c.mu.Unlock()
}

func (c *Conn) dial() {
	err := c.dialer.Dial()

	c.mu.Lock()
	if c.state != StateConnecting {
		// Disconnect() won the race; drop the result.
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.handleConnectFailure(err)
		return
	}

	c.state = StateConnected
	cbs := make([]connCallback, len(c.connectCbs))
	copy(cbs, c.connectCbs)
	pending := c.queue
	c.queue = nil
	c.mu.Unlock()

	c.logger.Info("Conn", "Connected", map[string]interface{}{"flushing": len(pending)})

	// Connection-success callbacks first, one invocation each.
	for _, cb := range cbs {
		cb.fn()
	}

	// Flush messages queued while disconnected, strictly FIFO.
	for _, m := range pending {
		if err := c.transport.Send(m.channel, m.payload); err != nil {
			c.logger.Warn("Conn", "Flush send failed", map[string]interface{}{
				"channel": m.channel, "error": err.Error(),
			})
		}
	}

	c.mu.Lock()
	c.reconnectAttempts = 0
	c.mu.Unlock()
}

func (c *Conn) handleConnectFailure(err error) {
	c.mu.Lock()
	c.state = StateDisconnected
	c.reconnectAttempts++
	attempt := c.reconnectAttempts

	if attempt > c.maxReconnectAttempts {
		c.state = StateGivenUp
		failed := c.queue
		c.queue = nil
		cbs := make([]failureCallback, len(c.failureCbs))
		copy(cbs, c.failureCbs)
		c.mu.Unlock()
		c.logger.Error("Conn", "Max reconnect attempts reached, giving up", map[string]interface{}{
			"attempts": attempt - 1,
			"dropped":  len(failed),
			"error":    err.Error(),
		})
		// Queued messages will never flush now; fail each back to its
		// sender, strictly FIFO.
		for _, m := range failed {
			for _, cb := range cbs {
				cb.fn(m.channel, m.payload)
			}
		}
		return
	}

	delay := time.Duration(attempt) * c.reconnectBaseDelay
	c.mu.Unlock()

	c.logger.Info("Conn", "Attempting to reconnect", map[string]interface{}{
		"attempt": attempt,
		"max":     c.maxReconnectAttempts,
		"delay":   delay.String(),
	})
	cancel := c.scheduler.After(delay, c.retryConnect)
	c.mu.Lock()
	c.cancelReconnect = cancel
	c.mu.Unlock()
}

func (c *Conn) retryConnect() {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.startDial()
}

// ConnectionLost signals that the established link dropped. Disconnect
// callbacks run, then a bounded reconnect starts.
func (c *Conn) ConnectionLost(err error) {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	cbs := make([]connCallback, len(c.disconnectCbs))
	copy(cbs, c.disconnectCbs)
	c.mu.Unlock()

	c.logger.Warn("Conn", "Connection lost", map[string]interface{}{"error": errString(err)})
	for _, cb := range cbs {
		cb.fn()
	}

	c.handleConnectFailure(err)
}

// Disconnect tears the connection down and cancels any pending reconnect.
// No-op when already disconnected.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	wasConnected := c.state == StateConnected
	c.state = StateDisconnected
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if c.cancelReconnect != nil {
		c.cancelReconnect()
		c.cancelReconnect = nil
	}
	cbs := make([]connCallback, len(c.disconnectCbs))
	copy(cbs, c.disconnectCbs)
	c.mu.Unlock()

	c.logger.Info("Conn", "Disconnected", nil)
	if wasConnected {
		for _, cb := range cbs {
			cb.fn()
		}
	}
}

// OnConnect registers a callback invoked once per successful connection
// event. When already connected at registration time it fires immediately,
// synchronously. Returns a disposer.
func (c *Conn) OnConnect(fn func()) func() {
	c.mu.Lock()
	id := c.nextCbId
	c.nextCbId++
	c.connectCbs = append(c.connectCbs, connCallback{id: id, fn: fn})
	connected := c.state == StateConnected
	c.mu.Unlock()

	if connected {
		fn()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.connectCbs = removeCallback(c.connectCbs, id)
			c.mu.Unlock()
		})
	}
}

// OnDisconnect registers a callback for connection-loss events.
func (c *Conn) OnDisconnect(fn func()) func() {
	c.mu.Lock()
	id := c.nextCbId
	c.nextCbId++
	c.disconnectCbs = append(c.disconnectCbs, connCallback{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.disconnectCbs = removeCallback(c.disconnectCbs, id)
			c.mu.Unlock()
		})
	}
}

// OnSendFailure registers a handler for messages the connection permanently
// failed to deliver. Returns a disposer.
func (c *Conn) OnSendFailure(fn SendFailureHandler) func() {
	c.mu.Lock()
	id := c.nextCbId
	c.nextCbId++
	c.failureCbs = append(c.failureCbs, failureCallback{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			for i, cb := range c.failureCbs {
				if cb.id == id {
					c.failureCbs = append(append([]failureCallback{}, c.failureCbs[:i]...), c.failureCbs[i+1:]...)
					break
				}
			}
			c.mu.Unlock()
		})
	}
}

// OnMessage registers a callback for inbound messages on a named channel.
func (c *Conn) OnMessage(channel string, fn MessageHandler) func() {
	return c.router.Subscribe(channel, fn)
}

// Deliver hands an inbound message to the router. Transports call this.
func (c *Conn) Deliver(channel string, payload interface{}) {
	c.router.Publish(channel, payload)
}

// SendMessage dispatches immediately when connected; otherwise the message
// joins a FIFO queue flushed on the next successful connect. Send is
// fire-and-forget and never returns an error to the caller; once the
// connection has given up, messages go to the failure handlers instead of
// the queue.
func (c *Conn) SendMessage(channel string, payload interface{}) {
	c.mu.Lock()
	if c.state == StateGivenUp {
		cbs := make([]failureCallback, len(c.failureCbs))
		copy(cbs, c.failureCbs)
		c.mu.Unlock()
		c.logger.Warn("Conn", "Send after give-up", map[string]interface{}{"channel": channel})
		for _, cb := range cbs {
			cb.fn(channel, payload)
		}
		return
	}
	if c.state != StateConnected {
		c.queue = append(c.queue, queuedMessage{channel: channel, payload: payload})
		queued := len(c.queue)
		c.mu.Unlock()
		c.logger.Info("Conn", "Queued message while disconnected", map[string]interface{}{
			"channel": channel, "queued": queued,
		})
		return
	}
	c.mu.Unlock()

	if err := c.transport.Send(channel, payload); err != nil {
		c.logger.Warn("Conn", "Send failed", map[string]interface{}{
			"channel": channel, "error": err.Error(),
		})
	}
}

// QueuedCount reports how many messages await the next connect.
func (c *Conn) QueuedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func removeCallback(cbs []connCallback, id int) []connCallback {
	for i, cb := range cbs {
		if cb.id == id {
			return append(append([]connCallback{}, cbs[:i]...), cbs[i+1:]...)
		}
	}
	return cbs
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
