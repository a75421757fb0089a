package realtime

import (
	"sync"
	"time"

	"steel-copilot-be/internal/pkg/logger"
)

// ReplyFunc synthesizes the simulated inbound reply for an outbound message.
// ok=false means the channel gets no reply.
type ReplyFunc func(channel string, payload interface{}) (reply interface{}, ok bool)

// SimBackend stands in for the realtime server when none is reachable.
// Establishment takes a fixed delay, and outbound chat messages trigger a
// delayed synthesized reply delivered back through the connection.
type SimBackend struct {
	scheduler    Scheduler
	connectDelay time.Duration
	replyDelay   time.Duration
	reply        ReplyFunc
	logger       logger.ILogger

	mu      sync.Mutex
	deliver func(channel string, payload interface{})
}

func NewSimBackend(
	scheduler Scheduler,
	connectDelay, replyDelay time.Duration,
	reply ReplyFunc,
	log logger.ILogger,
) *SimBackend {
	return &SimBackend{
		scheduler:    scheduler,
		connectDelay: connectDelay,
		replyDelay:   replyDelay,
		reply:        reply,
		logger:       log,
	}
}

// Attach points inbound deliveries at the connection's router.
func (b *SimBackend) Attach(c *Conn) {
	b.mu.Lock()
	b.deliver = c.Deliver
	b.mu.Unlock()
}

// Dial simulates connection establishment with a fixed delay.
func (b *SimBackend) Dial() error {
	done := make(chan struct{})
	b.scheduler.After(b.connectDelay, func() { close(done) })
	<-done
	return nil
}

// Send logs the outbound message and, for channels the reply func covers,
// schedules a simulated inbound reply.
func (b *SimBackend) Send(channel string, payload interface{}) error {
	b.logger.Info("SimBackend", "Message sent to channel", map[string]interface{}{"channel": channel})

	if b.reply == nil {
		return nil
	}
	reply, ok := b.reply(channel, payload)
	if !ok {
		return nil
	}

	b.scheduler.After(b.replyDelay, func() {
		b.mu.Lock()
		deliver := b.deliver
		b.mu.Unlock()
		if deliver != nil {
			deliver(channel, reply)
		}
	})
	return nil
}
