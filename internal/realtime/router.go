package realtime

import (
	"sync"

	"steel-copilot-be/internal/pkg/logger"
)

// MessageHandler consumes one inbound payload for a channel.
type MessageHandler func(payload interface{})

type subscriber struct {
	id int
	fn MessageHandler
}

// Router fans inbound events out to every callback registered for a channel
// name. Delivery is synchronous and in registration order; a panicking
// subscriber never blocks delivery to the rest.
type Router struct {
	mu       sync.RWMutex
	channels map[string][]subscriber
	nextId   int
	logger   logger.ILogger
}

func NewRouter(log logger.ILogger) *Router {
	return &Router{
		channels: make(map[string][]subscriber),
		logger:   log,
	}
}

// Subscribe registers a callback for a channel and returns its disposer.
// The disposer is idempotent and safe to call while a publish is running.
func (r *Router) Subscribe(channel string, fn MessageHandler) func() {
	r.mu.Lock()
	id := r.nextId
	r.nextId++
	r.channels[channel] = append(r.channels[channel], subscriber{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			subs := r.channels[channel]
			for i, s := range subs {
				if s.id == id {
					r.channels[channel] = append(append([]subscriber{}, subs[:i]...), subs[i+1:]...)
					break
				}
			}
			if len(r.channels[channel]) == 0 {
				delete(r.channels, channel)
			}
			r.mu.Unlock()
		})
	}
}

// Publish delivers payload to every subscriber currently registered for the
// channel. Iteration runs over a snapshot, so subscribing or disposing from
// inside a callback does not disturb this delivery round.
func (r *Router) Publish(channel string, payload interface{}) {
	r.mu.RLock()
	subs := make([]subscriber, len(r.channels[channel]))
	copy(subs, r.channels[channel])
	r.mu.RUnlock()

	for _, s := range subs {
		r.deliver(channel, s, payload)
	}
}

func (r *Router) deliver(channel string, s subscriber, payload interface{}) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Router", "Subscriber panicked", map[string]interface{}{
				"channel": channel,
				"panic":   rec,
			})
		}
	}()
	s.fn(payload)
}

// SubscriberCount reports how many callbacks a channel currently has.
func (r *Router) SubscriberCount(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[channel])
}
