package session

import (
	"context"
	"encoding/json"

	"steel-copilot-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	TopicSessionInvalidated = "session.invalidated"
	TopicSessionExpired     = "session.expired"
)

// InvalidationNotice announces that a session lost single-session
// enforcement: another login for the same identity took over.
type InvalidationNotice struct {
	UserId    string `json:"user_id"`
	SessionId string `json:"session_id"`
}

// ExpiryNotice announces that a session passed its expiry timestamp.
type ExpiryNotice struct {
	UserId  string `json:"user_id"`
	Message string `json:"message"`
}

// Broadcaster is the same-origin cross-context announcement bus. Every open
// view subscribes so it can self-logout when its session is named.
type Broadcaster struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewBroadcaster(pubSub *gochannel.GoChannel, log logger.ILogger) *Broadcaster {
	return &Broadcaster{pubSub: pubSub, logger: log}
}

func (b *Broadcaster) AnnounceInvalidated(ctx context.Context, notice InvalidationNotice) error {
	return b.publish(TopicSessionInvalidated, notice)
}

func (b *Broadcaster) AnnounceExpired(ctx context.Context, notice ExpiryNotice) error {
	return b.publish(TopicSessionExpired, notice)
}

func (b *Broadcaster) publish(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.pubSub.Publish(topic, message.NewMessage(watermill.NewUUID(), data))
}

// OnInvalidated delivers every invalidation notice to fn until ctx is done.
func (b *Broadcaster) OnInvalidated(ctx context.Context, fn func(InvalidationNotice)) error {
	messages, err := b.pubSub.Subscribe(ctx, TopicSessionInvalidated)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var notice InvalidationNotice
			if err := json.Unmarshal(msg.Payload, &notice); err != nil {
				b.logger.Warn("Session", "Invalid invalidation payload", map[string]interface{}{"error": err.Error()})
				msg.Ack()
				continue
			}
			fn(notice)
			msg.Ack()
		}
	}()

	return nil
}

// OnExpired delivers every expiry notice to fn until ctx is done.
func (b *Broadcaster) OnExpired(ctx context.Context, fn func(ExpiryNotice)) error {
	messages, err := b.pubSub.Subscribe(ctx, TopicSessionExpired)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var notice ExpiryNotice
			if err := json.Unmarshal(msg.Payload, &notice); err != nil {
				b.logger.Warn("Session", "Invalid expiry payload", map[string]interface{}{"error": err.Error()})
				msg.Ack()
				continue
			}
			fn(notice)
			msg.Ack()
		}
	}()

	return nil
}
