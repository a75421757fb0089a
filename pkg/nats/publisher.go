package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"steel-copilot-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// streamName holds the session audit trail: logins, logouts,
	// evictions and expiries.
	streamName    = "SESSIONS"
	subjectPrefix = "sessions."

	// streamMaxAge matches the session validity window; an audit record
	// for a session that can no longer exist has no consumer.
	streamMaxAge = 7 * 24 * time.Hour
)

// subjectFor maps an event type code to its stream subject.
func subjectFor(eventType string) string {
	return subjectPrefix + eventType
}

// eventTypeFor recovers the type code from a stream subject.
func eventTypeFor(subject string) string {
	if len(subject) > len(subjectPrefix) && subject[:len(subjectPrefix)] == subjectPrefix {
		return subject[len(subjectPrefix):]
	}
	return subject
}

// envelope is the wire shape of one session event.
type envelope struct {
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

// Publisher sends session-lifecycle events to the NATS bus.
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewPublisher connects and ensures the session stream exists.
func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Limits retention rather than a work queue: the audit consumer and any
	// future readers each get their own cursor over the same records.
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectPrefix + ">"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    streamMaxAge,
	})
	if err != nil {
		log.Printf("Warn: Failed to ensure stream %q: %v", streamName, err)
		// Don't fail hard here, maybe it already exists or NATS isn't ready
	}

	return &Publisher{nc: nc, js: js}, nil
}

// Publish sends one session event.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(envelope{
		OccurredAt: event.Timestamp(),
		Data:       event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	subject := subjectFor(event.EventType())

	_, err = p.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}

	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
