package realtime

import (
	"testing"

	"steel-copilot-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestRouterDeliversInRegistrationOrder(t *testing.T) {
	r := NewRouter(logger.NewNopLogger())

	var got []string
	r.Subscribe("chat", func(payload interface{}) { got = append(got, "first") })
	r.Subscribe("chat", func(payload interface{}) { got = append(got, "second") })
	r.Subscribe("chat", func(payload interface{}) { got = append(got, "third") })

	r.Publish("chat", "hello")

	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestRouterIsolatesChannels(t *testing.T) {
	r := NewRouter(logger.NewNopLogger())

	chatCount := 0
	notifCount := 0
	r.Subscribe("chat", func(payload interface{}) { chatCount++ })
	r.Subscribe("notifications", func(payload interface{}) { notifCount++ })

	r.Publish("chat", "a")
	r.Publish("chat", "b")

	assert.Equal(t, 2, chatCount)
	assert.Equal(t, 0, notifCount)
}

func TestRouterPanicDoesNotBlockOthers(t *testing.T) {
	r := NewRouter(logger.NewNopLogger())

	var got []string
	r.Subscribe("chat", func(payload interface{}) { got = append(got, "before") })
	r.Subscribe("chat", func(payload interface{}) { panic("boom") })
	r.Subscribe("chat", func(payload interface{}) { got = append(got, "after") })

	r.Publish("chat", "hello")

	assert.Equal(t, []string{"before", "after"}, got)
}

func TestRouterDisposerIsIdempotent(t *testing.T) {
	r := NewRouter(logger.NewNopLogger())

	count := 0
	dispose := r.Subscribe("chat", func(payload interface{}) { count++ })
	r.Subscribe("chat", func(payload interface{}) {})

	dispose()
	dispose()

	assert.Equal(t, 1, r.SubscriberCount("chat"))
	r.Publish("chat", "hello")
	assert.Equal(t, 0, count)
}

func TestRouterDisposeDuringPublish(t *testing.T) {
	r := NewRouter(logger.NewNopLogger())

	var dispose func()
	firstCalls := 0
	secondCalls := 0
	dispose = r.Subscribe("chat", func(payload interface{}) {
		firstCalls++
		dispose()
	})
	r.Subscribe("chat", func(payload interface{}) { secondCalls++ })

	r.Publish("chat", "one")
	r.Publish("chat", "two")

	assert.Equal(t, 1, firstCalls)
	assert.Equal(t, 2, secondCalls)
}

func TestRouterPublishWithoutSubscribers(t *testing.T) {
	r := NewRouter(logger.NewNopLogger())

	assert.NotPanics(t, func() { r.Publish("chat", "nobody home") })
	assert.Equal(t, 0, r.SubscriberCount("chat"))
}
