package realtime

import (
	"testing"

	"steel-copilot-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestSimBackendRoundTrip(t *testing.T) {
	reply := func(channel string, payload interface{}) (interface{}, bool) {
		if channel != "chat" {
			return nil, false
		}
		return "echo: " + payload.(string), true
	}
	backend := NewSimBackend(ImmediateScheduler{}, 0, 0, reply, logger.NewNopLogger())
	c := NewConn(backend, backend, NewRouter(logger.NewNopLogger()), ImmediateScheduler{}, 5, 0, logger.NewNopLogger())
	backend.Attach(c)

	var got []interface{}
	c.OnMessage("chat", func(payload interface{}) { got = append(got, payload) })

	c.Connect()
	assert.Equal(t, StateConnected, c.State())

	c.SendMessage("chat", "hello")
	assert.Equal(t, []interface{}{"echo: hello"}, got)
}

func TestSimBackendIgnoresUncoveredChannels(t *testing.T) {
	reply := func(channel string, payload interface{}) (interface{}, bool) {
		return nil, channel == "chat"
	}
	backend := NewSimBackend(ImmediateScheduler{}, 0, 0, reply, logger.NewNopLogger())
	c := NewConn(backend, backend, NewRouter(logger.NewNopLogger()), ImmediateScheduler{}, 5, 0, logger.NewNopLogger())
	backend.Attach(c)

	delivered := 0
	c.OnMessage("notifications", func(payload interface{}) { delivered++ })

	c.Connect()
	c.SendMessage("notifications", "status?")

	assert.Equal(t, 0, delivered)
}
