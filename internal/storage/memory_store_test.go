package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStoreSetGetDelete(t *testing.T) {
	s := NewMemoryStore()

	_, found := s.Get(KeyAuthToken)
	assert.False(t, found)

	s.Set(KeyAuthToken, "token-1")
	val, found := s.Get(KeyAuthToken)
	assert.True(t, found)
	assert.Equal(t, "token-1", val)

	s.Delete(KeyAuthToken)
	_, found = s.Get(KeyAuthToken)
	assert.False(t, found)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryStore()

	s.SetWithTTL(KeyAuthToken, "token-1", 10*time.Millisecond)
	_, found := s.Get(KeyAuthToken)
	assert.True(t, found)

	time.Sleep(30 * time.Millisecond)
	_, found = s.Get(KeyAuthToken)
	assert.False(t, found)
}

func TestMemoryStoreWatchObservesMutations(t *testing.T) {
	s := NewMemoryStore()

	var events []ChangeEvent
	s.Watch(func(ev ChangeEvent) { events = append(events, ev) })

	s.Set(KeyAuthToken, "token-1")
	s.Set(KeyAuthToken, "token-2")
	s.Delete(KeyAuthToken)

	assert.Equal(t, []ChangeEvent{
		{Key: KeyAuthToken, OldValue: "", NewValue: "token-1"},
		{Key: KeyAuthToken, OldValue: "token-1", NewValue: "token-2"},
		{Key: KeyAuthToken, OldValue: "token-2", NewValue: ""},
	}, events)
}

func TestMemoryStoreDeleteMissingIsSilent(t *testing.T) {
	s := NewMemoryStore()

	calls := 0
	s.Watch(func(ChangeEvent) { calls++ })

	s.Delete("never-set")
	assert.Equal(t, 0, calls)
}

func TestMemoryStoreWatchDisposer(t *testing.T) {
	s := NewMemoryStore()

	calls := 0
	dispose := s.Watch(func(ChangeEvent) { calls++ })

	s.Set(KeySessionId, "sess-a")
	dispose()
	dispose()
	s.Set(KeySessionId, "sess-b")

	assert.Equal(t, 1, calls)
}

func TestAgentSelectionKey(t *testing.T) {
	assert.Equal(t, "user-usr-1-selected-agents", AgentSelectionKey("usr-1"))
}
