package storage

import (
	"testing"
	"time"

	"steel-copilot-be/internal/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, namespace string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(rdb, namespace, logger.NewNopLogger())
	t.Cleanup(s.Close)
	return s, mr
}

func TestRedisStoreSetGetDelete(t *testing.T) {
	s, _ := newRedisStore(t, "copilot")

	s.Set(KeyAuthToken, "token-1")
	val, found := s.Get(KeyAuthToken)
	assert.True(t, found)
	assert.Equal(t, "token-1", val)

	s.Delete(KeyAuthToken)
	_, found = s.Get(KeyAuthToken)
	assert.False(t, found)
}

func TestRedisStoreNamespacesAreIsolated(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	first := NewRedisStore(rdb, "ctx-a", logger.NewNopLogger())
	second := NewRedisStore(rdb, "ctx-b", logger.NewNopLogger())
	t.Cleanup(first.Close)
	t.Cleanup(second.Close)

	first.Set(KeySessionId, "sess-a")

	_, found := second.Get(KeySessionId)
	assert.False(t, found)
}

func TestRedisStoreTTL(t *testing.T) {
	s, mr := newRedisStore(t, "copilot")

	s.SetWithTTL(KeyAuthToken, "token-1", time.Minute)
	_, found := s.Get(KeyAuthToken)
	require.True(t, found)

	mr.FastForward(2 * time.Minute)
	_, found = s.Get(KeyAuthToken)
	assert.False(t, found)
}

func TestRedisStoreWatchSeesChanges(t *testing.T) {
	s, _ := newRedisStore(t, "copilot")

	events := make(chan ChangeEvent, 4)
	s.Watch(func(ev ChangeEvent) { events <- ev })

	// The pub/sub subscriber needs a moment to be registered.
	time.Sleep(50 * time.Millisecond)
	s.Set(KeyAuthToken, "token-1")

	select {
	case ev := <-events:
		assert.Equal(t, KeyAuthToken, ev.Key)
		assert.Equal(t, "token-1", ev.NewValue)
	case <-time.After(2 * time.Second):
		t.Fatal("change event never arrived")
	}
}
