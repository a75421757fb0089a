package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"steel-copilot-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const changeChannel = "storage_changes"

// RedisStore persists client state in Redis and fans change events out over
// pub/sub so every instance observes mutations. Keys are namespaced per
// context id so multiple logical "tabs" can share one Redis.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
	logger    logger.ILogger

	mu       sync.Mutex
	watchers map[int]func(ChangeEvent)
	nextId   int

	cancel context.CancelFunc
}

func NewRedisStore(rdb *redis.Client, namespace string, log logger.ILogger) *RedisStore {
	s := &RedisStore{
		rdb:       rdb,
		namespace: namespace,
		logger:    log,
		watchers:  make(map[int]func(ChangeEvent)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.subscribeChanges(ctx)

	return s
}

func (s *RedisStore) key(k string) string {
	return s.namespace + ":" + k
}

func (s *RedisStore) Get(key string) (string, bool) {
	val, err := s.rdb.Get(context.Background(), s.key(key)).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *RedisStore) Set(key, value string) {
	s.SetWithTTL(key, value, 0)
}

func (s *RedisStore) SetWithTTL(key, value string, ttl time.Duration) {
	ctx := context.Background()
	old, _ := s.Get(key)
	if err := s.rdb.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		s.logger.Error("Storage", "Redis set failed", map[string]interface{}{"key": key, "error": err.Error()})
		return
	}
	s.publish(ctx, ChangeEvent{Key: key, OldValue: old, NewValue: value})
}

func (s *RedisStore) Delete(key string) {
	ctx := context.Background()
	old, found := s.Get(key)
	if !found {
		return
	}
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		s.logger.Error("Storage", "Redis delete failed", map[string]interface{}{"key": key, "error": err.Error()})
		return
	}
	s.publish(ctx, ChangeEvent{Key: key, OldValue: old})
}

func (s *RedisStore) Watch(fn func(ChangeEvent)) func() {
	s.mu.Lock()
	id := s.nextId
	s.nextId++
	s.watchers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// Close stops the change subscriber.
func (s *RedisStore) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *RedisStore) publish(ctx context.Context, ev ChangeEvent) {
	payload, _ := json.Marshal(ev)
	if err := s.rdb.Publish(ctx, changeChannel, payload).Err(); err != nil {
		s.logger.Warn("Storage", "Failed to publish change event", map[string]interface{}{"key": ev.Key, "error": err.Error()})
	}
}

func (s *RedisStore) subscribeChanges(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, changeChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.logger.Warn("Storage", "Change event parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			s.mu.Lock()
			fns := make([]func(ChangeEvent), 0, len(s.watchers))
			for _, fn := range s.watchers {
				fns = append(fns, fn)
			}
			s.mu.Unlock()
			for _, fn := range fns {
				fn(ev)
			}
		}
	}
}
