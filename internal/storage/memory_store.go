package storage

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps values in a go-cache instance. TTLs drive credential
// expiry the same way the browser relies on the stored expiry timestamp.
type MemoryStore struct {
	cache *cache.Cache

	mu       sync.Mutex
	watchers map[int]func(ChangeEvent)
	nextId   int
}

func NewMemoryStore() *MemoryStore {
	// No default expiration; purge whatever does expire every 10 minutes.
	c := cache.New(cache.NoExpiration, 10*time.Minute)
	return &MemoryStore{
		cache:    c,
		watchers: make(map[int]func(ChangeEvent)),
	}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	if x, found := s.cache.Get(key); found {
		return x.(string), true
	}
	return "", false
}

func (s *MemoryStore) Set(key, value string) {
	s.SetWithTTL(key, value, cache.NoExpiration)
}

func (s *MemoryStore) SetWithTTL(key, value string, ttl time.Duration) {
	old, _ := s.Get(key)
	s.cache.Set(key, value, ttl)
	s.notify(ChangeEvent{Key: key, OldValue: old, NewValue: value})
}

func (s *MemoryStore) Delete(key string) {
	old, found := s.Get(key)
	if !found {
		return
	}
	s.cache.Delete(key)
	s.notify(ChangeEvent{Key: key, OldValue: old})
}

func (s *MemoryStore) Watch(fn func(ChangeEvent)) func() {
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

func (s *MemoryStore) notify(ev ChangeEvent) {
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
