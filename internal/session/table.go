package session

import "sync"

// ActiveTable is the process-wide registry of which session id currently owns
// each user identity. Mutation is last-writer-wins: the most recent login
// always evicts the prior session. Injected where needed instead of living as
// package state so tests can build isolated instances.
type ActiveTable struct {
	mu       sync.RWMutex
	sessions map[string]string // userId -> sessionId
}

func NewActiveTable() *ActiveTable {
	return &ActiveTable{sessions: make(map[string]string)}
}

// Register installs sessionId as the single active session for userId and
// returns the evicted prior session id, if any.
func (t *ActiveTable) Register(userId, sessionId string) (prior string, evicted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prior, evicted = t.sessions[userId]
	t.sessions[userId] = sessionId
	return prior, evicted
}

// Get returns the active session id for userId.
func (t *ActiveTable) Get(userId string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sessionId, ok := t.sessions[userId]
	return sessionId, ok
}

// IsActive reports whether sessionId is still the one registered for userId.
func (t *ActiveTable) IsActive(userId, sessionId string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sessionId != "" && t.sessions[userId] == sessionId
}

// Remove drops the registration for userId. Safe to call when absent.
func (t *ActiveTable) Remove(userId string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, userId)
}
