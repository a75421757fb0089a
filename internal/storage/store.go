package storage

import "time"

// Well-known keys, mirroring what the web client persists per origin.
const (
	KeyAuthToken     = "auth-token"
	KeyCurrentUser   = "current-user"
	KeySessionExpiry = "session-expiry"
	KeySessionId     = "session-id"
	KeySessionUserId = "session-user-id"
)

// ChangeEvent describes a single mutation of the store. NewValue is empty
// when the key was deleted, matching the browser storage-event contract.
type ChangeEvent struct {
	Key      string
	OldValue string
	NewValue string
}

// Store is durable client storage scoped to one origin. Every mutation is
// fanned out to registered watchers so other contexts on the same origin can
// observe token clears and session handoffs.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	SetWithTTL(key, value string, ttl time.Duration)
	Delete(key string)

	// Watch registers a change observer and returns its disposer.
	Watch(fn func(ChangeEvent)) func()
}

// AgentSelectionKey builds the per-user key holding the saved agent list.
func AgentSelectionKey(userId string) string {
	return "user-" + userId + "-selected-agents"
}
