package entity

import (
	"time"

	"github.com/google/uuid"
)

// ScopeContext binds a conversation session to a module OR an agent.
// Both fields absent means a global session; setting both is invalid.
type ScopeContext struct {
	Module  string
	AgentId int
}

// IsGlobal reports whether the scope names neither a module nor an agent.
func (s ScopeContext) IsGlobal() bool {
	return s.Module == "" && s.AgentId == 0
}

type ChatSession struct {
	Id          uuid.UUID
	UserId      string
	DisplayName string
	Scope       ScopeContext
	Messages    []ChatMessage
	CreatedAt   time.Time
}

// ChatMessage is immutable once appended to a session.
type ChatMessage struct {
	Id        uuid.UUID
	Author    string // constant.ChatMessageRoleUser or ...Assistant
	Text      string
	Timestamp time.Time

	// Optional structured payload, assistant messages only.
	Payload *MessagePayload
}

// MessagePayload carries the structured fields an assistant reply may have.
type MessagePayload struct {
	ResponseKind       string
	TableData          string
	Summary            string
	SuggestedQuestions []string
}
