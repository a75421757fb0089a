package service

import (
	"time"

	"steel-copilot-be/internal/constant"
	"steel-copilot-be/internal/entity"
	"steel-copilot-be/internal/realtime"

	"github.com/google/uuid"
)

// MockResponder synthesizes assistant answers from canned module fixtures.
// It backs the chat channel when no real copilot backend is reachable.
type MockResponder struct{}

func NewMockResponder() *MockResponder {
	return &MockResponder{}
}

// Greeting builds the opening assistant message for a new session scope.
func (r *MockResponder) Greeting(scope entity.ScopeContext) entity.ChatMessage {
	text := constant.DefaultGreeting
	switch {
	case scope.AgentId > 0:
		text = constant.AgentGreeting(scope.AgentId)
	case scope.Module != "":
		text = constant.ModuleGreeting(scope.Module)
	}
	return entity.ChatMessage{
		Id:        uuid.New(),
		Author:    constant.ChatMessageRoleAssistant,
		Text:      text,
		Timestamp: time.Now(),
		Payload:   &entity.MessagePayload{ResponseKind: constant.ResponseKindGreeting},
	}
}

// Answer builds the canned reply for a user question within the given scope.
// Module scopes get their table plus summary; everything else gets the
// generic answer.
func (r *MockResponder) Answer(scope entity.ScopeContext, _ string) entity.ChatMessage {
	text := constant.DefaultAnswer
	var payload *entity.MessagePayload

	if scope.Module != "" {
		if summary, ok := constant.ModuleSummaries[scope.Module]; ok {
			table := constant.ModuleTables[scope.Module]
			text = table + "\n\n" + summary
			payload = &entity.MessagePayload{
				ResponseKind:       constant.ResponseKindText,
				TableData:          table,
				Summary:            summary,
				SuggestedQuestions: constant.ModuleSuggestedQuestions[scope.Module],
			}
		}
	}
	if payload == nil {
		payload = &entity.MessagePayload{ResponseKind: constant.ResponseKindText}
	}

	return entity.ChatMessage{
		Id:        uuid.New(),
		Author:    constant.ChatMessageRoleAssistant,
		Text:      text,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// ReplyFunc adapts the responder for the simulated realtime backend: chat
// channel messages get an answer scoped by the outbound payload.
func (r *MockResponder) ReplyFunc() realtime.ReplyFunc {
	return func(channel string, payload interface{}) (interface{}, bool) {
		if channel != constant.ChannelChat {
			return nil, false
		}
		out, ok := payload.(OutboundChat)
		if !ok {
			return nil, false
		}
		msg := r.Answer(out.Scope, out.Text)
		return InboundChat{SessionId: out.SessionId, Message: msg}, true
	}
}

// OutboundChat is the payload sent over the chat channel for a user turn.
type OutboundChat struct {
	SessionId uuid.UUID           `json:"session_id"`
	Scope     entity.ScopeContext `json:"scope"`
	Text      string              `json:"text"`
}

// InboundChat is the payload delivered back on the chat channel.
type InboundChat struct {
	SessionId uuid.UUID          `json:"session_id"`
	Message   entity.ChatMessage `json:"message"`
}
