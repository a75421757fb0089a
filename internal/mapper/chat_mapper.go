package mapper

import (
	"encoding/json"

	"steel-copilot-be/internal/entity"
	"steel-copilot-be/internal/model"

	"github.com/google/uuid"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}
	return &model.ChatSession{
		Id:          s.Id,
		UserId:      s.UserId,
		DisplayName: s.DisplayName,
		Module:      s.Scope.Module,
		AgentId:     s.Scope.AgentId,
		CreatedAt:   s.CreatedAt,
	}
}

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession, messages []*model.ChatMessage) *entity.ChatSession {
	if s == nil {
		return nil
	}

	msgs := make([]entity.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		msgs = append(msgs, *m.ChatMessageToEntity(msg))
	}

	return &entity.ChatSession{
		Id:          s.Id,
		UserId:      s.UserId,
		DisplayName: s.DisplayName,
		Scope:       entity.ScopeContext{Module: s.Module, AgentId: s.AgentId},
		Messages:    msgs,
		CreatedAt:   s.CreatedAt,
	}
}

// Message Mappers

type payloadDoc struct {
	ResponseKind       string   `json:"response_kind,omitempty"`
	TableData          string   `json:"table_data,omitempty"`
	Summary            string   `json:"summary,omitempty"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
}

func (m *ChatMapper) ChatMessageToModel(sessionId uuid.UUID, msg *entity.ChatMessage) *model.ChatMessage {
	out := &model.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: sessionId,
		Author:        msg.Author,
		Text:          msg.Text,
		CreatedAt:     msg.Timestamp,
	}

	if msg.Payload != nil {
		doc := payloadDoc{
			ResponseKind:       msg.Payload.ResponseKind,
			TableData:          msg.Payload.TableData,
			Summary:            msg.Payload.Summary,
			SuggestedQuestions: msg.Payload.SuggestedQuestions,
		}
		if raw, err := json.Marshal(doc); err == nil {
			out.Payload = raw
		}
	}
	return out
}

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	out := &entity.ChatMessage{
		Id:        msg.Id,
		Author:    msg.Author,
		Text:      msg.Text,
		Timestamp: msg.CreatedAt,
	}

	if len(msg.Payload) > 0 {
		var doc payloadDoc
		if err := json.Unmarshal(msg.Payload, &doc); err == nil {
			out.Payload = &entity.MessagePayload{
				ResponseKind:       doc.ResponseKind,
				TableData:          doc.TableData,
				Summary:            doc.Summary,
				SuggestedQuestions: doc.SuggestedQuestions,
			}
		}
	}
	return out
}
