package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Module  string `json:"module" validate:"omitempty,max=64"`
	AgentId int    `json:"agent_id" validate:"omitempty,min=1"`
}

type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

type MessagePayloadResponse struct {
	ResponseKind       string   `json:"response_kind,omitempty"`
	TableData          string   `json:"table_data,omitempty"`
	Summary            string   `json:"summary,omitempty"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
}

type ChatMessageResponse struct {
	Id        uuid.UUID               `json:"id"`
	Author    string                  `json:"author"`
	Text      string                  `json:"text"`
	Timestamp time.Time               `json:"timestamp"`
	Payload   *MessagePayloadResponse `json:"payload,omitempty"`
}

type ChatSessionResponse struct {
	Id          uuid.UUID             `json:"id"`
	DisplayName string                `json:"display_name"`
	Module      string                `json:"module,omitempty"`
	AgentId     int                   `json:"agent_id,omitempty"`
	Messages    []ChatMessageResponse `json:"messages"`
	CreatedAt   time.Time             `json:"created_at"`
}

type SessionListResponse struct {
	Sessions []ChatSessionResponse `json:"sessions"`
	ActiveId *uuid.UUID            `json:"active_id,omitempty"`
}

type AgentSelectionRequest struct {
	AgentIds []int `json:"agent_ids" validate:"required"`
}
