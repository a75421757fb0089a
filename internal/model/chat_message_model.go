package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatMessage struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;not null;index"`
	Author        string    `gorm:"type:varchar(50);not null"`
	Text          string    `gorm:"type:text;not null"`

	// Structured assistant payload (table data, summary, suggested
	// questions, response kind) as a JSON column; null for user messages.
	Payload datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
