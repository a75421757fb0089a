package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId      string    `gorm:"type:varchar(64);not null;index"` // User ownership for data isolation
	DisplayName string    `gorm:"type:text;not null"`
	Module      string    `gorm:"type:varchar(64);index"`
	AgentId     int       `gorm:"index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
