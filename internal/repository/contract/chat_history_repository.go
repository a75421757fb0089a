package contract

import (
	"context"
	"errors"

	"steel-copilot-be/internal/entity"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a referenced conversation session id
// does not exist in the store.
var ErrSessionNotFound = errors.New("conversation session not found")

// ChatHistoryRepository persists conversation sessions and their append-only
// message lists.
type ChatHistoryRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	AppendMessage(ctx context.Context, sessionId uuid.UUID, msg entity.ChatMessage) error
	FindById(ctx context.Context, sessionId uuid.UUID) (*entity.ChatSession, error)
	FindByUser(ctx context.Context, userId string) ([]*entity.ChatSession, error)
	Exists(ctx context.Context, sessionId uuid.UUID) (bool, error)
}
