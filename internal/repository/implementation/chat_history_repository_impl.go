package implementation

import (
	"context"
	"errors"

	"steel-copilot-be/internal/entity"
	"steel-copilot-be/internal/mapper"
	"steel-copilot-be/internal/model"
	"steel-copilot-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatHistoryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatHistoryRepository(db *gorm.DB) contract.ChatHistoryRepository {
	return &ChatHistoryRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatHistoryRepositoryImpl) Create(ctx context.Context, session *entity.ChatSession) error {
	m := r.mapper.ChatSessionToModel(session)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		for i := range session.Messages {
			mm := r.mapper.ChatMessageToModel(session.Id, &session.Messages[i])
			if err := tx.Create(mm).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ChatHistoryRepositoryImpl) AppendMessage(ctx context.Context, sessionId uuid.UUID, msg entity.ChatMessage) error {
	exists, err := r.Exists(ctx, sessionId)
	if err != nil {
		return err
	}
	if !exists {
		return contract.ErrSessionNotFound
	}
	mm := r.mapper.ChatMessageToModel(sessionId, &msg)
	return r.db.WithContext(ctx).Create(mm).Error
}

func (r *ChatHistoryRepositoryImpl) FindById(ctx context.Context, sessionId uuid.UUID) (*entity.ChatSession, error) {
	var m model.ChatSession
	if err := r.db.WithContext(ctx).First(&m, "id = ?", sessionId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.ErrSessionNotFound
		}
		return nil, err
	}
	messages, err := r.findMessages(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	return r.mapper.ChatSessionToEntity(&m, messages), nil
}

func (r *ChatHistoryRepositoryImpl) FindByUser(ctx context.Context, userId string) ([]*entity.ChatSession, error) {
	var models []*model.ChatSession
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	sessions := make([]*entity.ChatSession, 0, len(models))
	for _, m := range models {
		messages, err := r.findMessages(ctx, m.Id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, r.mapper.ChatSessionToEntity(m, messages))
	}
	return sessions, nil
}

func (r *ChatHistoryRepositoryImpl) Exists(ctx context.Context, sessionId uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.ChatSession{}).Where("id = ?", sessionId).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ChatHistoryRepositoryImpl) findMessages(ctx context.Context, sessionId uuid.UUID) ([]*model.ChatMessage, error) {
	var messages []*model.ChatMessage
	if err := r.db.WithContext(ctx).Where("chat_session_id = ?", sessionId).Order("created_at ASC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
