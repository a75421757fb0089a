package memory

import (
	"context"
	"sync"

	"steel-copilot-be/internal/entity"
	"steel-copilot-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ChatHistoryRepository keeps conversation sessions in process memory. It is
// the default backend when no database connection is configured.
type ChatHistoryRepository struct {
	mu     sync.Mutex
	cache  *cache.Cache
	byUser map[string][]uuid.UUID
}

func NewChatHistoryRepository() *ChatHistoryRepository {
	return &ChatHistoryRepository{
		cache:  cache.New(cache.NoExpiration, 0),
		byUser: make(map[string][]uuid.UUID),
	}
}

func (r *ChatHistoryRepository) Create(_ context.Context, session *entity.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := cloneSession(session)
	r.cache.Set(session.Id.String(), cp, cache.NoExpiration)
	r.byUser[session.UserId] = append(r.byUser[session.UserId], session.Id)
	return nil
}

func (r *ChatHistoryRepository) AppendMessage(_ context.Context, sessionId uuid.UUID, msg entity.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(sessionId.String())
	if !found {
		return contract.ErrSessionNotFound
	}
	s := x.(*entity.ChatSession)
	s.Messages = append(s.Messages, msg)
	return nil
}

func (r *ChatHistoryRepository) FindById(_ context.Context, sessionId uuid.UUID) (*entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(sessionId.String())
	if !found {
		return nil, contract.ErrSessionNotFound
	}
	return cloneSession(x.(*entity.ChatSession)), nil
}

func (r *ChatHistoryRepository) FindByUser(_ context.Context, userId string) ([]*entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byUser[userId]
	sessions := make([]*entity.ChatSession, 0, len(ids))
	for _, id := range ids {
		if x, found := r.cache.Get(id.String()); found {
			sessions = append(sessions, cloneSession(x.(*entity.ChatSession)))
		}
	}
	return sessions, nil
}

func (r *ChatHistoryRepository) Exists(_ context.Context, sessionId uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, found := r.cache.Get(sessionId.String())
	return found, nil
}

func cloneSession(s *entity.ChatSession) *entity.ChatSession {
	cp := *s
	cp.Messages = make([]entity.ChatMessage, len(s.Messages))
	copy(cp.Messages, s.Messages)
	return &cp
}
