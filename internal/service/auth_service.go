package service

import (
	"context"
	"encoding/json"
	"time"

	"steel-copilot-be/internal/dto"
	"steel-copilot-be/internal/entity"
	"steel-copilot-be/internal/pkg/logger"
	"steel-copilot-be/internal/session"
	"steel-copilot-be/internal/storage"
	"steel-copilot-be/pkg/events"
	pktNats "steel-copilot-be/pkg/nats"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgSessionExpired   = "Your session has expired. Please log in again."
	msgSessionTakenOver = "Your session was ended because you logged in elsewhere."
)

type IAuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context) error
	CheckAuthStatus(ctx context.Context) (*dto.AuthStatusResponse, error)
	ResolveUser(userId string) *entity.User
	IsSessionActive(userId, sessionId string) bool
	HasModuleAccess(user *entity.User, module string) bool
	HasAgentAccess(user *entity.User, agentId int) bool
	StartExpirySweeper(ctx context.Context)
}

type authService struct {
	directory      *UserDirectory
	store          storage.Store
	table          *session.ActiveTable
	broadcaster    *session.Broadcaster
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger

	jwtSecret     string
	validity      time.Duration
	sweepInterval time.Duration
	now           func() time.Time
}

func NewAuthService(
	directory *UserDirectory,
	store storage.Store,
	table *session.ActiveTable,
	broadcaster *session.Broadcaster,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
	jwtSecret string,
	validity time.Duration,
	sweepInterval time.Duration,
) IAuthService {
	svc := &authService{
		directory:      directory,
		store:          store,
		table:          table,
		broadcaster:    broadcaster,
		eventPublisher: eventPublisher,
		logger:         log,
		jwtSecret:      jwtSecret,
		validity:       validity,
		sweepInterval:  sweepInterval,
		now:            time.Now,
	}

	// Mirror the cross-context contract: when another context clears the
	// auth token, every remaining session key is dropped here too.
	store.Watch(func(ev storage.ChangeEvent) {
		if ev.Key == storage.KeyAuthToken && ev.NewValue == "" && ev.OldValue != "" {
			svc.clearSessionKeys()
		}
	})

	return svc
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user := s.directory.FindByEmail(req.Email)
	if user == nil || user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sessionId := uuid.New().String()
	prior, evicted := s.table.Register(user.Id, sessionId)
	if evicted {
		s.logger.Info("Auth", "Evicting prior session", map[string]interface{}{
			"user_id":    user.Id,
			"session_id": prior,
		})
		if s.broadcaster != nil {
			_ = s.broadcaster.AnnounceInvalidated(ctx, session.InvalidationNotice{
				UserId:    user.Id,
				SessionId: prior,
			})
		}
		s.publishEvent(ctx, events.TypeSessionEvicted, map[string]interface{}{
			"user_id":    user.Id,
			"session_id": prior,
		})
	}

	expiresAt := s.now().Add(s.validity)
	claims := jwt.MapClaims{
		"user_id":    user.Id,
		"role":       string(user.Role),
		"session_id": sessionId,
		"exp":        expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	userResp := userToResponse(user)
	userJSON, err := json.Marshal(userResp)
	if err != nil {
		return nil, err
	}

	s.store.SetWithTTL(storage.KeyAuthToken, signedToken, s.validity)
	s.store.Set(storage.KeyCurrentUser, string(userJSON))
	s.store.Set(storage.KeySessionExpiry, expiresAt.Format(time.RFC3339))
	s.store.Set(storage.KeySessionId, sessionId)
	s.store.Set(storage.KeySessionUserId, user.Id)

	s.publishEvent(ctx, events.TypeUserLogin, map[string]interface{}{
		"user_id": user.Id,
		"email":   user.Email,
	})
	s.logger.Info("Auth", "User logged in", map[string]interface{}{
		"user_id":    user.Id,
		"session_id": sessionId,
	})

	return &dto.LoginResponse{
		Token:     signedToken,
		SessionId: sessionId,
		ExpiresAt: expiresAt,
		User:      userResp,
	}, nil
}

// Logout is idempotent. Clearing an already-clear session is a no-op.
func (s *authService) Logout(ctx context.Context) error {
	userId, _ := s.store.Get(storage.KeySessionUserId)
	if userId != "" {
		s.table.Remove(userId)
		s.publishEvent(ctx, events.TypeUserLogout, map[string]interface{}{
			"user_id": userId,
		})
	}
	s.clearSessionKeys()
	s.logger.Info("Auth", "User logged out", map[string]interface{}{"user_id": userId})
	return nil
}

func (s *authService) CheckAuthStatus(ctx context.Context) (*dto.AuthStatusResponse, error) {
	token, ok := s.store.Get(storage.KeyAuthToken)
	if !ok || token == "" {
		return &dto.AuthStatusResponse{Authenticated: false}, nil
	}

	expiryStr, ok := s.store.Get(storage.KeySessionExpiry)
	if !ok {
		return &dto.AuthStatusResponse{Authenticated: false}, nil
	}
	expiry, err := time.Parse(time.RFC3339, expiryStr)
	if err != nil || !s.now().Before(expiry) {
		s.expireCurrentSession(ctx, msgSessionExpired)
		return &dto.AuthStatusResponse{Authenticated: false}, nil
	}

	userId, _ := s.store.Get(storage.KeySessionUserId)
	sessionId, _ := s.store.Get(storage.KeySessionId)
	if userId != "" && !s.table.IsActive(userId, sessionId) {
		s.expireCurrentSession(ctx, msgSessionTakenOver)
		return &dto.AuthStatusResponse{Authenticated: false}, nil
	}

	rawUser, ok := s.store.Get(storage.KeyCurrentUser)
	if !ok {
		return &dto.AuthStatusResponse{Authenticated: false}, nil
	}
	var userResp dto.UserResponse
	if err := json.Unmarshal([]byte(rawUser), &userResp); err != nil {
		return &dto.AuthStatusResponse{Authenticated: false}, nil
	}

	return &dto.AuthStatusResponse{
		Authenticated: true,
		User:          &userResp,
		ExpiresAt:     &expiry,
	}, nil
}

func (s *authService) ResolveUser(userId string) *entity.User {
	return s.directory.FindById(userId)
}

func (s *authService) IsSessionActive(userId, sessionId string) bool {
	return s.table.IsActive(userId, sessionId)
}

// HasModuleAccess grants admins everything; other roles need the module in
// their allow list.
func (s *authService) HasModuleAccess(user *entity.User, module string) bool {
	if user == nil {
		return false
	}
	if user.Role == entity.UserRoleAdmin {
		return true
	}
	for _, m := range user.AllowedModules {
		if m == module {
			return true
		}
	}
	return false
}

func (s *authService) HasAgentAccess(user *entity.User, agentId int) bool {
	if user == nil {
		return false
	}
	if user.Role == entity.UserRoleAdmin {
		return true
	}
	for _, id := range user.AllowedAgents {
		if id == agentId {
			return true
		}
	}
	return false
}

// StartExpirySweeper periodically checks whether the persisted expiry has
// passed while a token is still present, and if so tears the session down
// and announces it.
func (s *authService) StartExpirySweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepOnce(ctx)
			}
		}
	}()
}

func (s *authService) sweepOnce(ctx context.Context) {
	token, ok := s.store.Get(storage.KeyAuthToken)
	if !ok || token == "" {
		return
	}
	expiryStr, ok := s.store.Get(storage.KeySessionExpiry)
	if !ok {
		return
	}
	expiry, err := time.Parse(time.RFC3339, expiryStr)
	if err != nil || s.now().Before(expiry) {
		return
	}
	s.expireCurrentSession(ctx, msgSessionExpired)
}

func (s *authService) expireCurrentSession(ctx context.Context, message string) {
	userId, _ := s.store.Get(storage.KeySessionUserId)
	if userId != "" {
		s.table.Remove(userId)
	}
	s.clearSessionKeys()

	if s.broadcaster != nil {
		_ = s.broadcaster.AnnounceExpired(ctx, session.ExpiryNotice{
			UserId:  userId,
			Message: message,
		})
	}
	s.publishEvent(ctx, events.TypeSessionExpired, map[string]interface{}{
		"user_id": userId,
		"message": message,
	})
	s.logger.Info("Auth", "Session ended", map[string]interface{}{
		"user_id": userId,
		"reason":  message,
	})
}

func (s *authService) clearSessionKeys() {
	s.store.Delete(storage.KeyAuthToken)
	s.store.Delete(storage.KeyCurrentUser)
	s.store.Delete(storage.KeySessionExpiry)
	s.store.Delete(storage.KeySessionId)
	s.store.Delete(storage.KeySessionUserId)
}

func (s *authService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.eventPublisher == nil {
		return
	}
	event := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: s.now(),
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Auth", "Failed to publish event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}

func userToResponse(user *entity.User) dto.UserResponse {
	return dto.UserResponse{
		Id:             user.Id,
		Email:          user.Email,
		FullName:       user.FullName,
		Role:           string(user.Role),
		AllowedModules: user.AllowedModules,
		AllowedAgents:  user.AllowedAgents,
	}
}
