package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"steel-copilot-be/internal/constant"
	"steel-copilot-be/internal/dto"
	"steel-copilot-be/internal/entity"
	"steel-copilot-be/internal/pkg/logger"
	"steel-copilot-be/internal/realtime"
	"steel-copilot-be/internal/repository/contract"
	"steel-copilot-be/internal/storage"
	"steel-copilot-be/internal/websocket"
	"steel-copilot-be/pkg/remote"

	"github.com/google/uuid"
)

type IChatService interface {
	CreateSession(ctx context.Context, user *entity.User, scope entity.ScopeContext) (*dto.ChatSessionResponse, error)
	GetOrCreateScopedSession(ctx context.Context, user *entity.User, scope entity.ScopeContext) (*dto.ChatSessionResponse, error)
	ListSessions(ctx context.Context, userId string) (*dto.SessionListResponse, error)
	AppendMessage(ctx context.Context, sessionId uuid.UUID, msg entity.ChatMessage) error
	SendUserMessage(ctx context.Context, user *entity.User, sessionId uuid.UUID, text string) (*dto.ChatMessageResponse, error)
	SetActiveSession(ctx context.Context, userId string, sessionId uuid.UUID)
	GetActiveSession(userId string) (uuid.UUID, bool)
	SaveAgentSelection(userId string, agentIds []int) error
	LoadAgentSelection(userId string) []int
	AttachRealtime(conn *realtime.Conn)
}

type chatService struct {
	history   contract.ChatHistoryRepository
	responder *MockResponder
	remote    *remote.Client
	hub       *websocket.Hub
	store     storage.Store
	logger    logger.ILogger

	mu      sync.Mutex
	active  map[string]uuid.UUID // userId -> active session id
	conn    *realtime.Conn
	dispose func()
}

func NewChatService(
	history contract.ChatHistoryRepository,
	responder *MockResponder,
	remoteClient *remote.Client,
	hub *websocket.Hub,
	store storage.Store,
	log logger.ILogger,
) IChatService {
	return &chatService{
		history:   history,
		responder: responder,
		remote:    remoteClient,
		hub:       hub,
		store:     store,
		logger:    log,
		active:    make(map[string]uuid.UUID),
	}
}

// AttachRealtime binds the chat channel so simulated replies flow back into
// session history and out to connected websocket clients.
func (s *chatService) AttachRealtime(conn *realtime.Conn) {
	s.mu.Lock()
	if s.dispose != nil {
		s.dispose()
	}
	s.conn = conn
	s.mu.Unlock()

	disposeMsg := conn.OnMessage(constant.ChannelChat, func(payload interface{}) {
		inbound, ok := payload.(InboundChat)
		if !ok {
			return
		}
		s.handleInbound(inbound)
	})
	disposeFail := conn.OnSendFailure(s.handleSendFailure)

	s.mu.Lock()
	s.dispose = func() {
		disposeMsg()
		disposeFail()
	}
	s.mu.Unlock()
}

// handleSendFailure keeps a user turn from going unanswered when the channel
// drops it: the queue drained on give-up, or a send attempted after it.
func (s *chatService) handleSendFailure(channel string, payload interface{}) {
	if channel != constant.ChannelChat {
		return
	}
	out, ok := payload.(OutboundChat)
	if !ok {
		return
	}
	ctx := context.Background()
	s.logger.Error("Chat", "Channel delivery failed permanently", map[string]interface{}{
		"session_id": out.SessionId.String(),
	})
	s.recordApology(ctx, out.SessionId)
}

// recordApology appends the stock error reply so the session always shows an
// assistant counterpart for the failed user turn.
func (s *chatService) recordApology(ctx context.Context, sessionId uuid.UUID) (entity.ChatMessage, error) {
	apology := entity.ChatMessage{
		Id:        uuid.New(),
		Author:    constant.ChatMessageRoleAssistant,
		Text:      constant.ErrorAnswer,
		Timestamp: time.Now(),
		Payload:   &entity.MessagePayload{ResponseKind: constant.ResponseKindError},
	}
	if err := s.AppendMessage(ctx, sessionId, apology); err != nil {
		return entity.ChatMessage{}, err
	}
	s.pushToUser(ctx, sessionId, apology)
	return apology, nil
}

func (s *chatService) handleInbound(inbound InboundChat) {
	ctx := context.Background()
	if err := s.AppendMessage(ctx, inbound.SessionId, inbound.Message); err != nil {
		s.logger.Warn("Chat", "Dropping reply for unknown session", map[string]interface{}{
			"session_id": inbound.SessionId.String(),
		})
		return
	}
	s.pushToUser(ctx, inbound.SessionId, inbound.Message)
}

func (s *chatService) pushToUser(ctx context.Context, sessionId uuid.UUID, msg entity.ChatMessage) {
	if s.hub == nil {
		return
	}
	session, err := s.history.FindById(ctx, sessionId)
	if err != nil {
		return
	}
	s.hub.Send(session.UserId, constant.ChannelChat, InboundChat{SessionId: sessionId, Message: msg})
}

func (s *chatService) CreateSession(ctx context.Context, user *entity.User, scope entity.ScopeContext) (*dto.ChatSessionResponse, error) {
	greeting := s.responder.Greeting(scope)
	session := &entity.ChatSession{
		Id:          uuid.New(),
		UserId:      user.Id,
		DisplayName: displayName(scope),
		Scope:       scope,
		Messages:    []entity.ChatMessage{greeting},
		CreatedAt:   time.Now(),
	}
	if err := s.history.Create(ctx, session); err != nil {
		return nil, err
	}
	s.SetActiveSession(ctx, user.Id, session.Id)

	s.logger.Info("Chat", "Session created", map[string]interface{}{
		"session_id": session.Id.String(),
		"user_id":    user.Id,
		"module":     scope.Module,
		"agent_id":   scope.AgentId,
	})
	resp := sessionToResponse(session)
	return &resp, nil
}

// GetOrCreateScopedSession returns the newest session matching scope, or
// creates one. When a remote backend is configured and reachable its copy of
// the session wins.
func (s *chatService) GetOrCreateScopedSession(ctx context.Context, user *entity.User, scope entity.ScopeContext) (*dto.ChatSessionResponse, error) {
	if s.remoteAvailable(ctx) {
		if data, err := s.remote.FetchOrCreateSession(ctx, scope.Module, scope.AgentId); err == nil {
			resp := remoteSessionToResponse(data, scope)
			return &resp, nil
		} else {
			s.logger.Warn("Chat", "Remote session fetch failed, using local history", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	sessions, err := s.history.FindByUser(ctx, user.Id)
	if err != nil {
		return nil, err
	}
	for i := len(sessions) - 1; i >= 0; i-- {
		if sessions[i].Scope == scope {
			s.SetActiveSession(ctx, user.Id, sessions[i].Id)
			resp := sessionToResponse(sessions[i])
			return &resp, nil
		}
	}
	return s.CreateSession(ctx, user, scope)
}

func (s *chatService) ListSessions(ctx context.Context, userId string) (*dto.SessionListResponse, error) {
	sessions, err := s.history.FindByUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	out := &dto.SessionListResponse{Sessions: make([]dto.ChatSessionResponse, 0, len(sessions))}
	for _, session := range sessions {
		out.Sessions = append(out.Sessions, sessionToResponse(session))
	}
	if activeId, ok := s.GetActiveSession(userId); ok {
		out.ActiveId = &activeId
	}
	return out, nil
}

// AppendMessage adds msg to an existing session. A missing session id is
// reported, never silently absorbed.
func (s *chatService) AppendMessage(ctx context.Context, sessionId uuid.UUID, msg entity.ChatMessage) error {
	err := s.history.AppendMessage(ctx, sessionId, msg)
	if errors.Is(err, contract.ErrSessionNotFound) {
		s.logger.Warn("Chat", "Append to unknown session", map[string]interface{}{
			"session_id": sessionId.String(),
		})
		return ErrSessionNotFound
	}
	return err
}

// SendUserMessage records the user turn and produces the assistant reply
// through a three tier chain: the remote backend first, then the realtime
// chat channel with its simulated responder, and finally an inline apology.
// Every tier leaves a visible trace in the session.
func (s *chatService) SendUserMessage(ctx context.Context, user *entity.User, sessionId uuid.UUID, text string) (*dto.ChatMessageResponse, error) {
	session, err := s.history.FindById(ctx, sessionId)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	userMsg := entity.ChatMessage{
		Id:        uuid.New(),
		Author:    constant.ChatMessageRoleUser,
		Text:      text,
		Timestamp: time.Now(),
	}
	if err := s.AppendMessage(ctx, sessionId, userMsg); err != nil {
		return nil, err
	}

	// Tier 1: remote backend.
	if s.remoteAvailable(ctx) {
		data, err := s.remote.Send(ctx, sessionId.String(), text)
		if err == nil {
			reply := remoteMessageToEntity(data)
			if appendErr := s.AppendMessage(ctx, sessionId, reply); appendErr != nil {
				return nil, appendErr
			}
			s.pushToUser(ctx, sessionId, reply)
			resp := messageToResponse(reply)
			return &resp, nil
		}
		s.logger.Warn("Chat", "Remote send failed, falling back to chat channel", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}

	// Tier 2: realtime chat channel. The reply arrives asynchronously and is
	// appended by the channel subscription.
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil && conn.State() != realtime.StateGivenUp {
		conn.SendMessage(constant.ChannelChat, OutboundChat{
			SessionId: sessionId,
			Scope:     session.Scope,
			Text:      text,
		})
		return nil, nil
	}

	// Tier 3: apology, recorded in the session like any other reply.
	s.logger.Error("Chat", "All delivery tiers failed", map[string]interface{}{
		"session_id": sessionId.String(),
		"user_id":    user.Id,
	})
	apology, err := s.recordApology(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	resp := messageToResponse(apology)
	return &resp, nil
}

// SetActiveSession moves the user's active pointer. Ids that do not exist in
// the history are ignored so a stale client cannot activate a dead session.
func (s *chatService) SetActiveSession(ctx context.Context, userId string, sessionId uuid.UUID) {
	exists, err := s.history.Exists(ctx, sessionId)
	if err != nil || !exists {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[userId] = sessionId
}

func (s *chatService) GetActiveSession(userId string) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.active[userId]
	return id, ok
}

func (s *chatService) SaveAgentSelection(userId string, agentIds []int) error {
	data, err := json.Marshal(agentIds)
	if err != nil {
		return err
	}
	s.store.Set(storage.AgentSelectionKey(userId), string(data))
	return nil
}

func (s *chatService) LoadAgentSelection(userId string) []int {
	raw, ok := s.store.Get(storage.AgentSelectionKey(userId))
	if !ok {
		return []int{}
	}
	var ids []int
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		s.logger.Warn("Chat", "Discarding corrupt agent selection", map[string]interface{}{
			"user_id": userId,
		})
		return []int{}
	}
	return ids
}

func (s *chatService) remoteAvailable(ctx context.Context) bool {
	return s.remote != nil && s.remote.Configured() && s.remote.Probe(ctx)
}

func displayName(scope entity.ScopeContext) string {
	switch {
	case scope.AgentId > 0:
		return fmt.Sprintf("Agent #%d Chat", scope.AgentId)
	case scope.Module != "":
		return constant.ModuleTitle(scope.Module) + " Chat"
	default:
		return "New Chat"
	}
}

func sessionToResponse(session *entity.ChatSession) dto.ChatSessionResponse {
	messages := make([]dto.ChatMessageResponse, 0, len(session.Messages))
	for _, msg := range session.Messages {
		messages = append(messages, messageToResponse(msg))
	}
	return dto.ChatSessionResponse{
		Id:          session.Id,
		DisplayName: session.DisplayName,
		Module:      session.Scope.Module,
		AgentId:     session.Scope.AgentId,
		Messages:    messages,
		CreatedAt:   session.CreatedAt,
	}
}

func messageToResponse(msg entity.ChatMessage) dto.ChatMessageResponse {
	out := dto.ChatMessageResponse{
		Id:        msg.Id,
		Author:    msg.Author,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	}
	if msg.Payload != nil {
		out.Payload = &dto.MessagePayloadResponse{
			ResponseKind:       msg.Payload.ResponseKind,
			TableData:          msg.Payload.TableData,
			Summary:            msg.Payload.Summary,
			SuggestedQuestions: msg.Payload.SuggestedQuestions,
		}
	}
	return out
}

func remoteMessageToEntity(data *remote.MessageData) entity.ChatMessage {
	id, err := uuid.Parse(data.Id)
	if err != nil {
		id = uuid.New()
	}
	ts, err := time.Parse(time.RFC3339, data.Timestamp)
	if err != nil {
		ts = time.Now()
	}
	author := constant.ChatMessageRoleAssistant
	if data.Sender == constant.ChatMessageRoleUser {
		author = constant.ChatMessageRoleUser
	}
	msg := entity.ChatMessage{
		Id:        id,
		Author:    author,
		Text:      data.Text,
		Timestamp: ts,
	}
	if data.TableData != "" || data.Summary != "" || len(data.NextQuestion) > 0 {
		msg.Payload = &entity.MessagePayload{
			ResponseKind:       constant.ResponseKindText,
			TableData:          data.TableData,
			Summary:            data.Summary,
			SuggestedQuestions: data.NextQuestion,
		}
	}
	return msg
}

func remoteSessionToResponse(data *remote.SessionData, scope entity.ScopeContext) dto.ChatSessionResponse {
	messages := make([]dto.ChatMessageResponse, 0, len(data.Messages))
	for i := range data.Messages {
		msg := remoteMessageToEntity(&data.Messages[i])
		messages = append(messages, messageToResponse(msg))
	}
	id, err := uuid.Parse(data.Id)
	if err != nil {
		id = uuid.New()
	}
	return dto.ChatSessionResponse{
		Id:          id,
		DisplayName: displayName(scope),
		Module:      scope.Module,
		AgentId:     scope.AgentId,
		Messages:    messages,
		CreatedAt:   time.Now(),
	}
}
