package controller

import (
	"errors"
	"strconv"

	"steel-copilot-be/internal/dto"
	"steel-copilot-be/internal/entity"
	"steel-copilot-be/internal/pkg/serverutils"
	"steel-copilot-be/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, jwtMw fiber.Handler)
	GetModuleChat(ctx *fiber.Ctx) error
	GetAgentChat(ctx *fiber.Ctx) error
	CreateSession(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	SaveAgentSelection(ctx *fiber.Ctx) error
	GetAgentSelection(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	authService service.IAuthService
	validate    *validator.Validate
}

func NewChatController(chatService service.IChatService, authService service.IAuthService) IChatController {
	return &chatController{
		chatService: chatService,
		authService: authService,
		validate:    validator.New(),
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router, jwtMw fiber.Handler) {
	chat := r.Group("/chat", jwtMw)
	chat.Get("/module/:module", c.GetModuleChat)
	chat.Get("/sessions", c.ListSessions)
	chat.Post("/sessions", c.CreateSession)
	chat.Post("/:sessionId/send", c.SendMessage)

	agents := r.Group("/agents", jwtMw)
	agents.Get("/:id/chat", c.GetAgentChat)
	agents.Post("/selection", c.SaveAgentSelection)
	agents.Get("/selection", c.GetAgentSelection)
}

func (c *chatController) currentUser(ctx *fiber.Ctx) (*entity.User, error) {
	userId, _ := ctx.Locals("user_id").(string)
	user := c.authService.ResolveUser(userId)
	if user == nil {
		return nil, service.ErrNotAuthenticated
	}
	return user, nil
}

func (c *chatController) GetModuleChat(ctx *fiber.Ctx) error {
	user, err := c.currentUser(ctx)
	if err != nil {
		return err
	}
	module := ctx.Params("module")
	if !c.authService.HasModuleAccess(user, module) {
		return ctx.Status(fiber.StatusForbidden).JSON(serverutils.Fail(403, "Module access denied"))
	}

	res, err := c.chatService.GetOrCreateScopedSession(ctx.Context(), user, entity.ScopeContext{Module: module})
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.OK("Module chat session", res))
}

func (c *chatController) GetAgentChat(ctx *fiber.Ctx) error {
	user, err := c.currentUser(ctx)
	if err != nil {
		return err
	}
	agentId, err := strconv.Atoi(ctx.Params("id"))
	if err != nil || agentId <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.Fail(400, "Invalid agent id"))
	}
	if !c.authService.HasAgentAccess(user, agentId) {
		return ctx.Status(fiber.StatusForbidden).JSON(serverutils.Fail(403, "Agent access denied"))
	}

	res, err := c.chatService.GetOrCreateScopedSession(ctx.Context(), user, entity.ScopeContext{AgentId: agentId})
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.OK("Agent chat session", res))
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	user, err := c.currentUser(ctx)
	if err != nil {
		return err
	}
	var req dto.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.Fail(400, "Invalid request body"))
	}
	if err := c.validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.Fail(400, err.Error()))
	}

	scope := entity.ScopeContext{Module: req.Module, AgentId: req.AgentId}
	if scope.Module != "" && !c.authService.HasModuleAccess(user, scope.Module) {
		return ctx.Status(fiber.StatusForbidden).JSON(serverutils.Fail(403, "Module access denied"))
	}
	if scope.AgentId > 0 && !c.authService.HasAgentAccess(user, scope.AgentId) {
		return ctx.Status(fiber.StatusForbidden).JSON(serverutils.Fail(403, "Agent access denied"))
	}

	res, err := c.chatService.CreateSession(ctx.Context(), user, scope)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.OK("Session created", res))
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	user, err := c.currentUser(ctx)
	if err != nil {
		return err
	}
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.Fail(400, "Invalid session id"))
	}
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.Fail(400, "Invalid request body"))
	}
	if err := c.validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.Fail(400, err.Error()))
	}

	reply, err := c.chatService.SendUserMessage(ctx.Context(), user, sessionId, req.Text)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.Fail(404, err.Error()))
		}
		return err
	}
	if reply == nil {
		// The reply is being produced asynchronously over the realtime channel.
		return ctx.Status(fiber.StatusAccepted).JSON(serverutils.OK("Message accepted", nil))
	}
	return ctx.JSON(serverutils.OK("Message sent", reply))
}

func (c *chatController) ListSessions(ctx *fiber.Ctx) error {
	user, err := c.currentUser(ctx)
	if err != nil {
		return err
	}
	res, err := c.chatService.ListSessions(ctx.Context(), user.Id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.OK("Chat sessions", res))
}

func (c *chatController) SaveAgentSelection(ctx *fiber.Ctx) error {
	user, err := c.currentUser(ctx)
	if err != nil {
		return err
	}
	var req dto.AgentSelectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.Fail(400, "Invalid request body"))
	}
	for _, id := range req.AgentIds {
		if !c.authService.HasAgentAccess(user, id) {
			return ctx.Status(fiber.StatusForbidden).JSON(serverutils.Fail(403, "Agent access denied"))
		}
	}
	if err := c.chatService.SaveAgentSelection(user.Id, req.AgentIds); err != nil {
		return err
	}
	return ctx.JSON(serverutils.OK("Agent selection saved", nil))
}

func (c *chatController) GetAgentSelection(ctx *fiber.Ctx) error {
	user, err := c.currentUser(ctx)
	if err != nil {
		return err
	}
	ids := c.chatService.LoadAgentSelection(user.Id)
	return ctx.JSON(serverutils.OK("Agent selection", fiber.Map{"agent_ids": ids}))
}
