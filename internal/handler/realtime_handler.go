package handler

import (
	"steel-copilot-be/internal/pkg/logger"
	"steel-copilot-be/internal/pkg/serverutils"
	internalWS "steel-copilot-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
)

// RealtimeHandler upgrades authenticated clients onto the websocket hub.
type RealtimeHandler struct {
	hub       *internalWS.Hub
	logger    logger.ILogger
	jwtSecret string
	isActive  serverutils.SessionChecker
}

func NewRealtimeHandler(hub *internalWS.Hub, log logger.ILogger, jwtSecret string, isActive serverutils.SessionChecker) *RealtimeHandler {
	return &RealtimeHandler{
		hub:       hub,
		logger:    log,
		jwtSecret: jwtSecret,
		isActive:  isActive,
	}
}

func (h *RealtimeHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}

// ServeWs authenticates the handshake and hands the connection to the hub.
// The token comes from the `token` query param (browser standard) or the
// Authorization header.
func (h *RealtimeHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		h.logger.Warn("RealtimeHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing user_id"})
	}
	sessionID, _ := claims["session_id"].(string)
	if h.isActive != nil && !h.isActive(userID, sessionID) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Session no longer active"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("RealtimeHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
			internalWS.ServeWs(h.hub, conn, userID)
			h.logger.Info("RealtimeHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}
