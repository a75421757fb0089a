package serverutils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SessionChecker reports whether sessionId is still the active one for
// userId. Tokens carrying an evicted session id are rejected even before
// they expire.
type SessionChecker func(userId, sessionId string) bool

func JwtMiddleware(secret string, isActive SessionChecker) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
		}
		tokenStr := authHeader[7:]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
		}

		userId, _ := claims["user_id"].(string)
		sessionId, _ := claims["session_id"].(string)
		if isActive != nil && !isActive(userId, sessionId) {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Session no longer active"})
		}

		ctx.Locals("user_id", userId)
		ctx.Locals("session_id", sessionId)
		return ctx.Next()
	}
}
