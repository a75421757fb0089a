package serverutils

import (
	"errors"

	"steel-copilot-be/internal/pkg/logger"
	"steel-copilot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts errors that escape the controllers into
// the uniform response envelope. Known service errors map to their status
// codes, everything else is a 500 with the detail kept out of the body.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			message = fiberErr.Message
		case errors.Is(err, service.ErrInvalidCredentials):
			code = fiber.StatusUnauthorized
			message = err.Error()
		case errors.Is(err, service.ErrSessionExpired), errors.Is(err, service.ErrNotAuthenticated):
			code = fiber.StatusUnauthorized
			message = err.Error()
		case errors.Is(err, service.ErrModuleForbidden), errors.Is(err, service.ErrAgentForbidden):
			code = fiber.StatusForbidden
			message = err.Error()
		case errors.Is(err, service.ErrSessionNotFound):
			code = fiber.StatusNotFound
			message = err.Error()
		}

		if code == fiber.StatusInternalServerError && log != nil {
			log.Error("HTTP", "Unhandled error", map[string]interface{}{
				"path":  ctx.Path(),
				"error": err.Error(),
			})
		}

		return ctx.Status(code).JSON(Fail(code, message))
	}
}
