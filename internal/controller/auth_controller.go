package controller

import (
	"errors"

	"steel-copilot-be/internal/dto"
	"steel-copilot-be/internal/pkg/serverutils"
	"steel-copilot-be/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router, jwtMw fiber.Handler)
	Login(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
	Me(ctx *fiber.Ctx) error
}

type authController struct {
	service  service.IAuthService
	validate *validator.Validate
}

func NewAuthController(service service.IAuthService) IAuthController {
	return &authController{
		service:  service,
		validate: validator.New(),
	}
}

func (c *authController) RegisterRoutes(r fiber.Router, jwtMw fiber.Handler) {
	h := r.Group("/auth")
	h.Post("/login", c.Login)
	h.Post("/logout", c.Logout)
	h.Get("/me", jwtMw, c.Me)
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.Fail(400, "Invalid request body"))
	}
	if err := c.validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.Fail(400, err.Error()))
	}

	res, err := c.service.Login(ctx.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.Fail(401, err.Error()))
		}
		return err
	}
	return ctx.JSON(serverutils.OK("Login successful", res))
}

// Logout succeeds whether or not a session was present.
func (c *authController) Logout(ctx *fiber.Ctx) error {
	if err := c.service.Logout(ctx.Context()); err != nil {
		return err
	}
	return ctx.JSON(serverutils.OK("Logged out", nil))
}

func (c *authController) Me(ctx *fiber.Ctx) error {
	status, err := c.service.CheckAuthStatus(ctx.Context())
	if err != nil {
		return err
	}
	if !status.Authenticated {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.Fail(401, "Not authenticated"))
	}
	return ctx.JSON(serverutils.OK("Authenticated", status))
}
