package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/judovisa/auth-service/config"
	"github.com/judovisa/auth-service/internal/auth/dto"
	"github.com/judovisa/auth-service/internal/auth/service"
	autherror "github.com/judovisa/auth-service/internal/errors"
	"github.com/judovisa/auth-service/internal/logger"
	"github.com/judovisa/auth-service/pkg/constant"
	"go.uber.org/zap"
)

type AuthHandler struct {
	userService *service.UserService
	tokens      service.TokenGenerator
	cfg         *config.Config
	log         *zap.Logger
}

func NewAuthHandler(userService *service.UserService, tokens service.TokenGenerator, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
		cfg:         cfg,
		log:         logger.Named("auth-handler"),
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return h.respondError(c, autherror.Validation("invalid input"))
	}
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	user, pair, err := h.userService.Register(c.Context(), input)
	if err != nil {
		return h.respondError(c, err)
	}

	setAuthCookies(c, h.cfg, pair)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registration successful!",
		"user":    user,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return h.respondError(c, autherror.Validation("invalid input"))
	}
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	user, pair, err := h.userService.Login(c.Context(), input)
	if err != nil {
		return h.respondError(c, err)
	}

	setAuthCookies(c, h.cfg, pair)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"user":    user,
	})
}

// Logout never fails visibly; cookies must always end up cleared client-side.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	refreshToken := c.Cookies(constant.RefreshTokenCookie)
	userID, _ := c.Locals(localUserID).(string)
	username, _ := c.Locals(localUsername).(string)

	h.userService.Logout(c.Context(), userID, username, refreshToken,
		c.IP(), string(c.Request().Header.UserAgent()))

	clearAuthCookies(c, h.cfg)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Logged out",
	})
}

// Refresh rotates the refresh token; any failure clears the cookies and
// demands a fresh login.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies(constant.RefreshTokenCookie)
	if refreshToken == "" {
		return h.respondError(c, autherror.ErrNotLoggedIn)
	}

	user, pair, err := h.userService.Refresh(c.Context(), refreshToken)
	if err != nil {
		clearAuthCookies(c, h.cfg)
		if _, ok := autherror.AsError(err); ok {
			return h.respondError(c, err)
		}
		return h.respondError(c, autherror.ErrInvalidSession)
	}

	setAuthCookies(c, h.cfg, pair)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// ForgotPassword answers with the same generic message whether or not the
// email is registered.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	const safeMessage = "If that email address is registered, we sent a reset link."

	var input dto.ForgotPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return h.respondError(c, autherror.Validation("invalid input"))
	}
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	if err := h.userService.ForgotPassword(c.Context(), input); err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": safeMessage,
	})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var input dto.ResetPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return h.respondError(c, autherror.Validation("invalid input"))
	}
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	if err := h.userService.ResetPassword(c.Context(), input); err != nil {
		return h.respondError(c, err)
	}

	clearAuthCookies(c, h.cfg)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Password changed. Please log in.",
	})
}

func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	userID, _ := c.Locals(localUserID).(string)

	user, err := h.userService.GetMe(c.Context(), userID)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// respondError maps taxonomy errors to their status and hides everything
// else behind a generic 500.
func (h *AuthHandler) respondError(c *fiber.Ctx, err error) error {
	if apiErr, ok := autherror.AsError(err); ok {
		body := fiber.Map{
			"success": false,
			"message": apiErr.Message,
		}
		if apiErr.Code != "" {
			body["code"] = apiErr.Code
		}
		return c.Status(apiErr.Status).JSON(body)
	}

	h.log.Error("unexpected error", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "Server error",
	})
}
