package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/judovisa/auth-service/internal/auth/dto"
	autherror "github.com/judovisa/auth-service/internal/errors"
)

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	var input dto.UpdateMeInput
	if err := c.BodyParser(&input); err != nil {
		return h.respondError(c, autherror.Validation("invalid input"))
	}
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	userID, _ := c.Locals(localUserID).(string)

	user, err := h.userService.UpdateMe(c.Context(), userID, input)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Profile updated",
		"user":    user,
	})
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var input dto.ChangePasswordInput
	if err := c.BodyParser(&input); err != nil {
		return h.respondError(c, autherror.Validation("invalid input"))
	}
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	userID, _ := c.Locals(localUserID).(string)

	if err := h.userService.ChangePassword(c.Context(), userID, input); err != nil {
		return h.respondError(c, err)
	}

	// All refresh tokens are gone; the client must log in again.
	clearAuthCookies(c, h.cfg)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Password changed. Please log in again.",
	})
}

func (h *AuthHandler) DeleteMe(c *fiber.Ctx) error {
	var input dto.DeleteAccountInput
	if err := c.BodyParser(&input); err != nil {
		return h.respondError(c, autherror.Validation("invalid input"))
	}
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	userID, _ := c.Locals(localUserID).(string)

	if err := h.userService.DeleteAccount(c.Context(), userID, input); err != nil {
		return h.respondError(c, err)
	}

	clearAuthCookies(c, h.cfg)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Your account and all related data have been deleted",
	})
}
