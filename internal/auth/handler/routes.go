package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler) {
	// Brute-force protection on the credential endpoints.
	authLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 15 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many attempts - wait 15 minutes",
			})
		},
	})
	passwordLimiter := limiter.New(limiter.Config{
		Max:        3,
		Expiration: time.Hour,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many password reset requests",
			})
		},
	})

	auth := app.Group("/api/auth")
	auth.Post("/register", authLimiter, h.Register)
	auth.Post("/login", authLimiter, h.Login)
	auth.Post("/logout", h.Protect, h.Logout)
	auth.Post("/refresh", h.Refresh)
	auth.Post("/forgot-password", passwordLimiter, h.ForgotPassword)
	auth.Post("/reset-password", h.ResetPassword)
	auth.Get("/me", h.Protect, h.GetMe)

	users := app.Group("/api/users", h.Protect)
	users.Patch("/me", h.UpdateMe)
	users.Patch("/me/password", h.ChangePassword)
	users.Delete("/me", h.DeleteMe)
}
