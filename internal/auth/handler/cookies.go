package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/judovisa/auth-service/config"
	"github.com/judovisa/auth-service/internal/auth/dto"
	"github.com/judovisa/auth-service/pkg/constant"
)

func sameSiteMode(cfg *config.Config) string {
	if cfg.IsProduction() {
		return fiber.CookieSameSiteStrictMode
	}
	return fiber.CookieSameSiteLaxMode
}

func refreshCookiePath(cfg *config.Config) string {
	if cfg.IsProduction() {
		return constant.RefreshCookiePath
	}
	return "/"
}

func setAuthCookies(c *fiber.Ctx, cfg *config.Config, pair *dto.TokenPair) {
	accessTTL := time.Duration(cfg.AccessExpiryMin) * time.Minute
	refreshTTL := time.Duration(cfg.RefreshExpiryMin) * time.Minute

	c.Cookie(&fiber.Cookie{
		Name:     constant.AccessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(accessTTL.Seconds()),
		Expires:  time.Now().Add(accessTTL),
		HTTPOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: sameSiteMode(cfg),
	})

	c.Cookie(&fiber.Cookie{
		Name:     constant.RefreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     refreshCookiePath(cfg),
		MaxAge:   int(refreshTTL.Seconds()),
		Expires:  time.Now().Add(refreshTTL),
		HTTPOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: sameSiteMode(cfg),
	})
}

func clearAuthCookies(c *fiber.Ctx, cfg *config.Config) {
	expired := time.Now().Add(-time.Hour)

	c.Cookie(&fiber.Cookie{
		Name:     constant.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  expired,
		HTTPOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: sameSiteMode(cfg),
	})

	c.Cookie(&fiber.Cookie{
		Name:     constant.RefreshTokenCookie,
		Value:    "",
		Path:     refreshCookiePath(cfg),
		MaxAge:   -1,
		Expires:  expired,
		HTTPOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: sameSiteMode(cfg),
	})
}
