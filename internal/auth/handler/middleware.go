package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	autherror "github.com/judovisa/auth-service/internal/errors"
	"github.com/judovisa/auth-service/pkg/constant"
)

// Request-context keys set by Protect.
const (
	localUserID   = "userID"
	localUserRole = "userRole"
	localUsername = "username"
)

// Protect gates a route behind a valid access token and a live identity.
// It is read-only: no writes happen here.
func (h *AuthHandler) Protect(c *fiber.Ctx) error {
	// Cookie first (primary, safer than the header), then a bearer header
	// for non-browser clients.
	token := c.Cookies(constant.AccessTokenCookie)
	if token == "" {
		auth := c.Get(fiber.HeaderAuthorization)
		if strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
	}

	if token == "" {
		return h.respondError(c, autherror.ErrNotLoggedIn)
	}

	claims, err := h.tokens.VerifyAccessToken(token)
	if err != nil {
		return h.respondError(c, err)
	}

	user, err := h.userService.CurrentUser(c.Context(), claims.UserID)
	if err != nil {
		return h.respondError(c, err)
	}
	if user == nil {
		return h.respondError(c, autherror.ErrAccountInactive)
	}

	c.Locals(localUserID, user.ID)
	c.Locals(localUserRole, user.Role)
	c.Locals(localUsername, user.Username)

	return c.Next()
}

// RequireRole passes only when the authenticated role is in the given set.
func (h *AuthHandler) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(localUserRole).(string)
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return h.respondError(c, autherror.ErrForbidden)
	}
}
