package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang/mock/gomock"
	"github.com/judovisa/auth-service/internal/auth/domain"
	"github.com/judovisa/auth-service/internal/auth/service"
	autherror "github.com/judovisa/auth-service/internal/errors"
	"github.com/judovisa/auth-service/pkg/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getWithCookies(t *testing.T, app *fiber.App, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestProtect_NoToken(t *testing.T) {
	f := newHandlerFixture(t)

	resp := getWithCookies(t, f.app, "/api/auth/me")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtect_ExpiredTokenCarriesCode(t *testing.T) {
	f := newHandlerFixture(t)

	f.tokens.EXPECT().VerifyAccessToken("expired-token").
		Return(nil, autherror.ErrTokenExpired)

	resp := getWithCookies(t, f.app, "/api/auth/me",
		&http.Cookie{Name: constant.AccessTokenCookie, Value: "expired-token"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	// The frontend keys its silent refresh-and-retry off this code.
	assert.Equal(t, autherror.CodeTokenExpired, body["code"])
}

func TestProtect_BearerHeaderFallback(t *testing.T) {
	f := newHandlerFixture(t)
	user := &domain.User{ID: "user-1", Username: "judoka", Role: constant.RolePlayer, IsActive: true}
	person := &domain.Person{UserID: user.ID, DisplayName: "Judoka", Email: "judoka@example.com"}

	f.tokens.EXPECT().VerifyAccessToken("header-token").
		Return(&service.JWTCustomClaims{UserID: user.ID}, nil)
	// Once for the middleware, once for GetMe.
	f.repo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil).Times(2)
	f.repo.EXPECT().GetPersonByUserID(gomock.Any(), user.ID).Return(person, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer header-token")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtect_InactiveAccount(t *testing.T) {
	f := newHandlerFixture(t)
	user := &domain.User{ID: "user-1", Username: "judoka", IsActive: false}

	f.tokens.EXPECT().VerifyAccessToken("valid-token").
		Return(&service.JWTCustomClaims{UserID: user.ID}, nil)
	f.repo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)

	resp := getWithCookies(t, f.app, "/api/auth/me",
		&http.Cookie{Name: constant.AccessTokenCookie, Value: "valid-token"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequireRole(t *testing.T) {
	f := newHandlerFixture(t)

	f.app.Get("/api/admin/ping", f.handler.Protect, f.handler.RequireRole(constant.RoleAdmin),
		func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

	player := &domain.User{ID: "user-1", Username: "judoka", Role: constant.RolePlayer, IsActive: true}
	admin := &domain.User{ID: "user-2", Username: "sensei", Role: constant.RoleAdmin, IsActive: true}

	t.Run("player is forbidden", func(t *testing.T) {
		f.tokens.EXPECT().VerifyAccessToken("player-token").
			Return(&service.JWTCustomClaims{UserID: player.ID}, nil)
		f.repo.EXPECT().GetByID(gomock.Any(), player.ID).Return(player, nil)

		resp := getWithCookies(t, f.app, "/api/admin/ping",
			&http.Cookie{Name: constant.AccessTokenCookie, Value: "player-token"})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin passes", func(t *testing.T) {
		f.tokens.EXPECT().VerifyAccessToken("admin-token").
			Return(&service.JWTCustomClaims{UserID: admin.ID}, nil)
		f.repo.EXPECT().GetByID(gomock.Any(), admin.ID).Return(admin, nil)

		resp := getWithCookies(t, f.app, "/api/admin/ping",
			&http.Cookie{Name: constant.AccessTokenCookie, Value: "admin-token"})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
