package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang/mock/gomock"
	"github.com/judovisa/auth-service/config"
	"github.com/judovisa/auth-service/internal/auth/domain"
	"github.com/judovisa/auth-service/internal/auth/handler"
	"github.com/judovisa/auth-service/internal/auth/service"
	autherror "github.com/judovisa/auth-service/internal/errors"
	"github.com/judovisa/auth-service/internal/mocks"
	"github.com/judovisa/auth-service/pkg/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type handlerFixture struct {
	app     *fiber.App
	handler *handler.AuthHandler
	repo    *mocks.MockUserRepository
	tokens  *mocks.MockTokenGenerator
	mailer  *mocks.MockSender
	cfg     *config.Config
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := &handlerFixture{
		repo:   mocks.NewMockUserRepository(ctrl),
		tokens: mocks.NewMockTokenGenerator(ctrl),
		mailer: mocks.NewMockSender(ctrl),
		cfg: &config.Config{
			Env:                    "development",
			AccessExpiryMin:        15,
			RefreshExpiryMin:       10080,
			MaxActiveTokensPerUser: 5,
			MaxLoginAttempts:       5,
			LockoutMinutes:         15,
			ResetTokenExpiryMin:    60,
			BcryptCost:             bcrypt.MinCost,
		},
	}

	userService := service.NewUserService(f.repo, f.tokens, f.mailer, f.cfg)
	f.handler = handler.NewAuthHandler(userService, f.tokens, f.cfg)

	f.app = fiber.New()
	handler.RegisterRoutes(f.app, f.handler)
	return f
}

func postJSON(t *testing.T, app *fiber.App, path string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLogin_SetsAuthCookies(t *testing.T) {
	f := newHandlerFixture(t)
	user := &domain.User{
		ID: "user-1", Username: "judoka", Role: constant.RolePlayer,
		PasswordHash: hashed(t, "password123"), IsActive: true,
	}

	f.repo.EXPECT().GetByUsername(gomock.Any(), "judoka").Return(user, nil)
	f.repo.EXPECT().GetPersonByUserID(gomock.Any(), user.ID).
		Return(&domain.Person{UserID: user.ID, DisplayName: "Judoka", Email: "judoka@example.com"}, nil)
	f.tokens.EXPECT().GenerateAccessToken(user.ID, constant.RolePlayer).Return("access-token", nil)
	f.tokens.EXPECT().GenerateRefreshToken(user.ID).Return("refresh-token", nil)
	f.repo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any(), 5).Return(nil)
	f.repo.EXPECT().InsertAuditLog(gomock.Any(), gomock.Any()).Return(nil)

	resp := postJSON(t, f.app, "/api/auth/login", fiber.Map{
		"username": "judoka", "password": "password123",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	access := findCookie(resp, constant.AccessTokenCookie)
	require.NotNil(t, access)
	assert.Equal(t, "access-token", access.Value)
	assert.True(t, access.HttpOnly)
	assert.False(t, access.Secure) // dev environment
	assert.Equal(t, "/", access.Path)

	refresh := findCookie(resp, constant.RefreshTokenCookie)
	require.NotNil(t, refresh)
	assert.Equal(t, "refresh-token", refresh.Value)
	assert.Equal(t, "/", refresh.Path) // narrowed to the refresh path only in production

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	// Tokens travel only as cookies.
	userBody, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, userBody, "accessToken")
}

func TestLogin_LockedAccount(t *testing.T) {
	f := newHandlerFixture(t)
	until := time.Now().Add(10 * time.Minute)
	user := &domain.User{
		ID: "user-1", Username: "judoka",
		PasswordHash: hashed(t, "password123"), IsActive: true,
		LoginAttempts: 5, LockUntil: &until,
	}

	f.repo.EXPECT().GetByUsername(gomock.Any(), "judoka").Return(user, nil)

	resp := postJSON(t, f.app, "/api/auth/login", fiber.Map{
		"username": "judoka", "password": "password123",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusLocked, resp.StatusCode)
}

func TestLogin_InvalidCredentialsAreUniform(t *testing.T) {
	f := newHandlerFixture(t)
	user := &domain.User{
		ID: "user-1", Username: "judoka",
		PasswordHash: hashed(t, "password123"), IsActive: true,
	}

	// Unknown user.
	f.repo.EXPECT().GetByUsername(gomock.Any(), "ghost").Return(nil, nil)
	respUnknown := postJSON(t, f.app, "/api/auth/login", fiber.Map{
		"username": "ghost", "password": "whatever1",
	})
	defer respUnknown.Body.Close()

	// Known user, wrong password.
	f.repo.EXPECT().GetByUsername(gomock.Any(), "judoka").Return(user, nil)
	f.repo.EXPECT().UpdateLoginAttempts(gomock.Any(), user.ID, 1, gomock.Nil()).Return(nil)
	f.repo.EXPECT().InsertAuditLog(gomock.Any(), gomock.Any()).Return(nil)
	respWrong := postJSON(t, f.app, "/api/auth/login", fiber.Map{
		"username": "judoka", "password": "wrong-password",
	})
	defer respWrong.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, respUnknown.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, respWrong.StatusCode)

	bodyUnknown, err := io.ReadAll(respUnknown.Body)
	require.NoError(t, err)
	bodyWrong, err := io.ReadAll(respWrong.Body)
	require.NoError(t, err)
	assert.Equal(t, bodyUnknown, bodyWrong, "responses must not reveal whether the account exists")
}

func TestRegister_Created(t *testing.T) {
	f := newHandlerFixture(t)

	f.repo.EXPECT().GetByUsername(gomock.Any(), "judoka").Return(nil, nil)
	f.repo.EXPECT().GetPersonByEmail(gomock.Any(), "judoka@example.com").Return(nil, nil)
	f.repo.EXPECT().CreateWithPerson(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.repo.EXPECT().InsertAuditLog(gomock.Any(), gomock.Any()).Return(nil)
	f.tokens.EXPECT().GenerateAccessToken(gomock.Any(), constant.RolePlayer).Return("access-token", nil)
	f.tokens.EXPECT().GenerateRefreshToken(gomock.Any()).Return("refresh-token", nil)
	f.repo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any(), 5).Return(nil)

	resp := postJSON(t, f.app, "/api/auth/register", fiber.Map{
		"username": "judoka", "email": "judoka@example.com", "password": "password123",
		"firstName": "Jigoro", "lastName": "Kano",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotNil(t, findCookie(resp, constant.AccessTokenCookie))
	assert.NotNil(t, findCookie(resp, constant.RefreshTokenCookie))
}

func TestRefresh_NoCookie(t *testing.T) {
	f := newHandlerFixture(t)

	resp := postJSON(t, f.app, "/api/auth/refresh", fiber.Map{})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefresh_InvalidTokenClearsCookies(t *testing.T) {
	f := newHandlerFixture(t)

	f.tokens.EXPECT().VerifyRefreshToken("stale-token").
		Return(nil, autherror.ErrInvalidToken)

	resp := postJSON(t, f.app, "/api/auth/refresh", fiber.Map{},
		&http.Cookie{Name: constant.RefreshTokenCookie, Value: "stale-token"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	refresh := findCookie(resp, constant.RefreshTokenCookie)
	require.NotNil(t, refresh)
	assert.Empty(t, refresh.Value)
	assert.True(t, refresh.Expires.Before(time.Now()))
}

func TestRefresh_RotatesCookies(t *testing.T) {
	f := newHandlerFixture(t)
	user := &domain.User{ID: "user-1", Username: "judoka", Role: constant.RolePlayer, IsActive: true}

	f.tokens.EXPECT().VerifyRefreshToken("old-refresh").
		Return(&service.JWTCustomClaims{UserID: user.ID}, nil)
	f.repo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)
	f.repo.EXPECT().GetRefreshToken(gomock.Any(), user.ID, "old-refresh").
		Return(&domain.RefreshToken{ID: "rt-1", UserID: user.ID, Token: "old-refresh"}, nil)
	f.tokens.EXPECT().GenerateAccessToken(user.ID, constant.RolePlayer).Return("new-access", nil)
	f.tokens.EXPECT().GenerateRefreshToken(user.ID).Return("new-refresh", nil)
	f.repo.EXPECT().RotateRefreshToken(gomock.Any(), user.ID, "old-refresh", gomock.Any()).Return(nil)
	f.repo.EXPECT().GetPersonByUserID(gomock.Any(), user.ID).Return(nil, nil)

	resp := postJSON(t, f.app, "/api/auth/refresh", fiber.Map{},
		&http.Cookie{Name: constant.RefreshTokenCookie, Value: "old-refresh"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	refresh := findCookie(resp, constant.RefreshTokenCookie)
	require.NotNil(t, refresh)
	assert.Equal(t, "new-refresh", refresh.Value)
}

func TestForgotPassword_UniformResponse(t *testing.T) {
	f := newHandlerFixture(t)
	user := &domain.User{ID: "user-1", Username: "judoka", IsActive: true}
	person := &domain.Person{UserID: user.ID, Email: "judoka@example.com"}

	// Known email: the full reset flow runs.
	f.repo.EXPECT().GetPersonByEmail(gomock.Any(), "judoka@example.com").Return(person, nil)
	f.repo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)
	f.repo.EXPECT().SetPasswordResetToken(gomock.Any(), user.ID, gomock.Any(), gomock.Any()).Return(nil)
	f.mailer.EXPECT().SendPasswordReset("judoka@example.com", "judoka", gomock.Any()).Return(nil)
	f.repo.EXPECT().InsertAuditLog(gomock.Any(), gomock.Any()).Return(nil)
	respKnown := postJSON(t, f.app, "/api/auth/forgot-password", fiber.Map{"email": "judoka@example.com"})
	defer respKnown.Body.Close()

	// Unknown email: nothing happens server-side.
	f.repo.EXPECT().GetPersonByEmail(gomock.Any(), "ghost@example.com").Return(nil, nil)
	respUnknown := postJSON(t, f.app, "/api/auth/forgot-password", fiber.Map{"email": "ghost@example.com"})
	defer respUnknown.Body.Close()

	assert.Equal(t, http.StatusOK, respKnown.StatusCode)
	assert.Equal(t, http.StatusOK, respUnknown.StatusCode)

	bodyKnown, err := io.ReadAll(respKnown.Body)
	require.NoError(t, err)
	bodyUnknown, err := io.ReadAll(respUnknown.Body)
	require.NoError(t, err)
	assert.Equal(t, bodyKnown, bodyUnknown, "responses must not reveal whether the email is registered")
}

func TestResetPassword_InvalidToken(t *testing.T) {
	f := newHandlerFixture(t)

	f.repo.EXPECT().GetByResetTokenHash(gomock.Any(), gomock.Any()).Return(nil, nil)

	resp := postJSON(t, f.app, "/api/auth/reset-password", fiber.Map{
		"token": "bogus", "password": "newpassword1",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	f := newHandlerFixture(t)
	user := &domain.User{ID: "user-1", Username: "judoka", Role: constant.RolePlayer, IsActive: true}

	f.tokens.EXPECT().VerifyAccessToken("valid-access").
		Return(&service.JWTCustomClaims{UserID: user.ID}, nil)
	f.repo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)
	f.repo.EXPECT().DeleteRefreshToken(gomock.Any(), user.ID, "some-refresh").Return(nil)
	f.repo.EXPECT().InsertAuditLog(gomock.Any(), gomock.Any()).Return(nil)

	resp := postJSON(t, f.app, "/api/auth/logout", fiber.Map{},
		&http.Cookie{Name: constant.AccessTokenCookie, Value: "valid-access"},
		&http.Cookie{Name: constant.RefreshTokenCookie, Value: "some-refresh"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	access := findCookie(resp, constant.AccessTokenCookie)
	require.NotNil(t, access)
	assert.Empty(t, access.Value)
}
