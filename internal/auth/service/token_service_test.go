package service_test

import (
	"testing"
	"time"

	"github.com/judovisa/auth-service/internal/auth/service"
	autherror "github.com/judovisa/auth-service/internal/errors"
	"github.com/judovisa/auth-service/pkg/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService() *service.TokenService {
	return service.NewTokenService(testConfig())
}

func TestTokenService_AccessTokenRoundTrip(t *testing.T) {
	ts := newTestTokenService()

	token, err := ts.GenerateAccessToken("user-123", constant.RolePlayer)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, constant.RolePlayer, claims.Role)
	assert.Equal(t, constant.TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "judovisa-api", claims.Issuer)
}

func TestTokenService_RefreshTokenRoundTrip(t *testing.T) {
	ts := newTestTokenService()

	token, err := ts.GenerateRefreshToken("user-123")
	require.NoError(t, err)

	claims, err := ts.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, constant.TokenTypeRefresh, claims.TokenType)
	assert.NotEmpty(t, claims.ID, "refresh tokens carry a jti")
}

func TestTokenService_RefreshTokensAreUnique(t *testing.T) {
	ts := newTestTokenService()

	first, err := ts.GenerateRefreshToken("user-123")
	require.NoError(t, err)
	second, err := ts.GenerateRefreshToken("user-123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenService_VerifyRejectsWrongType(t *testing.T) {
	ts := newTestTokenService()

	accessToken, err := ts.GenerateAccessToken("user-123", constant.RolePlayer)
	require.NoError(t, err)

	// An access token is signed with a different secret, so the refresh
	// verifier rejects it before the type check even runs.
	_, err = ts.VerifyRefreshToken(accessToken)
	assert.Equal(t, autherror.ErrInvalidToken, err)
}

func TestTokenService_VerifyRejectsMismatchedType(t *testing.T) {
	ts := newTestTokenService()
	// Same secret on both sides isolates the type-claim check.
	ts.RefreshTokenSecret = ts.AccessTokenSecret

	accessToken, err := ts.GenerateAccessToken("user-123", constant.RolePlayer)
	require.NoError(t, err)

	_, err = ts.VerifyRefreshToken(accessToken)
	assert.Equal(t, autherror.ErrInvalidToken, err)
}

func TestTokenService_VerifyExpired(t *testing.T) {
	ts := newTestTokenService()
	ts.AccessTokenExpiry = -time.Minute

	token, err := ts.GenerateAccessToken("user-123", constant.RolePlayer)
	require.NoError(t, err)

	_, err = ts.VerifyAccessToken(token)
	require.Error(t, err)
	assert.Equal(t, autherror.ErrTokenExpired, err)

	apiErr, ok := autherror.AsError(err)
	require.True(t, ok)
	assert.Equal(t, autherror.CodeTokenExpired, apiErr.Code)
}

func TestTokenService_VerifyWrongSecret(t *testing.T) {
	ts := newTestTokenService()

	token, err := ts.GenerateAccessToken("user-123", constant.RolePlayer)
	require.NoError(t, err)

	other := newTestTokenService()
	other.AccessTokenSecret = "a-completely-different-secret"

	_, err = other.VerifyAccessToken(token)
	assert.Equal(t, autherror.ErrInvalidToken, err)
}

func TestTokenService_VerifyWrongIssuer(t *testing.T) {
	ts := newTestTokenService()

	token, err := ts.GenerateAccessToken("user-123", constant.RolePlayer)
	require.NoError(t, err)

	other := newTestTokenService()
	other.Issuer = "someone-else"

	_, err = other.VerifyAccessToken(token)
	assert.Equal(t, autherror.ErrInvalidToken, err)
}

func TestTokenService_VerifyGarbage(t *testing.T) {
	ts := newTestTokenService()

	_, err := ts.VerifyAccessToken("not-a-jwt")
	assert.Equal(t, autherror.ErrInvalidToken, err)
}

func TestTokenService_TTLs(t *testing.T) {
	ts := newTestTokenService()

	assert.Equal(t, 15*time.Minute, ts.AccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, ts.RefreshTokenTTL())
}
