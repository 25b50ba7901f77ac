package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/judovisa/auth-service/internal/auth/service TokenGenerator

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/judovisa/auth-service/config"
	autherror "github.com/judovisa/auth-service/internal/errors"
	"github.com/judovisa/auth-service/pkg/constant"
)

type TokenGenerator interface {
	GenerateAccessToken(userID, role string) (string, error)
	GenerateRefreshToken(userID string) (string, error)
	VerifyAccessToken(tokenString string) (*JWTCustomClaims, error)
	VerifyRefreshToken(tokenString string) (*JWTCustomClaims, error)
	AccessTokenTTL() time.Duration
	RefreshTokenTTL() time.Duration
}

type TokenService struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	Audience           string
}

type JWTCustomClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"type"`
}

func NewTokenService(cfg *config.Config) *TokenService {
	return &TokenService{
		AccessTokenSecret:  cfg.AccessTokenSecret,
		RefreshTokenSecret: cfg.RefreshTokenSecret,
		AccessTokenExpiry:  time.Duration(cfg.AccessExpiryMin) * time.Minute,
		RefreshTokenExpiry: time.Duration(cfg.RefreshExpiryMin) * time.Minute,
		Issuer:             cfg.TokenIssuer,
		Audience:           cfg.TokenAudience,
	}
}

func (ts *TokenService) GenerateAccessToken(userID, role string) (string, error) {
	now := time.Now()

	claims := JWTCustomClaims{
		UserID:    userID,
		Role:      role,
		TokenType: constant.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.Issuer,
			Audience:  jwt.ClaimStrings{ts.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(ts.AccessTokenSecret))
}

func (ts *TokenService) GenerateRefreshToken(userID string) (string, error) {
	now := time.Now()

	// A fresh jti per issuance keeps any two refresh tokens distinct, so a
	// single one can be revoked from the stored set.
	jti, err := randomHex(16)
	if err != nil {
		return "", err
	}

	claims := JWTCustomClaims{
		UserID:    userID,
		TokenType: constant.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    ts.Issuer,
			Audience:  jwt.ClaimStrings{ts.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.RefreshTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(ts.RefreshTokenSecret))
}

// VerifyAccessToken parses and validates an access token. Expiry comes back
// as the distinguishable TOKEN_EXPIRED error so callers can trigger a refresh.
func (ts *TokenService) VerifyAccessToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.verify(tokenString, ts.AccessTokenSecret, constant.TokenTypeAccess)
}

func (ts *TokenService) VerifyRefreshToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.verify(tokenString, ts.RefreshTokenSecret, constant.TokenTypeRefresh)
}

func (ts *TokenService) verify(tokenString, secret, wantType string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(ts.Issuer), jwt.WithAudience(ts.Audience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherror.ErrTokenExpired
		}
		return nil, autherror.ErrInvalidToken
	}

	if !token.Valid || claims.TokenType != wantType {
		return nil, autherror.ErrInvalidToken
	}

	return claims, nil
}

func (ts *TokenService) AccessTokenTTL() time.Duration {
	return ts.AccessTokenExpiry
}

func (ts *TokenService) RefreshTokenTTL() time.Duration {
	return ts.RefreshTokenExpiry
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
