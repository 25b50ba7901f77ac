package constant

const (
	RolePlayer  = "player"
	RoleAdmin   = "admin"
	DefaultRole = RolePlayer

	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 8

	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	// Refresh cookie is scoped to the refresh endpoint in production so the
	// long-lived token is never sent anywhere else.
	RefreshCookiePath = "/api/auth/refresh"

	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)
