package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	Env   string
	Port  string
	DBURL string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessExpiryMin    int
	RefreshExpiryMin   int
	TokenIssuer        string
	TokenAudience      string

	MaxActiveTokensPerUser int
	MaxLoginAttempts       int
	LockoutMinutes         int
	ResetTokenExpiryMin    int
	BcryptCost             int

	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	FrontendURL string
	CORSOrigin  string
	LogLevel    string
}

func Load() *Config {
	return &Config{
		Env:   getEnv("ENV", "development"),
		Port:  getEnv("PORT", "8080"),
		DBURL: mustGetEnv("DB_URL"),

		AccessTokenSecret:  mustGetEnv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: mustGetEnv("REFRESH_TOKEN_SECRET"),
		AccessExpiryMin:    getEnvAsInt("ACCESS_TOKEN_EXPIRY", 15),
		RefreshExpiryMin:   getEnvAsInt("REFRESH_TOKEN_EXPIRY", 10080),
		TokenIssuer:        getEnv("TOKEN_ISSUER", "judovisa-api"),
		TokenAudience:      getEnv("TOKEN_AUDIENCE", "judovisa-frontend"),

		MaxActiveTokensPerUser: getEnvAsInt("MAX_ACTIVE_TOKENS_PER_USER", 5),
		MaxLoginAttempts:       getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
		LockoutMinutes:         getEnvAsInt("LOCKOUT_MINUTES", 15),
		ResetTokenExpiryMin:    getEnvAsInt("PASSWORD_RESET_EXPIRY", 60),
		BcryptCost:             getEnvAsInt("BCRYPT_COST", 12),

		SMTPHost:  getEnv("EMAIL_HOST", ""),
		SMTPPort:  getEnvAsInt("EMAIL_PORT", 587),
		SMTPUser:  getEnv("EMAIL_USER", ""),
		SMTPPass:  getEnv("EMAIL_PASS", ""),
		EmailFrom: getEnv("EMAIL_FROM", "Judovisa <noreply@judovisa.fi>"),

		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSOrigin:  getEnv("CORS_ORIGIN", "http://localhost:3000"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required environment variable: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}
