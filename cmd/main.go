package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/joho/godotenv"
	"github.com/judovisa/auth-service/config"
	"github.com/judovisa/auth-service/db"
	"github.com/judovisa/auth-service/internal/auth/handler"
	repo "github.com/judovisa/auth-service/internal/auth/repository/postgres"
	"github.com/judovisa/auth-service/internal/auth/service"
	"github.com/judovisa/auth-service/internal/email"
	"github.com/judovisa/auth-service/internal/logger"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	log := logger.Named("main")

	ctx := context.Background()
	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer dbPool.Close()
	log.Info("connected to PostgreSQL")

	userRepo := repo.NewPostgresRepository(dbPool)
	tokenService := service.NewTokenService(cfg)
	mailer := email.NewSMTPSender(cfg)
	userService := service.NewUserService(userRepo, tokenService, mailer, cfg)
	authHandler := handler.NewAuthHandler(userService, tokenService, cfg)

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024, // auth payloads are tiny
	})

	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigin,
		AllowCredentials: true,
		AllowMethods:     "GET,POST,PATCH,DELETE",
		AllowHeaders:     "Content-Type,Authorization",
	}))
	app.Use("/api", limiter.New(limiter.Config{
		Max:        200,
		Expiration: 15 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests - try again shortly",
			})
		},
	}))

	app.Get("/api/health", func(c *fiber.Ctx) error {
		pingCtx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		if err := dbPool.Ping(pingCtx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"message": "database unreachable",
			})
		}
		return c.JSON(fiber.Map{
			"success":     true,
			"message":     "Judovisa auth API is up",
			"environment": cfg.Env,
		})
	})

	handler.RegisterRoutes(app, authHandler)

	log.Info("listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
