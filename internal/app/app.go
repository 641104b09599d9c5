package app

import (
	"context"
	"fmt"
	"time"

	"uru_backend/database"
	"uru_backend/internal/auth"
	"uru_backend/internal/config"
	"uru_backend/internal/email"
	"uru_backend/internal/handlers"
	"uru_backend/internal/logger"
	"uru_backend/internal/middleware"
	"uru_backend/internal/repositories"
	"uru_backend/internal/routes"
	"uru_backend/internal/services"
	"uru_backend/internal/validator"
	"uru_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// Dependencies — всё, что нужно роутеру. Тесты собирают этот набор из
// in-memory store, miniredis и мок-провайдера почты.
type Dependencies struct {
	Cfg    *config.Config
	Store  repositories.Store
	Issuer *auth.SessionIssuer
	Codec  *auth.PurposeTokenCodec
	Mailer *email.Mailer
	Redis  *redis.Client
}

func Run() {
	if err := godotenv.Load(); err != nil {
		logger.Debug(".env file not found, relying on environment")
	}

	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	if err := database.AutoMigrate(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}
	logger.Info("Database connected")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	store := repositories.NewGormStore(gormDB)

	var provider email.Provider
	if cfg.Email.SMTPHost != "" {
		provider, err = email.NewSMTPProvider(&email.SMTPConfig{
			Host:      cfg.Email.SMTPHost,
			Port:      cfg.Email.SMTPPort,
			Username:  cfg.Email.SMTPUsername,
			Password:  cfg.Email.SMTPPassword,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
		})
		if err != nil {
			logger.Fatal("Failed to initialize SMTP provider", "error", err)
		}
	} else {
		logger.Warn("SMTP is not configured, using mock email provider")
		provider = &MockEmailProvider{}
	}

	deps := &Dependencies{
		Cfg:   cfg,
		Store: store,
		Issuer: auth.NewSessionIssuer(
			cfg.JWT.Secret,
			time.Duration(cfg.JWT.AccessTTLMin)*time.Minute,
			time.Duration(cfg.JWT.RefreshTTLDays)*24*time.Hour,
			cfg.JWT.RotateRefresh,
			auth.NewRedisBlacklist(rdb),
		),
		Codec:  auth.NewPurposeTokenCodec(cfg.JWT.Secret),
		Mailer: email.NewMailer(provider),
		Redis:  rdb,
	}

	if err := seedFirstAdmin(store, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	workers.NewCleanupWorker(store, time.Hour).Start(context.Background())

	router := SetupRouter(deps)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", "address", address)
	if err := router.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// SetupRouter собирает сервисы, хендлеры и маршруты
func SetupRouter(deps *Dependencies) *gin.Engine {
	authService := services.NewAuthService(deps.Store, deps.Codec, deps.Issuer, deps.Mailer, deps.Cfg)
	emailChangeService := services.NewEmailChangeService(deps.Store, deps.Mailer, deps.Cfg)
	userService := services.NewUserService(deps.Store)

	baseHandler := handlers.NewBaseHandler(validator.New())
	authHandler := handlers.NewAuthHandler(baseHandler, authService)
	emailHandler := handlers.NewEmailHandler(baseHandler, emailChangeService)
	userHandler := handlers.NewUserHandler(baseHandler, userService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())

	routes.SetupRoutes(router, deps.Cfg, deps.Store, deps.Issuer, deps.Redis,
		authHandler, emailHandler, userHandler)

	return router
}
