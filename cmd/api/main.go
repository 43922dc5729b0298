package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/quizdeck/quizdeck/internal/domain/attempts"
	attemptDelivery "github.com/quizdeck/quizdeck/internal/domain/attempts/delivery"
	attemptRepository "github.com/quizdeck/quizdeck/internal/domain/attempts/repository"
	attemptUsecase "github.com/quizdeck/quizdeck/internal/domain/attempts/usecase"
	"github.com/quizdeck/quizdeck/internal/domain/topics"
	topicDelivery "github.com/quizdeck/quizdeck/internal/domain/topics/delivery"
	topicRepository "github.com/quizdeck/quizdeck/internal/domain/topics/repository"
	topicUsecase "github.com/quizdeck/quizdeck/internal/domain/topics/usecase"
	"github.com/quizdeck/quizdeck/internal/domain/users"
	"github.com/quizdeck/quizdeck/internal/domain/users/delivery"
	"github.com/quizdeck/quizdeck/internal/domain/users/repository"
	"github.com/quizdeck/quizdeck/internal/domain/users/usecase"
	"github.com/quizdeck/quizdeck/internal/platform/config"
	"github.com/quizdeck/quizdeck/internal/platform/database"
	"github.com/quizdeck/quizdeck/internal/platform/queue"
	"github.com/quizdeck/quizdeck/internal/platform/storage"
	"github.com/quizdeck/quizdeck/pkg/jwt"
	"github.com/quizdeck/quizdeck/pkg/middleware"
	customValidator "github.com/quizdeck/quizdeck/pkg/validator"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

func main() {
	// Setup zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	zlog.Info().Msg("Starting QuizDeck API Server...")

	// Load configuration; missing secrets or database parameters are fatal
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := database.InitMySQL(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	defer sqlDB.Close()

	if err := db.AutoMigrate(
		&users.User{},
		&users.RefreshToken{},
		&topics.Topic{},
		&topics.Question{},
		&topics.Option{},
		&topics.TopicStats{},
		&attempts.Attempt{},
		&attempts.AttemptQuestion{},
	); err != nil {
		log.Fatalf("Failed to migrate database schema: %v", err)
	}

	ctx := context.Background()

	// Initialize MinIO
	minioClient, err := storage.InitMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("Failed to initialize MinIO: %v", err)
	}
	zlog.Info().Msg("MinIO initialized successfully")

	// Initialize Redis client
	redisClient, err := queue.InitRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	zlog.Info().Msg("Redis initialized successfully")

	// Initialize services
	storageService := storage.NewStorageService(minioClient, cfg.MinIO.BucketMedia)
	queueService := queue.NewRedisQueue(redisClient)

	// Initialize Echo
	e := echo.New()
	e.Use(middleware.RequestID())
	e.HideBanner = false

	// Register validator
	e.Validator = customValidator.New()

	// Initialize token service with both secrets from config
	tokenSvc := jwt.NewTokenService(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiryDuration(),
		cfg.JWT.RefreshTokenExpiryDuration(),
	)

	// Initialize repositories
	userRepo := repository.NewUser(db)
	topicRepo := topicRepository.NewTopicRepository(db)
	attemptRepo := attemptRepository.NewAttemptRepository(db)

	// Initialize use cases
	userUsecase := usecase.NewUsecase(userRepo, tokenSvc)
	topicUsecaseInstance := topicUsecase.NewTopicUsecase(topicRepo, storageService)
	attemptUsecaseInstance := attemptUsecase.NewAttemptUsecase(attemptRepo, userRepo, topicRepo, queueService)

	// Initialize handlers
	userHandler := delivery.NewHandler(ctx, userUsecase)
	topicHandler := topicDelivery.NewTopicHandler(ctx, topicUsecaseInstance)
	attemptHandler := attemptDelivery.NewAttemptHandler(ctx, attemptUsecaseInstance)

	// Setup routes
	setupRoutes(e, userHandler, topicHandler, attemptHandler, tokenSvc)

	// Start server in goroutine
	go func() {
		port := cfg.Server.Port
		if port == "" {
			port = "8080"
		}

		zlog.Info().Str("port", port).Msg("Starting HTTP server")
		if err := e.Start(":" + port); err != nil {
			zlog.Info().Err(err).Msg("Server stopped")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	zlog.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	zlog.Info().Msg("Server exited successfully")
}
