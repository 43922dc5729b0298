package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	attemptRepository "github.com/quizdeck/quizdeck/internal/domain/attempts/repository"
	userRepository "github.com/quizdeck/quizdeck/internal/domain/users/repository"
	"github.com/quizdeck/quizdeck/internal/platform/config"
	"github.com/quizdeck/quizdeck/internal/platform/database"
	"github.com/quizdeck/quizdeck/internal/platform/queue"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

func main() {
	// Setup zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	zlog.Info().Msg("Starting QuizDeck Stats Worker...")

	// Load configuration
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

	// Initialize Redis client
	redisClient, err := queue.InitRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	zlog.Info().Msg("Redis initialized successfully")

	// Initialize services and repositories
	queueService := queue.NewRedisQueue(redisClient)
	attemptRepo := attemptRepository.NewAttemptRepository(db)
	userRepo := userRepository.NewUser(db)

	// Create job processor
	processor := NewJobProcessor(queueService, attemptRepo, userRepo, cfg.Worker.TokenSweepIntervalDuration())

	// Create context with cancellation for graceful shutdown
	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start processing jobs in a goroutine
	processorDone := make(chan error, 1)
	go func() {
		processorDone <- processor.Start(workerCtx)
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
		zlog.Info().Msg("Received shutdown signal, stopping worker...")
		cancel() // Cancel the processor context

		// Wait for processor to finish with timeout
		select {
		case err := <-processorDone:
			if err != nil && err != context.Canceled {
				zlog.Error().Err(err).Msg("Worker stopped with error")
			} else {
				zlog.Info().Msg("Worker stopped gracefully")
			}
		case <-time.After(30 * time.Second):
			zlog.Warn().Msg("Worker shutdown timeout, forcing exit")
		}
	case err := <-processorDone:
		if err != nil {
			zlog.Fatal().Err(err).Msg("Worker stopped with error")
		}
	}

	zlog.Info().Msg("Worker exited")
}
