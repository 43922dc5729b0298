package main

import (
	"context"
	"fmt"
	"log"
	"time"

	attemptRepository "github.com/quizdeck/quizdeck/internal/domain/attempts/repository"
	userRepository "github.com/quizdeck/quizdeck/internal/domain/users/repository"
	"github.com/quizdeck/quizdeck/internal/platform/queue"
)

// JobProcessor consumes statistics jobs and runs the periodic token sweep
type JobProcessor struct {
	queueService  queue.QueueService
	attemptRepo   *attemptRepository.AttemptRepository
	userRepo      *userRepository.User
	sweepInterval time.Duration
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(
	queueService queue.QueueService,
	attemptRepo *attemptRepository.AttemptRepository,
	userRepo *userRepository.User,
	sweepInterval time.Duration,
) *JobProcessor {
	return &JobProcessor{
		queueService:  queueService,
		attemptRepo:   attemptRepo,
		userRepo:      userRepo,
		sweepInterval: sweepInterval,
	}
}

// Start begins processing jobs from the queue and runs the token sweep
// ticker until the context is cancelled
func (p *JobProcessor) Start(ctx context.Context) error {
	log.Println("Job processor started, waiting for stats jobs...")

	// Sweep once on startup so a long-stopped worker catches up immediately
	p.sweepExpiredTokens(ctx)

	sweepTicker := time.NewTicker(p.sweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Job processor stopped")
			return ctx.Err()
		case <-sweepTicker.C:
			p.sweepExpiredTokens(ctx)
		default:
			// Consume job from queue (blocking call with timeout)
			job, err := p.queueService.ConsumeStatsJob(ctx)
			if err != nil {
				// Check if context was cancelled
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("Error consuming job: %v", err)
				continue
			}

			if job == nil {
				// No job available (timeout), continue
				continue
			}

			// Process the job
			log.Printf("Processing stats job for topic ID: %d", job.TopicID)
			if err := p.processJob(ctx, job); err != nil {
				log.Printf("Error processing stats job for topic %d: %v", job.TopicID, err)
			}
		}
	}
}

// processJob recalculates the aggregate statistics for a single topic
func (p *JobProcessor) processJob(ctx context.Context, job *queue.StatsJob) error {
	if err := p.attemptRepo.RefreshTopicStats(ctx, job.TopicID); err != nil {
		return fmt.Errorf("failed to refresh stats for topic %d: %w", job.TopicID, err)
	}

	log.Printf("Topic %d: stats refreshed successfully", job.TopicID)
	return nil
}

// sweepExpiredTokens removes refresh tokens whose expiry has passed,
// blacklisted or not
func (p *JobProcessor) sweepExpiredTokens(ctx context.Context) {
	removed, err := p.userRepo.DeleteExpiredRefreshTokens(ctx)
	if err != nil {
		log.Printf("Error sweeping expired refresh tokens: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Token sweep removed %d expired refresh tokens", removed)
	}
}
