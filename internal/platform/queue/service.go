package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsQueueName = "stats:recalc"

// QueueService defines the interface for queue operations
type QueueService interface {
	PublishStatsJob(ctx context.Context, topicID int64) error
	ConsumeStatsJob(ctx context.Context) (*StatsJob, error)
}

type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

// StatsJob asks the worker to recompute the aggregate statistics of a
// topic after an attempt was submitted against it.
type StatsJob struct {
	TopicID     int64     `json:"topic_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// PublishStatsJob publishes a statistics recalculation job to the Redis queue
func (q *RedisQueue) PublishStatsJob(ctx context.Context, topicID int64) error {
	job := StatsJob{
		TopicID:     topicID,
		SubmittedAt: time.Now(),
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.LPush(ctx, statsQueueName, jobData).Err(); err != nil {
		return fmt.Errorf("failed to push job to queue: %w", err)
	}

	log.Printf("Published stats job for topic_id=%d to queue", topicID)
	return nil
}

// ConsumeStatsJob consumes stats jobs from the Redis queue (for worker)
func (q *RedisQueue) ConsumeStatsJob(ctx context.Context) (*StatsJob, error) {
	// Short timeout instead of blocking forever so context cancellation
	// is checked frequently
	result, err := q.client.BRPop(ctx, 5*time.Second, statsQueueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // No job available
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to pop job from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, fmt.Errorf("invalid queue response")
	}

	var job StatsJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}
