package repository

import (
	"context"
	"errors"
	"time"

	"github.com/quizdeck/quizdeck/internal/domain/attempts"
	"github.com/quizdeck/quizdeck/internal/domain/topics"
	"gorm.io/gorm"
)

type AttemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// randomOrder returns the dialect's random-sort expression. MySQL in
// production, sqlite in tests.
func (r *AttemptRepository) randomOrder() string {
	if r.db.Dialector.Name() == "mysql" {
		return "RAND()"
	}
	return "RANDOM()"
}

// RandomQuestions draws count distinct questions from a topic
func (r *AttemptRepository) RandomQuestions(ctx context.Context, topicID int64, count int) ([]topics.Question, error) {
	var questions []topics.Question
	err := r.db.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order(r.randomOrder()).
		Limit(count).
		Find(&questions).Error
	return questions, err
}

// OptionsForQuestions loads every option of the given question set
func (r *AttemptRepository) OptionsForQuestions(ctx context.Context, questionIDs []int64) ([]topics.Option, error) {
	var options []topics.Option
	err := r.db.WithContext(ctx).
		Where("question_id IN ?", questionIDs).
		Order("id ASC").
		Find(&options).Error
	return options, err
}

// CreateAttempt inserts the attempt with its pinned question set
func (r *AttemptRepository) CreateAttempt(ctx context.Context, attempt *attempts.Attempt, questions []attempts.AttemptQuestion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].AttemptID = attempt.ID
		}
		return tx.Create(&questions).Error
	})
}

func (r *AttemptRepository) FindAttemptByID(ctx context.Context, attemptID int64) (*attempts.Attempt, error) {
	var attempt attempts.Attempt
	err := r.db.WithContext(ctx).Where("id = ?", attemptID).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) FindAttemptQuestions(ctx context.Context, attemptID int64) ([]attempts.AttemptQuestion, error) {
	var questions []attempts.AttemptQuestion
	err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("position ASC").
		Find(&questions).Error
	return questions, err
}

// CompleteAttempt writes the graded answers and final score in one
// transaction.
func (r *AttemptRepository) CompleteAttempt(ctx context.Context, attemptID int64, score int, graded []attempts.AttemptQuestion) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, q := range graded {
			if err := tx.Model(&attempts.AttemptQuestion{}).
				Where("id = ?", q.ID).
				Updates(map[string]interface{}{
					"chosen_option_id": q.ChosenOptionID,
					"correct":          q.Correct,
				}).Error; err != nil {
				return err
			}
		}
		return tx.Model(&attempts.Attempt{}).
			Where("id = ?", attemptID).
			Updates(map[string]interface{}{
				"score":        score,
				"status":       attempts.AttemptStatusCompleted,
				"completed_at": now,
			}).Error
	})
}

// ListAttemptsByUser returns paginated attempt history, newest first
func (r *AttemptRepository) ListAttemptsByUser(ctx context.Context, userID int64, page, limit int) ([]attempts.AttemptListItem, int64, error) {
	var results []attempts.AttemptListItem
	var totalCount int64

	offset := (page - 1) * limit

	query := r.db.WithContext(ctx).
		Table("attempts").
		Select("attempts.id, attempts.topic_id, topics.title as topic_title, attempts.score, attempts.question_count, attempts.status, attempts.started_at, attempts.completed_at").
		Joins("JOIN topics ON topics.id = attempts.topic_id").
		Where("attempts.user_id = ?", userID)

	if err := query.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("attempts.started_at DESC").Find(&results).Error; err != nil {
		return nil, 0, err
	}

	return results, totalCount, nil
}

// RefreshTopicStats recomputes a topic's aggregates from completed
// attempts and upserts the topic_stats row. Invoked by the worker.
func (r *AttemptRepository) RefreshTopicStats(ctx context.Context, topicID int64) error {
	type agg struct {
		AttemptCount int64
		AvgPct       float64
	}
	var a agg
	err := r.db.WithContext(ctx).
		Table("attempts").
		Select("COUNT(*) as attempt_count, COALESCE(AVG(score * 100.0 / question_count), 0) as avg_pct").
		Where("topic_id = ? AND status = ?", topicID, attempts.AttemptStatusCompleted).
		Scan(&a).Error
	if err != nil {
		return err
	}

	stats := topics.TopicStats{
		TopicID:         topicID,
		AttemptCount:    a.AttemptCount,
		AverageScorePct: a.AvgPct,
	}
	return r.db.WithContext(ctx).Save(&stats).Error
}

// ListTopicStats returns the worker-maintained per-topic aggregates
func (r *AttemptRepository) ListTopicStats(ctx context.Context) ([]attempts.TopicStatsItem, error) {
	var results []attempts.TopicStatsItem
	err := r.db.WithContext(ctx).
		Table("topics").
		Select("topics.id as topic_id, topics.title as topic_title, COALESCE(topic_stats.attempt_count, 0) as attempt_count, COALESCE(topic_stats.average_score_pct, 0) as average_score_pct").
		Joins("LEFT JOIN topic_stats ON topic_stats.topic_id = topics.id").
		Order("topics.title ASC").
		Find(&results).Error
	return results, err
}

// CountTotals gathers the overall numbers for the admin dashboard
func (r *AttemptRepository) CountTotals(ctx context.Context) (*attempts.StatsTotals, error) {
	totals := &attempts.StatsTotals{}

	counts := []struct {
		table string
		dest  *int64
	}{
		{"users", &totals.Users},
		{"topics", &totals.Topics},
		{"questions", &totals.Questions},
		{"attempts", &totals.Attempts},
	}
	for _, c := range counts {
		if err := r.db.WithContext(ctx).Table(c.table).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}
	return totals, nil
}
