package repository

import (
	"context"
	"errors"

	"github.com/quizdeck/quizdeck/internal/domain/topics"
	"gorm.io/gorm"
)

type TopicRepository struct {
	db *gorm.DB
}

func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

func (r *TopicRepository) CreateTopic(ctx context.Context, topic *topics.Topic) error {
	return r.db.WithContext(ctx).Create(topic).Error
}

func (r *TopicRepository) FindTopicByID(ctx context.Context, topicID int64) (*topics.Topic, error) {
	var topic topics.Topic
	err := r.db.WithContext(ctx).Where("id = ?", topicID).First(&topic).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &topic, nil
}

// FindAllTopics returns every topic with its question count
func (r *TopicRepository) FindAllTopics(ctx context.Context) ([]topics.TopicListItem, error) {
	var results []topics.TopicListItem

	err := r.db.WithContext(ctx).
		Table("topics").
		Select("topics.id, topics.title, topics.description, COUNT(questions.id) as question_count").
		Joins("LEFT JOIN questions ON questions.topic_id = topics.id").
		Group("topics.id, topics.title, topics.description").
		Order("topics.title ASC").
		Find(&results).Error

	return results, err
}

func (r *TopicRepository) UpdateTopic(ctx context.Context, topicID int64, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&topics.Topic{}).Where("id = ?", topicID).Updates(updates).Error
}

// DeleteTopic removes the topic with its questions and options
func (r *TopicRepository) DeleteTopic(ctx context.Context, topicID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"DELETE FROM options WHERE question_id IN (SELECT id FROM questions WHERE topic_id = ?)",
			topicID,
		).Error; err != nil {
			return err
		}
		if err := tx.Where("topic_id = ?", topicID).Delete(&topics.Question{}).Error; err != nil {
			return err
		}
		if err := tx.Where("topic_id = ?", topicID).Delete(&topics.TopicStats{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&topics.Topic{}, topicID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *TopicRepository) CountQuestions(ctx context.Context, topicID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&topics.Question{}).
		Where("topic_id = ?", topicID).
		Count(&count).Error
	return count, err
}

// CreateQuestion inserts the question and its options together
func (r *TopicRepository) CreateQuestion(ctx context.Context, question *topics.Question, options []topics.Option) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(question).Error; err != nil {
			return err
		}
		for i := range options {
			options[i].QuestionID = question.ID
		}
		return tx.Create(&options).Error
	})
}

func (r *TopicRepository) FindQuestionByID(ctx context.Context, questionID int64) (*topics.Question, error) {
	var question topics.Question
	err := r.db.WithContext(ctx).Where("id = ?", questionID).First(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &question, nil
}

func (r *TopicRepository) FindOptionsByQuestionID(ctx context.Context, questionID int64) ([]topics.Option, error) {
	var options []topics.Option
	err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("id ASC").
		Find(&options).Error
	return options, err
}

// UpdateQuestion replaces the question text and its full option set in
// one transaction so a question never exists half-updated.
func (r *TopicRepository) UpdateQuestion(ctx context.Context, questionID int64, text string, options []topics.Option) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&topics.Question{}).Where("id = ?", questionID).Update("text", text).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", questionID).Delete(&topics.Option{}).Error; err != nil {
			return err
		}
		for i := range options {
			options[i].ID = 0
			options[i].QuestionID = questionID
		}
		return tx.Create(&options).Error
	})
}

func (r *TopicRepository) DeleteQuestion(ctx context.Context, questionID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", questionID).Delete(&topics.Option{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&topics.Question{}, questionID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *TopicRepository) SetQuestionImage(ctx context.Context, questionID int64, imageURL string) error {
	return r.db.WithContext(ctx).Model(&topics.Question{}).
		Where("id = ?", questionID).
		Update("image_url", imageURL).Error
}
