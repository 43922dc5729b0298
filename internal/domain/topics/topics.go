package topics

import "time"

// Topic groups the questions a test is drawn from
type Topic struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string    `json:"title" gorm:"type:varchar(255);uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Topic) TableName() string {
	return "topics"
}

// Question is a multiple-choice question. ImageURL points at the media
// bucket when an illustration was uploaded.
type Question struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TopicID   int64     `json:"topic_id" gorm:"index;not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	ImageURL  *string   `json:"image_url" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Question) TableName() string {
	return "questions"
}

// Option is one answer choice. Exactly one option per question carries
// is_correct = true.
type Option struct {
	ID         int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	QuestionID int64  `json:"question_id" gorm:"index;not null"`
	Text       string `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool   `json:"is_correct" gorm:"not null;default:false"`
}

func (Option) TableName() string {
	return "options"
}

// TopicStats holds per-topic aggregates, refreshed by the worker after
// attempt submissions.
type TopicStats struct {
	TopicID         int64     `json:"topic_id" gorm:"primaryKey"`
	AttemptCount    int64     `json:"attempt_count" gorm:"not null;default:0"`
	AverageScorePct float64   `json:"average_score_pct" gorm:"not null;default:0"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (TopicStats) TableName() string {
	return "topic_stats"
}

// Request DTOs

type TopicRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description"`
}

type OptionRequest struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type QuestionRequest struct {
	Text    string          `json:"text" validate:"required"`
	Options []OptionRequest `json:"options" validate:"required,min=2,dive"`
}

// Response DTOs

type TopicListItem struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	QuestionCount int64  `json:"question_count"`
}

type TopicListResponse struct {
	Topics []TopicListItem `json:"topics"`
}

// OptionView omits is_correct; it is what test takers see.
type OptionView struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// QuestionAdminView includes the answer key, admin endpoints only.
type QuestionAdminView struct {
	ID       int64    `json:"id"`
	TopicID  int64    `json:"topic_id"`
	Text     string   `json:"text"`
	ImageURL *string  `json:"image_url"`
	Options  []Option `json:"options"`
}

type TopicDetailResponse struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	QuestionCount int64  `json:"question_count"`
}

type UploadImageResponse struct {
	QuestionID int64  `json:"question_id"`
	ImageURL   string `json:"image_url"`
}
