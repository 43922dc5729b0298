package attempts

import "time"

// AttemptStatus represents the lifecycle of a test attempt
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// Attempt is one run of a test: a fixed set of randomly drawn
// questions, graded on submit.
type Attempt struct {
	ID            int64         `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID        int64         `json:"user_id" gorm:"index;not null"`
	TopicID       int64         `json:"topic_id" gorm:"index;not null"`
	Score         int           `json:"score" gorm:"not null;default:0"`
	QuestionCount int           `json:"question_count" gorm:"not null"`
	Status        AttemptStatus `json:"status" gorm:"type:varchar(20);not null;default:'IN_PROGRESS'"`
	StartedAt     time.Time     `json:"started_at" gorm:"autoCreateTime"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// AttemptQuestion pins a drawn question to an attempt so the same set
// is graded that was served.
type AttemptQuestion struct {
	ID             int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	AttemptID      int64  `json:"attempt_id" gorm:"index;not null"`
	QuestionID     int64  `json:"question_id" gorm:"not null"`
	Position       int    `json:"position" gorm:"not null"`
	ChosenOptionID *int64 `json:"chosen_option_id,omitempty"`
	Correct        bool   `json:"correct" gorm:"not null;default:false"`
}

func (AttemptQuestion) TableName() string {
	return "attempt_questions"
}

// Request DTOs

type StartAttemptRequest struct {
	TopicID       int64 `json:"topic_id" validate:"required,gt=0"`
	QuestionCount int   `json:"question_count" validate:"omitempty,min=1,max=50"`
}

type AnswerSubmission struct {
	QuestionID int64 `json:"question_id" validate:"required,gt=0"`
	OptionID   int64 `json:"option_id" validate:"required,gt=0"`
}

type SubmitAttemptRequest struct {
	Answers []AnswerSubmission `json:"answers" validate:"required,min=1,dive"`
}

// Response DTOs

// ServedOption is an answer choice as shown to the test taker; the
// correctness flag never leaves the server here.
type ServedOption struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type ServedQuestion struct {
	QuestionID int64          `json:"question_id"`
	Position   int            `json:"position"`
	Text       string         `json:"text"`
	ImageURL   *string        `json:"image_url,omitempty"`
	Options    []ServedOption `json:"options"`
}

type StartAttemptResponse struct {
	AttemptID     int64            `json:"attempt_id"`
	TopicID       int64            `json:"topic_id"`
	QuestionCount int              `json:"question_count"`
	TimeLimit     *int             `json:"time_limit,omitempty"` // seconds, from user settings
	Questions     []ServedQuestion `json:"questions"`
}

type QuestionResult struct {
	QuestionID      int64  `json:"question_id"`
	ChosenOptionID  *int64 `json:"chosen_option_id,omitempty"`
	CorrectOptionID int64  `json:"correct_option_id"`
	Correct         bool   `json:"correct"`
}

type AttemptResultResponse struct {
	AttemptID     int64            `json:"attempt_id"`
	TopicID       int64            `json:"topic_id"`
	Score         int              `json:"score"`
	QuestionCount int              `json:"question_count"`
	ScorePct      float64          `json:"score_pct"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	Questions     []QuestionResult `json:"questions"`
}

type AttemptListItem struct {
	ID            int64         `json:"id"`
	TopicID       int64         `json:"topic_id"`
	TopicTitle    string        `json:"topic_title"`
	Score         int           `json:"score"`
	QuestionCount int           `json:"question_count"`
	Status        AttemptStatus `json:"status"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

type AttemptListWrapper struct {
	Attempts   []AttemptListItem `json:"attempts"`
	Pagination PaginationMeta    `json:"pagination"`
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

// Admin statistics

type TopicStatsItem struct {
	TopicID         int64   `json:"topic_id"`
	TopicTitle      string  `json:"topic_title"`
	AttemptCount    int64   `json:"attempt_count"`
	AverageScorePct float64 `json:"average_score_pct"`
}

type StatsTotals struct {
	Users     int64 `json:"users"`
	Topics    int64 `json:"topics"`
	Questions int64 `json:"questions"`
	Attempts  int64 `json:"attempts"`
}

type AdminStatsResponse struct {
	Totals StatsTotals      `json:"totals"`
	Topics []TopicStatsItem `json:"topics"`
}
