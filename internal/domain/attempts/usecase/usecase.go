package usecase

import (
	"context"
	"math"

	"github.com/quizdeck/quizdeck/internal/domain/attempts"
	"github.com/quizdeck/quizdeck/internal/domain/topics"
	"github.com/quizdeck/quizdeck/internal/domain/users"
	"github.com/quizdeck/quizdeck/pkg/response"
	"github.com/rs/zerolog/log"
)

const defaultQuestionCount = 10

type AttemptRepository interface {
	RandomQuestions(ctx context.Context, topicID int64, count int) ([]topics.Question, error)
	OptionsForQuestions(ctx context.Context, questionIDs []int64) ([]topics.Option, error)
	CreateAttempt(ctx context.Context, attempt *attempts.Attempt, questions []attempts.AttemptQuestion) error
	FindAttemptByID(ctx context.Context, attemptID int64) (*attempts.Attempt, error)
	FindAttemptQuestions(ctx context.Context, attemptID int64) ([]attempts.AttemptQuestion, error)
	CompleteAttempt(ctx context.Context, attemptID int64, score int, graded []attempts.AttemptQuestion) error
	ListAttemptsByUser(ctx context.Context, userID int64, page, limit int) ([]attempts.AttemptListItem, int64, error)
	RefreshTopicStats(ctx context.Context, topicID int64) error
	ListTopicStats(ctx context.Context) ([]attempts.TopicStatsItem, error)
	CountTotals(ctx context.Context) (*attempts.StatsTotals, error)
}

// UserProvider is the slice of the users repository this domain needs
type UserProvider interface {
	FindUserByExtID(ctx context.Context, extID string) (*users.User, error)
}

// TopicProvider is the slice of the topics repository this domain needs
type TopicProvider interface {
	FindTopicByID(ctx context.Context, topicID int64) (*topics.Topic, error)
	CountQuestions(ctx context.Context, topicID int64) (int64, error)
}

type QueueService interface {
	PublishStatsJob(ctx context.Context, topicID int64) error
}

type AttemptUsecase struct {
	repo         AttemptRepository
	userProvider UserProvider
	topics       TopicProvider
	queueService QueueService
}

func NewAttemptUsecase(repo AttemptRepository, userProvider UserProvider, topicProvider TopicProvider, queueService QueueService) *AttemptUsecase {
	return &AttemptUsecase{
		repo:         repo,
		userProvider: userProvider,
		topics:       topicProvider,
		queueService: queueService,
	}
}

// Start draws a random question set from the topic and pins it to a
// new attempt. Options are served without the correctness flag.
func (u *AttemptUsecase) Start(ctx context.Context, userExtID string, req attempts.StartAttemptRequest) (*attempts.StartAttemptResponse, error) {
	user, err := u.userProvider.FindUserByExtID(ctx, userExtID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if user == nil {
		return nil, response.NotFound("user_not_found")
	}

	topic, err := u.topics.FindTopicByID(ctx, req.TopicID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if topic == nil {
		return nil, response.NotFound("topic_not_found")
	}

	count := req.QuestionCount
	if count == 0 {
		count = defaultQuestionCount
	}

	available, err := u.topics.CountQuestions(ctx, req.TopicID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if available < int64(count) {
		return nil, response.BadRequest("not_enough_questions")
	}

	questions, err := u.repo.RandomQuestions(ctx, req.TopicID, count)
	if err != nil {
		return nil, response.InternalServerError(err)
	}

	questionIDs := make([]int64, 0, len(questions))
	for _, q := range questions {
		questionIDs = append(questionIDs, q.ID)
	}
	options, err := u.repo.OptionsForQuestions(ctx, questionIDs)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	optionsByQuestion := map[int64][]attempts.ServedOption{}
	for _, o := range options {
		optionsByQuestion[o.QuestionID] = append(optionsByQuestion[o.QuestionID], attempts.ServedOption{
			ID:   o.ID,
			Text: o.Text,
		})
	}

	attempt := attempts.Attempt{
		UserID:        user.ID,
		TopicID:       req.TopicID,
		QuestionCount: count,
		Status:        attempts.AttemptStatusInProgress,
	}
	pinned := make([]attempts.AttemptQuestion, 0, len(questions))
	served := make([]attempts.ServedQuestion, 0, len(questions))
	for i, q := range questions {
		pinned = append(pinned, attempts.AttemptQuestion{
			QuestionID: q.ID,
			Position:   i + 1,
		})
		served = append(served, attempts.ServedQuestion{
			QuestionID: q.ID,
			Position:   i + 1,
			Text:       q.Text,
			ImageURL:   q.ImageURL,
			Options:    optionsByQuestion[q.ID],
		})
	}

	if err := u.repo.CreateAttempt(ctx, &attempt, pinned); err != nil {
		return nil, response.InternalServerError(err)
	}

	return &attempts.StartAttemptResponse{
		AttemptID:     attempt.ID,
		TopicID:       req.TopicID,
		QuestionCount: count,
		TimeLimit:     user.TestDuration,
		Questions:     served,
	}, nil
}

// Submit grades the answers against the attempt's pinned question set.
// A question left unanswered or answered with an option from another
// question counts as incorrect.
func (u *AttemptUsecase) Submit(ctx context.Context, userExtID string, attemptID int64, req attempts.SubmitAttemptRequest) (*attempts.AttemptResultResponse, error) {
	user, err := u.userProvider.FindUserByExtID(ctx, userExtID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if user == nil {
		return nil, response.NotFound("user_not_found")
	}

	attempt, err := u.repo.FindAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if attempt == nil || attempt.UserID != user.ID {
		return nil, response.NotFound("attempt_not_found")
	}
	if attempt.Status == attempts.AttemptStatusCompleted {
		return nil, response.Conflict("attempt_already_completed")
	}

	pinned, err := u.repo.FindAttemptQuestions(ctx, attemptID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}

	questionIDs := make([]int64, 0, len(pinned))
	for _, q := range pinned {
		questionIDs = append(questionIDs, q.QuestionID)
	}
	options, err := u.repo.OptionsForQuestions(ctx, questionIDs)
	if err != nil {
		return nil, response.InternalServerError(err)
	}

	correctOption := map[int64]int64{}
	optionOwner := map[int64]int64{}
	for _, o := range options {
		optionOwner[o.ID] = o.QuestionID
		if o.IsCorrect {
			correctOption[o.QuestionID] = o.ID
		}
	}

	chosen := map[int64]int64{}
	for _, a := range req.Answers {
		chosen[a.QuestionID] = a.OptionID
	}

	score := 0
	results := make([]attempts.QuestionResult, 0, len(pinned))
	for i := range pinned {
		q := &pinned[i]
		if optID, ok := chosen[q.QuestionID]; ok && optionOwner[optID] == q.QuestionID {
			id := optID
			q.ChosenOptionID = &id
			q.Correct = optID == correctOption[q.QuestionID]
		}
		if q.Correct {
			score++
		}
		results = append(results, attempts.QuestionResult{
			QuestionID:      q.QuestionID,
			ChosenOptionID:  q.ChosenOptionID,
			CorrectOptionID: correctOption[q.QuestionID],
			Correct:         q.Correct,
		})
	}

	if err := u.repo.CompleteAttempt(ctx, attemptID, score, pinned); err != nil {
		return nil, response.InternalServerError(err)
	}

	// Stats refresh runs out of band; a queue hiccup must not fail the
	// submission the user already completed.
	if err := u.queueService.PublishStatsJob(ctx, attempt.TopicID); err != nil {
		log.Error().Err(err).Int64("topic_id", attempt.TopicID).Msg("Failed to publish stats job")
	}

	completed, err := u.repo.FindAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}

	result := &attempts.AttemptResultResponse{
		AttemptID:     attemptID,
		TopicID:       attempt.TopicID,
		Score:         score,
		QuestionCount: attempt.QuestionCount,
		ScorePct:      float64(score) * 100 / float64(attempt.QuestionCount),
		Questions:     results,
	}
	if completed != nil {
		result.CompletedAt = completed.CompletedAt
	}
	return result, nil
}

func (u *AttemptUsecase) MyResults(ctx context.Context, userExtID string, page, limit int) (*attempts.AttemptListWrapper, error) {
	user, err := u.userProvider.FindUserByExtID(ctx, userExtID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if user == nil {
		return nil, response.NotFound("user_not_found")
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	items, total, err := u.repo.ListAttemptsByUser(ctx, user.ID, page, limit)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if items == nil {
		items = []attempts.AttemptListItem{}
	}

	return &attempts.AttemptListWrapper{
		Attempts: items,
		Pagination: attempts.PaginationMeta{
			CurrentPage: page,
			TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
			TotalItems:  total,
			Limit:       limit,
		},
	}, nil
}

// AdminStats serves the dashboard: live totals plus the per-topic
// aggregates the worker maintains.
func (u *AttemptUsecase) AdminStats(ctx context.Context) (*attempts.AdminStatsResponse, error) {
	totals, err := u.repo.CountTotals(ctx)
	if err != nil {
		return nil, response.InternalServerError(err)
	}

	topicStats, err := u.repo.ListTopicStats(ctx)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if topicStats == nil {
		topicStats = []attempts.TopicStatsItem{}
	}

	return &attempts.AdminStatsResponse{
		Totals: *totals,
		Topics: topicStats,
	}, nil
}

// RefreshTopicStats recomputes one topic's aggregates. Called by the
// worker when it consumes a stats job.
func (u *AttemptUsecase) RefreshTopicStats(ctx context.Context, topicID int64) error {
	return u.repo.RefreshTopicStats(ctx, topicID)
}
