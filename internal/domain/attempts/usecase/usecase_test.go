package usecase

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/quizdeck/quizdeck/internal/domain/attempts"
	"github.com/quizdeck/quizdeck/internal/domain/attempts/repository"
	"github.com/quizdeck/quizdeck/internal/domain/topics"
	topicRepository "github.com/quizdeck/quizdeck/internal/domain/topics/repository"
	"github.com/quizdeck/quizdeck/internal/domain/users"
	userRepository "github.com/quizdeck/quizdeck/internal/domain/users/repository"
	"github.com/quizdeck/quizdeck/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeQueue records published topic ids instead of touching redis
type fakeQueue struct {
	published []int64
}

func (f *fakeQueue) PublishStatsJob(_ context.Context, topicID int64) error {
	f.published = append(f.published, topicID)
	return nil
}

type attemptEnv struct {
	db    *gorm.DB
	uc    *AttemptUsecase
	repo  *repository.AttemptRepository
	queue *fakeQueue
	user  *users.User
	topic *topics.Topic
}

func newAttemptEnv(t *testing.T) *attemptEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&users.User{},
		&topics.Topic{},
		&topics.Question{},
		&topics.Option{},
		&topics.TopicStats{},
		&attempts.Attempt{},
		&attempts.AttemptQuestion{},
	))

	duration := 60
	user := &users.User{
		ExtID:        "user_test",
		Username:     "alice",
		Email:        "alice@example.com",
		Password:     "hash",
		Role:         "USER",
		IsActive:     true,
		TestDuration: &duration,
	}
	require.NoError(t, db.Create(user).Error)

	topic := &topics.Topic{Title: "Networking"}
	require.NoError(t, db.Create(topic).Error)

	queue := &fakeQueue{}
	attemptRepo := repository.NewAttemptRepository(db)
	return &attemptEnv{
		db:    db,
		repo:  attemptRepo,
		queue: queue,
		user:  user,
		topic: topic,
		uc: NewAttemptUsecase(
			attemptRepo,
			userRepository.NewUser(db),
			topicRepository.NewTopicRepository(db),
			queue,
		),
	}
}

// seedQuestions inserts n questions with three options each and
// returns question id -> correct option id
func (e *attemptEnv) seedQuestions(t *testing.T, n int) map[int64]int64 {
	t.Helper()

	answerKey := map[int64]int64{}
	for i := 0; i < n; i++ {
		q := topics.Question{TopicID: e.topic.ID, Text: fmt.Sprintf("question %d", i+1)}
		require.NoError(t, e.db.Create(&q).Error)

		options := []topics.Option{
			{QuestionID: q.ID, Text: "a"},
			{QuestionID: q.ID, Text: "b", IsCorrect: true},
			{QuestionID: q.ID, Text: "c"},
		}
		require.NoError(t, e.db.Create(&options).Error)
		answerKey[q.ID] = options[1].ID
	}
	return answerKey
}

func TestAttemptUsecase_Start_DrawsPinnedQuestionSet(t *testing.T) {
	t.Parallel()

	env := newAttemptEnv(t)
	env.seedQuestions(t, 12)

	res, err := env.uc.Start(context.Background(), env.user.ExtID, attempts.StartAttemptRequest{
		TopicID:       env.topic.ID,
		QuestionCount: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, res.QuestionCount)
	require.NotNil(t, res.TimeLimit)
	assert.Equal(t, 60, *res.TimeLimit)
	require.Len(t, res.Questions, 5)

	// No duplicate questions in a draw
	seen := map[int64]bool{}
	for i, q := range res.Questions {
		assert.False(t, seen[q.QuestionID])
		seen[q.QuestionID] = true
		assert.Equal(t, i+1, q.Position)
		assert.Len(t, q.Options, 3)
	}

	// The drawn set is pinned to the attempt
	pinned, err := env.repo.FindAttemptQuestions(context.Background(), res.AttemptID)
	require.NoError(t, err)
	require.Len(t, pinned, 5)
	for i, p := range pinned {
		assert.Equal(t, res.Questions[i].QuestionID, p.QuestionID)
	}
}

func TestAttemptUsecase_Start_DefaultQuestionCount(t *testing.T) {
	t.Parallel()

	env := newAttemptEnv(t)
	env.seedQuestions(t, 15)

	res, err := env.uc.Start(context.Background(), env.user.ExtID, attempts.StartAttemptRequest{
		TopicID: env.topic.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, res.QuestionCount)
	assert.Len(t, res.Questions, 10)
}

func TestAttemptUsecase_Start_NotEnoughQuestions(t *testing.T) {
	t.Parallel()

	env := newAttemptEnv(t)
	env.seedQuestions(t, 3)

	_, err := env.uc.Start(context.Background(), env.user.ExtID, attempts.StartAttemptRequest{
		TopicID:       env.topic.ID,
		QuestionCount: 5,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, response.CodeOf(err))
	assert.Equal(t, "not_enough_questions", err.Error())
}

func TestAttemptUsecase_Start_UnknownTopic(t *testing.T) {
	t.Parallel()

	env := newAttemptEnv(t)

	_, err := env.uc.Start(context.Background(), env.user.ExtID, attempts.StartAttemptRequest{
		TopicID: 9999,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, response.CodeOf(err))
	assert.Equal(t, "topic_not_found", err.Error())
}

func TestAttemptUsecase_Submit_GradesAgainstAnswerKey(t *testing.T) {
	t.Parallel()

	env := newAttemptEnv(t)
	answerKey := env.seedQuestions(t, 4)

	res, err := env.uc.Start(context.Background(), env.user.ExtID, attempts.StartAttemptRequest{
		TopicID:       env.topic.ID,
		QuestionCount: 4,
	})
	require.NoError(t, err)

	// Answer the first two correctly, the third wrong, leave the
	// fourth unanswered
	answers := []attempts.AnswerSubmission{
		{QuestionID: res.Questions[0].QuestionID, OptionID: answerKey[res.Questions[0].QuestionID]},
		{QuestionID: res.Questions[1].QuestionID, OptionID: answerKey[res.Questions[1].QuestionID]},
	}
	for _, o := range res.Questions[2].Options {
		if o.ID != answerKey[res.Questions[2].QuestionID] {
			answers = append(answers, attempts.AnswerSubmission{
				QuestionID: res.Questions[2].QuestionID,
				OptionID:   o.ID,
			})
			break
		}
	}

	result, err := env.uc.Submit(context.Background(), env.user.ExtID, res.AttemptID, attempts.SubmitAttemptRequest{
		Answers: answers,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Score)
	assert.Equal(t, 4, result.QuestionCount)
	assert.InDelta(t, 50.0, result.ScorePct, 0.001)
	require.NotNil(t, result.CompletedAt)
	assert.WithinDuration(t, time.Now(), *result.CompletedAt, 5*time.Second)

	require.Len(t, result.Questions, 4)
	assert.True(t, result.Questions[0].Correct)
	assert.True(t, result.Questions[1].Correct)
	assert.False(t, result.Questions[2].Correct)
	assert.False(t, result.Questions[3].Correct)
	assert.Nil(t, result.Questions[3].ChosenOptionID)

	// The submission queued a stats refresh for the topic
	assert.Equal(t, []int64{env.topic.ID}, env.queue.published)
}

func TestAttemptUsecase_Submit_ForeignOptionCountsIncorrect(t *testing.T) {
	t.Parallel()

	env := newAttemptEnv(t)
	answerKey := env.seedQuestions(t, 2)

	res, err := env.uc.Start(context.Background(), env.user.ExtID, attempts.StartAttemptRequest{
		TopicID:       env.topic.ID,
		QuestionCount: 2,
	})
	require.NoError(t, err)

	// Answer question 1 with question 2's correct option
	result, err := env.uc.Submit(context.Background(), env.user.ExtID, res.AttemptID, attempts.SubmitAttemptRequest{
		Answers: []attempts.AnswerSubmission{
			{
				QuestionID: res.Questions[0].QuestionID,
				OptionID:   answerKey[res.Questions[1].QuestionID],
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	assert.False(t, result.Questions[0].Correct)
	assert.Nil(t, result.Questions[0].ChosenOptionID)
}

func TestAttemptUsecase_Submit_AlreadyCompleted(t *testing.T) {
	t.Parallel()

	env := newAttemptEnv(t)
	env.seedQuestions(t, 2)

	res, err := env.uc.Start(context.Background(), env.user.ExtID, attempts.StartAttemptRequest{
		TopicID:       env.topic.ID,
		QuestionCount: 2,
	})
	require.NoError(t, err)

	submit := attempts.SubmitAttemptRequest{
		Answers: []attempts.AnswerSubmission{
			{QuestionID: res.Questions[0].QuestionID, OptionID: res.Questions[0].Options[0].ID},
		},
	}
	_, err = env.uc.Submit(context.Background(), env.user.ExtID, res.AttemptID, submit)
	require.NoError(t, err)

	_, err = env.uc.Submit(context.Background(), env.user.ExtID, res.AttemptID, submit)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, response.CodeOf(err))
	assert.Equal(t, "attempt_already_completed", err.Error())
}

func TestAttemptUsecase_Submit_ForeignAttemptLooksNonexistent(t *testing.T) {
	t.Parallel()

	env := newAttemptEnv(t)
	env.seedQuestions(t, 2)

	other := &users.User{
		ExtID:    "user_other",
		Username: "bob",
		Email:    "bob@example.com",
		Password: "hash",
		Role:     "USER",
		IsActive: true,
	}
	require.NoError(t, env.db.Create(other).Error)

	res, err := env.uc.Start(context.Background(), env.user.ExtID, attempts.StartAttemptRequest{
		TopicID:       env.topic.ID,
		QuestionCount: 2,
	})
	require.NoError(t, err)

	_, err = env.uc.Submit(context.Background(), other.ExtID, res.AttemptID, attempts.SubmitAttemptRequest{
		Answers: []attempts.AnswerSubmission{
			{QuestionID: res.Questions[0].QuestionID, OptionID: res.Questions[0].Options[0].ID},
		},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, response.CodeOf(err))
	assert.Equal(t, "attempt_not_found", err.Error())
}

func TestAttemptUsecase_MyResults(t *testing.T) {
	t.Parallel()

	env := newAttemptEnv(t)
	answerKey := env.seedQuestions(t, 2)

	res, err := env.uc.Start(context.Background(), env.user.ExtID, attempts.StartAttemptRequest{
		TopicID:       env.topic.ID,
		QuestionCount: 2,
	})
	require.NoError(t, err)
	_, err = env.uc.Submit(context.Background(), env.user.ExtID, res.AttemptID, attempts.SubmitAttemptRequest{
		Answers: []attempts.AnswerSubmission{
			{QuestionID: res.Questions[0].QuestionID, OptionID: answerKey[res.Questions[0].QuestionID]},
		},
	})
	require.NoError(t, err)

	list, err := env.uc.MyResults(context.Background(), env.user.ExtID, 1, 20)
	require.NoError(t, err)
	require.Len(t, list.Attempts, 1)
	assert.Equal(t, "Networking", list.Attempts[0].TopicTitle)
	assert.Equal(t, 1, list.Attempts[0].Score)
	assert.Equal(t, attempts.AttemptStatusCompleted, list.Attempts[0].Status)
	assert.EqualValues(t, 1, list.Pagination.TotalItems)
}

func TestAttemptUsecase_StatsRefreshAndAdminStats(t *testing.T) {
	t.Parallel()

	env := newAttemptEnv(t)
	answerKey := env.seedQuestions(t, 2)
	ctx := context.Background()

	// Two completed attempts: one perfect, one blank
	first, err := env.uc.Start(ctx, env.user.ExtID, attempts.StartAttemptRequest{TopicID: env.topic.ID, QuestionCount: 2})
	require.NoError(t, err)
	_, err = env.uc.Submit(ctx, env.user.ExtID, first.AttemptID, attempts.SubmitAttemptRequest{
		Answers: []attempts.AnswerSubmission{
			{QuestionID: first.Questions[0].QuestionID, OptionID: answerKey[first.Questions[0].QuestionID]},
			{QuestionID: first.Questions[1].QuestionID, OptionID: answerKey[first.Questions[1].QuestionID]},
		},
	})
	require.NoError(t, err)

	second, err := env.uc.Start(ctx, env.user.ExtID, attempts.StartAttemptRequest{TopicID: env.topic.ID, QuestionCount: 2})
	require.NoError(t, err)
	_, err = env.uc.Submit(ctx, env.user.ExtID, second.AttemptID, attempts.SubmitAttemptRequest{
		Answers: []attempts.AnswerSubmission{
			{QuestionID: second.Questions[0].QuestionID, OptionID: 999999},
		},
	})
	require.NoError(t, err)

	// An in-progress attempt must not influence the aggregates
	_, err = env.uc.Start(ctx, env.user.ExtID, attempts.StartAttemptRequest{TopicID: env.topic.ID, QuestionCount: 2})
	require.NoError(t, err)

	require.NoError(t, env.uc.RefreshTopicStats(ctx, env.topic.ID))

	stats, err := env.uc.AdminStats(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 1, stats.Totals.Users)
	assert.EqualValues(t, 1, stats.Totals.Topics)
	assert.EqualValues(t, 2, stats.Totals.Questions)
	assert.EqualValues(t, 3, stats.Totals.Attempts)

	require.Len(t, stats.Topics, 1)
	assert.EqualValues(t, 2, stats.Topics[0].AttemptCount)
	assert.InDelta(t, 50.0, stats.Topics[0].AverageScorePct, 0.001)
}
