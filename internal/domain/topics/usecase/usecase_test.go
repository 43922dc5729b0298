package usecase

import (
	"context"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/quizdeck/quizdeck/internal/domain/topics"
	"github.com/quizdeck/quizdeck/internal/domain/topics/repository"
	"github.com/quizdeck/quizdeck/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeStorage records calls instead of talking to an object store
type fakeStorage struct {
	uploads []int64
	deletes []int64
}

func (f *fakeStorage) UploadQuestionImage(_ context.Context, _ multipart.File, _ *multipart.FileHeader, questionID int64) (string, error) {
	f.uploads = append(f.uploads, questionID)
	return "http://minio.local/quiz-media/question-images/question-1.png", nil
}

func (f *fakeStorage) DeleteQuestionImages(_ context.Context, questionID int64) error {
	f.deletes = append(f.deletes, questionID)
	return nil
}

type topicEnv struct {
	db      *gorm.DB
	uc      *TopicUsecase
	storage *fakeStorage
}

func newTopicEnv(t *testing.T) *topicEnv {
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
		&topics.Topic{},
		&topics.Question{},
		&topics.Option{},
		&topics.TopicStats{},
	))

	storage := &fakeStorage{}
	return &topicEnv{
		db:      db,
		uc:      NewTopicUsecase(repository.NewTopicRepository(db), storage),
		storage: storage,
	}
}

func (e *topicEnv) createTopic(t *testing.T, title string) *topics.Topic {
	t.Helper()

	topic, err := e.uc.CreateTopic(context.Background(), topics.TopicRequest{
		Title:       title,
		Description: "about " + title,
	})
	require.NoError(t, err)
	return topic
}

func defaultOptions() []topics.OptionRequest {
	return []topics.OptionRequest{
		{Text: "red", IsCorrect: false},
		{Text: "green", IsCorrect: true},
		{Text: "blue", IsCorrect: false},
	}
}

func (e *topicEnv) createQuestion(t *testing.T, topicID int64, text string) *topics.QuestionAdminView {
	t.Helper()

	q, err := e.uc.CreateQuestion(context.Background(), topicID, topics.QuestionRequest{
		Text:    text,
		Options: defaultOptions(),
	})
	require.NoError(t, err)
	return q
}

func TestTopicUsecase_CreateTopic_DuplicateTitle(t *testing.T) {
	t.Parallel()

	env := newTopicEnv(t)
	env.createTopic(t, "Networking")

	_, err := env.uc.CreateTopic(context.Background(), topics.TopicRequest{Title: "Networking"})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, response.CodeOf(err))
	assert.Equal(t, "topic_already_exists", err.Error())
}

func TestTopicUsecase_GetAllTopics_IncludesQuestionCounts(t *testing.T) {
	t.Parallel()

	env := newTopicEnv(t)
	networking := env.createTopic(t, "Networking")
	env.createTopic(t, "Databases")
	env.createQuestion(t, networking.ID, "What does TCP stand for?")
	env.createQuestion(t, networking.ID, "What port does HTTP use?")

	list, err := env.uc.GetAllTopics(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Topics, 2)

	counts := map[string]int64{}
	for _, item := range list.Topics {
		counts[item.Title] = item.QuestionCount
	}
	assert.EqualValues(t, 2, counts["Networking"])
	assert.EqualValues(t, 0, counts["Databases"])
}

func TestTopicUsecase_GetTopicDetail(t *testing.T) {
	t.Parallel()

	env := newTopicEnv(t)
	topic := env.createTopic(t, "Networking")
	env.createQuestion(t, topic.ID, "What does TCP stand for?")

	detail, err := env.uc.GetTopicDetail(context.Background(), topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "Networking", detail.Title)
	assert.EqualValues(t, 1, detail.QuestionCount)

	_, err = env.uc.GetTopicDetail(context.Background(), 9999)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, response.CodeOf(err))
}

func TestTopicUsecase_CreateQuestion_AnswerKeyValidation(t *testing.T) {
	t.Parallel()

	env := newTopicEnv(t)
	topic := env.createTopic(t, "Networking")

	tests := []struct {
		name    string
		options []topics.OptionRequest
		wantMsg string
	}{
		{
			name:    "single option",
			options: []topics.OptionRequest{{Text: "yes", IsCorrect: true}},
			wantMsg: "at_least_two_options_required",
		},
		{
			name: "no correct option",
			options: []topics.OptionRequest{
				{Text: "red"}, {Text: "blue"},
			},
			wantMsg: "exactly_one_correct_option_required",
		},
		{
			name: "two correct options",
			options: []topics.OptionRequest{
				{Text: "red", IsCorrect: true}, {Text: "blue", IsCorrect: true},
			},
			wantMsg: "exactly_one_correct_option_required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.uc.CreateQuestion(context.Background(), topic.ID, topics.QuestionRequest{
				Text:    "pick one",
				Options: tt.options,
			})
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, response.CodeOf(err))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}

	// Nothing was persisted by the rejected requests
	var count int64
	require.NoError(t, env.db.Model(&topics.Question{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestTopicUsecase_CreateQuestion_PersistsOptions(t *testing.T) {
	t.Parallel()

	env := newTopicEnv(t)
	topic := env.createTopic(t, "Networking")

	q := env.createQuestion(t, topic.ID, "What does TCP stand for?")
	require.Len(t, q.Options, 3)

	correct := 0
	for _, o := range q.Options {
		assert.Equal(t, q.ID, o.QuestionID)
		if o.IsCorrect {
			correct++
		}
	}
	assert.Equal(t, 1, correct)

	_, err := env.uc.CreateQuestion(context.Background(), 9999, topics.QuestionRequest{
		Text:    "orphan",
		Options: defaultOptions(),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, response.CodeOf(err))
}

func TestTopicUsecase_UpdateQuestion_ReplacesOptions(t *testing.T) {
	t.Parallel()

	env := newTopicEnv(t)
	topic := env.createTopic(t, "Networking")
	q := env.createQuestion(t, topic.ID, "What does TCP stand for?")

	updated, err := env.uc.UpdateQuestion(context.Background(), q.ID, topics.QuestionRequest{
		Text: "What does UDP stand for?",
		Options: []topics.OptionRequest{
			{Text: "User Datagram Protocol", IsCorrect: true},
			{Text: "Unified Data Pipe", IsCorrect: false},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "What does UDP stand for?", updated.Text)
	require.Len(t, updated.Options, 2)

	// The previous option rows are gone, not orphaned
	var count int64
	require.NoError(t, env.db.Model(&topics.Option{}).Where("question_id = ?", q.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestTopicUsecase_DeleteTopic_Cascades(t *testing.T) {
	t.Parallel()

	env := newTopicEnv(t)
	topic := env.createTopic(t, "Networking")
	env.createQuestion(t, topic.ID, "What does TCP stand for?")
	env.createQuestion(t, topic.ID, "What port does HTTP use?")

	require.NoError(t, env.uc.DeleteTopic(context.Background(), topic.ID))

	var questionCount, optionCount int64
	require.NoError(t, env.db.Model(&topics.Question{}).Count(&questionCount).Error)
	require.NoError(t, env.db.Model(&topics.Option{}).Count(&optionCount).Error)
	assert.EqualValues(t, 0, questionCount)
	assert.EqualValues(t, 0, optionCount)

	err := env.uc.DeleteTopic(context.Background(), topic.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, response.CodeOf(err))
}

func TestTopicUsecase_DeleteQuestion_CleansUpImage(t *testing.T) {
	t.Parallel()

	env := newTopicEnv(t)
	topic := env.createTopic(t, "Networking")
	q := env.createQuestion(t, topic.ID, "What does TCP stand for?")

	url := "http://minio.local/quiz-media/question-images/question-1.png"
	require.NoError(t, env.db.Model(&topics.Question{}).
		Where("id = ?", q.ID).Update("image_url", url).Error)

	require.NoError(t, env.uc.DeleteQuestion(context.Background(), q.ID))
	assert.Equal(t, []int64{q.ID}, env.storage.deletes)

	err := env.uc.DeleteQuestion(context.Background(), q.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, response.CodeOf(err))
}

func TestTopicUsecase_UploadQuestionImage(t *testing.T) {
	t.Parallel()

	env := newTopicEnv(t)
	topic := env.createTopic(t, "Networking")
	q := env.createQuestion(t, topic.ID, "What does TCP stand for?")

	res, err := env.uc.UploadQuestionImage(context.Background(), q.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, q.ID, res.QuestionID)
	assert.NotEmpty(t, res.ImageURL)
	assert.Equal(t, []int64{q.ID}, env.storage.uploads)

	var stored topics.Question
	require.NoError(t, env.db.First(&stored, q.ID).Error)
	require.NotNil(t, stored.ImageURL)
	assert.Equal(t, res.ImageURL, *stored.ImageURL)

	_, err = env.uc.UploadQuestionImage(context.Background(), 9999, nil, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, response.CodeOf(err))
}
