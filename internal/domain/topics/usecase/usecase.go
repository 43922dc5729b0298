package usecase

import (
	"context"
	"errors"
	"mime/multipart"

	"github.com/quizdeck/quizdeck/internal/domain/topics"
	"github.com/quizdeck/quizdeck/pkg/response"
	"gorm.io/gorm"
)

type TopicRepository interface {
	CreateTopic(ctx context.Context, topic *topics.Topic) error
	FindTopicByID(ctx context.Context, topicID int64) (*topics.Topic, error)
	FindAllTopics(ctx context.Context) ([]topics.TopicListItem, error)
	UpdateTopic(ctx context.Context, topicID int64, updates map[string]interface{}) error
	DeleteTopic(ctx context.Context, topicID int64) error
	CountQuestions(ctx context.Context, topicID int64) (int64, error)
	CreateQuestion(ctx context.Context, question *topics.Question, options []topics.Option) error
	FindQuestionByID(ctx context.Context, questionID int64) (*topics.Question, error)
	FindOptionsByQuestionID(ctx context.Context, questionID int64) ([]topics.Option, error)
	UpdateQuestion(ctx context.Context, questionID int64, text string, options []topics.Option) error
	DeleteQuestion(ctx context.Context, questionID int64) error
	SetQuestionImage(ctx context.Context, questionID int64, imageURL string) error
}

// StorageService is the slice of the object store this domain uses
type StorageService interface {
	UploadQuestionImage(ctx context.Context, file multipart.File, fileHeader *multipart.FileHeader, questionID int64) (string, error)
	DeleteQuestionImages(ctx context.Context, questionID int64) error
}

type TopicUsecase struct {
	repo           TopicRepository
	storageService StorageService
}

func NewTopicUsecase(repo TopicRepository, storageService StorageService) *TopicUsecase {
	return &TopicUsecase{
		repo:           repo,
		storageService: storageService,
	}
}

func (u *TopicUsecase) GetAllTopics(ctx context.Context) (*topics.TopicListResponse, error) {
	items, err := u.repo.FindAllTopics(ctx)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if items == nil {
		items = []topics.TopicListItem{}
	}
	return &topics.TopicListResponse{Topics: items}, nil
}

func (u *TopicUsecase) GetTopicDetail(ctx context.Context, topicID int64) (*topics.TopicDetailResponse, error) {
	topic, err := u.repo.FindTopicByID(ctx, topicID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if topic == nil {
		return nil, response.NotFound("topic_not_found")
	}

	count, err := u.repo.CountQuestions(ctx, topicID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}

	return &topics.TopicDetailResponse{
		ID:            topic.ID,
		Title:         topic.Title,
		Description:   topic.Description,
		QuestionCount: count,
	}, nil
}

func (u *TopicUsecase) CreateTopic(ctx context.Context, req topics.TopicRequest) (*topics.Topic, error) {
	topic := topics.Topic{
		Title:       req.Title,
		Description: req.Description,
	}
	if err := u.repo.CreateTopic(ctx, &topic); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.Conflict("topic_already_exists")
		}
		return nil, response.InternalServerError(err)
	}
	return &topic, nil
}

func (u *TopicUsecase) UpdateTopic(ctx context.Context, topicID int64, req topics.TopicRequest) (*topics.Topic, error) {
	topic, err := u.repo.FindTopicByID(ctx, topicID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if topic == nil {
		return nil, response.NotFound("topic_not_found")
	}

	if err := u.repo.UpdateTopic(ctx, topicID, map[string]interface{}{
		"title":       req.Title,
		"description": req.Description,
	}); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.Conflict("topic_already_exists")
		}
		return nil, response.InternalServerError(err)
	}

	topic.Title = req.Title
	topic.Description = req.Description
	return topic, nil
}

func (u *TopicUsecase) DeleteTopic(ctx context.Context, topicID int64) error {
	if err := u.repo.DeleteTopic(ctx, topicID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound("topic_not_found")
		}
		return response.InternalServerError(err)
	}
	return nil
}

func (u *TopicUsecase) CreateQuestion(ctx context.Context, topicID int64, req topics.QuestionRequest) (*topics.QuestionAdminView, error) {
	topic, err := u.repo.FindTopicByID(ctx, topicID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if topic == nil {
		return nil, response.NotFound("topic_not_found")
	}

	options, err := buildOptions(req.Options)
	if err != nil {
		return nil, err
	}

	question := topics.Question{
		TopicID: topicID,
		Text:    req.Text,
	}
	if err := u.repo.CreateQuestion(ctx, &question, options); err != nil {
		return nil, response.InternalServerError(err)
	}

	stored, err := u.repo.FindOptionsByQuestionID(ctx, question.ID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}

	return &topics.QuestionAdminView{
		ID:       question.ID,
		TopicID:  question.TopicID,
		Text:     question.Text,
		ImageURL: question.ImageURL,
		Options:  stored,
	}, nil
}

func (u *TopicUsecase) UpdateQuestion(ctx context.Context, questionID int64, req topics.QuestionRequest) (*topics.QuestionAdminView, error) {
	question, err := u.repo.FindQuestionByID(ctx, questionID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if question == nil {
		return nil, response.NotFound("question_not_found")
	}

	options, err := buildOptions(req.Options)
	if err != nil {
		return nil, err
	}

	if err := u.repo.UpdateQuestion(ctx, questionID, req.Text, options); err != nil {
		return nil, response.InternalServerError(err)
	}

	stored, err := u.repo.FindOptionsByQuestionID(ctx, questionID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}

	return &topics.QuestionAdminView{
		ID:       questionID,
		TopicID:  question.TopicID,
		Text:     req.Text,
		ImageURL: question.ImageURL,
		Options:  stored,
	}, nil
}

func (u *TopicUsecase) DeleteQuestion(ctx context.Context, questionID int64) error {
	question, err := u.repo.FindQuestionByID(ctx, questionID)
	if err != nil {
		return response.InternalServerError(err)
	}
	if question == nil {
		return response.NotFound("question_not_found")
	}

	if err := u.repo.DeleteQuestion(ctx, questionID); err != nil {
		return response.InternalServerError(err)
	}

	// Media cleanup is best-effort; a leftover object is not worth
	// failing the delete over.
	if question.ImageURL != nil {
		_ = u.storageService.DeleteQuestionImages(ctx, questionID)
	}
	return nil
}

func (u *TopicUsecase) UploadQuestionImage(ctx context.Context, questionID int64, file multipart.File, fileHeader *multipart.FileHeader) (*topics.UploadImageResponse, error) {
	question, err := u.repo.FindQuestionByID(ctx, questionID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if question == nil {
		return nil, response.NotFound("question_not_found")
	}

	url, err := u.storageService.UploadQuestionImage(ctx, file, fileHeader, questionID)
	if err != nil {
		return nil, response.BadRequest(err.Error())
	}

	if err := u.repo.SetQuestionImage(ctx, questionID, url); err != nil {
		return nil, response.InternalServerError(err)
	}

	return &topics.UploadImageResponse{
		QuestionID: questionID,
		ImageURL:   url,
	}, nil
}

// buildOptions validates the answer key: at least two choices and
// exactly one marked correct.
func buildOptions(reqs []topics.OptionRequest) ([]topics.Option, error) {
	if len(reqs) < 2 {
		return nil, response.BadRequest("at_least_two_options_required")
	}

	correct := 0
	options := make([]topics.Option, 0, len(reqs))
	for _, o := range reqs {
		if o.IsCorrect {
			correct++
		}
		options = append(options, topics.Option{
			Text:      o.Text,
			IsCorrect: o.IsCorrect,
		})
	}
	if correct != 1 {
		return nil, response.BadRequest("exactly_one_correct_option_required")
	}
	return options, nil
}
