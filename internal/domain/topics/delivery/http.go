package delivery

import (
	"context"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/quizdeck/quizdeck/internal/domain/topics"
	"github.com/quizdeck/quizdeck/pkg/middleware"
	"github.com/quizdeck/quizdeck/pkg/response"
)

type TopicUsecase interface {
	GetAllTopics(ctx context.Context) (*topics.TopicListResponse, error)
	GetTopicDetail(ctx context.Context, topicID int64) (*topics.TopicDetailResponse, error)
	CreateTopic(ctx context.Context, req topics.TopicRequest) (*topics.Topic, error)
	UpdateTopic(ctx context.Context, topicID int64, req topics.TopicRequest) (*topics.Topic, error)
	DeleteTopic(ctx context.Context, topicID int64) error
	CreateQuestion(ctx context.Context, topicID int64, req topics.QuestionRequest) (*topics.QuestionAdminView, error)
	UpdateQuestion(ctx context.Context, questionID int64, req topics.QuestionRequest) (*topics.QuestionAdminView, error)
	DeleteQuestion(ctx context.Context, questionID int64) error
	UploadQuestionImage(ctx context.Context, questionID int64, file multipart.File, fileHeader *multipart.FileHeader) (*topics.UploadImageResponse, error)
}

type TopicHandler struct {
	ctx     context.Context
	usecase TopicUsecase
}

func NewTopicHandler(ctx context.Context, usecase TopicUsecase) *TopicHandler {
	return &TopicHandler{
		ctx:     ctx,
		usecase: usecase,
	}
}

// GetAllTopics returns every topic with question counts (Public)
// GET /api/v1/topics
func (h *TopicHandler) GetAllTopics(c echo.Context) error {
	ctx := h.ctx

	result, err := h.usecase.GetAllTopics(ctx)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusOK, "success", result)
}

// GetTopicDetail returns a topic with its question count (Public)
// GET /api/v1/topics/:id
func (h *TopicHandler) GetTopicDetail(c echo.Context) error {
	ctx := h.ctx

	topicID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_topic_id", err.Error())
	}

	result, err := h.usecase.GetTopicDetail(ctx, topicID)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusOK, "success", result)
}

// CreateTopic creates a new topic (Admin only)
// POST /api/v1/admin/topics
func (h *TopicHandler) CreateTopic(c echo.Context) error {
	ctx := h.ctx

	var req topics.TopicRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "validation_failed", err.Error())
	}

	result, err := h.usecase.CreateTopic(ctx, req)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusCreated, "topic_created", result)
}

// UpdateTopic updates topic metadata (Admin only)
// PUT /api/v1/admin/topics/:id
func (h *TopicHandler) UpdateTopic(c echo.Context) error {
	ctx := h.ctx

	topicID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_topic_id", err.Error())
	}

	var req topics.TopicRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "validation_failed", err.Error())
	}

	result, err := h.usecase.UpdateTopic(ctx, topicID, req)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusOK, "topic_updated", result)
}

// DeleteTopic deletes a topic with its questions (Admin only)
// DELETE /api/v1/admin/topics/:id
func (h *TopicHandler) DeleteTopic(c echo.Context) error {
	ctx := h.ctx

	topicID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_topic_id", err.Error())
	}

	if err := h.usecase.DeleteTopic(ctx, topicID); err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

// CreateQuestion adds a question with options to a topic (Admin only)
// POST /api/v1/admin/topics/:id/questions
func (h *TopicHandler) CreateQuestion(c echo.Context) error {
	logger := middleware.GetLogger(c)
	ctx := h.ctx

	topicID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_topic_id", err.Error())
	}

	var req topics.QuestionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "validation_failed", err.Error())
	}

	result, err := h.usecase.CreateQuestion(ctx, topicID, req)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			logger.Warn().Str("reason", apiErr.Message).Msg("Question creation rejected")
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusCreated, "question_created", result)
}

// UpdateQuestion replaces question text and options (Admin only)
// PUT /api/v1/admin/questions/:id
func (h *TopicHandler) UpdateQuestion(c echo.Context) error {
	ctx := h.ctx

	questionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_question_id", err.Error())
	}

	var req topics.QuestionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "validation_failed", err.Error())
	}

	result, err := h.usecase.UpdateQuestion(ctx, questionID, req)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusOK, "question_updated", result)
}

// DeleteQuestion removes a question (Admin only)
// DELETE /api/v1/admin/questions/:id
func (h *TopicHandler) DeleteQuestion(c echo.Context) error {
	ctx := h.ctx

	questionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_question_id", err.Error())
	}

	if err := h.usecase.DeleteQuestion(ctx, questionID); err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

// UploadQuestionImage stores an illustration image (Admin only)
// POST /api/v1/admin/questions/:id/image
func (h *TopicHandler) UploadQuestionImage(c echo.Context) error {
	logger := middleware.GetLogger(c)
	ctx := h.ctx

	questionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_question_id", err.Error())
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "image_file_required", err.Error())
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_image_file", err.Error())
	}
	defer file.Close()

	result, err := h.usecase.UploadQuestionImage(ctx, questionID, file, fileHeader)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			logger.Warn().Str("reason", apiErr.Message).Msg("Question image upload rejected")
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusCreated, "image_uploaded", result)
}
