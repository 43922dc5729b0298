package delivery

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/quizdeck/quizdeck/internal/domain/attempts"
	"github.com/quizdeck/quizdeck/pkg/constant"
	"github.com/quizdeck/quizdeck/pkg/middleware"
	"github.com/quizdeck/quizdeck/pkg/response"
)

type AttemptUsecase interface {
	Start(ctx context.Context, userExtID string, req attempts.StartAttemptRequest) (*attempts.StartAttemptResponse, error)
	Submit(ctx context.Context, userExtID string, attemptID int64, req attempts.SubmitAttemptRequest) (*attempts.AttemptResultResponse, error)
	MyResults(ctx context.Context, userExtID string, page, limit int) (*attempts.AttemptListWrapper, error)
	AdminStats(ctx context.Context) (*attempts.AdminStatsResponse, error)
}

type AttemptHandler struct {
	ctx     context.Context
	usecase AttemptUsecase
}

func NewAttemptHandler(ctx context.Context, usecase AttemptUsecase) *AttemptHandler {
	return &AttemptHandler{
		ctx:     ctx,
		usecase: usecase,
	}
}

func callerExtID(c echo.Context) (string, bool) {
	extID, ok := c.Get(string(constant.CtxKeyUserExtID)).(string)
	return extID, ok && extID != ""
}

// Start begins a test run against a topic (Protected)
// POST /api/v1/attempts
func (h *AttemptHandler) Start(c echo.Context) error {
	logger := middleware.GetLogger(c)
	ctx := h.ctx

	extID, ok := callerExtID(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "unauthorized", "invalid token")
	}

	var req attempts.StartAttemptRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "validation_failed", err.Error())
	}

	result, err := h.usecase.Start(ctx, extID, req)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			logger.Warn().Str("reason", apiErr.Message).Msg("Attempt start rejected")
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusCreated, "attempt_started", result)
}

// Submit grades an attempt (Protected)
// POST /api/v1/attempts/:id/submit
func (h *AttemptHandler) Submit(c echo.Context) error {
	logger := middleware.GetLogger(c)
	ctx := h.ctx

	extID, ok := callerExtID(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "unauthorized", "invalid token")
	}

	attemptID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_attempt_id", err.Error())
	}

	var req attempts.SubmitAttemptRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "validation_failed", err.Error())
	}

	result, err := h.usecase.Submit(ctx, extID, attemptID, req)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			logger.Warn().Str("reason", apiErr.Message).Msg("Attempt submit rejected")
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusOK, "attempt_completed", result)
}

// MyResults lists the caller's attempt history (Protected)
// GET /api/v1/attempts/me?page=1&limit=20
func (h *AttemptHandler) MyResults(c echo.Context) error {
	ctx := h.ctx

	extID, ok := callerExtID(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "unauthorized", "invalid token")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	result, err := h.usecase.MyResults(ctx, extID, page, limit)
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

// AdminStats returns platform-wide aggregates (Admin only)
// GET /api/v1/admin/stats
func (h *AttemptHandler) AdminStats(c echo.Context) error {
	ctx := h.ctx

	result, err := h.usecase.AdminStats(ctx)
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
