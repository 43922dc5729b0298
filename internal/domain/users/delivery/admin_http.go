package delivery

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/quizdeck/quizdeck/internal/domain/users"
	"github.com/quizdeck/quizdeck/pkg/constant"
	"github.com/quizdeck/quizdeck/pkg/middleware"
	"github.com/quizdeck/quizdeck/pkg/response"
)

// Admin user management endpoints. All of these sit behind the JWT and
// AdminOnly middleware.

// ListUsers returns paginated users (Admin only)
// GET /api/v1/admin/users?page=1&limit=20
func (h *Handler) ListUsers(c echo.Context) error {
	ctx := h.ctx

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	result, err := h.usecase.ListUsers(ctx, page, limit)
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

// CreateUser creates an account with an explicit role (Admin only)
// POST /api/v1/admin/users
func (h *Handler) CreateUser(c echo.Context) error {
	logger := middleware.GetLogger(c)
	ctx := h.ctx

	var req users.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "validation_failed", err.Error())
	}

	result, err := h.usecase.CreateUser(ctx, req)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			logger.Warn().Str("reason", apiErr.Message).Msg("Admin user creation rejected")
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusCreated, "user_created", result)
}

// UpdateUser updates profile fields or role (Admin only)
// PUT /api/v1/admin/users/:ext_id
func (h *Handler) UpdateUser(c echo.Context) error {
	ctx := h.ctx

	var req users.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "validation_failed", err.Error())
	}

	result, err := h.usecase.UpdateUser(ctx, c.Param("ext_id"), req)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusOK, "user_updated", result)
}

// SetUserActive toggles the active flag (Admin only)
// PATCH /api/v1/admin/users/:ext_id/active
func (h *Handler) SetUserActive(c echo.Context) error {
	logger := middleware.GetLogger(c)
	ctx := h.ctx

	var req users.SetActiveRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "validation_failed", err.Error())
	}

	result, err := h.usecase.SetUserActive(ctx, c.Param("ext_id"), *req.IsActive)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			logger.Warn().Str("reason", apiErr.Message).Msg("Active toggle rejected")
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusOK, "user_updated", result)
}

// DeleteUser removes an account and its owned data (Admin only)
// DELETE /api/v1/admin/users/:ext_id
func (h *Handler) DeleteUser(c echo.Context) error {
	ctx := h.ctx

	actorExtID, ok := c.Get(string(constant.CtxKeyUserExtID)).(string)
	if !ok || actorExtID == "" {
		return response.Error(c, http.StatusUnauthorized, "unauthorized", "invalid token")
	}

	if err := h.usecase.DeleteUser(ctx, actorExtID, c.Param("ext_id")); err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}
