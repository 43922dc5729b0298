package delivery

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/quizdeck/quizdeck/internal/domain/users"
	"github.com/quizdeck/quizdeck/pkg/constant"
	"github.com/quizdeck/quizdeck/pkg/middleware"
	"github.com/quizdeck/quizdeck/pkg/response"
)

type UserUsecase interface {
	Register(ctx context.Context, payload users.RegisterRequest) (*users.TokenPairResponse, error)
	Login(ctx context.Context, payload users.LoginRequest) (*users.TokenPairResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*users.TokenPairResponse, error)
	Logout(ctx context.Context, refreshToken string) (*users.LogoutResponse, error)
	CheckAuth(ctx context.Context, userExtID string) (*users.CheckAuthResponse, error)
	GetUserProfile(ctx context.Context, userExtID string) (*users.UserProfile, error)
	UpdateSettings(ctx context.Context, userExtID string, payload users.UpdateSettingsRequest) (*users.UserProfile, error)
	ChangePassword(ctx context.Context, userExtID string, payload users.ChangePasswordRequest) error

	ListUsers(ctx context.Context, page, limit int) (*users.UserListWrapper, error)
	CreateUser(ctx context.Context, payload users.CreateUserRequest) (*users.UserProfile, error)
	UpdateUser(ctx context.Context, targetExtID string, payload users.UpdateUserRequest) (*users.UserProfile, error)
	SetUserActive(ctx context.Context, targetExtID string, isActive bool) (*users.UserProfile, error)
	DeleteUser(ctx context.Context, actorExtID, targetExtID string) error
}

type Handler struct {
	ctx     context.Context
	usecase UserUsecase
}

func NewHandler(ctx context.Context, usecase UserUsecase) *Handler {
	return &Handler{
		ctx:     ctx,
		usecase: usecase,
	}
}

func (h *Handler) Register(c echo.Context) error {
	logger := middleware.GetLogger(c)
	ctx := h.ctx

	logger.Info().Msg("Starting user registration")

	var req users.RegisterRequest

	if err := c.Bind(&req); err != nil {
		logger.Error().Err(err).Msg("Failed to bind request")
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}

	if err := c.Validate(&req); err != nil {
		logger.Warn().Err(err).Msg("Validation failed")
		return response.Error(c, http.StatusBadRequest, "validation_failed", err.Error())
	}

	result, err := h.usecase.Register(ctx, req)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			logger.Error().Err(err).Msg("Failed to register user")
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		logger.Error().Err(err).Msg("Internal server error during registration")
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	logger.Info().Msg("User registered successfully")

	return response.Success(c, http.StatusCreated, "user_registered_successfully", result)
}

func (h *Handler) Login(c echo.Context) error {
	logger := middleware.GetLogger(c)
	ctx := h.ctx

	logger.Info().Msg("User login attempt")

	var req users.LoginRequest

	if err := c.Bind(&req); err != nil {
		logger.Error().Err(err).Msg("Failed to bind login request")
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}

	if err := c.Validate(&req); err != nil {
		logger.Warn().Err(err).Msg("Login validation failed")
		return response.Error(c, http.StatusBadRequest, "validation_failed", err.Error())
	}

	result, err := h.usecase.Login(ctx, req)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			logger.Warn().Msg("Login failed")
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		logger.Error().Err(err).Msg("Internal server error during login")
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	logger.Info().Msg("User logged in successfully")

	return response.Success(c, http.StatusOK, "login_successful", result)
}

func (h *Handler) Refresh(c echo.Context) error {
	logger := middleware.GetLogger(c)
	ctx := h.ctx

	var req users.RefreshTokenRequest

	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}

	result, err := h.usecase.Refresh(ctx, req.RefreshToken)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			logger.Warn().Str("reason", apiErr.Message).Msg("Token refresh rejected")
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusOK, "token_refreshed_successfully", result)
}

func (h *Handler) Logout(c echo.Context) error {
	ctx := h.ctx
	var req users.LogoutRequest

	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}

	result, err := h.usecase.Logout(ctx, req.RefreshToken)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusOK, "logout_successful", result)
}

// Check reports whether the bearer token still maps to an existing
// user. The JWT middleware has already verified the token itself.
func (h *Handler) Check(c echo.Context) error {
	ctx := h.ctx

	extID, ok := c.Get(string(constant.CtxKeyUserExtID)).(string)
	if !ok || extID == "" {
		return response.Error(c, http.StatusUnauthorized, "unauthorized", "invalid token")
	}

	result, err := h.usecase.CheckAuth(ctx, extID)
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

func (h *Handler) GetMe(c echo.Context) error {
	ctx := h.ctx

	extID, ok := c.Get(string(constant.CtxKeyUserExtID)).(string)
	if !ok || extID == "" {
		return response.Error(c, http.StatusUnauthorized, "unauthorized", "invalid token")
	}

	result, err := h.usecase.GetUserProfile(ctx, extID)
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

func (h *Handler) UpdateSettings(c echo.Context) error {
	ctx := h.ctx

	extID, ok := c.Get(string(constant.CtxKeyUserExtID)).(string)
	if !ok || extID == "" {
		return response.Error(c, http.StatusUnauthorized, "unauthorized", "invalid token")
	}

	var req users.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "validation_failed", err.Error())
	}

	result, err := h.usecase.UpdateSettings(ctx, extID, req)
	if err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusOK, "settings_updated", result)
}

func (h *Handler) ChangePassword(c echo.Context) error {
	ctx := h.ctx

	extID, ok := c.Get(string(constant.CtxKeyUserExtID)).(string)
	if !ok || extID == "" {
		return response.Error(c, http.StatusUnauthorized, "unauthorized", "invalid token")
	}

	var req users.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid_request_body", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "validation_failed", err.Error())
	}

	if err := h.usecase.ChangePassword(ctx, extID, req); err != nil {
		var apiErr *response.APIError
		if errors, ok := err.(*response.APIError); ok {
			apiErr = errors
			return response.Error(c, apiErr.Code, apiErr.Message, apiErr.Details)
		}
		return response.Error(c, http.StatusInternalServerError, "internal_server_error", err.Error())
	}

	return response.Success(c, http.StatusOK, "password_changed", nil)
}
