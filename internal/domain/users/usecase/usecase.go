package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/quizdeck/quizdeck/internal/domain/users"
	"github.com/quizdeck/quizdeck/internal/domain/users/repository"
	"github.com/quizdeck/quizdeck/pkg/constant"
	"github.com/quizdeck/quizdeck/pkg/jwt"
	"github.com/quizdeck/quizdeck/pkg/response"
	"github.com/segmentio/ksuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const defaultTestDurationSeconds = 30

type UserRepository interface {
	CreateNewUser(ctx context.Context, user *users.User) error
	FindUserByEmail(ctx context.Context, email string) (*users.User, error)
	FindUserByUsername(ctx context.Context, username string) (*users.User, error)
	FindUserByExtID(ctx context.Context, extID string) (*users.User, error)
	FindUserByID(ctx context.Context, userID int64) (*users.User, error)
	ListUsers(ctx context.Context, page, limit int) ([]users.User, int64, error)
	UpdateUser(ctx context.Context, userID int64, updates map[string]interface{}) error
	CountActiveAdmins(ctx context.Context, excludeUserID int64) (int64, error)
	DeleteUser(ctx context.Context, userID int64) error

	CreateRefreshToken(ctx context.Context, token users.RefreshToken) error
	FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*users.RefreshToken, error)
	FindRefreshTokenByJTI(ctx context.Context, jti string) (*users.RefreshToken, error)
	BlacklistRefreshToken(ctx context.Context, tokenHash string) error
	BlacklistAllForUser(ctx context.Context, userID int64) error
	RotateRefreshToken(ctx context.Context, oldJTI string, newToken users.RefreshToken) error
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)
}

type Usecase struct {
	repo     UserRepository
	tokenSvc *jwt.TokenService
}

func NewUsecase(repo UserRepository, tokenSvc *jwt.TokenService) *Usecase {
	return &Usecase{
		repo:     repo,
		tokenSvc: tokenSvc,
	}
}

// hashToken is how refresh tokens are stored: only the SHA-256 of the
// signed token ever touches the database.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// isSentinel catches clients that serialized an absent value into the
// literal strings "undefined" or "null".
func isSentinel(token string) bool {
	return token == "" || token == "undefined" || token == "null"
}

func (u *Usecase) Register(ctx context.Context, payload users.RegisterRequest) (*users.TokenPairResponse, error) {
	// Best-effort pre-checks; the unique constraints are authoritative.
	if existing, err := u.repo.FindUserByEmail(ctx, payload.Email); err != nil {
		return nil, response.InternalServerError(err)
	} else if existing != nil {
		return nil, response.Conflict("email_already_exists")
	}
	if existing, err := u.repo.FindUserByUsername(ctx, payload.Username); err != nil {
		return nil, response.InternalServerError(err)
	} else if existing != nil {
		return nil, response.Conflict("username_already_exists")
	}

	hashPassword, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, response.InternalServerError(err)
	}

	duration := defaultTestDurationSeconds
	user := users.User{
		ExtID:        "user_" + ksuid.New().String(),
		Username:     payload.Username,
		Email:        payload.Email,
		Password:     string(hashPassword),
		Role:         constant.RoleUser,
		IsActive:     true,
		DarkMode:     false,
		TestDuration: &duration,
	}

	if err := u.repo.CreateNewUser(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.Conflict("user_already_exists")
		}
		return nil, response.InternalServerError(err)
	}

	return u.issueTokenPair(ctx, &user)
}

func (u *Usecase) Login(ctx context.Context, payload users.LoginRequest) (*users.TokenPairResponse, error) {
	user, err := u.repo.FindUserByEmail(ctx, payload.Email)
	if err != nil {
		return nil, response.InternalServerError(err)
	}

	// Same status and message for unknown email and wrong password so
	// neither check is distinguishable from outside.
	if user == nil {
		return nil, response.Unauthorized("invalid_credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)); err != nil {
		return nil, response.Unauthorized("invalid_credentials")
	}

	if !user.IsActive {
		return nil, response.Forbidden("account_disabled")
	}

	// Prior sessions stay valid; concurrent logins are allowed.
	return u.issueTokenPair(ctx, user)
}

func (u *Usecase) Refresh(ctx context.Context, refreshToken string) (*users.TokenPairResponse, error) {
	if isSentinel(refreshToken) {
		return nil, response.BadRequest("refresh_token_required")
	}

	tokenHash := hashToken(refreshToken)

	// Blacklist check comes before signature verification: a revoked
	// token is rejected no matter what its claims say.
	stored, err := u.repo.FindRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if stored != nil && stored.Blacklisted {
		return nil, response.Unauthorized("token_revoked")
	}

	claims, err := u.tokenSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, response.Unauthorized("refresh_token_expired")
		}
		return nil, response.Unauthorized("invalid_refresh_token")
	}

	user, err := u.repo.FindUserByExtID(ctx, claims.UserExtID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if user == nil {
		return nil, response.NotFound("user_not_found")
	}
	if !user.IsActive {
		return nil, response.Forbidden("account_disabled")
	}

	// The record must match both the JTI and the owning user and still
	// be usable. A token whose record was already rotated away fails
	// here, which is what defeats replay of the predecessor.
	record, err := u.repo.FindRefreshTokenByJTI(ctx, claims.ID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if record == nil || record.UserID != user.ID || record.Blacklisted || record.ExpiresAt.Before(time.Now()) {
		return nil, response.Unauthorized("token_revoked")
	}

	accessToken, err := u.tokenSvc.GenerateAccessToken(user.ExtID, user.Role)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	newRefresh, newJTI, expiresAt, err := u.tokenSvc.GenerateRefreshToken(user.ExtID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}

	newRecord := users.RefreshToken{
		TokenHash: hashToken(newRefresh),
		JTI:       newJTI,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}

	// Rotate-on-use: retiring the old record and persisting the new
	// one happens atomically.
	if err := u.repo.RotateRefreshToken(ctx, claims.ID, newRecord); err != nil {
		if errors.Is(err, repository.ErrTokenUnusable) {
			return nil, response.Unauthorized("token_revoked")
		}
		return nil, response.InternalServerError(err)
	}

	return &users.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		User:         user.Profile(),
	}, nil
}

func (u *Usecase) Logout(ctx context.Context, refreshToken string) (*users.LogoutResponse, error) {
	if isSentinel(refreshToken) {
		return nil, response.BadRequest("refresh_token_required")
	}

	// Idempotent: blacklisting an unknown or already-blacklisted token
	// is a no-op, not an error.
	if err := u.repo.BlacklistRefreshToken(ctx, hashToken(refreshToken)); err != nil {
		return nil, response.InternalServerError(err)
	}

	return &users.LogoutResponse{Message: "logged_out"}, nil
}

func (u *Usecase) CheckAuth(ctx context.Context, userExtID string) (*users.CheckAuthResponse, error) {
	user, err := u.repo.FindUserByExtID(ctx, userExtID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if user == nil {
		return nil, response.NotFound("user_not_found")
	}

	return &users.CheckAuthResponse{
		IsValid: true,
		User:    user.Profile(),
	}, nil
}

func (u *Usecase) GetUserProfile(ctx context.Context, userExtID string) (*users.UserProfile, error) {
	user, err := u.repo.FindUserByExtID(ctx, userExtID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if user == nil {
		return nil, response.NewError(http.StatusNotFound, "user_not_found", nil)
	}

	profile := user.Profile()
	return &profile, nil
}

func (u *Usecase) UpdateSettings(ctx context.Context, userExtID string, payload users.UpdateSettingsRequest) (*users.UserProfile, error) {
	user, err := u.repo.FindUserByExtID(ctx, userExtID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if user == nil {
		return nil, response.NotFound("user_not_found")
	}

	if err := u.repo.UpdateUser(ctx, user.ID, map[string]interface{}{
		"dark_mode":     payload.DarkMode,
		"test_duration": payload.TestDuration,
	}); err != nil {
		return nil, response.InternalServerError(err)
	}

	user.DarkMode = payload.DarkMode
	user.TestDuration = payload.TestDuration
	profile := user.Profile()
	return &profile, nil
}

func (u *Usecase) ChangePassword(ctx context.Context, userExtID string, payload users.ChangePasswordRequest) error {
	user, err := u.repo.FindUserByExtID(ctx, userExtID)
	if err != nil {
		return response.InternalServerError(err)
	}
	if user == nil {
		return response.NotFound("user_not_found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.CurrentPassword)); err != nil {
		return response.Unauthorized("invalid_credentials")
	}

	hashPassword, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return response.InternalServerError(err)
	}

	if err := u.repo.UpdateUser(ctx, user.ID, map[string]interface{}{
		"password": string(hashPassword),
	}); err != nil {
		return response.InternalServerError(err)
	}

	return nil
}

// DeleteExpiredTokens runs the expiry sweep over the token store.
// Exposed for the worker's periodic trigger.
func (u *Usecase) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	return u.repo.DeleteExpiredRefreshTokens(ctx)
}

// issueTokenPair mints an access and refresh token for the user and
// persists the refresh token record.
func (u *Usecase) issueTokenPair(ctx context.Context, user *users.User) (*users.TokenPairResponse, error) {
	accessToken, err := u.tokenSvc.GenerateAccessToken(user.ExtID, user.Role)
	if err != nil {
		return nil, response.InternalServerError(err)
	}

	refreshToken, jti, expiresAt, err := u.tokenSvc.GenerateRefreshToken(user.ExtID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}

	record := users.RefreshToken{
		TokenHash: hashToken(refreshToken),
		JTI:       jti,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}
	if err := u.repo.CreateRefreshToken(ctx, record); err != nil {
		return nil, response.InternalServerError(err)
	}

	return &users.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Profile(),
	}, nil
}
