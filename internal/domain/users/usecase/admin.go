package usecase

import (
	"context"
	"errors"
	"math"

	"github.com/quizdeck/quizdeck/internal/domain/users"
	"github.com/quizdeck/quizdeck/pkg/constant"
	"github.com/quizdeck/quizdeck/pkg/response"
	"github.com/segmentio/ksuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Admin-side user management.

func (u *Usecase) ListUsers(ctx context.Context, page, limit int) (*users.UserListWrapper, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	records, total, err := u.repo.ListUsers(ctx, page, limit)
	if err != nil {
		return nil, response.InternalServerError(err)
	}

	profiles := make([]users.UserProfile, 0, len(records))
	for i := range records {
		profiles = append(profiles, records[i].Profile())
	}

	return &users.UserListWrapper{
		Users: profiles,
		Pagination: users.PaginationMeta{
			CurrentPage: page,
			TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
			TotalItems:  total,
			Limit:       limit,
		},
	}, nil
}

func (u *Usecase) CreateUser(ctx context.Context, payload users.CreateUserRequest) (*users.UserProfile, error) {
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
		Role:         payload.Role,
		IsActive:     true,
		TestDuration: &duration,
	}

	if err := u.repo.CreateNewUser(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.Conflict("user_already_exists")
		}
		return nil, response.InternalServerError(err)
	}

	profile := user.Profile()
	return &profile, nil
}

func (u *Usecase) UpdateUser(ctx context.Context, targetExtID string, payload users.UpdateUserRequest) (*users.UserProfile, error) {
	target, err := u.repo.FindUserByExtID(ctx, targetExtID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if target == nil {
		return nil, response.NotFound("user_not_found")
	}

	updates := map[string]interface{}{}
	if payload.Username != "" {
		updates["username"] = payload.Username
		target.Username = payload.Username
	}
	if payload.Email != "" {
		updates["email"] = payload.Email
		target.Email = payload.Email
	}
	if payload.Role != "" {
		// Demoting the last active admin leaves nobody to administer.
		if target.Role == constant.RoleAdmin && payload.Role != constant.RoleAdmin && target.IsActive {
			remaining, err := u.repo.CountActiveAdmins(ctx, target.ID)
			if err != nil {
				return nil, response.InternalServerError(err)
			}
			if remaining == 0 {
				return nil, response.Forbidden("last_administrator")
			}
		}
		updates["role"] = payload.Role
		target.Role = payload.Role
	}

	if len(updates) > 0 {
		if err := u.repo.UpdateUser(ctx, target.ID, updates); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, response.Conflict("user_already_exists")
			}
			return nil, response.InternalServerError(err)
		}
	}

	profile := target.Profile()
	return &profile, nil
}

// SetUserActive toggles the active flag. Deactivating the last active
// admin is rejected; deactivation also revokes every open session of
// the account.
func (u *Usecase) SetUserActive(ctx context.Context, targetExtID string, isActive bool) (*users.UserProfile, error) {
	target, err := u.repo.FindUserByExtID(ctx, targetExtID)
	if err != nil {
		return nil, response.InternalServerError(err)
	}
	if target == nil {
		return nil, response.NotFound("user_not_found")
	}

	if !isActive && target.Role == constant.RoleAdmin && target.IsActive {
		remaining, err := u.repo.CountActiveAdmins(ctx, target.ID)
		if err != nil {
			return nil, response.InternalServerError(err)
		}
		if remaining == 0 {
			return nil, response.Forbidden("last_administrator")
		}
	}

	if err := u.repo.UpdateUser(ctx, target.ID, map[string]interface{}{
		"is_active": isActive,
	}); err != nil {
		return nil, response.InternalServerError(err)
	}

	if !isActive {
		if err := u.repo.BlacklistAllForUser(ctx, target.ID); err != nil {
			return nil, response.InternalServerError(err)
		}
	}

	target.IsActive = isActive
	profile := target.Profile()
	return &profile, nil
}

// DeleteUser removes an account and everything it owns. Admins cannot
// delete themselves via this path, and the last active admin is
// protected the same way as for deactivation.
func (u *Usecase) DeleteUser(ctx context.Context, actorExtID, targetExtID string) error {
	if actorExtID == targetExtID {
		return response.Forbidden("cannot_delete_own_account")
	}

	target, err := u.repo.FindUserByExtID(ctx, targetExtID)
	if err != nil {
		return response.InternalServerError(err)
	}
	if target == nil {
		return response.NotFound("user_not_found")
	}

	if target.Role == constant.RoleAdmin && target.IsActive {
		remaining, err := u.repo.CountActiveAdmins(ctx, target.ID)
		if err != nil {
			return response.InternalServerError(err)
		}
		if remaining == 0 {
			return response.Forbidden("last_administrator")
		}
	}

	if err := u.repo.DeleteUser(ctx, target.ID); err != nil {
		return response.InternalServerError(err)
	}
	return nil
}
