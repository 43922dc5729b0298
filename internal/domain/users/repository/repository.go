package repository

import (
	"context"
	"errors"

	"github.com/quizdeck/quizdeck/internal/domain/users"
	"gorm.io/gorm"
)

type User struct {
	db *gorm.DB
}

func NewUser(db *gorm.DB) *User {
	return &User{db: db}
}

func (u *User) CreateNewUser(ctx context.Context, user *users.User) error {
	return u.db.WithContext(ctx).Create(user).Error
}

func (u *User) FindUserByEmail(ctx context.Context, email string) (*users.User, error) {
	return u.findOne(ctx, "email = ?", email)
}

func (u *User) FindUserByUsername(ctx context.Context, username string) (*users.User, error) {
	return u.findOne(ctx, "username = ?", username)
}

func (u *User) FindUserByExtID(ctx context.Context, extID string) (*users.User, error) {
	return u.findOne(ctx, "ext_id = ?", extID)
}

func (u *User) FindUserByID(ctx context.Context, userID int64) (*users.User, error) {
	return u.findOne(ctx, "id = ?", userID)
}

// findOne returns nil without error when no record matches
func (u *User) findOne(ctx context.Context, query string, arg interface{}) (*users.User, error) {
	var user users.User
	err := u.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (u *User) ListUsers(ctx context.Context, page, limit int) ([]users.User, int64, error) {
	var results []users.User
	var totalCount int64

	offset := (page - 1) * limit

	query := u.db.WithContext(ctx).Model(&users.User{})
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, 0, err
	}

	return results, totalCount, nil
}

func (u *User) UpdateUser(ctx context.Context, userID int64, updates map[string]interface{}) error {
	return u.db.WithContext(ctx).Model(&users.User{}).Where("id = ?", userID).Updates(updates).Error
}

// CountActiveAdmins counts active admin accounts excluding the given
// user id. Used for the last-administrator protection.
func (u *User) CountActiveAdmins(ctx context.Context, excludeUserID int64) (int64, error) {
	var count int64
	err := u.db.WithContext(ctx).Model(&users.User{}).
		Where("role = ? AND is_active = ? AND id <> ?", "ADMIN", true, excludeUserID).
		Count(&count).Error
	return count, err
}

// DeleteUser removes the user and everything it owns: refresh tokens
// and test attempts with their per-question rows.
func (u *User) DeleteUser(ctx context.Context, userID int64) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&users.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Exec(
			"DELETE FROM attempt_questions WHERE attempt_id IN (SELECT id FROM attempts WHERE user_id = ?)",
			userID,
		).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM attempts WHERE user_id = ?", userID).Error; err != nil {
			return err
		}
		result := tx.Delete(&users.User{}, userID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
