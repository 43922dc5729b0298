package repository

import (
	"context"
	"errors"
	"time"

	"github.com/quizdeck/quizdeck/internal/domain/users"
	"gorm.io/gorm"
)

// ErrTokenUnusable is returned by Rotate when the presented token was
// already blacklisted or expired by the time the transaction ran.
var ErrTokenUnusable = errors.New("refresh token expired or revoked")

func (u *User) CreateRefreshToken(ctx context.Context, token users.RefreshToken) error {
	return u.db.WithContext(ctx).Create(&token).Error
}

func (u *User) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*users.RefreshToken, error) {
	var token users.RefreshToken
	err := u.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (u *User) FindRefreshTokenByJTI(ctx context.Context, jti string) (*users.RefreshToken, error) {
	var token users.RefreshToken
	err := u.db.WithContext(ctx).Where("jti = ?", jti).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// BlacklistRefreshToken marks the token unusable. No rows matched is
// not an error: logout is idempotent.
func (u *User) BlacklistRefreshToken(ctx context.Context, tokenHash string) error {
	return u.db.WithContext(ctx).Model(&users.RefreshToken{}).
		Where("token_hash = ?", tokenHash).
		Update("blacklisted", true).Error
}

// BlacklistAllForUser revokes every session of a user at once, used
// when an account is deactivated.
func (u *User) BlacklistAllForUser(ctx context.Context, userID int64) error {
	return u.db.WithContext(ctx).Model(&users.RefreshToken{}).
		Where("user_id = ? AND blacklisted = ?", userID, false).
		Update("blacklisted", true).Error
}

// RotateRefreshToken blacklists the old record and inserts the new one
// in a single transaction, so a crash mid-rotation cannot leave a user
// with a retired old token and no persisted replacement. The old
// record's usability is re-checked inside the transaction, which is
// what rejects a replayed token that lost the race.
func (u *User) RotateRefreshToken(ctx context.Context, oldJTI string, newToken users.RefreshToken) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old users.RefreshToken
		if err := tx.Where("jti = ?", oldJTI).First(&old).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTokenUnusable
			}
			return err
		}
		if old.Blacklisted || old.ExpiresAt.Before(time.Now()) {
			return ErrTokenUnusable
		}

		if err := tx.Model(&users.RefreshToken{}).
			Where("jti = ?", oldJTI).
			Update("blacklisted", true).Error; err != nil {
			return err
		}

		return tx.Create(&newToken).Error
	})
}

// DeleteExpiredRefreshTokens reaps rows past their expiry. Called
// periodically by the worker.
func (u *User) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	result := u.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&users.RefreshToken{})
	return result.RowsAffected, result.Error
}
