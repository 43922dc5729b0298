package users

import "time"

// User represents an account. Password holds the bcrypt hash and is
// never serialized.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ExtID        string    `json:"ext_id" gorm:"type:varchar(64);uniqueIndex;not null"`
	Username     string    `json:"username" gorm:"type:varchar(30);uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Password     string    `json:"-" gorm:"type:varchar(255);not null"`
	Role         string    `json:"role" gorm:"type:varchar(10);not null;default:'USER'"`
	IsActive     bool      `json:"is_active" gorm:"not null;default:true"`
	DarkMode     bool      `json:"dark_mode" gorm:"not null;default:false"`
	TestDuration *int      `json:"test_duration"` // seconds per test, NULL = untimed
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// RefreshToken is the persisted record of one refresh token generation.
// A token is usable only while Blacklisted is false and ExpiresAt is in
// the future. Rows are reaped by the worker's expiry sweep.
type RefreshToken struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TokenHash   string    `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	JTI         string    `json:"jti" gorm:"type:varchar(36);uniqueIndex;not null"`
	UserID      int64     `json:"user_id" gorm:"index;not null"`
	ExpiresAt   time.Time `json:"expires_at" gorm:"not null"`
	Blacklisted bool      `json:"blacklisted" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// Request DTOs

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UpdateSettingsRequest struct {
	DarkMode     bool `json:"dark_mode"`
	TestDuration *int `json:"test_duration" validate:"omitempty,min=5,max=7200"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// Admin request DTOs

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=USER ADMIN"`
}

type UpdateUserRequest struct {
	Username string `json:"username" validate:"omitempty,min=3,max=30"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// Response DTOs

type UserProfile struct {
	ExtID        string    `json:"ext_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	DarkMode     bool      `json:"dark_mode"`
	TestDuration *int      `json:"test_duration"`
	CreatedAt    time.Time `json:"created_at"`
}

// TokenPairResponse is returned by register, login and refresh.
type TokenPairResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserProfile `json:"user"`
}

type CheckAuthResponse struct {
	IsValid bool        `json:"is_valid"`
	User    UserProfile `json:"user"`
}

type LogoutResponse struct {
	Message string `json:"message"`
}

type UserListWrapper struct {
	Users      []UserProfile  `json:"users"`
	Pagination PaginationMeta `json:"pagination"`
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

// Profile builds the client projection of a user, never including the
// password hash.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ExtID:        u.ExtID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         u.Role,
		IsActive:     u.IsActive,
		DarkMode:     u.DarkMode,
		TestDuration: u.TestDuration,
		CreatedAt:    u.CreatedAt,
	}
}
