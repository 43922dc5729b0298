package usecase

import (
	"context"
	"net/http"
	"testing"

	"github.com/quizdeck/quizdeck/internal/domain/users"
	"github.com/quizdeck/quizdeck/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) createAdmin(t *testing.T, username, email string) *users.UserProfile {
	t.Helper()

	profile, err := e.uc.CreateUser(context.Background(), users.CreateUserRequest{
		Username: username,
		Email:    email,
		Password: "password123",
		Role:     "ADMIN",
	})
	require.NoError(t, err)
	return profile
}

func TestUsecase_CreateUser_WithRole(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	profile := env.createAdmin(t, "boss", "boss@example.com")

	assert.Equal(t, "ADMIN", profile.Role)
	assert.True(t, profile.IsActive)

	_, err := env.uc.CreateUser(context.Background(), users.CreateUserRequest{
		Username: "boss",
		Email:    "other@example.com",
		Password: "password123",
		Role:     "USER",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, response.CodeOf(err))
}

func TestUsecase_ListUsers_Pagination(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com")
	env.register(t, "bob", "bob@example.com")
	env.register(t, "carol", "carol@example.com")

	list, err := env.uc.ListUsers(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Len(t, list.Users, 2)
	assert.Equal(t, 1, list.Pagination.CurrentPage)
	assert.Equal(t, 2, list.Pagination.TotalPages)
	assert.EqualValues(t, 3, list.Pagination.TotalItems)

	list, err = env.uc.ListUsers(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Len(t, list.Users, 1)

	// Out-of-range values fall back to defaults
	list, err = env.uc.ListUsers(context.Background(), 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Pagination.CurrentPage)
	assert.Equal(t, 20, list.Pagination.Limit)
}

func TestUsecase_UpdateUser_LastAdminCannotBeDemoted(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.createAdmin(t, "boss", "boss@example.com")

	_, err := env.uc.UpdateUser(context.Background(), admin.ExtID, users.UpdateUserRequest{Role: "USER"})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, response.CodeOf(err))
	assert.Equal(t, "last_administrator", err.Error())

	// With a second active admin the demotion goes through
	env.createAdmin(t, "boss2", "boss2@example.com")
	profile, err := env.uc.UpdateUser(context.Background(), admin.ExtID, users.UpdateUserRequest{Role: "USER"})
	require.NoError(t, err)
	assert.Equal(t, "USER", profile.Role)
}

func TestUsecase_SetUserActive_LastAdminProtected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.createAdmin(t, "boss", "boss@example.com")

	_, err := env.uc.SetUserActive(context.Background(), admin.ExtID, false)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, response.CodeOf(err))
	assert.Equal(t, "last_administrator", err.Error())

	env.createAdmin(t, "boss2", "boss2@example.com")
	profile, err := env.uc.SetUserActive(context.Background(), admin.ExtID, false)
	require.NoError(t, err)
	assert.False(t, profile.IsActive)
}

func TestUsecase_SetUserActive_DeactivationRevokesSessions(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.createAdmin(t, "boss", "boss@example.com")
	pair := env.register(t, "alice", "alice@example.com")

	_, err := env.uc.SetUserActive(context.Background(), pair.User.ExtID, false)
	require.NoError(t, err)

	// The refresh token issued at registration is now revoked
	_, err = env.uc.Refresh(context.Background(), pair.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, "token_revoked", err.Error())

	// Reactivation does not resurrect revoked sessions
	_, err = env.uc.SetUserActive(context.Background(), pair.User.ExtID, true)
	require.NoError(t, err)
	_, err = env.uc.Refresh(context.Background(), pair.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, "token_revoked", err.Error())
}

func TestUsecase_DeleteUser_CannotDeleteSelf(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.createAdmin(t, "boss", "boss@example.com")

	err := env.uc.DeleteUser(context.Background(), admin.ExtID, admin.ExtID)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, response.CodeOf(err))
	assert.Equal(t, "cannot_delete_own_account", err.Error())
}

func TestUsecase_DeleteUser_LastAdminProtected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	actor := env.register(t, "alice", "alice@example.com")
	admin := env.createAdmin(t, "boss", "boss@example.com")

	err := env.uc.DeleteUser(context.Background(), actor.User.ExtID, admin.ExtID)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, response.CodeOf(err))
	assert.Equal(t, "last_administrator", err.Error())
}

func TestUsecase_DeleteUser_RemovesAccountAndTokens(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.createAdmin(t, "boss", "boss@example.com")
	pair := env.register(t, "alice", "alice@example.com")

	err := env.uc.DeleteUser(context.Background(), admin.ExtID, pair.User.ExtID)
	require.NoError(t, err)

	var userCount, tokenCount int64
	require.NoError(t, env.db.Model(&users.User{}).Where("ext_id = ?", pair.User.ExtID).Count(&userCount).Error)
	require.NoError(t, env.db.Model(&users.RefreshToken{}).Count(&tokenCount).Error)
	assert.EqualValues(t, 0, userCount)
	assert.EqualValues(t, 0, tokenCount)

	err = env.uc.DeleteUser(context.Background(), admin.ExtID, pair.User.ExtID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, response.CodeOf(err))
}
