package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService() *TokenService {
	return NewTokenService("test-access-secret", "test-refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestTokenService_AccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService()

	token, err := svc.GenerateAccessToken("user_abc123", "ADMIN")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user_abc123", claims.UserExtID)
	assert.Equal(t, "ADMIN", claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenService_AccessToken_BearerPrefixStripped(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService()

	token, err := svc.GenerateAccessToken("user_abc123", "USER")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user_abc123", claims.UserExtID)
}

func TestTokenService_RefreshToken_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService()

	token, jti, expiresAt, err := svc.GenerateRefreshToken("user_abc123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)

	claims, err := svc.ValidateRefreshToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user_abc123", claims.UserExtID)
	assert.Equal(t, jti, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
}

func TestTokenService_RefreshToken_UniqueJTIs(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService()

	_, jti1, _, err := svc.GenerateRefreshToken("user_abc123")
	require.NoError(t, err)
	_, jti2, _, err := svc.GenerateRefreshToken("user_abc123")
	require.NoError(t, err)

	assert.NotEqual(t, jti1, jti2)
}

func TestTokenService_ExpiredToken_ReturnsErrTokenExpired(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("test-access-secret", "test-refresh-secret", -time.Minute, -time.Minute)

	access, err := svc.GenerateAccessToken("user_abc123", "USER")
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(access)
	assert.ErrorIs(t, err, ErrTokenExpired)

	refresh, _, _, err := svc.GenerateRefreshToken("user_abc123")
	require.NoError(t, err)
	_, err = svc.ValidateRefreshToken(refresh)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_WrongKey_ReturnsErrTokenInvalid(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService()
	other := NewTokenService("other-access-secret", "other-refresh-secret", 15*time.Minute, 7*24*time.Hour)

	token, err := svc.GenerateAccessToken("user_abc123", "USER")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_AccessTokenRejectedAsRefresh(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService()

	access, err := svc.GenerateAccessToken("user_abc123", "USER")
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_GarbageToken_ReturnsErrTokenInvalid(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService()

	_, err := svc.ValidateAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_EmptyUserExtID_Rejected(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService()

	_, err := svc.GenerateAccessToken("", "USER")
	require.Error(t, err)

	_, _, _, err = svc.GenerateRefreshToken("")
	require.Error(t, err)
}
