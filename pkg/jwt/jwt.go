package jwt

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/quizdeck/quizdeck/pkg/constant"
	"github.com/quizdeck/quizdeck/pkg/response"
)

// Verification errors. Expired is distinguishable from malformed or
// badly-signed so callers can tell the client to refresh vs re-login.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

type AccessClaims struct {
	UserExtID string `json:"user_ext_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	UserExtID string `json:"user_ext_id"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies the access/refresh token pair. Both
// secrets and both lifetimes are injected at construction from config,
// never read from the environment here.
type TokenService struct {
	accessKey     []byte
	refreshKey    []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewTokenService(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *TokenService {
	return &TokenService{
		accessKey:     []byte(accessSecret),
		refreshKey:    []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (t *TokenService) RefreshExpiry() time.Duration {
	return t.refreshExpiry
}

func (t *TokenService) GenerateAccessToken(userExtID string, role string) (string, error) {
	if userExtID == "" {
		return "", errors.New("user_ext_id cannot be empty")
	}

	claims := AccessClaims{
		UserExtID: userExtID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(t.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.accessKey)
}

// GenerateRefreshToken returns the signed token together with its JTI
// and expiry so the caller can persist the matching token record.
func (t *TokenService) GenerateRefreshToken(userExtID string) (token string, jti string, expiresAt time.Time, err error) {
	if userExtID == "" {
		return "", "", time.Time{}, errors.New("user_ext_id cannot be empty")
	}

	jti = uuid.NewString()
	expiresAt = time.Now().Add(t.refreshExpiry)
	claims := RefreshClaims{
		UserExtID: userExtID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshKey)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, jti, expiresAt, nil
}

func (t *TokenService) ValidateAccessToken(tokenStr string) (*AccessClaims, error) {
	// Remove "Bearer " prefix if exists
	if len(tokenStr) > 7 && tokenStr[:7] == "Bearer " {
		tokenStr = tokenStr[7:]
	}

	claims := &AccessClaims{}
	if err := t.parse(tokenStr, claims, t.accessKey); err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *TokenService) ValidateRefreshToken(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := t.parse(tokenStr, claims, t.refreshKey); err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *TokenService) parse(tokenStr string, claims jwt.Claims, key []byte) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("invalid signing method")
		}
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}

// JWTMiddleware verifies the Bearer access token and injects the user's
// ext id and role into the echo context for downstream handlers.
func (t *TokenService) JWTMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(echo.HeaderAuthorization)
			if token == "" {
				return response.Error(c, http.StatusUnauthorized, "unauthorized", "missing authorization token")
			}

			claims, err := t.ValidateAccessToken(token)
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					return response.Error(c, http.StatusUnauthorized, "session_expired", "access token expired, refresh required")
				}
				return response.Error(c, http.StatusUnauthorized, "unauthorized", err.Error())
			}

			c.Set(string(constant.CtxKeyUserExtID), claims.UserExtID)
			c.Set(string(constant.CtxKeyUserRole), claims.Role)
			return next(c)
		}
	}
}

// GetUserExtIDFromContext extracts user_ext_id from echo context
func GetUserExtIDFromContext(c echo.Context) (string, error) {
	userExtID, ok := c.Get(string(constant.CtxKeyUserExtID)).(string)
	if !ok || userExtID == "" {
		return "", errors.New("user_ext_id not found in context")
	}
	return userExtID, nil
}

// SetUserExtIDToContext sets user_ext_id to standard context
func SetUserExtIDToContext(ctx context.Context, userExtID string) context.Context {
	return context.WithValue(ctx, constant.CtxKeyUserExtID, userExtID)
}

// GetUserExtIDFromStdContext extracts user_ext_id from standard context
func GetUserExtIDFromStdContext(ctx context.Context) (string, error) {
	userExtID, ok := ctx.Value(constant.CtxKeyUserExtID).(string)
	if !ok || userExtID == "" {
		return "", errors.New("user_ext_id not found in context")
	}
	return userExtID, nil
}
