package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/example/embutidos/internal/config"
)

type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken 生成 JWT
func GenerateToken(cfg *config.JWTConfig, userID int64, email, role string) (string, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// ParseToken 解析 JWT
func ParseToken(cfg *config.JWTConfig, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

// Authenticator 先查缓存再解析 JWT
type Authenticator struct {
	cfg   *config.JWTConfig
	cache *TokenCache
}

// NewAuthenticator cache 可以为 nil
func NewAuthenticator(cfg *config.JWTConfig, cache *TokenCache) *Authenticator {
	return &Authenticator{cfg: cfg, cache: cache}
}

// Verify 校验 token 并返回 claims；过期的缓存项同样被拒绝
func (a *Authenticator) Verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, errors.New("missing token")
	}
	if a.cache != nil {
		claims, ok, err := a.cache.Get(ctx, token)
		if err != nil {
			zap.L().Warn("token cache get failed", zap.Error(err))
		}
		if ok {
			if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
				return nil, jwt.ErrTokenExpired
			}
			return claims, nil
		}
	}

	claims, err := ParseToken(a.cfg, token)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		if err := a.cache.Set(ctx, token, claims); err != nil {
			zap.L().Warn("token cache set failed", zap.Error(err))
		}
	}
	return claims, nil
}

// Issue 签发 token
func (a *Authenticator) Issue(userID int64, email, role string) (string, error) {
	return GenerateToken(a.cfg, userID, email, role)
}
