package auth

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"

	radix "github.com/mediocregopher/radix/v3"
	"go.uber.org/zap"

	infraredis "github.com/example/embutidos/internal/infra/redis"
)

// TokenCache JWT 解析结果缓存，和购物车共用同一个分片键空间
type TokenCache struct {
	redis radix.Client
	keys  *infraredis.Keyspace
	ttl   time.Duration
}

// NewTokenCache 构建缓存器
func NewTokenCache(redis radix.Client, keys *infraredis.Keyspace, ttl time.Duration) *TokenCache {
	if keys == nil {
		keys = infraredis.NewKeyspace(nil, 0)
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TokenCache{
		redis: redis,
		keys:  keys,
		ttl:   ttl,
	}
}

func (c *TokenCache) cacheKey(token string) string {
	sum := sha1.Sum([]byte(token))
	return c.keys.Key(infraredis.KindJWT, hex.EncodeToString(sum[:]))
}

// Get 尝试命中缓存的 claims
func (c *TokenCache) Get(_ context.Context, token string) (*Claims, bool, error) {
	if c.redis == nil {
		return nil, false, nil
	}
	key := c.cacheKey(token)
	var raw string
	if err := c.redis.Do(radix.Cmd(&raw, "GET", key)); err != nil {
		return nil, false, err
	}
	if raw == "" {
		return nil, false, nil
	}
	var claims Claims
	if err := json.Unmarshal([]byte(raw), &claims); err != nil {
		// 数据损坏，清理后走正常解析
		if err := c.redis.Do(radix.Cmd(nil, "DEL", key)); err != nil {
			zap.L().Warn("drop corrupt token cache entry failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false, nil
	}
	return &claims, true, nil
}

// Set 缓存解析结果
func (c *TokenCache) Set(_ context.Context, token string, claims *Claims) error {
	if c.redis == nil || claims == nil {
		return nil
	}
	ttl := c.ttl
	// 不超过 token 本身的剩余有效期
	if claims.ExpiresAt != nil {
		if left := time.Until(claims.ExpiresAt.Time); left < ttl {
			ttl = left
		}
	}
	if ttl < time.Second {
		return nil
	}
	body, err := json.Marshal(claims)
	if err != nil {
		return err
	}
	return c.redis.Do(radix.FlatCmd(nil, "SETEX", c.cacheKey(token), int64(ttl/time.Second), body))
}
