package redis

import (
	"context"
	"encoding/json"
	"time"

	radix "github.com/mediocregopher/radix/v3"
	"go.uber.org/zap"

	"github.com/example/embutidos/internal/datamodels/cart"
	infraredis "github.com/example/embutidos/internal/infra/redis"
)

type cartRepo struct {
	client radix.Client
	keys   *infraredis.Keyspace
	ttl    time.Duration
}

// NewCartRepository 以 JSON 串存放购物车，每次读写刷新过期时间
func NewCartRepository(client radix.Client, keys *infraredis.Keyspace, idle time.Duration) cart.Repository {
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	if keys == nil {
		keys = infraredis.NewKeyspace(nil, 0)
	}
	return &cartRepo{client: client, keys: keys, ttl: idle}
}

func (r *cartRepo) key(sessionID string) string {
	return r.keys.Key(infraredis.KindCart, sessionID)
}

// decode 损坏的数据直接丢弃
func (r *cartRepo) decode(key string, raw []byte) []cart.Line {
	var lines []cart.Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		zap.L().Warn("corrupt cart dropped", zap.String("key", key), zap.Error(err))
		if err := r.client.Do(radix.Cmd(nil, "DEL", key)); err != nil {
			zap.L().Warn("redis del cart failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	return lines
}

func (r *cartRepo) Load(_ context.Context, sessionID string) ([]cart.Line, error) {
	key := r.key(sessionID)
	var raw []byte
	if err := r.client.Do(radix.Cmd(&raw, "GET", key)); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	lines := r.decode(key, raw)
	if lines == nil {
		return nil, nil
	}
	if err := r.client.Do(radix.FlatCmd(nil, "EXPIRE", key, int64(r.ttl/time.Second))); err != nil {
		// 读到了数据，续期失败不影响本次请求
		zap.L().Warn("redis refresh cart ttl failed", zap.String("key", key), zap.Error(err))
	}
	return lines, nil
}

func (r *cartRepo) Save(ctx context.Context, sessionID string, lines []cart.Line) error {
	if len(lines) == 0 {
		return r.Delete(ctx, sessionID)
	}
	body, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return r.client.Do(radix.FlatCmd(nil, "SETEX", r.key(sessionID), int64(r.ttl/time.Second), body))
}

func (r *cartRepo) Delete(_ context.Context, sessionID string) error {
	return r.client.Do(radix.Cmd(nil, "DEL", r.key(sessionID)))
}

// Take GETDEL 一条命令取走购物车，需要 Redis 6.2+
func (r *cartRepo) Take(_ context.Context, sessionID string) ([]cart.Line, error) {
	key := r.key(sessionID)
	var raw []byte
	if err := r.client.Do(radix.Cmd(&raw, "GETDEL", key)); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var lines []cart.Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		zap.L().Warn("corrupt cart dropped", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	return lines, nil
}
