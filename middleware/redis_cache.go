package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/block-bite/blockbite-orm/core"
	"github.com/block-bite/blockbite-orm/logger"
)

// indexKey is the redis set holding every key written, so writes can flush them.
const indexKey = KeyPrefix + "keys"

// RedisCache caches read results in Redis. When Redis is unreachable reads
// fall through to the database and the failure is logged.
type RedisCache struct {
	Client     redis.UniversalClient
	DefaultTTL time.Duration
	Logger     logger.Logger
}

// NewRedisCache connects a client with opt. Cache() without a lifetime keeps
// entries until the next write.
func NewRedisCache(opt *redis.Options) *RedisCache {
	return &RedisCache{
		Client: redis.NewClient(opt),
	}
}

func (m *RedisCache) Name() string {
	return "RedisCache"
}

// Ping checks that Redis answers within five seconds.
func (m *RedisCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.Client.Ping(ctx).Err()
}

func (m *RedisCache) Wrap(next core.Executor) core.Executor {
	return &cachingExecutor{
		name:       m.Name(),
		next:       next,
		store:      m,
		defaultTTL: m.DefaultTTL,
		logger:     defaultLogger(m.Logger),
	}
}

func (m *RedisCache) Shutdown() error {
	return m.Client.Close()
}

func (m *RedisCache) get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := m.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (m *RedisCache) set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	_, err := m.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, ttl)
		pipe.SAdd(ctx, indexKey, key)
		return nil
	})
	return err
}

func (m *RedisCache) flush(ctx context.Context) error {
	keys, err := m.Client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return err
	}
	return m.Client.Del(ctx, append(keys, indexKey)...).Err()
}
