package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "salesdash"

// Redis keeps the token record in Redis so that several dashboard processes
// share one authorization token
type Redis struct {
	db     *redis.Client
	prefix string
}

// NewRedis connects to Redis and verifies the connection with PING
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	const op = "tokenstore.NewRedis"

	if cfg.Address == "" {
		return nil, fmt.Errorf("%s: redis address is required", op)
	}

	db := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewRedisFromClient(db, cfg.Prefix), nil
}

// NewRedisFromClient wraps an existing client
func NewRedisFromClient(db *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{db: db, prefix: prefix}
}

func (r *Redis) key(k string) string {
	return r.prefix + ":" + k
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	const op = "tokenstore.Redis.Get"
	val, err := r.db.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	const op = "tokenstore.Redis.Set"
	if err := r.db.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	const op = "tokenstore.Redis.Delete"
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.db.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close releases the Redis connection pool
func (r *Redis) Close() error {
	return r.db.Close()
}
