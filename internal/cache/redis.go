// Package cache provides the Redis-backed presigned URL cache.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

// RedisURLCache keeps short-lived strings in Redis.
type RedisURLCache struct {
	cli *redis.Client
}

// NewRedis connects to addr and verifies the connection with a ping.
func NewRedis(ctx context.Context, addr, password string, db int) (*RedisURLCache, error) {
	cli := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := cli.Ping(pingCtx).Err(); err != nil {
		_ = cli.Close()
		return nil, err
	}
	return &RedisURLCache{cli: cli}, nil
}

func (c *RedisURLCache) Get(ctx context.Context, key string) (string, bool, error) {
	s, err := c.cli.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

func (c *RedisURLCache) Set(ctx context.Context, key, url string, ttl time.Duration) error {
	return c.cli.Set(ctx, key, url, ttl).Err()
}

func (c *RedisURLCache) Delete(ctx context.Context, key string) error {
	return c.cli.Del(ctx, key).Err()
}

func (c *RedisURLCache) Close() error {
	return c.cli.Close()
}
