package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Service using Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a Redis cache client and pings the server.
func NewRedisCache(opts ...RedisOption) (*RedisCache, error) {
	cfg := &RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
		MinIdleConns: 2,
		Prefix:       "finsignal",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.PoolTimeout,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{client: client, prefix: cfg.Prefix}, nil
}

// Client returns underlying redis client.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.wrapKey(key), data, expiration).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return decode(data, dest)
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Unlink(ctx, c.wrapKeys(keys...)...).Err()
}

func (c *RedisCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	n, err := c.client.Exists(ctx, c.wrapKeys(keys...)...).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MSet writes all values in one transaction pipeline.
func (c *RedisCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	if len(values) == 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	for key, value := range values {
		data, err := encode(value)
		if err != nil {
			return err
		}
		pipe.Set(ctx, c.wrapKey(key), data, expiration)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) MGet(ctx context.Context, keys ...string) (map[string]string, error) {
	if len(keys) == 0 {
		return make(map[string]string), nil
	}
	results, err := c.client.MGet(ctx, c.wrapKeys(keys...)...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for i, key := range keys {
		if s, ok := results[i].(string); ok {
			out[key] = s
		}
	}
	return out, nil
}

func (c *RedisCache) wrapKey(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

func (c *RedisCache) wrapKeys(keys ...string) []string {
	wrapped := make([]string, len(keys))
	for i, key := range keys {
		wrapped[i] = c.wrapKey(key)
	}
	return wrapped
}
