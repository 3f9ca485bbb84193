package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter backs shared rate-limit windows with Redis.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a RedisCounter from a Redis URL.
func NewRedisCounter(redisURL string) (*RedisCounter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCounter{client: redis.NewClient(opts)}, nil
}

func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// IncrWithExpiry increments key and refreshes its expiry in one transaction.
func (c *RedisCounter) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *RedisCounter) Close() error {
	return c.client.Close()
}
