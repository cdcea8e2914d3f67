package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	Window      time.Duration
	MaxAttempts int
	// Prefix namespaces the counter keys.
	Prefix string
}

// Redis is a Limiter whose windows are shared by every process using the
// same Redis. A window is a counter key that expires Window after the first
// attempt.
type Redis struct {
	client *redis.Client
	opts   RedisOptions
}

func NewRedis(client *redis.Client, opts RedisOptions) *Redis {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Prefix == "" {
		opts.Prefix = "ratelimit:auth:"
	}
	return &Redis{client: client, opts: opts}
}

// NewRedisFromURL connects to redisURL and verifies the connection.
func NewRedisFromURL(ctx context.Context, redisURL string, opts RedisOptions) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedis(client, opts), nil
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	k := r.opts.Prefix + key

	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("increment attempts: %w", err)
	}

	if count == 1 {
		if err := r.client.PExpire(ctx, k, r.opts.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("set window expiry: %w", err)
		}
		return Decision{Allowed: true, Count: 1, RetryAfter: r.opts.Window}, nil
	}

	ttl, err := r.client.PTTL(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("read window expiry: %w", err)
	}
	if ttl < 0 {
		// The counter lost its expiry; re-arm it so the key cannot live forever.
		if err := r.client.PExpire(ctx, k, r.opts.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("set window expiry: %w", err)
		}
		ttl = r.opts.Window
	}

	return Decision{
		Allowed:    count <= int64(r.opts.MaxAttempts),
		Count:      int(count),
		RetryAfter: ttl,
	}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
