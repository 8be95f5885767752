package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindow is a fixed-window limiter shared across replicas. INCR plus a
// window-scoped key keeps the check to a single round trip in the common case.
type RedisWindow struct {
	client *redis.Client
	limit  int
	window time.Duration
	clock  func() time.Time
}

func NewRedisWindow(client *redis.Client, limit int, window time.Duration) *RedisWindow {
	return &RedisWindow{
		client: client,
		limit:  limit,
		window: window,
		clock:  time.Now,
	}
}

func (r *RedisWindow) Allow(ctx context.Context, key string) (Result, error) {
	now := r.clock()
	bucket := now.Truncate(r.window)
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket.Unix())
	resetAt := bucket.Add(r.window)

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		// First hit in the window owns the expiry.
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit expire: %w", err)
		}
	}

	if count > int64(r.limit) {
		return Result{Allowed: false, Limit: r.limit, ResetAt: resetAt}, nil
	}
	return Result{
		Allowed:   true,
		Limit:     r.limit,
		Remaining: r.limit - int(count),
		ResetAt:   resetAt,
	}, nil
}
