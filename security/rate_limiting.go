package security

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts settlement attempts per user in fixed one-minute
// windows held in Redis.
type RateLimiter struct {
	redis  redis.Cmdable
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient redis.Cmdable, attemptsPerMinute int) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  int64(attemptsPerMinute),
		window: time.Minute,
	}
}

func attemptsKey(userID string) string {
	return fmt.Sprintf("settle:attempts:%s", userID)
}

// Allow records an attempt by userID and reports whether it is within the
// limit. When Redis is unreachable the attempt is allowed.
func (r *RateLimiter) Allow(ctx context.Context, userID string) bool {
	if r.limit <= 0 {
		return true
	}

	key := attemptsKey(userID)
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		slog.Warn("rate limiter unavailable, allowing attempt", "user_id", userID, "error", err)
		return true
	}

	if count == 1 {
		if err := r.redis.Expire(ctx, key, r.window).Err(); err != nil {
			slog.Warn("rate limiter expire failed", "key", key, "error", err)
		}
	}

	return count <= r.limit
}
