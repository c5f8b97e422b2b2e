package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/uae-home-services/service-booking/internal/common/response"
)

// RedisRateLimiter is a fixed-window rate limiter keyed by client IP and
// shared by every replica of the service.
type RedisRateLimiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
	prefix string
}

// NewRedisRateLimiter creates a limiter allowing limit requests per window.
func NewRedisRateLimiter(rdb redis.Cmdable, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix}
}

// Middleware enforces the limit. Redis failures let the request through when
// failOpen is set, otherwise they return 503.
func (rl *RedisRateLimiter) Middleware(log *zap.Logger, failOpen bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.prefix + ":" + c.ClientIP()
		count, err := rl.incr(c.Request.Context(), key)
		if err != nil {
			log.Warn("redis rate limiter error", zap.Error(err))
			if failOpen {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.Envelope{
				Error: &response.ErrorBody{Code: "UNAVAILABLE", Message: "rate limiter unavailable"},
			})
			return
		}
		if count > int64(rl.limit) {
			c.Header("Retry-After", rl.window.String())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Envelope{
				Error: &response.ErrorBody{Code: "RATE_LIMITED", Message: "rate limit exceeded"},
			})
			return
		}
		c.Next()
	}
}

func (rl *RedisRateLimiter) incr(ctx context.Context, key string) (int64, error) {
	count, err := rl.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := rl.rdb.PExpire(ctx, key, rl.window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}
