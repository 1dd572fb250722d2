package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitMiddleware counts requests per client in fixed windows stored in
// Redis. Authenticated clients are keyed by user, others by IP. Redis
// failures let the request through.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration, log *zap.Logger) fiber.Handler {
	if window < time.Second {
		window = time.Minute
	}
	return func(c *fiber.Ctx) error {
		client := c.IP()
		if id := GetUserID(c); id != uuid.Nil {
			client = id.String()
		}
		key := fmt.Sprintf("rl:%s:%d", client, time.Now().Unix()/int64(window.Seconds()))

		ctx := c.UserContext()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Debug("rate limit unavailable", zap.Error(err))
			return c.Next() // fail open
		}

		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprint(limit))
		if count > int64(limit) {
			c.Set("Retry-After", fmt.Sprint(int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}

		return c.Next()
	}
}
