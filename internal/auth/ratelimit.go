package auth

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LoginRateLimit allows limit attempts per IP and email in each window.
// With a nil client the limiter is disabled. Redis errors let the request
// through.
func LoginRateLimit(rdb *redis.Client, limit int64, window time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil {
			return c.Next()
		}

		var body LoginRequest
		_ = c.BodyParser(&body)
		key := "login:" + c.IP() + ":" + strings.ToLower(strings.TrimSpace(body.Email))

		ctx := c.UserContext()
		n, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("login rate limit unavailable", zap.Error(err))
			return c.Next()
		}
		if n == 1 {
			rdb.Expire(ctx, key, window)
		}
		if n > limit {
			ttl, err := rdb.TTL(ctx, key).Result()
			if err == nil && ttl > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ttl.Seconds())))
			}
			return fiber.NewError(fiber.StatusTooManyRequests, "too many login attempts, try again later")
		}
		return c.Next()
	}
}
