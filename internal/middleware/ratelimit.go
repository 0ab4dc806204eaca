// ratelimit.go implements a per-IP rate limiter backed by Redis, using a
// fixed window counter (INCR + EXPIRE). Applied to credential endpoints
// (login, signup, forgot-password) to slow brute-force and credential
// stuffing attacks. Counters are shared across replicas because they live
// in Redis rather than process memory.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// rateLimitKeyPrefix namespaces limiter counters in Redis.
const rateLimitKeyPrefix = "ratelimit:"

// RateLimit returns middleware that limits requests per IP to maxRequests
// within the given window duration. The scope string separates counters for
// different endpoints ("login", "signup", ...). Returns 429 when exceeded.
//
// Fails open: if Redis is unreachable the request is allowed and a warning
// is logged. Losing rate limiting briefly is better than losing logins.
func RateLimit(rdb *redis.Client, scope string, maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := fmt.Sprintf("%s%s:%s", rateLimitKeyPrefix, scope, c.RealIP())

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request",
					slog.String("scope", scope),
					slog.Any("error", err),
				)
				return next(c)
			}

			// First hit in this window starts the expiry clock.
			if count == 1 {
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					slog.Warn("rate limiter expire failed",
						slog.String("scope", scope),
						slog.Any("error", err),
					)
				}
			}

			if count > int64(maxRequests) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error":   "Too Many Requests",
					"message": "Rate limit exceeded. Please try again later.",
				})
			}

			return next(c)
		}
	}
}
