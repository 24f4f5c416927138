// Package middleware provides the Redis-backed HTTP middleware used by
// the reservation service: a fixed-window rate limiter for the mutating
// reservation routes and a response cache for catalog reads.
package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-reservation/internal/config"
)

// RateLimit returns a fixed-window limiter keyed by client IP and route.
// The window counter lives in Redis so the limit holds across replicas.
// When Redis is unavailable the limiter fails open: reservation traffic
// must not depend on the cache tier.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	window := cfg.Window
	if window < time.Second {
		window = time.Minute
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			slot := time.Now().Unix() / int64(window/time.Second)
			key := fmt.Sprintf("%s:%s:%s:%d", cfg.Prefix, c.RealIP(), c.Path(), slot)

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if count == 1 {
				_ = rdb.Expire(ctx, key, window).Err()
			}
			if count > int64(cfg.Limit) {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(window/time.Second)))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error { return next(c) }
}
