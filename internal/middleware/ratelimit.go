package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/desk-allocation/internal/config"
)

// RateLimit returns a Redis-backed fixed-window limiter.  Each key gets
// cfg.Limit requests per cfg.Window; the counter is created with INCR
// and expires with the window.  When Redis is unavailable the limiter
// fails open so the API keeps serving.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := rateKey(cfg, c)

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c) // fail open on Redis errors
			}
			if n == 1 {
				// First hit in this window owns setting the expiry.
				rdb.Expire(ctx, key, cfg.Window)
			}

			remaining := int64(cfg.Limit) - n
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if n > int64(cfg.Limit) {
				ttl, _ := rdb.TTL(ctx, key).Result()
				if ttl < 0 {
					ttl = cfg.Window
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(ttl/time.Second)+1))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":   "too_many_requests",
					"message": "rate limit exceeded",
				})
			}
			return next(c)
		}
	}
}

// rateKey builds the limiter key from the configured strategy.  The
// window index is folded into the key so counters from a previous
// window can never leak into the current one even if EXPIRE was lost.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	window := time.Now().Unix() / int64(cfg.Window/time.Second)
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := "guest"
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		uid = v
	} else if v := c.Get("user_id"); v != nil {
		uid = fmt.Sprint(v)
	}
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "u", uid)
	case "ip_route":
		parts = append(parts, "ip", ip, "r", route)
	default: // "ip_user_route"
		parts = append(parts, "ip", ip, "u", uid, "r", route)
	}
	parts = append(parts, strconv.FormatInt(window, 10))
	return strings.Join(parts, ":")
}
