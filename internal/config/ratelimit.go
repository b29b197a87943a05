package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig controls the Redis-backed fixed-window limiter.  The
// window resets every Window duration; Limit requests are admitted per
// key per window.  KeyStrategy selects which request attributes form the
// key (see middleware.RateLimit).
type RateLimitConfig struct {
	Enabled     bool
	Limit       int
	Window      time.Duration
	KeyStrategy string
	Prefix      string
}

// LoadRateLimitConfig reads RATE_LIMIT_* environment variables with
// conservative defaults suitable for an internal booking API.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:     envBool("RATE_LIMIT_ENABLED", true),
		Limit:       envInt("RATE_LIMIT_LIMIT", 60),
		Window:      envDur("RATE_LIMIT_WINDOW", time.Minute),
		KeyStrategy: envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:      envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return cfg
}

// OccupancyCacheConfig controls the Redis cache in front of the
// floor-occupancy report, the one read-heavy aggregate endpoint.
type OccupancyCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Key     string
}

// LoadOccupancyCacheConfig reads OCCUPANCY_CACHE_* environment variables.
func LoadOccupancyCacheConfig() OccupancyCacheConfig {
	return OccupancyCacheConfig{
		Enabled: envBool("OCCUPANCY_CACHE_ENABLED", true),
		TTL:     envDur("OCCUPANCY_CACHE_TTL", 30*time.Second),
		Key:     envStr("OCCUPANCY_CACHE_KEY", "occupancy:floors"),
	}
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			return dur
		}
	}
	return d
}
