package config

import (
	"strings"
	"time"
)

// RateLimitConfig configures one token-bucket limiter.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// RateLimits holds the two buckets the API uses.  Auth guards register,
// login and refresh; Checkout guards payment, redemption, promo checks and
// rental requests.
type RateLimits struct {
	Auth     RateLimitConfig
	Checkout RateLimitConfig
}

// LoadRateLimits reads RATE_LIMIT_AUTH_* and RATE_LIMIT_CHECKOUT_*.  Auth
// starts at 10 requests refilled every 6s, checkout at 20 every 3s.
func LoadRateLimits() RateLimits {
	return RateLimits{
		Auth:     LoadRateLimitConfig("RATE_LIMIT_AUTH", 10, 6*time.Second),
		Checkout: LoadRateLimitConfig("RATE_LIMIT_CHECKOUT", 20, 3*time.Second),
	}
}

// LoadRateLimitConfig reads <env>_ENABLED, <env>_CAPACITY, <env>_REFILL_TOKENS,
// <env>_REFILL_INTERVAL, <env>_TTL and <env>_KEY_STRATEGY.  Keys are
// prefixed with "rl:<env in lower case>" unless <env>_PREFIX is set.
// RATE_LIMIT_DEBUG applies to every limiter.
func LoadRateLimitConfig(env string, defCapacity int, defInterval time.Duration) RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        envBool(env+"_ENABLED", true),
		Capacity:       atLeast(envInt(env+"_CAPACITY", defCapacity), 1),
		RefillTokens:   atLeast(envInt(env+"_REFILL_TOKENS", 1), 1),
		RefillInterval: envDur(env+"_REFILL_INTERVAL", defInterval),
		TTL:            envDur(env+"_TTL", 10*time.Minute),
		KeyStrategy:    envStr(env+"_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr(env+"_PREFIX", "rl:"+strings.ToLower(env)),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	// an idle bucket must outlive a full refill or its state resets early
	if floor := 5 * c.RefillInterval; c.TTL < floor {
		c.TTL = floor
	}
	return c
}
