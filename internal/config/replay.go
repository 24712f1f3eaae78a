package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the public response cache.  When Enabled
// is false or no Redis client is configured, caching is disabled.  Methods
// lists the HTTP methods to cache.  KeyStrategy determines which parts of the
// request contribute to the cache key.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// IdempotencyConfig controls Idempotency-Key replay on mutating routes.
// LockTTL bounds how long an in-flight request holds its key.
type IdempotencyConfig struct {
	Enabled      bool
	TTL          time.Duration
	LockTTL      time.Duration
	Prefix       string
	MaxBodyBytes int
}

// ReplayConfig groups both response replay features; they share the same
// capture and payload encoding.
type ReplayConfig struct {
	Cache       CacheConfig
	Idempotency IdempotencyConfig
}

// LoadReplayConfig reads CACHE_* and IDEMPOTENCY_* variables.
func LoadReplayConfig() ReplayConfig {
	return ReplayConfig{
		Cache: CacheConfig{
			Enabled:      envBool("CACHE_ENABLED", true),
			Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
			TTL:          envDur("CACHE_TTL", 30*time.Second),
			KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
			Prefix:       envStr("CACHE_PREFIX", "cache"),
			MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
		},
		Idempotency: IdempotencyConfig{
			Enabled:      envBool("IDEMPOTENCY_ENABLED", true),
			TTL:          envDur("IDEMPOTENCY_TTL", 24*time.Hour),
			LockTTL:      envDur("IDEMPOTENCY_LOCK_TTL", 30*time.Second),
			Prefix:       envStr("IDEMPOTENCY_PREFIX", "idem"),
			MaxBodyBytes: envInt("IDEMPOTENCY_MAX_BODY_BYTES", 64<<10),
		},
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
