package config

import (
    "os"
    "time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching is
// disabled.  TTL defines the lifetime of cache entries.  KeyStrategy
// determines which parts of the request contribute to the cache key;
// authenticated routes must use a strategy that includes the user so
// one account's responses are never served to another.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      getenv("CACHE_ENABLED", "true") == "true",
        TTL:          parseDur(getenv("CACHE_TTL", "30s")),
        KeyStrategy:  getenv("CACHE_KEY_STRATEGY", "route_user"),
        Prefix:       getenv("CACHE_PREFIX", "cache"),
        MaxBodyBytes: atoiDefault("CACHE_MAX_BODY_BYTES", 1048576),
    }
}

// Helper functions shared with config.go.
func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}
