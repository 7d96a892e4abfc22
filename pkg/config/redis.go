package config

import "time"

// RedisConfig configures the shared redis.Client backing the TTL store,
// event bus pub/sub, and HTML cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"-"` // Sourced from REDIS_PASSWORD, never written to YAML
	DB       int    `yaml:"db"`

	// TTLStore is the default expiry for dedup/lock keys.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// HTMLCacheTTL is how long fetched page bodies are cached by URL hash
	// to avoid re-fetching during retries within the same job.
	HTMLCacheTTL time.Duration `yaml:"html_cache_ttl"`

	// LockTTL bounds a distributed lock's lifetime (see ttlstore.AcquireLock)
	// in case a holder crashes. No component reads it; the circuit breaker
	// keeps its state in process memory.
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// DefaultRedisConfig returns the built-in Redis defaults.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		DB:           0,
		DefaultTTL:   24 * time.Hour,
		HTMLCacheTTL: 1 * time.Hour,
		LockTTL:      30 * time.Second,
	}
}
