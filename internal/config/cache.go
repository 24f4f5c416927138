package config

import "time"

// CacheConfig configures the response cache used on the catalog's read
// routes.  Seat maps are never cached; only event metadata goes through
// it, so a short TTL is enough.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads cache settings from the environment.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     envDur("CACHE_TTL", 30*time.Second),
		Prefix:  getenv("CACHE_PREFIX", "cache"),
	}
}
