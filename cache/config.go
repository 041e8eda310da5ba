package cache

import "time"

// Config is the per-factory cache configuration. Each session receives its own copy.
type Config struct {
	// LocalCacheScope is the scope new sessions start with.
	LocalCacheScope Scope

	// LocalCapacity bounds the number of hash buckets a session store holds.
	// Least recently used buckets are evicted past it. Zero keeps every entry
	// until the next invalidation.
	LocalCapacity int

	// CacheEnabled turns on the shared second-level cache.
	CacheEnabled bool

	// Shared configures the in-process shared cache used when CacheEnabled is set
	// and no other SharedCache is supplied.
	Shared SharedConfig
}

// SharedConfig holds the sizing of the in-process shared cache.
type SharedConfig struct {
	// Capacity defines the maximum number of entries that the cache can store.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	NumShards int

	// TTL is the time-to-live of shared entries.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept. Zero uses the default.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
// The second-level cache is disabled, as sessions are expected to own their reads.
func DefaultConfig() Config {
	return Config{
		LocalCacheScope: ScopeSession,
		LocalCapacity:   0,
		CacheEnabled:    false,
		Shared:          DefaultSharedConfig(),
	}
}

// DefaultSharedConfig returns the default shared cache sizing.
func DefaultSharedConfig() SharedConfig {
	return SharedConfig{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if err := c.LocalCacheScope.Validate(); err != nil {
		return &ConfigError{Field: "LocalCacheScope", Message: err.Error()}
	}

	if c.LocalCapacity < 0 {
		return &ConfigError{Field: "LocalCapacity", Message: "must be non-negative"}
	}

	if c.CacheEnabled {
		return c.Shared.Validate()
	}

	return nil
}

// Validate checks if the shared cache sizing is valid.
func (c SharedConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Shared.Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "Shared.NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "Shared.TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "Shared.EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "Shared.EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}
