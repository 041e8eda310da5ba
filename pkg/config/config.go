// Package config loads the session cache configuration with viper.
//
// Values come from a YAML, TOML or JSON file and can be overridden by
// environment variables prefixed with SESSIONCACHE_, with "." replaced by "_":
//
//	SESSIONCACHE_CACHE_LOCAL_CACHE_SCOPE=STATEMENT
//	SESSIONCACHE_DATABASE_DSN=file:app.db
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/goliatone/go-session-cache/cache"
	"github.com/goliatone/go-session-cache/mapping"
	"github.com/goliatone/go-session-cache/pkg/logging"
	"github.com/goliatone/go-session-cache/pkg/sqlexec"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "SESSIONCACHE"

// Shared cache backends.
const (
	SharedMemory = "memory"
	SharedRedis  = "redis"
)

// File is the configuration file layout.
type File struct {
	Cache      CacheSection       `mapstructure:"cache"`
	Database   sqlexec.Config     `mapstructure:"database"`
	Redis      RedisSection       `mapstructure:"redis"`
	Log        logging.Config     `mapstructure:"log"`
	Statements []StatementSection `mapstructure:"statements"`
}

// CacheSection mirrors cache.Config.
type CacheSection struct {
	LocalCacheScope string        `mapstructure:"local_cache_scope"`
	LocalCapacity   int           `mapstructure:"local_capacity"`
	CacheEnabled    bool          `mapstructure:"cache_enabled"`
	Shared          SharedSection `mapstructure:"shared"`
}

// SharedSection selects and sizes the second-level cache.
type SharedSection struct {
	Backend            string        `mapstructure:"backend"` // "memory" or "redis"
	Capacity           int           `mapstructure:"capacity"`
	NumShards          int           `mapstructure:"num_shards"`
	TTL                time.Duration `mapstructure:"ttl"`
	EvictionPercentage int           `mapstructure:"eviction_percentage"`
	EvictionInterval   time.Duration `mapstructure:"eviction_interval"`
}

// RedisSection configures the Redis shared cache.
type RedisSection struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// StatementSection declares one mapped statement.
type StatementSection struct {
	ID         string   `mapstructure:"id"`
	Namespace  string   `mapstructure:"namespace"`
	Kind       string   `mapstructure:"kind"`
	SQL        string   `mapstructure:"sql"`
	Params     []string `mapstructure:"params"`
	UseCache   *bool    `mapstructure:"use_cache"`
	FlushCache bool     `mapstructure:"flush_cache"`
}

func setDefaults(v *viper.Viper) {
	defaults := cache.DefaultConfig()

	v.SetDefault("cache.local_cache_scope", string(defaults.LocalCacheScope))
	v.SetDefault("cache.local_capacity", defaults.LocalCapacity)
	v.SetDefault("cache.cache_enabled", defaults.CacheEnabled)
	v.SetDefault("cache.shared.backend", SharedMemory)
	v.SetDefault("cache.shared.capacity", defaults.Shared.Capacity)
	v.SetDefault("cache.shared.num_shards", defaults.Shared.NumShards)
	v.SetDefault("cache.shared.ttl", defaults.Shared.TTL)
	v.SetDefault("cache.shared.eviction_percentage", defaults.Shared.EvictionPercentage)
	v.SetDefault("cache.shared.eviction_interval", defaults.Shared.EvictionInterval)

	v.SetDefault("database.driver", sqlexec.DriverSQLite)
	v.SetDefault("database.dsn", "file:sessioncache.db?_pragma=journal_mode(WAL)")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.conn_max_lifetime", 0)
	v.SetDefault("database.log_queries", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "sessioncache:")

	v.SetDefault("log.level", string(logging.LevelInfo))
	v.SetDefault("log.pretty", false)
}

// Load reads the file at path, or only defaults and environment when path is empty.
func Load(path string) (*File, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every section.
func (f *File) Validate() error {
	cfg, err := f.CacheConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch f.Cache.Shared.Backend {
	case SharedMemory, SharedRedis:
	default:
		return &cache.ConfigError{Field: "Shared.Backend", Message: fmt.Sprintf("unknown backend %q", f.Cache.Shared.Backend)}
	}

	if err := f.Database.Validate(); err != nil {
		return err
	}

	if _, err := f.Registry(); err != nil {
		return err
	}
	return nil
}

// CacheConfig converts the cache section.
func (f *File) CacheConfig() (cache.Config, error) {
	scope, err := cache.ParseScope(f.Cache.LocalCacheScope)
	if err != nil {
		var scopeErr *cache.InvalidScopeError
		if errors.As(err, &scopeErr) {
			return cache.Config{}, &cache.ConfigError{Field: "LocalCacheScope", Message: scopeErr.Error()}
		}
		return cache.Config{}, err
	}

	return cache.Config{
		LocalCacheScope: scope,
		LocalCapacity:   f.Cache.LocalCapacity,
		CacheEnabled:    f.Cache.CacheEnabled,
		Shared: cache.SharedConfig{
			Capacity:           f.Cache.Shared.Capacity,
			NumShards:          f.Cache.Shared.NumShards,
			TTL:                f.Cache.Shared.TTL,
			EvictionPercentage: f.Cache.Shared.EvictionPercentage,
			EvictionInterval:   f.Cache.Shared.EvictionInterval,
		},
	}, nil
}

// Registry builds the statement registry. Selects default to UseCache.
func (f *File) Registry() (*mapping.Registry, error) {
	stmts := make([]mapping.Statement, 0, len(f.Statements))

	for _, s := range f.Statements {
		kind, err := mapping.ParseKind(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("statement %s: %w", s.ID, err)
		}

		useCache := kind == mapping.KindSelect
		if s.UseCache != nil {
			useCache = *s.UseCache
		}

		stmts = append(stmts, mapping.Statement{
			ID:         s.ID,
			Namespace:  s.Namespace,
			Kind:       kind,
			SQL:        s.SQL,
			Params:     s.Params,
			UseCache:   useCache,
			FlushCache: s.FlushCache,
		})
	}

	return mapping.NewRegistry(stmts...)
}
