package di

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-session-cache/cache"
	"github.com/goliatone/go-session-cache/internal/cacheinfra"
	"github.com/goliatone/go-session-cache/mapping"
	"github.com/goliatone/go-session-cache/pkg/config"
	"github.com/goliatone/go-session-cache/pkg/logging"
	"github.com/goliatone/go-session-cache/pkg/metrics"
	"github.com/goliatone/go-session-cache/pkg/sqlexec"
	"github.com/goliatone/go-session-cache/session"
)

// Container wires the session cache from a configuration file.
// It owns the database handle, the shared cache and the session factory,
// and exposes them for callers that need the pieces directly.
type Container struct {
	file          config.File
	cacheConfig   cache.Config
	logger        zerolog.Logger
	keySerializer cache.KeySerializer
	observer      *metrics.Observer
	shared        cache.SharedCache
	db            *bun.DB
	factory       *session.Factory

	ownsDB    bool
	ownsRedis bool
	redis     redis.UniversalClient
}

type options struct {
	registerer    prometheus.Registerer
	redisClient   redis.UniversalClient
	db            *bun.DB
	migrations    fs.FS
	migrationsDir string
}

// Option customizes a Container.
type Option func(*options)

// WithRegisterer registers the metrics collectors with reg.
// Without it the collectors are created but not registered.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithRedisClient supplies the client used when the shared backend is "redis".
// The container does not close a supplied client.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) { o.redisClient = client }
}

// WithDB uses an already opened database instead of opening the configured one.
// The container does not close a supplied database.
func WithDB(db *bun.DB) Option {
	return func(o *options) { o.db = db }
}

// WithMigrations applies the goose migrations in dir of fsys after connecting.
func WithMigrations(fsys fs.FS, dir string) Option {
	return func(o *options) {
		o.migrations = fsys
		o.migrationsDir = dir
	}
}

// NewContainer creates a container from a loaded configuration file.
// It sets up logging and metrics, connects the database, selects the shared
// cache backend and builds the session factory over them.
func NewContainer(ctx context.Context, file *config.File, opts ...Option) (*Container, error) {
	if file == nil {
		return nil, errors.New("config file is required")
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cacheConfig, err := file.CacheConfig()
	if err != nil {
		return nil, err
	}
	registry, err := file.Registry()
	if err != nil {
		return nil, err
	}

	c := &Container{
		file:          *file,
		cacheConfig:   cacheConfig,
		logger:        logging.Setup(file.Log),
		keySerializer: cache.NewDefaultKeySerializer(),
		observer:      metrics.NewObserver(o.registerer),
	}

	if err := c.connect(ctx, o); err != nil {
		return nil, err
	}

	if err := c.setupShared(ctx, o); err != nil {
		c.Close()
		return nil, err
	}

	factory, err := session.NewFactory(
		cacheConfig,
		registry,
		sqlexec.NewOpener(c.db, logging.NewLogger(c.logger, "sqlexec")),
		session.WithLogger(logging.NewLogger(c.logger, "session")),
		session.WithObserver(c.observer),
		session.WithKeySerializer(c.keySerializer),
		session.WithSharedCache(c.shared),
	)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.factory = factory

	c.logger.Info().
		Str("scope", cacheConfig.LocalCacheScope.String()).
		Bool("cache_enabled", cacheConfig.CacheEnabled).
		Str("shared_backend", file.Cache.Shared.Backend).
		Int("statements", registry.Len()).
		Msg("session cache container ready")

	return c, nil
}

// NewContainerWithDefaults creates a container from defaults and SESSIONCACHE_ environment overrides.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	file, err := config.Load("")
	if err != nil {
		return nil, err
	}
	return NewContainer(ctx, file, opts...)
}

// NewContainerFromFile loads the configuration file at path and creates a container from it.
func NewContainerFromFile(ctx context.Context, path string, opts ...Option) (*Container, error) {
	file, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewContainer(ctx, file, opts...)
}

func (c *Container) connect(ctx context.Context, o *options) error {
	if o.db != nil {
		c.db = o.db
	} else {
		db, err := sqlexec.OpenDB(ctx, c.file.Database, logging.NewLogger(c.logger, "sqlexec"))
		if err != nil {
			return err
		}
		c.db = db
		c.ownsDB = true
	}

	if o.migrations != nil {
		if err := sqlexec.Migrate(ctx, c.db.DB, c.file.Database.Driver, o.migrations, o.migrationsDir, logging.NewLogger(c.logger, "migrate")); err != nil {
			c.Close()
			return err
		}
	}
	return nil
}

func (c *Container) setupShared(ctx context.Context, o *options) error {
	if !c.cacheConfig.CacheEnabled {
		return nil
	}

	switch c.file.Cache.Shared.Backend {
	case config.SharedRedis:
		client := o.redisClient
		if client == nil {
			client = redis.NewClient(&redis.Options{
				Addr:     c.file.Redis.Addr,
				Password: c.file.Redis.Password,
				DB:       c.file.Redis.DB,
			})
			c.ownsRedis = true
		}
		c.redis = client

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis %s: %w", c.file.Redis.Addr, err)
		}
		c.shared = cacheinfra.NewRedisCache(client, c.file.Redis.Prefix, c.cacheConfig.Shared.TTL)

	default:
		shared, err := cacheinfra.NewSturdycCache(c.cacheConfig.Shared)
		if err != nil {
			return err
		}
		c.shared = shared
	}
	return nil
}

// OpenSession opens a session from the container's factory.
func (c *Container) OpenSession(ctx context.Context, opts ...session.SessionOption) (*session.Session, error) {
	return c.factory.OpenSession(ctx, opts...)
}

// Factory returns the session factory.
func (c *Container) Factory() *session.Factory {
	return c.factory
}

// SharedCache returns the second-level cache, or nil when it is disabled.
func (c *Container) SharedCache() cache.SharedCache {
	return c.shared
}

// KeySerializer returns the key serializer shared by every session.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Observer returns the metrics observer.
func (c *Container) Observer() *metrics.Observer {
	return c.observer
}

// Logger returns the configured logger.
func (c *Container) Logger() zerolog.Logger {
	return c.logger
}

// DB returns the database handle.
func (c *Container) DB() *bun.DB {
	return c.db
}

// Registry returns the statement registry.
func (c *Container) Registry() *mapping.Registry {
	return c.factory.Registry()
}

// Config returns a copy of the configuration the container was built from.
func (c *Container) Config() config.File {
	return c.file
}

// CacheConfig returns the cache configuration.
func (c *Container) CacheConfig() cache.Config {
	return c.cacheConfig
}

// Close releases the database and Redis client when the container opened them.
func (c *Container) Close() error {
	var errs []error

	if c.ownsRedis && c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		c.redis = nil
	}
	if c.ownsDB && c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		c.db = nil
	}
	return errors.Join(errs...)
}
