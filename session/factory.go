package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-session-cache/cache"
	"github.com/goliatone/go-session-cache/internal/cacheinfra"
	"github.com/goliatone/go-session-cache/mapping"
)

// Factory opens sessions that share a configuration, a statement registry and,
// when enabled, a second-level cache. It is safe for concurrent use.
type Factory struct {
	cfg      cache.Config
	registry *mapping.Registry
	opener   Opener

	logger     zerolog.Logger
	observer   cache.Observer
	serializer cache.KeySerializer
	keys       *cache.KeyBuilder
	shared     cache.SharedCache
	stores     *cacheinfra.LocalStorePool
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger used by the factory and its sessions.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Factory) { f.logger = logger }
}

// WithObserver sets the receiver of lookup and invalidation events.
func WithObserver(observer cache.Observer) Option {
	return func(f *Factory) {
		if observer != nil {
			f.observer = observer
		}
	}
}

// WithKeySerializer replaces the serializer used to build cache keys.
func WithKeySerializer(serializer cache.KeySerializer) Option {
	return func(f *Factory) { f.serializer = serializer }
}

// WithSharedCache sets the second-level cache. It is only used when the config enables it.
func WithSharedCache(shared cache.SharedCache) Option {
	return func(f *Factory) { f.shared = shared }
}

// NewFactory validates cfg and builds a factory.
// With CacheEnabled and no WithSharedCache option, an in-process sturdyc cache is created from cfg.Shared.
func NewFactory(cfg cache.Config, registry *mapping.Registry, opener Opener, opts ...Option) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, fmt.Errorf("statement registry is required")
	}
	if opener == nil {
		return nil, fmt.Errorf("backend opener is required")
	}

	f := &Factory{
		cfg:      cfg,
		registry: registry,
		opener:   opener,
		logger:   zerolog.Nop(),
		observer: cache.NopObserver{},
	}

	for _, opt := range opts {
		opt(f)
	}

	f.keys = cache.NewKeyBuilder(f.serializer)
	f.stores = cacheinfra.NewLocalStorePool(cfg.LocalCapacity)

	if !cfg.CacheEnabled {
		f.shared = nil
	} else if f.shared == nil {
		shared, err := cacheinfra.NewSturdycCache(cfg.Shared)
		if err != nil {
			return nil, err
		}
		f.shared = shared
	}

	return f, nil
}

// Config returns a copy of the factory configuration.
func (f *Factory) Config() cache.Config { return f.cfg }

// Registry returns the statement registry.
func (f *Factory) Registry() *mapping.Registry { return f.registry }

// SharedCache returns the second-level cache, or nil when it is disabled.
func (f *Factory) SharedCache() cache.SharedCache { return f.shared }

type sessionOptions struct {
	scope      cache.Scope
	autoCommit bool
	isolation  sql.IsolationLevel
}

// SessionOption configures a single session.
type SessionOption func(*sessionOptions)

// WithScope overrides the configured local cache scope for the session.
func WithScope(scope cache.Scope) SessionOption {
	return func(o *sessionOptions) { o.scope = scope }
}

// WithAutoCommit makes every statement commit on its own.
func WithAutoCommit(autoCommit bool) SessionOption {
	return func(o *sessionOptions) { o.autoCommit = autoCommit }
}

// WithIsolation sets the isolation level of the session transaction.
func WithIsolation(level sql.IsolationLevel) SessionOption {
	return func(o *sessionOptions) { o.isolation = level }
}

// OpenSession opens a backend and returns a session with an empty cache.
func (f *Factory) OpenSession(ctx context.Context, opts ...SessionOption) (*Session, error) {
	o := sessionOptions{scope: f.cfg.LocalCacheScope}
	for _, opt := range opts {
		opt(&o)
	}

	if err := o.scope.Validate(); err != nil {
		return nil, err
	}

	backend, err := f.opener.Open(ctx, OpenOptions{AutoCommit: o.autoCommit, Isolation: o.isolation})
	if err != nil {
		return nil, fmt.Errorf("open session backend: %w", err)
	}

	id := uuid.New()
	logger := f.logger.With().Str("session", id.String()).Logger()

	s := &Session{
		id:         id,
		cfg:        f.cfg,
		scope:      o.scope,
		autoCommit: o.autoCommit,
		registry:   f.registry,
		backend:    backend,
		keys:       f.keys,
		stores:     f.stores,
		store:      f.stores.Get(),
		logger:     logger,
		observer:   f.observer,
	}
	if f.shared != nil {
		s.staged = newStagedCache(f.shared, logger)
	}

	logger.Debug().
		Str("scope", o.scope.String()).
		Bool("auto_commit", o.autoCommit).
		Msg("session opened")

	return s, nil
}
