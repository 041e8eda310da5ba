package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-session-cache/cache"
	"github.com/goliatone/go-session-cache/internal/cacheinfra"
	"github.com/goliatone/go-session-cache/mapping"
)

// Session is a unit of work with its own query result cache.
//
// Reads under SESSION scope are memoized until the next write, commit,
// rollback, flushing select, ClearCache or Close. Under STATEMENT scope
// nothing is reused. The cache is never shared with other sessions.
//
// All methods are safe for concurrent use; they are serialized by one mutex.
type Session struct {
	mu sync.Mutex

	id         uuid.UUID
	cfg        cache.Config
	scope      cache.Scope
	autoCommit bool

	registry *mapping.Registry
	backend  Backend
	keys     *cache.KeyBuilder
	stores   *cacheinfra.LocalStorePool
	store    *cacheinfra.LocalStore
	staged   *stagedCache

	logger   zerolog.Logger
	observer cache.Observer

	// dirty is set by writes and reset by commit and rollback.
	dirty  bool
	closed bool
}

// ID returns the session id.
func (s *Session) ID() string { return s.id.String() }

// AutoCommit reports whether the session was opened in auto-commit mode.
func (s *Session) AutoCommit() bool { return s.autoCommit }

// Config returns the configuration the session was opened with.
func (s *Session) Config() cache.Config { return s.cfg }

// Scope returns the current local cache scope.
func (s *Session) Scope() cache.Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

// SetScope changes the scope for subsequent reads. Entries already cached stay
// until the next invalidation.
func (s *Session) SetScope(scope cache.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cache.ErrSessionClosed
	}

	s.scope = scope
	s.logger.Debug().Str("scope", scope.String()).Msg("scope changed")
	return nil
}

// Len returns the number of cached entries.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}
	return s.store.Len()
}

// ExecuteRead runs a select over all rows.
func (s *Session) ExecuteRead(ctx context.Context, statementID string, params ...any) (*cache.ResultSet, error) {
	return s.ExecutePage(ctx, statementID, cache.NoRowBounds, params...)
}

// ExecutePage runs a select restricted to bounds.
// Under SESSION scope a cached result for the same statement, bounds and
// parameters is returned as is, without calling the backend.
func (s *Session) ExecutePage(ctx context.Context, statementID string, bounds cache.RowBounds, params ...any) (*cache.ResultSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, cache.ErrSessionClosed
	}

	stmt, err := s.statement(statementID, false)
	if err != nil {
		return nil, err
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if err := stmt.CheckArity(len(params)); err != nil {
		return nil, err
	}

	if stmt.FlushCache {
		s.clearLocal(ctx, cache.ReasonFlush)
		if s.staged != nil {
			s.staged.clear(stmt.Namespace)
		}
	}

	key := s.keys.Build(stmt.ID, bounds, params...)

	if s.scope == cache.ScopeSession {
		if rs, ok := s.store.Get(key); ok {
			s.observer.ObserveLookup(ctx, stmt.ID, cache.TierLocal, true)
			s.logger.Debug().Str("statement", stmt.ID).Str("key", key.String()).Msg("local cache hit")
			return rs, nil
		}
		s.observer.ObserveLookup(ctx, stmt.ID, cache.TierLocal, false)
	}

	shared := s.staged != nil && stmt.UseCache
	if shared {
		rs, ok := s.staged.get(ctx, stmt.Namespace, key)
		s.observer.ObserveLookup(ctx, stmt.ID, cache.TierShared, ok)
		if ok {
			s.logger.Debug().Str("statement", stmt.ID).Str("key", key.String()).Msg("shared cache hit")
			return rs, nil
		}
	}

	rs, err := s.backend.Query(ctx, stmt, bounds, params)
	if err != nil {
		s.logger.Warn().Err(err).Str("statement", stmt.ID).Msg("query failed")
		return nil, &cache.QueryError{StatementID: stmt.ID, Err: err}
	}

	s.logger.Debug().
		Str("statement", stmt.ID).
		Str("key", key.String()).
		Int("rows", rs.Len()).
		Msg("cache miss, query executed")

	if s.scope == cache.ScopeSession {
		s.store.Put(key, rs)
	}
	if shared {
		s.staged.stage(stmt.Namespace, key, rs)
	}

	return rs, nil
}

// ExecuteWrite runs an insert, update or delete and clears the session cache,
// whether or not the write succeeded.
func (s *Session) ExecuteWrite(ctx context.Context, statementID string, params ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, cache.ErrSessionClosed
	}

	stmt, err := s.statement(statementID, true)
	if err != nil {
		return 0, err
	}
	if err := stmt.CheckArity(len(params)); err != nil {
		return 0, err
	}

	affected, err := s.backend.Exec(ctx, stmt, params)

	s.dirty = true
	s.clearLocal(ctx, cache.ReasonWrite)
	if s.staged != nil {
		s.staged.clear(stmt.Namespace)
	}

	if err != nil {
		s.logger.Warn().Err(err).Str("statement", stmt.ID).Msg("write failed")
		return 0, &cache.QueryError{StatementID: stmt.ID, Err: err}
	}

	s.logger.Debug().Str("statement", stmt.ID).Int64("affected", affected).Msg("write executed")
	return affected, nil
}

// Commit commits the backend transaction and clears the session cache.
// The cache is cleared even when the commit fails. Staged second-level
// entries are published only on success.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cache.ErrSessionClosed
	}

	err := s.backend.Commit(ctx)
	s.clearLocal(ctx, cache.ReasonCommit)

	if err != nil {
		if s.staged != nil {
			s.staged.discard()
		}
		s.logger.Warn().Err(err).Msg("commit failed")
		return &cache.TransactionError{Op: "commit", Err: err}
	}

	if s.staged != nil {
		s.staged.publish(ctx)
	}
	s.dirty = false
	return nil
}

// Rollback rolls back the backend transaction and clears the session cache.
// Staged second-level work is discarded.
func (s *Session) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cache.ErrSessionClosed
	}

	err := s.backend.Rollback(ctx)
	s.clearLocal(ctx, cache.ReasonRollback)
	if s.staged != nil {
		s.staged.discard()
	}
	s.dirty = false

	if err != nil {
		s.logger.Warn().Err(err).Msg("rollback failed")
		return &cache.TransactionError{Op: "rollback", Err: err}
	}
	return nil
}

// ClearCache drops every cached entry of the session.
func (s *Session) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.clearLocal(context.Background(), cache.ReasonClear)
}

// Close discards the cache and releases the backend. Calling it again is a no-op.
// Staged second-level entries are published when the session is auto-commit or
// holds no uncommitted writes.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.staged != nil {
		if s.autoCommit || !s.dirty {
			s.staged.publish(ctx)
		} else {
			s.staged.discard()
		}
	}

	s.clearLocal(ctx, cache.ReasonClose)
	s.stores.Put(s.store)
	s.store = nil

	if err := s.backend.Close(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("backend close failed")
		return fmt.Errorf("close session: %w", err)
	}

	s.logger.Debug().Msg("session closed")
	return nil
}

func (s *Session) statement(id string, write bool) (mapping.Statement, error) {
	stmt, err := s.registry.Lookup(id)
	if err != nil {
		return stmt, err
	}
	if stmt.Kind.IsWrite() != write {
		return stmt, fmt.Errorf("%w: %s is a %s statement", cache.ErrStatementKind, id, stmt.Kind)
	}
	return stmt, nil
}

func (s *Session) clearLocal(ctx context.Context, reason cache.InvalidationReason) {
	dropped := s.store.Clear()
	s.observer.ObserveInvalidation(ctx, reason, dropped)
	if dropped > 0 {
		s.logger.Debug().Str("reason", string(reason)).Int("dropped", dropped).Msg("local cache cleared")
	}
}
