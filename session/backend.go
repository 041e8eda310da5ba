package session

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-session-cache/cache"
	"github.com/goliatone/go-session-cache/mapping"
)

// Backend executes statements and owns the transaction of one session.
// A session calls it from a single goroutine at a time.
type Backend interface {
	// Query runs a select and materializes the rows selected by bounds.
	Query(ctx context.Context, stmt mapping.Statement, bounds cache.RowBounds, params []any) (*cache.ResultSet, error)

	// Exec runs a write and returns the number of affected rows.
	Exec(ctx context.Context, stmt mapping.Statement, params []any) (int64, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// Close releases the backend, rolling back anything left uncommitted.
	Close(ctx context.Context) error
}

// OpenOptions describes the transaction behaviour requested for a session.
type OpenOptions struct {
	AutoCommit bool
	Isolation  sql.IsolationLevel
}

// Opener creates a Backend per session.
type Opener interface {
	Open(ctx context.Context, opts OpenOptions) (Backend, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, opts OpenOptions) (Backend, error)

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, opts OpenOptions) (Backend, error) {
	return f(ctx, opts)
}
