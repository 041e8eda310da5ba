package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-session-cache/cache"
	"github.com/goliatone/go-session-cache/mapping"
	"github.com/goliatone/go-session-cache/session"
)

// Opener opens bun-backed session backends over one database handle.
type Opener struct {
	db     *bun.DB
	logger zerolog.Logger
}

var _ session.Opener = (*Opener)(nil)

// NewOpener returns an Opener for db.
func NewOpener(db *bun.DB, logger zerolog.Logger) *Opener {
	return &Opener{db: db, logger: logger}
}

// Open implements session.Opener. No connection is taken until the first statement.
func (o *Opener) Open(_ context.Context, opts session.OpenOptions) (session.Backend, error) {
	return &Backend{db: o.db, opts: opts, logger: o.logger}, nil
}

// Backend runs statements through bun. Auto-commit backends use the pool directly;
// the others begin a transaction on the first statement and keep it until
// Commit, Rollback or Close.
type Backend struct {
	db     *bun.DB
	opts   session.OpenOptions
	logger zerolog.Logger
	tx     *bun.Tx
}

var _ session.Backend = (*Backend)(nil)

func (b *Backend) conn(ctx context.Context) (bun.IConn, error) {
	if b.opts.AutoCommit {
		return b.db, nil
	}
	if b.tx == nil {
		tx, err := b.db.BeginTx(ctx, &sql.TxOptions{Isolation: b.opts.Isolation})
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", err)
		}
		b.tx = &tx
		b.logger.Debug().Str("isolation", b.opts.Isolation.String()).Msg("transaction started")
	}
	return b.tx, nil
}

// Query implements session.Backend. Rows outside bounds are skipped while scanning.
func (b *Backend) Query(ctx context.Context, stmt mapping.Statement, bounds cache.RowBounds, params []any) (*cache.ResultSet, error) {
	conn, err := b.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, stmt.SQL, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows, bounds)
}

// Exec implements session.Backend.
func (b *Backend) Exec(ctx context.Context, stmt mapping.Statement, params []any) (int64, error) {
	conn, err := b.conn(ctx)
	if err != nil {
		return 0, err
	}

	res, err := conn.ExecContext(ctx, stmt.SQL, params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Commit implements session.Backend. It is a no-op without an open transaction.
func (b *Backend) Commit(context.Context) error {
	if b.tx == nil {
		return nil
	}
	tx := b.tx
	b.tx = nil
	return tx.Commit()
}

// Rollback implements session.Backend. It is a no-op without an open transaction.
func (b *Backend) Rollback(context.Context) error {
	if b.tx == nil {
		return nil
	}
	tx := b.tx
	b.tx = nil
	return tx.Rollback()
}

// Close implements session.Backend by rolling back an open transaction.
func (b *Backend) Close(ctx context.Context) error {
	if err := b.Rollback(ctx); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func scanRows(rows *sql.Rows, bounds cache.RowBounds) (*cache.ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]any
	for index := 0; rows.Next(); index++ {
		if index < bounds.Offset {
			continue
		}
		if bounds.Limit > 0 && len(out) == bounds.Limit {
			break
		}

		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		for i, v := range values {
			if raw, ok := v.([]byte); ok {
				values[i] = string(raw)
			}
		}
		out = append(out, values)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cache.NewResultSet(columns, out), nil
}
