package repoexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-session-cache/cache"
	"github.com/goliatone/go-session-cache/mapping"
	"github.com/goliatone/go-session-cache/session"
)

// Column names of the result sets produced by the backend.
// The record column holds the repository value; with a pointer T every reader of a
// cached result set shares that pointer, so read it back with Record.
const (
	RecordColumn = "record"
	CountColumn  = "count"
)

// Repository is the part of a go-repository-bun repository the backend drives.
type Repository[T any] interface {
	GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error)
	ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error)
	CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error)
	CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error)
	DeleteTx(ctx context.Context, tx bun.IDB, record T) error
}

// Interface assertion to ensure every go-repository-bun repository can be driven
var _ Repository[any] = repository.Repository[any](nil)

// Operation is the repository method a statement id is routed to.
type Operation int

const (
	// GetByID takes the id as its single parameter.
	GetByID Operation = iota + 1
	// List takes column/value pairs, combined as equality filters.
	List
	// Count takes the same parameters as List.
	Count
	// Create, Update and Delete take the record as their single parameter.
	Create
	Update
	Delete
)

func (op Operation) String() string {
	switch op {
	case GetByID:
		return "GetByID"
	case List:
		return "List"
	case Count:
		return "Count"
	case Create:
		return "Create"
	case Update:
		return "Update"
	case Delete:
		return "Delete"
	default:
		return fmt.Sprintf("Operation(%d)", int(op))
	}
}

func (op Operation) isWrite() bool {
	return op == Create || op == Update || op == Delete
}

// Routes maps statement ids to repository operations.
type Routes map[string]Operation

// Validate checks that every statement in registry is routed to an operation of matching kind.
func (r Routes) Validate(registry *mapping.Registry) error {
	for _, id := range registry.IDs() {
		stmt, _ := registry.Lookup(id)
		op, ok := r[id]
		if !ok {
			return fmt.Errorf("statement %s has no repository route", id)
		}
		if op.isWrite() != stmt.Kind.IsWrite() {
			return fmt.Errorf("statement %s is a %s but routes to %s", id, stmt.Kind, op)
		}
	}
	return nil
}

// Opener opens backends that run statements through one repository.
type Opener[T any] struct {
	db     *bun.DB
	repo   Repository[T]
	routes Routes
	logger zerolog.Logger
}

// NewOpener returns an Opener. db provides transactions for non auto-commit sessions.
func NewOpener[T any](db *bun.DB, repo Repository[T], routes Routes, logger zerolog.Logger) *Opener[T] {
	return &Opener[T]{db: db, repo: repo, routes: routes, logger: logger}
}

// Open implements session.Opener.
func (o *Opener[T]) Open(_ context.Context, opts session.OpenOptions) (session.Backend, error) {
	return &Backend[T]{opener: o, opts: opts}, nil
}

// Backend dispatches statements to repository calls.
type Backend[T any] struct {
	opener *Opener[T]
	opts   session.OpenOptions
	tx     *bun.Tx
}

func (b *Backend[T]) idb(ctx context.Context) (bun.IDB, error) {
	if b.opts.AutoCommit {
		return b.opener.db, nil
	}
	if b.tx == nil {
		tx, err := b.opener.db.BeginTx(ctx, &sql.TxOptions{Isolation: b.opts.Isolation})
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", err)
		}
		b.tx = &tx
	}
	return b.tx, nil
}

func (b *Backend[T]) route(stmt mapping.Statement) (Operation, error) {
	op, ok := b.opener.routes[stmt.ID]
	if !ok {
		return 0, fmt.Errorf("%w: no repository route for %s", cache.ErrUnknownStatement, stmt.ID)
	}
	return op, nil
}

// Query implements session.Backend.
func (b *Backend[T]) Query(ctx context.Context, stmt mapping.Statement, bounds cache.RowBounds, params []any) (*cache.ResultSet, error) {
	op, err := b.route(stmt)
	if err != nil {
		return nil, err
	}

	idb, err := b.idb(ctx)
	if err != nil {
		return nil, err
	}

	b.opener.logger.Debug().Str("statement", stmt.ID).Stringer("operation", op).Msg("repository read")

	switch op {
	case GetByID:
		if len(params) != 1 {
			return nil, fmt.Errorf("%w: GetByID takes one id", cache.ErrParamCount)
		}
		record, err := b.opener.repo.GetByIDTx(ctx, idb, fmt.Sprint(params[0]))
		if err != nil {
			return nil, err
		}
		return window(cache.NewResultSet([]string{RecordColumn}, [][]any{{detach(record)}}), bounds), nil

	case List:
		criteria, err := filters(params)
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, paginate(bounds))
		records, _, err := b.opener.repo.ListTx(ctx, idb, criteria...)
		if err != nil {
			return nil, err
		}
		rows := make([][]any, len(records))
		for i, record := range records {
			rows[i] = []any{detach(record)}
		}
		return cache.NewResultSet([]string{RecordColumn}, rows), nil

	case Count:
		criteria, err := filters(params)
		if err != nil {
			return nil, err
		}
		n, err := b.opener.repo.CountTx(ctx, idb, criteria...)
		if err != nil {
			return nil, err
		}
		return window(cache.NewResultSet([]string{CountColumn}, [][]any{{n}}), bounds), nil
	}

	return nil, fmt.Errorf("%w: %s routes to %s", cache.ErrStatementKind, stmt.ID, op)
}

// Exec implements session.Backend. Each successful write affects one record.
func (b *Backend[T]) Exec(ctx context.Context, stmt mapping.Statement, params []any) (int64, error) {
	op, err := b.route(stmt)
	if err != nil {
		return 0, err
	}

	if len(params) != 1 {
		return 0, fmt.Errorf("%w: %s takes one record", cache.ErrParamCount, op)
	}
	record, ok := params[0].(T)
	if !ok {
		var zero T
		return 0, fmt.Errorf("%w: %s expects %T, got %T", cache.ErrInvalidResultType, stmt.ID, zero, params[0])
	}

	idb, err := b.idb(ctx)
	if err != nil {
		return 0, err
	}

	b.opener.logger.Debug().Str("statement", stmt.ID).Stringer("operation", op).Msg("repository write")

	switch op {
	case Create:
		_, err = b.opener.repo.CreateTx(ctx, idb, record)
	case Update:
		_, err = b.opener.repo.UpdateTx(ctx, idb, record)
	case Delete:
		err = b.opener.repo.DeleteTx(ctx, idb, record)
	default:
		return 0, fmt.Errorf("%w: %s routes to %s", cache.ErrStatementKind, stmt.ID, op)
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}

// Commit implements session.Backend.
func (b *Backend[T]) Commit(context.Context) error {
	if b.tx == nil {
		return nil
	}
	tx := b.tx
	b.tx = nil
	return tx.Commit()
}

// Rollback implements session.Backend.
func (b *Backend[T]) Rollback(context.Context) error {
	if b.tx == nil {
		return nil
	}
	tx := b.tx
	b.tx = nil
	return tx.Rollback()
}

// Close implements session.Backend.
func (b *Backend[T]) Close(ctx context.Context) error {
	if err := b.Rollback(ctx); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// window applies bounds to single-row results the repository cannot page.
func window(rs *cache.ResultSet, bounds cache.RowBounds) *cache.ResultSet {
	if bounds == cache.NoRowBounds {
		return rs
	}
	return rs.Slice(bounds.Apply(rs.Len()))
}

// Record returns the record of row i. A pointer record is copied one level deep,
// so changing the returned value leaves the cached entry alone.
func Record[T any](rs *cache.ResultSet, i int) (T, error) {
	record, err := cache.Value[T](rs, i, RecordColumn)
	if err != nil {
		return record, err
	}
	return detach(record), nil
}

// detach returns a shallow copy of a non-nil pointer record, and record itself otherwise.
func detach[T any](record T) T {
	rv := reflect.ValueOf(record)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return record
	}
	cp := reflect.New(rv.Type().Elem())
	cp.Elem().Set(rv.Elem())
	return cp.Interface().(T)
}

// filters turns column/value pairs into equality criteria.
func filters(params []any) ([]repository.SelectCriteria, error) {
	if len(params)%2 != 0 {
		return nil, fmt.Errorf("%w: expected column/value pairs, got %d values", cache.ErrParamCount, len(params))
	}

	criteria := make([]repository.SelectCriteria, 0, len(params)/2+1)
	for i := 0; i < len(params); i += 2 {
		column, ok := params[i].(string)
		if !ok {
			return nil, fmt.Errorf("filter column must be a string, got %T", params[i])
		}
		value := params[i+1]
		criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("? = ?", bun.Ident(column), value)
		})
	}
	return criteria, nil
}

func paginate(bounds cache.RowBounds) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if bounds.Offset > 0 {
			q = q.Offset(bounds.Offset)
		}
		if bounds.Limit > 0 {
			q = q.Limit(bounds.Limit)
		}
		return q
	}
}
