package session

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/goliatone/go-session-cache/cache"
	"github.com/goliatone/go-session-cache/mapping"
)

var errBoom = errors.New("boom")

func testRegistry() *mapping.Registry {
	return mapping.MustRegistry(
		mapping.Select("user.selectUserById", "SELECT id, name FROM users WHERE id = ?", "id"),
		mapping.Select("user.selectAll", "SELECT id, name FROM users ORDER BY id"),
		mapping.Update("user.updateUserName", "UPDATE users SET name = ? WHERE id = ?", "name", "id"),
		mapping.Statement{
			ID:         "user.selectFresh",
			Kind:       mapping.KindSelect,
			SQL:        "SELECT id, name FROM users ORDER BY id",
			UseCache:   true,
			FlushCache: true,
		},
		mapping.Statement{
			ID:   "audit.selectAll",
			Kind: mapping.KindSelect,
			SQL:  "SELECT id, name FROM users ORDER BY id",
		},
	)
}

// fakeDB is an in-memory users table with read-committed visibility.
type fakeDB struct {
	mu    sync.Mutex
	users map[int]string
}

func newFakeDB() *fakeDB {
	return &fakeDB{users: map[int]string{1: "Alice", 2: "Bob", 3: "Carol"}}
}

// fakeBackend counts calls and lets tests inject failures.
type fakeBackend struct {
	db         *fakeDB
	autoCommit bool

	mu        sync.Mutex
	pending   map[int]string
	queries   map[string]int
	execs     int
	commits   int
	rollbacks int
	closes    int

	failQuery    error
	failExec     error
	failCommit   error
	failRollback error
	failClose    error
}

// userRef identifies a user through an unexported field.
type userRef struct{ id int }

func userID(p any) int {
	if ref, ok := p.(userRef); ok {
		return ref.id
	}
	return p.(int)
}

func (b *fakeBackend) Query(_ context.Context, stmt mapping.Statement, bounds cache.RowBounds, params []any) (*cache.ResultSet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queries[stmt.ID]++
	if b.failQuery != nil {
		return nil, b.failQuery
	}

	b.db.mu.Lock()
	view := maps.Clone(b.db.users)
	b.db.mu.Unlock()
	maps.Copy(view, b.pending)

	var rows [][]any
	switch stmt.ID {
	case "user.selectUserById":
		id := userID(params[0])
		if name, ok := view[id]; ok {
			rows = append(rows, []any{id, name})
		}
	default:
		for _, id := range slices.Sorted(maps.Keys(view)) {
			rows = append(rows, []any{id, view[id]})
		}
	}

	start, end := bounds.Apply(len(rows))
	return cache.NewResultSet([]string{"id", "name"}, rows[start:end]), nil
}

func (b *fakeBackend) Exec(_ context.Context, _ mapping.Statement, params []any) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.execs++
	if b.failExec != nil {
		return 0, b.failExec
	}

	name, id := params[0].(string), params[1].(int)
	if b.autoCommit {
		b.db.mu.Lock()
		b.db.users[id] = name
		b.db.mu.Unlock()
	} else {
		b.pending[id] = name
	}
	return 1, nil
}

func (b *fakeBackend) Commit(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.commits++
	if b.failCommit != nil {
		return b.failCommit
	}

	b.db.mu.Lock()
	maps.Copy(b.db.users, b.pending)
	b.db.mu.Unlock()
	clear(b.pending)
	return nil
}

func (b *fakeBackend) Rollback(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollbacks++
	clear(b.pending)
	return b.failRollback
}

func (b *fakeBackend) Close(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closes++
	clear(b.pending)
	return b.failClose
}

func (b *fakeBackend) queryCount(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[id]
}

// fakeOpener hands out fakeBackends over one shared fakeDB and remembers them.
type fakeOpener struct {
	db *fakeDB

	mu       sync.Mutex
	backends []*fakeBackend
	failOpen error
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{db: newFakeDB()}
}

func (o *fakeOpener) Open(_ context.Context, opts OpenOptions) (Backend, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.failOpen != nil {
		return nil, o.failOpen
	}

	b := &fakeBackend{
		db:         o.db,
		autoCommit: opts.AutoCommit,
		pending:    make(map[int]string),
		queries:    make(map[string]int),
	}
	o.backends = append(o.backends, b)
	return b, nil
}

func (o *fakeOpener) last() *fakeBackend {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.backends[len(o.backends)-1]
}

type lookupEvent struct {
	statement string
	tier      cache.Tier
	hit       bool
}

type recordingObserver struct {
	mu            sync.Mutex
	lookups       []lookupEvent
	invalidations map[cache.InvalidationReason]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{invalidations: make(map[cache.InvalidationReason]int)}
}

func (r *recordingObserver) ObserveLookup(_ context.Context, statementID string, tier cache.Tier, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, lookupEvent{statement: statementID, tier: tier, hit: hit})
}

func (r *recordingObserver) ObserveInvalidation(_ context.Context, reason cache.InvalidationReason, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidations[reason]++
}

// failingShared is a SharedCache whose reads always fail.
type failingShared struct{}

func (failingShared) Get(context.Context, string, cache.CacheKey) (*cache.ResultSet, bool, error) {
	return nil, false, errBoom
}

func (failingShared) Put(context.Context, string, cache.CacheKey, *cache.ResultSet) error {
	return errBoom
}

func (failingShared) Clear(context.Context, string) error { return errBoom }

// constantSerializer gives every read the same canonical form.
type constantSerializer struct{}

func (constantSerializer) SerializeKey(string, ...any) string { return "constant" }
