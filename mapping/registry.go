package mapping

import (
	"fmt"
	"slices"

	"github.com/goliatone/go-session-cache/cache"
)

// Registry resolves statement ids to their declarations.
// It is built once and read-only afterwards, so it is safe to share between sessions.
type Registry struct {
	statements map[string]Statement
}

// NewRegistry validates and indexes stmts. Duplicate ids are rejected.
func NewRegistry(stmts ...Statement) (*Registry, error) {
	r := &Registry{statements: make(map[string]Statement, len(stmts))}

	for _, stmt := range stmts {
		normalized, err := stmt.normalize()
		if err != nil {
			return nil, err
		}
		if _, exists := r.statements[normalized.ID]; exists {
			return nil, fmt.Errorf("duplicate statement id %s", normalized.ID)
		}
		r.statements[normalized.ID] = normalized
	}

	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(stmts ...Statement) *Registry {
	r, err := NewRegistry(stmts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the statement registered under id.
func (r *Registry) Lookup(id string) (Statement, error) {
	stmt, ok := r.statements[id]
	if !ok {
		return Statement{}, fmt.Errorf("%w: %s", cache.ErrUnknownStatement, id)
	}
	return stmt, nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.statements))
	for id := range r.statements {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of registered statements.
func (r *Registry) Len() int {
	return len(r.statements)
}
