package mapping

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-session-cache/cache"
)

// Kind classifies a statement as a read or one of the writes.
type Kind string

const (
	KindSelect Kind = "select"
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// ParseKind accepts kind names case-insensitively.
func ParseKind(value string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	switch kind {
	case KindSelect, KindInsert, KindUpdate, KindDelete:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown statement kind %q", value)
	}
}

// IsWrite reports whether statements of this kind modify data.
func (k Kind) IsWrite() bool {
	return k == KindInsert || k == KindUpdate || k == KindDelete
}

// Statement is a mapped SQL statement.
type Statement struct {
	// ID is the fully qualified statement id, e.g. "user.selectUserById".
	ID string

	// Namespace groups statements sharing second-level entries.
	// Empty means the id prefix before the last ".".
	Namespace string

	Kind Kind
	SQL  string

	// Params names the declared parameters. When non-nil, calls must bind exactly len(Params) values.
	Params []string

	// UseCache lets select results participate in the second-level cache.
	UseCache bool

	// FlushCache clears the session cache before the statement runs. Always set for writes.
	FlushCache bool
}

// Select declares a cacheable read.
func Select(id, sql string, params ...string) Statement {
	return Statement{ID: id, Kind: KindSelect, SQL: sql, Params: append([]string{}, params...), UseCache: true}
}

// Insert declares an insert.
func Insert(id, sql string, params ...string) Statement {
	return write(KindInsert, id, sql, params)
}

// Update declares an update.
func Update(id, sql string, params ...string) Statement {
	return write(KindUpdate, id, sql, params)
}

// Delete declares a delete.
func Delete(id, sql string, params ...string) Statement {
	return write(KindDelete, id, sql, params)
}

func write(kind Kind, id, sql string, params []string) Statement {
	return Statement{ID: id, Kind: kind, SQL: sql, Params: append([]string{}, params...), FlushCache: true}
}

// CheckArity verifies that n bound values match the declared parameters.
func (s Statement) CheckArity(n int) error {
	if s.Params == nil || len(s.Params) == n {
		return nil
	}
	return fmt.Errorf("%w: %s declares %d parameters (%s), got %d",
		cache.ErrParamCount, s.ID, len(s.Params), strings.Join(s.Params, ", "), n)
}

// normalize fills derived fields and rejects malformed declarations.
func (s Statement) normalize() (Statement, error) {
	if strings.TrimSpace(s.ID) == "" {
		return s, fmt.Errorf("statement id is required")
	}

	kind, err := ParseKind(string(s.Kind))
	if err != nil {
		return s, fmt.Errorf("statement %s: %w", s.ID, err)
	}
	s.Kind = kind

	if s.Namespace == "" {
		s.Namespace = namespaceOf(s.ID)
	}

	if s.Kind.IsWrite() {
		s.FlushCache = true
		s.UseCache = false
	}

	if s.Params != nil {
		s.Params = append([]string{}, s.Params...)
	}

	return s, nil
}

func namespaceOf(id string) string {
	if i := strings.LastIndex(id, "."); i > 0 {
		return id[:i]
	}
	return id
}
