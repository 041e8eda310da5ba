package cache

import "strings"

// Scope controls how long a session keeps read results.
type Scope string

const (
	// ScopeSession keeps results until the next write, commit, rollback or close.
	ScopeSession Scope = "SESSION"
	// ScopeStatement never reuses a result across calls.
	ScopeStatement Scope = "STATEMENT"
)

// Validate returns an InvalidScopeError for unknown values.
func (s Scope) Validate() error {
	switch s {
	case ScopeSession, ScopeStatement:
		return nil
	default:
		return &InvalidScopeError{Value: string(s)}
	}
}

// String implements fmt.Stringer.
func (s Scope) String() string { return string(s) }

// ParseScope accepts scope names case-insensitively.
func ParseScope(value string) (Scope, error) {
	scope := Scope(strings.ToUpper(strings.TrimSpace(value)))
	if err := scope.Validate(); err != nil {
		return "", &InvalidScopeError{Value: value}
	}
	return scope, nil
}
