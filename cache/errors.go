package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned by any operation on a closed session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrUnknownStatement is returned when a statement id is not registered.
	ErrUnknownStatement = errors.New("unknown statement")

	// ErrStatementKind is returned when a write statement is read or a select is written.
	ErrStatementKind = errors.New("statement kind mismatch")

	// ErrParamCount is returned when the bound parameters do not match the declared ones.
	ErrParamCount = errors.New("parameter count mismatch")

	// ErrInvalidResultType is returned when a result value cannot be converted to the requested type.
	ErrInvalidResultType = errors.New("invalid result type")

	// ErrNoRows is returned by single-row reads that found nothing.
	ErrNoRows = errors.New("no rows in result set")

	// ErrTooManyRows is returned by single-row reads that found more than one row.
	ErrTooManyRows = errors.New("expected one row, got more")
)

// QueryError wraps a failure of the query executor.
type QueryError struct {
	StatementID string
	Err         error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.StatementID, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *QueryError) Unwrap() error { return e.Err }

// TransactionError wraps a commit or rollback failure.
type TransactionError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransactionError) Unwrap() error { return e.Err }

// InvalidScopeError reports an unrecognized scope value.
type InvalidScopeError struct {
	Value string
}

// Error implements the error interface.
func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("invalid cache scope %q: want %s or %s", e.Value, ScopeSession, ScopeStatement)
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
