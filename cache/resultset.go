package cache

import (
	"fmt"
	"slices"
)

// ResultSet is a materialized, immutable query result.
// The constructor copies its input and every accessor returns copies, so a
// cached *ResultSet can be handed to many readers.
type ResultSet struct {
	columns []string
	rows    [][]any
}

// ResultSetData is the plain form of a ResultSet, used by encoders.
type ResultSetData struct {
	Columns []string `msgpack:"columns" json:"columns"`
	Rows    [][]any  `msgpack:"rows" json:"rows"`
}

// NewResultSet builds a ResultSet from column names and row values.
func NewResultSet(columns []string, rows [][]any) *ResultSet {
	copied := make([][]any, len(rows))
	for i, row := range rows {
		copied[i] = slices.Clone(row)
	}
	return &ResultSet{
		columns: slices.Clone(columns),
		rows:    copied,
	}
}

// FromData rebuilds a ResultSet from its plain form.
func FromData(data ResultSetData) *ResultSet {
	return NewResultSet(data.Columns, data.Rows)
}

// Data returns a copy of the result in plain form.
func (rs *ResultSet) Data() ResultSetData {
	rows := make([][]any, len(rs.rows))
	for i, row := range rs.rows {
		rows[i] = slices.Clone(row)
	}
	return ResultSetData{Columns: slices.Clone(rs.columns), Rows: rows}
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rows)
}

// Columns returns the column names.
func (rs *ResultSet) Columns() []string {
	return slices.Clone(rs.columns)
}

// Row returns a copy of row i.
func (rs *ResultSet) Row(i int) []any {
	return slices.Clone(rs.rows[i])
}

// Value returns the value at row i for the named column.
func (rs *ResultSet) Value(i int, column string) (any, bool) {
	idx := slices.Index(rs.columns, column)
	if idx < 0 || i < 0 || i >= len(rs.rows) || idx >= len(rs.rows[i]) {
		return nil, false
	}
	return rs.rows[i][idx], true
}

// Slice returns the rows in [start, end) as a new ResultSet.
func (rs *ResultSet) Slice(start, end int) *ResultSet {
	return NewResultSet(rs.columns, rs.rows[start:end])
}

// Value is a typed accessor over ResultSet.Value.
// A missing column or a value of another type yields ErrInvalidResultType.
func Value[T any](rs *ResultSet, row int, column string) (T, error) {
	var zero T

	raw, ok := rs.Value(row, column)
	if !ok {
		return zero, fmt.Errorf("%w: no column %q in row %d", ErrInvalidResultType, column, row)
	}
	if raw == nil {
		return zero, nil
	}

	typed, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: column %q is %T, want %T", ErrInvalidResultType, column, raw, zero)
	}
	return typed, nil
}
