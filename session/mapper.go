package session

import (
	"context"
	"fmt"

	"github.com/goliatone/go-session-cache/cache"
)

// Mapper binds a select statement to a typed row decoder.
//
//	var userByID = session.Mapper[User]{
//		Statement: "user.selectUserById",
//		Decode:    decodeUser,
//	}
//	u, err := userByID.One(ctx, s, 1)
type Mapper[T any] struct {
	Statement string
	Decode    func(rs *cache.ResultSet, row int) (T, error)
}

// One reads exactly one row. No rows yields cache.ErrNoRows, more than one cache.ErrTooManyRows.
func (m Mapper[T]) One(ctx context.Context, s *Session, params ...any) (T, error) {
	var zero T

	rs, err := s.ExecuteRead(ctx, m.Statement, params...)
	if err != nil {
		return zero, err
	}

	switch rs.Len() {
	case 0:
		return zero, fmt.Errorf("%s: %w", m.Statement, cache.ErrNoRows)
	case 1:
		return m.Decode(rs, 0)
	default:
		return zero, fmt.Errorf("%s: %w (%d)", m.Statement, cache.ErrTooManyRows, rs.Len())
	}
}

// All reads and decodes every row.
func (m Mapper[T]) All(ctx context.Context, s *Session, params ...any) ([]T, error) {
	rs, err := s.ExecuteRead(ctx, m.Statement, params...)
	if err != nil {
		return nil, err
	}
	return m.decodeAll(rs)
}

// Page reads and decodes the rows selected by bounds.
func (m Mapper[T]) Page(ctx context.Context, s *Session, bounds cache.RowBounds, params ...any) ([]T, error) {
	rs, err := s.ExecutePage(ctx, m.Statement, bounds, params...)
	if err != nil {
		return nil, err
	}
	return m.decodeAll(rs)
}

func (m Mapper[T]) decodeAll(rs *cache.ResultSet) ([]T, error) {
	out := make([]T, 0, rs.Len())
	for i := 0; i < rs.Len(); i++ {
		v, err := m.Decode(rs, i)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", m.Statement, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
