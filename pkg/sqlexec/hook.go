package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

// QueryHook logs every statement bun runs.
type QueryHook struct {
	logger zerolog.Logger
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook returns a hook logging to logger.
func NewQueryHook(logger zerolog.Logger) *QueryHook {
	return &QueryHook{logger: logger}
}

// BeforeQuery implements bun.QueryHook.
func (h *QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery implements bun.QueryHook.
func (h *QueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	evt := h.logger.Debug()
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		evt = h.logger.Warn().Err(event.Err)
	}

	evt.Str("operation", event.Operation()).
		Str("query", event.Query).
		Dur("duration", time.Since(event.StartTime)).
		Msg("sql")
}
