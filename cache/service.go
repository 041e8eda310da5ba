package cache

import "context"

// KeySerializer builds a canonical key string from a statement id and its bound arguments.
// It is responsible for producing stable keys across calls. Distinct arguments must
// produce distinct strings when keys are shared through a string-keyed store like Redis.
type KeySerializer interface {
	SerializeKey(statementID string, args ...any) string
}

// SharedCache is the second-level store shared by every session of a factory.
// Entries are grouped by namespace so a write can drop everything its statement group produced.
type SharedCache interface {
	Get(ctx context.Context, namespace string, key CacheKey) (*ResultSet, bool, error)
	Put(ctx context.Context, namespace string, key CacheKey, rs *ResultSet) error
	Clear(ctx context.Context, namespace string) error
}

// Tier identifies which cache level answered a lookup.
type Tier string

const (
	TierLocal  Tier = "local"
	TierShared Tier = "shared"
)

// InvalidationReason names the event that cleared a session cache.
type InvalidationReason string

const (
	ReasonWrite    InvalidationReason = "write"
	ReasonCommit   InvalidationReason = "commit"
	ReasonRollback InvalidationReason = "rollback"
	ReasonFlush    InvalidationReason = "flush"
	ReasonClear    InvalidationReason = "clear"
	ReasonClose    InvalidationReason = "close"
)

// Observer receives cache lookups and invalidations, typically for metrics.
type Observer interface {
	ObserveLookup(ctx context.Context, statementID string, tier Tier, hit bool)
	ObserveInvalidation(ctx context.Context, reason InvalidationReason, dropped int)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) ObserveLookup(context.Context, string, Tier, bool) {}

func (NopObserver) ObserveInvalidation(context.Context, InvalidationReason, int) {}
