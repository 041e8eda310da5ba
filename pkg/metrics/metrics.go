// Package metrics exports session cache activity as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-session-cache/cache"
)

// Observer is a cache.Observer backed by Prometheus collectors.
type Observer struct {
	// Lookups counts cache lookups by statement, tier ("local", "shared") and result ("hit", "miss").
	Lookups *prometheus.CounterVec

	// Invalidations counts session cache clears by reason.
	Invalidations *prometheus.CounterVec

	// Dropped observes how many entries each clear removed.
	Dropped prometheus.Histogram
}

var _ cache.Observer = (*Observer)(nil)

// NewObserver creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewObserver(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)

	return &Observer{
		Lookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessioncache_lookups_total",
				Help: "Total number of session cache lookups",
			},
			[]string{"statement", "tier", "result"},
		),
		Invalidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessioncache_invalidations_total",
				Help: "Total number of session cache invalidations",
			},
			[]string{"reason"}, // "write", "commit", "rollback", "flush", "clear", "close"
		),
		Dropped: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sessioncache_invalidated_entries",
				Help:    "Number of entries dropped per invalidation",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
			},
		),
	}
}

// ObserveLookup implements cache.Observer.
func (o *Observer) ObserveLookup(_ context.Context, statementID string, tier cache.Tier, hit bool) {
	o.Lookups.WithLabelValues(statementID, string(tier), result(hit)).Inc()
}

// ObserveInvalidation implements cache.Observer.
func (o *Observer) ObserveInvalidation(_ context.Context, reason cache.InvalidationReason, dropped int) {
	o.Invalidations.WithLabelValues(string(reason)).Inc()
	o.Dropped.Observe(float64(dropped))
}

func result(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

