package session

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-session-cache/cache"
)

type stagedEntry struct {
	key cache.CacheKey
	rs  *cache.ResultSet
}

// stagedCache buffers a session's second-level work until the session commits.
// Reads go straight to the shared cache; puts and namespace clears wait for publish.
type stagedCache struct {
	shared  cache.SharedCache
	logger  zerolog.Logger
	pending map[string][]stagedEntry
	cleared map[string]struct{}
}

func newStagedCache(shared cache.SharedCache, logger zerolog.Logger) *stagedCache {
	return &stagedCache{
		shared:  shared,
		logger:  logger,
		pending: make(map[string][]stagedEntry),
		cleared: make(map[string]struct{}),
	}
}

// get misses for namespaces this session has written to, and on shared cache errors.
func (c *stagedCache) get(ctx context.Context, namespace string, key cache.CacheKey) (*cache.ResultSet, bool) {
	if _, ok := c.cleared[namespace]; ok {
		return nil, false
	}

	rs, ok, err := c.shared.Get(ctx, namespace, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("namespace", namespace).Msg("shared cache read failed")
		return nil, false
	}
	return rs, ok
}

func (c *stagedCache) stage(namespace string, key cache.CacheKey, rs *cache.ResultSet) {
	c.pending[namespace] = append(c.pending[namespace], stagedEntry{key: key, rs: rs})
}

// clear marks namespace to be cleared on publish and drops what was staged for it.
func (c *stagedCache) clear(namespace string) {
	c.cleared[namespace] = struct{}{}
	delete(c.pending, namespace)
}

// publish applies pending clears, then pending puts. Failures are logged and skipped.
func (c *stagedCache) publish(ctx context.Context) {
	for namespace := range c.cleared {
		if err := c.shared.Clear(ctx, namespace); err != nil {
			c.logger.Warn().Err(err).Str("namespace", namespace).Msg("shared cache clear failed")
		}
	}

	for namespace, entries := range c.pending {
		for _, e := range entries {
			if err := c.shared.Put(ctx, namespace, e.key, e.rs); err != nil {
				c.logger.Warn().Err(err).Str("namespace", namespace).Str("key", e.key.String()).Msg("shared cache write failed")
			}
		}
	}

	c.reset()
}

func (c *stagedCache) discard() {
	c.reset()
}

func (c *stagedCache) reset() {
	clear(c.pending)
	clear(c.cleared)
}

func (c *stagedCache) pendingLen() int {
	n := 0
	for _, entries := range c.pending {
		n += len(entries)
	}
	return n
}
