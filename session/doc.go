// Package session provides sessions with a local query result cache.
//
// # Overview
//
// A Factory opens sessions over a Backend. Each Session memoizes the results of
// select statements keyed by statement id, row bounds and bound parameters:
//
//	factory, err := session.NewFactory(cache.DefaultConfig(), registry, opener)
//	s, err := factory.OpenSession(ctx)
//	defer s.Close(ctx)
//
//	rs, err := s.ExecuteRead(ctx, "user.selectUserById", 1) // backend
//	rs, err = s.ExecuteRead(ctx, "user.selectUserById", 1)  // cache
//
// # Invalidation
//
// The whole local cache is cleared by:
//   - any write (ExecuteWrite), even one that fails
//   - Commit and Rollback, even when the backend call fails
//   - a select declared with FlushCache
//   - ClearCache and Close
//
// A failed read stores nothing and leaves existing entries untouched.
//
// # Scope
//
// cache.ScopeSession keeps entries until the next invalidation.
// cache.ScopeStatement neither reads nor stores entries; SetScope affects only
// subsequent calls.
//
// # Second-level cache
//
// With Config.CacheEnabled, select results are also staged for a SharedCache
// visible to every session of the factory. Staged entries are published on
// Commit (or on Close when nothing uncommitted was written) and discarded on
// Rollback. A write marks its statement namespace to be cleared on commit and
// hides the namespace's shared entries from the writing session until then.
package session
