// Package cache provides the building blocks of the session query cache: keys,
// result sets, scopes, errors and the contracts shared by the cache tiers.
//
// # Overview
//
// A read issued through a session is identified by a CacheKey built from the
// statement id, the requested RowBounds and the ordered parameter values:
//
//	key := cache.NewCacheKey("user.selectUserById", cache.NoRowBounds, "1")
//	fmt.Println(key) // user.selectUserById::github.com/goliatone/go-session-cache/cache.RowBounds("0:0")::string("1")
//
// The canonical string comes from a KeySerializer and is hashed with xxhash to
// pick a bucket. Key equality never relies on the hash alone: Equal compares
// the statement, the bounds and every parameter with reflect.DeepEqual.
//
// # Key Serialization Strategy
//
// The default key serializer renders each value together with its dynamic type.
// Named types carry their import path, so equal canonical forms imply equal keys:
//
//   - Basic types: type(value), strings quoted
//   - Pointers: & followed by the pointee
//   - Slices/arrays: type{elem,elem}
//   - Maps: entries sorted by rendered key
//   - Structs: every field, exported or not, as Name:value
//   - encoding.TextMarshaler values (time.Time, uuid.UUID): type("text")
//   - Functions and channels: their pointer, stable only within one process
//
// The canonical form is also the key of second-level entries. The in-process
// tier stores the full key next to each result and checks Equal on every hit.
// Redis only has the canonical string, so it skips keys that are not Portable:
// parameters holding functions, channels or unsafe pointers. A custom
// serializer must be injective for keys shared through Redis.
//
// # Result Sets
//
// ResultSet values are immutable. A session hands out the same *ResultSet for
// repeated cached reads, and readers cannot alter what other readers observe.
//
// # Scopes
//
// ScopeSession keeps results until the next invalidation event; ScopeStatement
// never reuses them. Unknown scope values fail with InvalidScopeError.
package cache
