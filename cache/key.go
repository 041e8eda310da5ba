package cache

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// RowBounds restricts a read to a window of the result. A zero Limit means no limit.
type RowBounds struct {
	Offset int
	Limit  int
}

// NoRowBounds reads every row.
var NoRowBounds = RowBounds{}

// MarshalText renders the bounds as "offset:limit".
func (b RowBounds) MarshalText() ([]byte, error) {
	return []byte(strconv.Itoa(b.Offset) + ":" + strconv.Itoa(b.Limit)), nil
}

// Validate rejects negative offsets and limits.
func (b RowBounds) Validate() error {
	if b.Offset < 0 || b.Limit < 0 {
		return fmt.Errorf("invalid row bounds %d:%d: must be non-negative", b.Offset, b.Limit)
	}
	return nil
}

// Apply returns the [start, end) window of n rows selected by the bounds.
func (b RowBounds) Apply(n int) (int, int) {
	start := min(b.Offset, n)
	end := n
	if b.Limit > 0 && start+b.Limit < end {
		end = start + b.Limit
	}
	return start, end
}

// CacheKey identifies one read: statement id, row bounds and the ordered parameter values.
// Two keys are equal only when every parameter is deeply equal; the hash is a bucket hint.
type CacheKey struct {
	statementID string
	bounds      RowBounds
	params      []any
	canonical   string
	hash        uint64
	portable    bool
}

// KeyBuilder derives CacheKeys with a given serializer.
type KeyBuilder struct {
	serializer KeySerializer
}

// NewKeyBuilder returns a builder using serializer, or the default serializer when nil.
func NewKeyBuilder(serializer KeySerializer) *KeyBuilder {
	if serializer == nil {
		serializer = NewDefaultKeySerializer()
	}
	return &KeyBuilder{serializer: serializer}
}

var defaultKeyBuilder = NewKeyBuilder(nil)

// NewCacheKey derives a key with the default serializer.
func NewCacheKey(statementID string, bounds RowBounds, params ...any) CacheKey {
	return defaultKeyBuilder.Build(statementID, bounds, params...)
}

// Build derives the key for statementID, bounds and params.
// Slices, maps and pointers reachable through exported fields are copied, so the
// caller may reuse them after the call. Unexported reference fields stay shared.
func (kb *KeyBuilder) Build(statementID string, bounds RowBounds, params ...any) CacheKey {
	snap := make([]any, len(params))
	portable := true
	for i, p := range params {
		snap[i] = snapshot(p)
		portable = portable && isPortable(reflect.ValueOf(p))
	}

	args := make([]any, 0, len(snap)+1)
	args = append(args, bounds)
	args = append(args, snap...)

	canonical := kb.serializer.SerializeKey(statementID, args...)

	return CacheKey{
		statementID: statementID,
		bounds:      bounds,
		params:      snap,
		canonical:   canonical,
		hash:        xxhash.Sum64String(canonical),
		portable:    portable,
	}
}

// Params returns a copy of the bound parameters.
func (k CacheKey) Params() []any { return append([]any(nil), k.params...) }

// Hash returns the xxhash of the canonical form.
func (k CacheKey) Hash() uint64 { return k.hash }

// String returns the canonical form.
func (k CacheKey) String() string { return k.canonical }

// Portable reports whether the canonical form means the same read in another process.
// Keys over functions, channels or unsafe pointers render addresses and are not portable.
func (k CacheKey) Portable() bool { return k.portable }

// Equal reports whether both keys describe the same read.
// Parameters are compared with reflect.DeepEqual, so function values never match.
func (k CacheKey) Equal(other CacheKey) bool {
	if k.hash != other.hash || k.statementID != other.statementID || k.bounds != other.bounds {
		return false
	}
	if len(k.params) != len(other.params) {
		return false
	}
	for i := range k.params {
		if !reflect.DeepEqual(k.params[i], other.params[i]) {
			return false
		}
	}
	return true
}

// NamespacedKey prefixes the canonical form with a namespace, for shared stores keyed by string.
func NamespacedKey(namespace string, key CacheKey) string {
	var b strings.Builder
	b.Grow(len(namespace) + len(KeySeparator) + len(key.canonical))
	b.WriteString(namespace)
	b.WriteString(KeySeparator)
	b.WriteString(key.canonical)
	return b.String()
}

func isPortable(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false
	case reflect.Interface:
		return rv.IsNil() || isPortable(rv.Elem())
	case reflect.Pointer:
		return rv.IsNil() || isPortable(rv.Elem())
	case reflect.Slice, reflect.Array:
		if !hasAddresses(rv.Type().Elem()) {
			return true
		}
		for i := 0; i < rv.Len(); i++ {
			if !isPortable(rv.Index(i)) {
				return false
			}
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if !isPortable(iter.Key()) || !isPortable(iter.Value()) {
				return false
			}
		}
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if !isPortable(rv.Field(i)) {
				return false
			}
		}
	}
	return true
}

// hasAddresses reports whether values of rt may hold something other than plain data.
func hasAddresses(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return hasAddresses(rt.Elem())
	}
	return true
}

// snapshot copies the slices, maps and pointers of v reachable through exported fields.
// Map keys are kept as they are so pointer keys still compare equal.
func snapshot(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if !hasReferences(rv.Type()) {
		return v
	}
	return snapshotValue(rv).Interface()
}

func hasReferences(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	case reflect.Array:
		return hasReferences(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if f := rt.Field(i); f.IsExported() && hasReferences(f.Type) {
				return true
			}
		}
	}
	return false
}

func snapshotValue(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return rv
		}
		cp := reflect.New(rv.Type().Elem())
		cp.Elem().Set(snapshotValue(rv.Elem()))
		return cp
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		cp := reflect.New(rv.Type()).Elem()
		cp.Set(snapshotValue(rv.Elem()))
		return cp
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		cp := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		if !hasReferences(rv.Type().Elem()) {
			reflect.Copy(cp, rv)
			return cp
		}
		for i := 0; i < rv.Len(); i++ {
			cp.Index(i).Set(snapshotValue(rv.Index(i)))
		}
		return cp
	case reflect.Array:
		cp := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			cp.Index(i).Set(snapshotValue(rv.Index(i)))
		}
		return cp
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		cp := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			cp.SetMapIndex(iter.Key(), snapshotValue(iter.Value()))
		}
		return cp
	case reflect.Struct:
		cp := reflect.New(rv.Type()).Elem()
		cp.Set(rv)
		for i := 0; i < rv.NumField(); i++ {
			if rv.Type().Field(i).IsExported() {
				cp.Field(i).Set(snapshotValue(rv.Field(i)))
			}
		}
		return cp
	}
	return rv
}
