package cache

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// defaultKeySerializer implements KeySerializer using reflection-based serialization.
// Every value is rendered together with its package-qualified dynamic type so that
// int(1) and string("1") never share a canonical form, and struct values include
// their unexported fields.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds a canonical key from a statement id and its bound arguments.
func (s *defaultKeySerializer) SerializeKey(statementID string, args ...any) string {
	var b strings.Builder
	b.WriteString(statementID)

	for _, arg := range args {
		b.WriteString(KeySeparator)
		s.writeValue(&b, reflect.ValueOf(arg))
	}

	return b.String()
}

func (s *defaultKeySerializer) writeValue(b *strings.Builder, rv reflect.Value) {
	if !rv.IsValid() {
		b.WriteString("nil")
		return
	}

	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			b.WriteString("nil")
			return
		}
		s.writeValue(b, rv.Elem())
		return
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			fmt.Fprintf(b, "(%s)(nil)", typeName(rt))
			return
		}
	}

	// Text marshalers (time.Time, uuid.UUID, RowBounds) render as their text form.
	// Values read through unexported fields cannot be interfaced and are walked instead.
	if rv.CanInterface() {
		if m, ok := rv.Interface().(encoding.TextMarshaler); ok {
			if text, err := m.MarshalText(); err == nil {
				fmt.Fprintf(b, "%s(%s)", typeName(rt), strconv.Quote(string(text)))
				return
			}
		}
	}

	name := typeName(rt)

	switch rt.Kind() {
	case reflect.Pointer:
		b.WriteByte('&')
		s.writeValue(b, rv.Elem())
	case reflect.Slice, reflect.Array:
		b.WriteString(name)
		s.writeElems(b, rv)
	case reflect.Map:
		s.writeMap(b, rv, name)
	case reflect.Struct:
		s.writeStruct(b, rv, rt, name)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		// Pointer identity is only stable within a single process.
		fmt.Fprintf(b, "%s(%#x)", name, rv.Pointer())
	case reflect.String:
		fmt.Fprintf(b, "%s(%s)", name, strconv.Quote(rv.String()))
	case reflect.Bool:
		fmt.Fprintf(b, "%s(%t)", name, rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fmt.Fprintf(b, "%s(%s)", name, strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		fmt.Fprintf(b, "%s(%s)", name, strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		fmt.Fprintf(b, "%s(%s)", name, strconv.FormatFloat(rv.Float(), 'g', -1, rt.Bits()))
	case reflect.Complex64, reflect.Complex128:
		fmt.Fprintf(b, "%s(%s)", name, strconv.FormatComplex(rv.Complex(), 'g', -1, rt.Bits()))
	default:
		b.WriteString(s.jsonFallback(rv))
	}
}

// writeElems renders slice and array elements in order.
func (s *defaultKeySerializer) writeElems(b *strings.Builder, rv reflect.Value) {
	b.WriteByte('{')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		s.writeValue(b, rv.Index(i))
	}
	b.WriteByte('}')
}

// writeMap renders map entries sorted by their rendered key for determinism.
func (s *defaultKeySerializer) writeMap(b *strings.Builder, rv reflect.Value, name string) {
	type pair struct{ key, value string }

	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		var kb, vb strings.Builder
		s.writeValue(&kb, iter.Key())
		s.writeValue(&vb, iter.Value())
		pairs = append(pairs, pair{key: kb.String(), value: vb.String()})
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	b.WriteString(name)
	b.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.key)
		b.WriteByte(':')
		b.WriteString(p.value)
	}
	b.WriteByte('}')
}

// writeStruct renders every field, exported or not, as Name:value pairs.
func (s *defaultKeySerializer) writeStruct(b *strings.Builder, rv reflect.Value, rt reflect.Type, name string) {
	b.WriteString(name)
	b.WriteByte('{')

	for i := 0; i < rt.NumField(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(rt.Field(i).Name)
		b.WriteByte(':')
		s.writeValue(b, rv.Field(i))
	}

	b.WriteByte('}')
}

// typeName renders rt with the import path of every named type it mentions,
// so same-named types from different packages stay distinct.
func typeName(rt reflect.Type) string {
	if rt.Name() != "" {
		if pkg := rt.PkgPath(); pkg != "" {
			return pkg + "." + rt.Name()
		}
		return rt.Name()
	}

	switch rt.Kind() {
	case reflect.Pointer:
		return "*" + typeName(rt.Elem())
	case reflect.Slice:
		return "[]" + typeName(rt.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(rt.Len()) + "]" + typeName(rt.Elem())
	case reflect.Map:
		return "map[" + typeName(rt.Key()) + "]" + typeName(rt.Elem())
	case reflect.Chan:
		switch rt.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + typeName(rt.Elem())
		case reflect.SendDir:
			return "chan<- " + typeName(rt.Elem())
		}
		return "chan " + typeName(rt.Elem())
	}
	return rt.String()
}

// jsonFallback provides JSON serialization as a last resort
func (s *defaultKeySerializer) jsonFallback(rv reflect.Value) string {
	if !rv.CanInterface() {
		return fmt.Sprintf("fallback:%s", rv.Type())
	}

	data, err := json.Marshal(rv.Interface())
	if err != nil {
		return fmt.Sprintf("fallback:%s", rv.Type())
	}
	return fmt.Sprintf("json:%s", data)
}
