package cache

import (
	"strings"
	"testing"
	"time"
)

// pkgPath qualifies the types declared in this package.
const pkgPath = "github.com/goliatone/go-session-cache/cache"

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

type serializerCase struct {
	name   string
	method string
	args   []any
	want   string
}

func runSerializerCases(t *testing.T, tests []serializerCase) {
	t.Helper()

	serializer := NewDefaultKeySerializer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.method, tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_BasicTypes(t *testing.T) {
	runSerializerCases(t, []serializerCase{
		{
			name:   "no args",
			method: "user.selectAll",
			args:   []any{},
			want:   "user.selectAll",
		},
		{
			name:   "single int",
			method: "user.selectUserById",
			args:   []any{42},
			want:   joinWithSeparator("user.selectUserById", "int(42)"),
		},
		{
			name:   "multiple basic types",
			method: "user.search",
			args:   []any{1, "hello", true, 3.14},
			want:   joinWithSeparator("user.search", "int(1)", `string("hello")`, "bool(true)", "float64(3.14)"),
		},
		{
			name:   "string with separator chars",
			method: "user.search",
			args:   []any{"hello::world"},
			want:   joinWithSeparator("user.search", `string("hello::world")`),
		},
		{
			name:   "sized integers keep their type",
			method: "user.search",
			args:   []any{int64(7), uint8(3)},
			want:   joinWithSeparator("user.search", "int64(7)", "uint8(3)"),
		},
	})
}

func TestDefaultKeySerializer_TypeSensitive(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	asInt := serializer.SerializeKey("user.selectUserById", 1)
	asString := serializer.SerializeKey("user.selectUserById", "1")

	if asInt == asString {
		t.Errorf("int and string arguments must not share a key: %v", asInt)
	}
}

func TestDefaultKeySerializer_OrderSensitive(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	ab := serializer.SerializeKey("user.search", "a", "b")
	ba := serializer.SerializeKey("user.search", "b", "a")

	if ab == ba {
		t.Errorf("argument order must change the key: %v", ab)
	}
}

func TestDefaultKeySerializer_NilValues(t *testing.T) {
	runSerializerCases(t, []serializerCase{
		{
			name:   "nil interface",
			method: "user.selectByRef",
			args:   []any{nil},
			want:   joinWithSeparator("user.selectByRef", "nil"),
		},
		{
			name:   "nil pointer",
			method: "user.selectByRef",
			args:   []any{(*int)(nil)},
			want:   joinWithSeparator("user.selectByRef", "(*int)(nil)"),
		},
		{
			name:   "nil slice",
			method: "user.selectByList",
			args:   []any{([]int)(nil)},
			want:   joinWithSeparator("user.selectByList", "([]int)(nil)"),
		},
		{
			name:   "nil map",
			method: "user.selectByAttrs",
			args:   []any{(map[string]int)(nil)},
			want:   joinWithSeparator("user.selectByAttrs", "(map[string]int)(nil)"),
		},
	})
}

func TestDefaultKeySerializer_Slices(t *testing.T) {
	runSerializerCases(t, []serializerCase{
		{
			name:   "empty slice",
			method: "user.selectByIds",
			args:   []any{[]int{}},
			want:   joinWithSeparator("user.selectByIds", "[]int{}"),
		},
		{
			name:   "int slice",
			method: "user.selectByIds",
			args:   []any{[]int{1, 2, 3}},
			want:   joinWithSeparator("user.selectByIds", "[]int{int(1),int(2),int(3)}"),
		},
		{
			name:   "string slice",
			method: "user.selectByNames",
			args:   []any{[]string{"alice", "bob"}},
			want:   joinWithSeparator("user.selectByNames", `[]string{string("alice"),string("bob")}`),
		},
		{
			name:   "nested slice",
			method: "user.selectByGrid",
			args:   []any{[][]int{{1, 2}, {3, 4}}},
			want:   joinWithSeparator("user.selectByGrid", "[][]int{[]int{int(1),int(2)},[]int{int(3),int(4)}}"),
		},
	})
}

func TestDefaultKeySerializer_Arrays(t *testing.T) {
	runSerializerCases(t, []serializerCase{
		{
			name:   "int array",
			method: "user.selectByIdPair",
			args:   []any{[3]int{1, 2, 3}},
			want:   joinWithSeparator("user.selectByIdPair", "[3]int{int(1),int(2),int(3)}"),
		},
		{
			name:   "string array",
			method: "user.selectByNamePair",
			args:   []any{[2]string{"hello", "world"}},
			want:   joinWithSeparator("user.selectByNamePair", `[2]string{string("hello"),string("world")}`),
		},
	})
}

func TestDefaultKeySerializer_Maps(t *testing.T) {
	runSerializerCases(t, []serializerCase{
		{
			name:   "empty map",
			method: "user.selectByFilter",
			args:   []any{map[string]int{}},
			want:   joinWithSeparator("user.selectByFilter", "map[string]int{}"),
		},
		{
			name:   "string to int map",
			method: "user.selectByFilter",
			args:   []any{map[string]int{"count": 10, "age": 25}},
			want:   joinWithSeparator("user.selectByFilter", `map[string]int{string("age"):int(25),string("count"):int(10)}`),
		},
	})
}

func TestDefaultKeySerializer_Structs(t *testing.T) {
	type Member struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	type Credentials struct {
		ID     int    `json:"id"`
		Name   string `json:"name"`
		secret string
	}

	runSerializerCases(t, []serializerCase{
		{
			name:   "simple struct",
			method: "user.selectByExample",
			args:   []any{Member{ID: 1, Name: "alice"}},
			want:   joinWithSeparator("user.selectByExample", pkgPath+`.Member{ID:int(1),Name:string("alice")}`),
		},
		{
			name:   "struct with private field",
			method: "user.selectByAccount",
			args:   []any{Credentials{ID: 2, Name: "bob", secret: "hunter2"}},
			want:   joinWithSeparator("user.selectByAccount", pkgPath+`.Credentials{ID:int(2),Name:string("bob"),secret:string("hunter2")}`),
		},
		{
			name:   "slice of structs",
			method: "user.selectByExamples",
			args:   []any{[]Member{{ID: 1, Name: "alice"}}},
			want:   joinWithSeparator("user.selectByExamples", "[]"+pkgPath+`.Member{`+pkgPath+`.Member{ID:int(1),Name:string("alice")}}`),
		},
	})
}

func TestDefaultKeySerializer_UnexportedFieldsDistinguishKeys(t *testing.T) {
	type userRef struct{ id int }

	serializer := NewDefaultKeySerializer()

	first := serializer.SerializeKey("user.selectUserById", NoRowBounds, userRef{id: 1})
	second := serializer.SerializeKey("user.selectUserById", NoRowBounds, userRef{id: 2})

	if first == second {
		t.Errorf("values differing only in unexported fields must not share a key: %v", first)
	}
}

type pageWindow struct{ Offset, Limit int }

func TestDefaultKeySerializer_QualifiesTypeNames(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	local := serializer.SerializeKey("user.selectUserById", time.Duration(5))
	if want := joinWithSeparator("user.selectUserById", "time.Duration(5)"); local != want {
		t.Errorf("SerializeKey() = %v, want %v", local, want)
	}

	// Same name and kind as time.Duration.
	type Duration int64
	shadow := serializer.SerializeKey("user.selectUserById", Duration(5))
	if shadow == local {
		t.Errorf("same-named types from different packages must not share a key: %v", shadow)
	}

	got := serializer.SerializeKey("user.selectPage", map[string]pageWindow{"a": {Offset: 1}})
	want := joinWithSeparator("user.selectPage", "map[string]"+pkgPath+`.pageWindow{string("a"):`+pkgPath+`.pageWindow{Offset:int(1),Limit:int(0)}}`)
	if got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}
}

func TestDefaultKeySerializer_TextMarshalers(t *testing.T) {
	runSerializerCases(t, []serializerCase{
		{
			name:   "time",
			method: "user.selectSince",
			args:   []any{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
			want:   joinWithSeparator("user.selectSince", `time.Time("2024-01-02T03:04:05Z")`),
		},
		{
			name:   "row bounds",
			method: "user.selectPage",
			args:   []any{RowBounds{Offset: 10, Limit: 5}},
			want:   joinWithSeparator("user.selectPage", pkgPath+`.RowBounds("10:5")`),
		},
	})
}

func TestDefaultKeySerializer_Functions(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	testFunc := func() {}

	// Function pointers are rendered with their address, stable within the process
	key1 := serializer.SerializeKey("user.selectWithCallback", testFunc)
	key2 := serializer.SerializeKey("user.selectWithCallback", testFunc)

	if key1 != key2 {
		t.Errorf("Function serialization should be stable: %v != %v", key1, key2)
	}

	funcPrefix := joinWithSeparator("user.selectWithCallback", "func()(0x")
	if !strings.HasPrefix(key1, funcPrefix) {
		t.Errorf("Function serialization should use the func type and pointer, got: %v", key1)
	}
}

func TestDefaultKeySerializer_Pointers(t *testing.T) {
	value := 42

	runSerializerCases(t, []serializerCase{
		{
			name:   "non-nil pointer",
			method: "user.selectByRef",
			args:   []any{&value},
			want:   joinWithSeparator("user.selectByRef", "&int(42)"),
		},
		{
			name:   "nil pointer",
			method: "user.selectByRef",
			args:   []any{(*int)(nil)},
			want:   joinWithSeparator("user.selectByRef", "(*int)(nil)"),
		},
	})
}

func TestDefaultKeySerializer_Stability(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	// Test that the same arguments produce the same key across multiple calls
	args := []any{1, "hello", []int{1, 2, 3}, map[string]int{"a": 1, "b": 2}}

	key1 := serializer.SerializeKey("user.selectStable", args...)
	key2 := serializer.SerializeKey("user.selectStable", args...)

	if key1 != key2 {
		t.Errorf("Key serialization should be stable across runs: %v != %v", key1, key2)
	}
}

func TestDefaultKeySerializer_Channels(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	ch := make(chan int)
	key := serializer.SerializeKey("user.selectWithChannel", ch)

	channelPrefix := joinWithSeparator("user.selectWithChannel", "chan int(0x")
	if !strings.HasPrefix(key, channelPrefix) {
		t.Errorf("Channel should be serialized with its type and pointer, got: %v", key)
	}
}

func BenchmarkDefaultKeySerializer(b *testing.B) {
	serializer := NewDefaultKeySerializer()
	args := []any{1, "benchmark", []int{1, 2, 3}, map[string]int{"test": 1}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		serializer.SerializeKey("user.selectBench", args...)
	}
}
