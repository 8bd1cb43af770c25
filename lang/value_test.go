package lang

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

type stringer struct{}

func (stringer) String() string { return "stringer" }

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{0, false},
		{int8(0), false},
		{uint(3), true},
		{0.0, false},
		{-0.5, true},
		{"", false},
		{"0", false},
		{"0.0", true},
		{"false", true},
		{[]any{}, false},
		{[]int{0}, true},
		{map[string]any{}, false},
		{NewDict(), false},
		{DictOf(map[string]int{"a": 1}), true},
		{(*int)(nil), false},
		{(*time.Time)(nil), false},
		{struct{}{}, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%T(%v)", tt.v, tt.v), func(t *testing.T) {
			if got := Truthy(tt.v); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		v    any
		want string
	}{
		{nil, ""},
		{"s", "s"},
		{true, "true"},
		{42, "42"},
		{int64(-7), "-7"},
		{uint16(7), "7"},
		{1.5, "1.5"},
		{2.0, "2"},
		{float32(0.25), "0.25"},
		{1e21, "1000000000000000000000"},
		{[]any{int64(1), "a", nil}, `[1,"a",null]`},
		{map[string]any{"b": 1, "a": 2}, `{"a":2,"b":1}`},
		{stringer{}, "stringer"},
		{errors.New("boom"), "boom"},
		{(*time.Time)(nil), ""},
		{(*os.PathError)(nil), ""},
		{&Loop{Index0: 1, Index1: 2, Length: 3}, `{"index0":1,"index1":2,"is_first":false,"is_last":false,"length":3,"revindex":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := Stringify(tt.v)
			if err != nil {
				t.Fatalf("stringify error: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	if _, err := Stringify(make(chan int)); !errors.Is(err, ErrType) {
		t.Errorf("expected type error for a channel, got %v", err)
	}
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		v    any
		want string
	}{
		{nil, "null"},
		{false, "boolean"},
		{3, "integer"},
		{uint8(3), "integer"},
		{3.5, "float"},
		{"", "string"},
		{[]any{}, "array"},
		{[2]int{}, "array"},
		{NewDict(), "dict"},
		{map[string]int{}, "dict"},
		{&Loop{}, "object"},
		{time.Time{}, "object"},
		{&struct{}{}, "object"},
		{(*time.Time)(nil), "null"},
		{(*account)(nil), "null"},
		{TypeName, "callable"},
		{make(chan int), "chan int"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := TypeName(tt.v); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestLooseEqual(t *testing.T) {
	tests := []struct {
		a, b any
		want bool
	}{
		{nil, nil, true},
		{nil, 0, true},
		{nil, "x", false},
		{true, "yes", true},
		{false, 0, true},
		{1, int64(1), true},
		{1, 1.0, true},
		{"1", 1, true},
		{1, "1.0", true},
		{"abc", "abc", true},
		{"abc", 1, false},
		{[]any{1, "2"}, []int{1, 2}, true},
		{[]any{1}, []any{1, 2}, false},
		{DictOf(map[string]int{"a": 1}), map[string]any{"a": 1.0}, true},
		{DictOf(map[string]int{"a": 1}), map[string]any{"b": 1}, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v==%v", tt.a, tt.b), func(t *testing.T) {
			if got := LooseEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}

			if got := LooseEqual(tt.b, tt.a); got != tt.want {
				t.Errorf("expected %v for swapped operands, got %v", tt.want, got)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b any
		want int
	}{
		{1, 2, -1},
		{2.5, 2, 1},
		{"10", 9, 1},
		{"a", "b", -1},
		{"10", "9", 1},
		{true, 0, 1},
		{3, 3.0, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v<>%v", tt.a, tt.b), func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			if err != nil {
				t.Fatalf("compare error: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}

	for _, pair := range [][2]any{{1, "a"}, {nil, 1}, {[]any{}, 1}} {
		if _, err := Compare(pair[0], pair[1]); !errors.Is(err, ErrType) {
			t.Errorf("%v: expected type error, got %v", pair, err)
		}
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		haystack, needle any
		want             bool
	}{
		{"abc", "b", true},
		{"abc", "", true},
		{"abc", "d", false},
		{"a1", 1, true},
		{[]any{"a", "b"}, "a", true},
		{[]string{"a"}, "b", false},
		{[]int{1, 2}, "2", true},
		{DictOf(map[string]int{"k": 1}), "k", true},
		{map[string]int{"k": 1}, "v", false},
		{map[string]int{"k": 1}, []any{}, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v in %v", tt.needle, tt.haystack), func(t *testing.T) {
			got, err := Contains(tt.haystack, tt.needle)
			if err != nil {
				t.Fatalf("contains error: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if _, err := Contains("abc", []any{}); !errors.Is(err, ErrType) {
		t.Errorf("expected type error searching a string for an array, got %v", err)
	}

	if _, err := Contains(5, 1); !errors.Is(err, ErrType) {
		t.Errorf("expected type error for a number, got %v", err)
	}
}

func TestDict(t *testing.T) {
	d := NewDict()
	d.Set("b", 1)
	d.Set(int8(2), "two")
	d.Set(true, "one")
	d.Set(nil, "empty")
	d.Set(2.0, "TWO")
	d.Set("b", 3)

	if d.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", d.Len())
	}

	want := []any{"b", int64(2), int64(1), ""}
	if got := d.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected keys %v, got %v", want, got)
	}

	if got := d.Values(); !reflect.DeepEqual(got, []any{3, "TWO", "one", "empty"}) {
		t.Errorf("unexpected values %v", got)
	}

	for _, key := range []any{2, int64(2), uint(2), 2.0} {
		if v, ok := d.Get(key); !ok || v != "TWO" {
			t.Errorf("Get(%T %v): expected TWO, got %v", key, key, v)
		}
	}

	if _, ok := d.Get("2"); ok {
		t.Error("expected string key to differ from integer key")
	}

	if d.nextIndex() != 3 {
		t.Errorf("expected next index 3, got %d", d.nextIndex())
	}

	var nilDict *Dict

	if nilDict.Len() != 0 || nilDict.Keys() != nil {
		t.Error("expected nil dict to be empty")
	}

	if _, ok := nilDict.Get("a"); ok {
		t.Error("expected nil dict lookup to fail")
	}

	for range nilDict.All() {
		t.Error("expected nil dict to yield nothing")
	}
}

func TestDict_Marshal(t *testing.T) {
	d := NewDict()
	d.Set("z", 1)
	d.Set("a", []any{true, nil})
	d.Set(3, "x")

	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	if want := `{"z":1,"a":[true,null],"3":"x"}`; string(b) != want {
		t.Errorf("expected %s, got %s", want, b)
	}

	out, err := filterYAML(d)
	if err != nil {
		t.Fatalf("yaml error: %v", err)
	}

	text, _ := out.(string)

	z, three := strings.Index(text, "z: 1"), strings.Index(text, ": x")
	if z < 0 || three < z {
		t.Errorf("expected keys in insertion order, got %q", text)
	}
}

func TestToNative(t *testing.T) {
	d := NewDict()
	d.Set("list", []any{DictOf(map[string]int{"n": 1}), int32(2)})
	d.Set(1, "one")

	got := ToNative(d)
	want := map[string]any{
		"list": []any{map[string]any{"n": int64(1)}, int64(2)},
		"1":    "one",
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %#v, got %#v", want, got)
	}

	loop := ToNative(&Loop{Length: 2, IsLast: true})
	if m, ok := loop.(map[string]any); !ok || m["length"] != int64(2) || m["is_last"] != true {
		t.Errorf("unexpected loop conversion %#v", loop)
	}
}

func TestLookupIndex(t *testing.T) {
	tests := []struct {
		base, index any
		want        any
	}{
		{[]any{"a", "b"}, 1, "b"},
		{[]string{"a", "b"}, 1.0, "b"},
		{[2]int{4, 5}, "1", 5},
		{map[string]int{"k": 3}, "k", 3},
		{map[int]string{7: "seven"}, 7, "seven"},
		{map[int]string{7: "seven"}, 7.0, "seven"},
		{map[any]string{int64(1): "one"}, 1, "one"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v[%v]", tt.base, tt.index), func(t *testing.T) {
			got, err := lookupIndex(tt.base, tt.index)
			if err != nil {
				t.Fatalf("index error: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	errs := []struct {
		base, index any
		want        error
	}{
		{[]any{1}, -1, ErrKey},
		{[]any{1}, 0.5, ErrKey},
		{map[int]string{}, "x", ErrKey},
		{map[string]int{}, "x", ErrKey},
		{"abc", 0, ErrType},
		{[]any{1}, map[string]any{}, ErrType},
	}

	for _, tt := range errs {
		if _, err := lookupIndex(tt.base, tt.index); !errors.Is(err, tt.want) {
			t.Errorf("%v[%v]: expected %v, got %v", tt.base, tt.index, tt.want, err)
		}
	}
}
