package lang

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Dict is an insertion-ordered dictionary with scalar keys.
//
// Keys are normalized on entry: integers of any width and integral floats
// become int64, booleans become 0 or 1, and nil becomes "".
type Dict struct {
	index map[any]int
	keys  []any
	vals  []any
}

// NewDict returns an empty Dict.
func NewDict() *Dict {
	return &Dict{index: make(map[any]int)}
}

// DictOf returns a Dict holding the entries of m in sorted key order.
func DictOf[V any](m map[string]V) *Dict {
	d := NewDict()
	for _, k := range sortedKeys(m) {
		d.Set(k, m[k])
	}

	return d
}

// Set stores v under key, keeping the position of an existing key.
func (d *Dict) Set(key, v any) {
	key = dictKey(key)

	if i, ok := d.index[key]; ok {
		d.vals[i] = v

		return
	}

	d.index[key] = len(d.keys)
	d.keys = append(d.keys, key)
	d.vals = append(d.vals, v)
}

// Get returns the value stored under key.
func (d *Dict) Get(key any) (any, bool) {
	if d == nil {
		return nil, false
	}

	i, ok := d.index[dictKey(key)]
	if !ok {
		return nil, false
	}

	return d.vals[i], true
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}

	return len(d.keys)
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []any {
	if d == nil {
		return nil
	}

	return slices.Clone(d.keys)
}

// Values returns the values in insertion order.
func (d *Dict) Values() []any {
	if d == nil {
		return nil
	}

	return slices.Clone(d.vals)
}

// All iterates over the entries in insertion order.
func (d *Dict) All() iter.Seq2[any, any] {
	return func(yield func(any, any) bool) {
		if d == nil {
			return
		}

		for i, k := range d.keys {
			if !yield(k, d.vals[i]) {
				return
			}
		}
	}
}

// nextIndex returns one more than the largest integer key, or 0.
func (d *Dict) nextIndex() int64 {
	next := int64(0)

	for _, k := range d.keys {
		if i, ok := k.(int64); ok && i >= next {
			next = i + 1
		}
	}

	return next
}

// MarshalJSON encodes the dictionary as a JSON object in insertion order.
func (d *Dict) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(keyString(k))
		if err != nil {
			return nil, err
		}

		val, err := json.Marshal(d.vals[i])
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// MarshalYAML encodes the dictionary as a YAML mapping in insertion order.
func (d *Dict) MarshalYAML() (any, error) {
	ms := make(yaml.MapSlice, 0, d.Len())
	for k, v := range d.All() {
		ms = append(ms, yaml.MapItem{Key: keyString(k), Value: v})
	}

	return ms, nil
}

func dictKey(k any) any {
	switch v := normalize(k).(type) {
	case nil:
		return ""
	case bool:
		if v {
			return int64(1)
		}

		return int64(0)
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int64(v)
		}

		return v
	default:
		return v
	}
}

func keyString(k any) string {
	s, _ := Stringify(k)

	return s
}

// normalize converts Go numeric kinds to int64 or float64 and nil pointers to
// nil, and leaves every other value unchanged.
func normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, int64, float64, string:
		return v
	case int:
		return int64(x)
	case float32:
		return float64(x)
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		return int64(rv.Uint()) //nolint:gosec
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
	}

	return v
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)

	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// isScalar reports whether v is nil, a bool, a number, or a string.
func isScalar(v any) bool {
	switch normalize(v).(type) {
	case nil, bool, int64, float64, string:
		return true
	}

	return false
}

// Truthy reports the boolean interpretation of v.
//
// nil, false, zero numbers, the strings "" and "0", and empty collections
// are false. Everything else is true.
func Truthy(v any) bool {
	switch x := normalize(v).(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != "" && x != "0"
	case *Dict:
		return x.Len() > 0
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}

	return true
}

// Stringify returns the output form of v.
//
// nil renders as the empty string, booleans as true or false, numbers in
// their shortest form, and arrays, dictionaries and structs as JSON.
func Stringify(v any) (string, error) {
	if isNilPointer(v) {
		return "", nil
	}

	switch x := v.(type) {
	case fmt.Stringer:
		return x.String(), nil
	case error:
		return x.Error(), nil
	}

	switch x := normalize(v).(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return formatFloat(x), nil
	}

	b, err := marshalJSON(v)
	if err != nil {
		return "", ErrType.Wrap(
			fmt.Errorf("cannot convert %s to string: %w", TypeName(v), err),
		)
	}

	return string(b), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// TypeName returns the template-level type name of v, as reported by the
// typeof operator.
func TypeName(v any) string {
	switch normalize(v).(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int64:
		return "integer"
	case float64:
		return "float"
	case string:
		return "string"
	case *Dict:
		return "dict"
	case Object:
		return "object"
	}

	switch reflect.Indirect(reflect.ValueOf(v)).Kind() {
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map:
		return "dict"
	case reflect.Struct:
		return "object"
	case reflect.Func:
		return "callable"
	}

	return reflect.TypeOf(v).String()
}

// number converts v to an int64 or float64. Booleans convert to 0 or 1.
// When loose is set, nil converts to 0 and numeric strings are parsed.
func number(v any, loose bool) (any, bool) {
	switch x := normalize(v).(type) {
	case int64, float64:
		return x, true
	case bool:
		if x {
			return int64(1), true
		}

		return int64(0), true
	case nil:
		if loose {
			return int64(0), true
		}
	case string:
		if loose {
			return parseNumeric(x)
		}
	}

	return nil, false
}

// parseNumeric parses s as an integer or float, ignoring surrounding space.
func parseNumeric(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}

	return nil, false
}

func toFloat(n any) float64 {
	switch x := n.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	}

	return 0
}

// toInt converts an index-like value to int, reporting whether it holds an
// integral number.
func toInt(v any) (int, bool) {
	n, ok := number(v, true)
	if !ok {
		return 0, false
	}

	switch x := n.(type) {
	case int64:
		return int(x), true
	case float64:
		if x == math.Trunc(x) {
			return int(x), true
		}
	}

	return 0, false
}

// LooseEqual reports whether a and b are equal after type coercion.
func LooseEqual(a, b any) bool {
	a, b = normalize(a), normalize(b)

	switch {
	case a == nil || b == nil:
		if a == nil && b == nil {
			return true
		}

		return !Truthy(a) && !Truthy(b)

	case isBool(a) || isBool(b):
		return Truthy(a) == Truthy(b)
	}

	if na, ok := number(a, false); ok {
		if nb, ok := number(b, true); ok {
			return compareNumbers(na, nb) == 0
		}
	}

	if nb, ok := number(b, false); ok {
		if na, ok := number(a, true); ok {
			return compareNumbers(na, nb) == 0
		}
	}

	sa, aStr := a.(string)
	sb, bStr := b.(string)

	switch {
	case aStr && bStr:
		return sa == sb
	case aStr || bStr:
		return false
	}

	if la, ok := list(a); ok {
		lb, ok := list(b)
		if !ok || len(la) != len(lb) {
			return false
		}

		for i := range la {
			if !LooseEqual(la[i], lb[i]) {
				return false
			}
		}

		return true
	}

	if da, ok := dict(a); ok {
		db, ok := dict(b)
		if !ok || da.Len() != db.Len() {
			return false
		}

		for k, va := range da.All() {
			vb, ok := db.Get(k)
			if !ok || !LooseEqual(va, vb) {
				return false
			}
		}

		return true
	}

	return reflect.DeepEqual(a, b)
}

func isBool(v any) bool {
	_, ok := v.(bool)

	return ok
}

func compareNumbers(a, b any) int {
	ai, aInt := a.(int64)
	bi, bInt := b.(int64)

	if aInt && bInt {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}

		return 0
	}

	af, bf := toFloat(a), toFloat(b)

	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	}

	return 0
}

// Compare orders a and b numerically when both are numeric (numeric strings
// included) and lexically when both are strings.
func Compare(a, b any) (int, error) {
	a, b = normalize(a), normalize(b)

	sa, aStr := a.(string)
	sb, bStr := b.(string)

	na, aNum := number(a, true)
	nb, bNum := number(b, true)

	switch {
	case aNum && bNum && a != nil && b != nil:
		return compareNumbers(na, nb), nil
	case aStr && bStr:
		return strings.Compare(sa, sb), nil
	}

	return 0, ErrType.Wrap(
		fmt.Errorf("cannot compare %s with %s", TypeName(a), TypeName(b)),
	)
}

// Contains implements the in operator: substring search when haystack is a
// string, element search in arrays, and key search in dictionaries.
func Contains(haystack, needle any) (bool, error) {
	if s, ok := normalize(haystack).(string); ok {
		if !isScalar(needle) {
			return false, ErrType.Wrap(
				fmt.Errorf("cannot search string for %s", TypeName(needle)),
			)
		}

		n, err := Stringify(needle)
		if err != nil {
			return false, err
		}

		return strings.Contains(s, n), nil
	}

	if l, ok := list(haystack); ok {
		return slices.ContainsFunc(l, func(v any) bool {
			return LooseEqual(v, needle)
		}), nil
	}

	if d, ok := dict(haystack); ok {
		if !isScalar(needle) {
			return false, nil
		}

		_, found := d.Get(needle)

		return found, nil
	}

	return false, ErrType.Wrap(
		fmt.Errorf("%s does not support membership tests", TypeName(haystack)),
	)
}

// list returns the elements of an array-like value.
func list(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case nil, string, *Dict:
		return nil, false
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}

		return out, true
	}

	return nil, false
}

// dict returns the entries of a dictionary-like value. Go maps are copied
// in sorted key order.
func dict(v any) (*Dict, bool) {
	switch x := v.(type) {
	case *Dict:
		return x, x != nil
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, false
	}

	type entry struct {
		key any
		val any
	}

	entries := make([]entry, 0, rv.Len())

	for it := rv.MapRange(); it.Next(); {
		entries = append(entries, entry{it.Key().Interface(), it.Value().Interface()})
	}

	slices.SortFunc(entries, func(a, b entry) int {
		if c, err := Compare(a.key, b.key); err == nil {
			return c
		}

		return strings.Compare(fmt.Sprint(a.key), fmt.Sprint(b.key))
	})

	d := NewDict()
	for _, e := range entries {
		d.Set(e.key, e.val)
	}

	return d, true
}

// iterate returns a key/value sequence over an iterable value and its
// length. Arrays yield their integer indices as keys.
func iterate(v any) (iter.Seq2[any, any], int, bool) {
	if l, ok := list(v); ok {
		return func(yield func(any, any) bool) {
			for i, e := range l {
				if !yield(int64(i), e) {
					return
				}
			}
		}, len(l), true
	}

	if d, ok := dict(v); ok {
		return d.All(), d.Len(), true
	}

	return nil, 0, false
}

// lookupIndex implements base[index].
func lookupIndex(base, index any) (any, error) {
	if !isScalar(index) {
		return nil, ErrType.Wrap(
			fmt.Errorf("%s cannot be used as an index", TypeName(index)),
		)
	}

	if d, ok := base.(*Dict); ok {
		if v, found := d.Get(index); found {
			return v, nil
		}

		return nil, missingKey(index)
	}

	rv := reflect.ValueOf(base)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		i, ok := toInt(index)
		if !ok || i < 0 || i >= rv.Len() {
			return nil, missingKey(index)
		}

		return rv.Index(i).Interface(), nil

	case reflect.Map:
		key, ok := mapKey(rv.Type().Key(), index)
		if !ok {
			return nil, missingKey(index)
		}

		v := rv.MapIndex(key)
		if !v.IsValid() {
			return nil, missingKey(index)
		}

		return v.Interface(), nil
	}

	return nil, ErrType.Wrap(fmt.Errorf("%s is not indexable", TypeName(base)))
}

// mapKey converts a scalar index to a key of type t.
func mapKey(t reflect.Type, index any) (reflect.Value, bool) {
	if t.Kind() == reflect.String {
		s, err := Stringify(index)
		if err != nil {
			return reflect.Value{}, false
		}

		return reflect.ValueOf(s).Convert(t), true
	}

	n := normalize(index)
	if n == nil {
		return reflect.Value{}, false
	}

	v := reflect.ValueOf(n)

	switch {
	case t.Kind() == reflect.Interface && v.Type().Implements(t):
		return v, true
	case v.Type().ConvertibleTo(t) && isNumericKind(t.Kind()) == isNumericKind(v.Kind()):
		return v.Convert(t), true
	}

	return reflect.Value{}, false
}

func isNumericKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

func missingKey(index any) error {
	s, _ := Stringify(index)

	return ErrKey.Wrap(fmt.Errorf("key %q not found", s))
}

// ToNative converts template values to plain Go values: a [Dict] becomes
// map[string]any, an array becomes []any, and other values are normalized.
func ToNative(v any) any {
	switch x := v.(type) {
	case *Dict:
		m := make(map[string]any, x.Len())
		for k, e := range x.All() {
			m[keyString(k)] = ToNative(e)
		}

		return m

	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = ToNative(e)
		}

		return out

	case *Loop:
		return x.Map()
	}

	return normalize(v)
}

func marshalJSON(v any) ([]byte, error) { return json.Marshal(v) }
