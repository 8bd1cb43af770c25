package lang

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Object is implemented by host values that control their own member
// lookup. Values that do not implement Object are inspected by reflection:
// exported struct fields are properties and exported methods are methods.
type Object interface {
	Property(name string) (any, bool)
	Method(name string) (Method, bool)
}

// Method is a callable member of an object.
type Method func(args ...any) (any, error)

// memberTag is the struct tag naming a field for template access.
const memberTag = "stencil"

var errorType = reflect.TypeFor[error]()

// getProperty reads the named member of base. The first result reports
// whether the member exists; a base that is not object-like is a type
// error.
//
// Dictionaries and maps are object-like: their entries are their
// properties. A map whose key type cannot hold name has no such property.
func getProperty(base any, name string) (any, bool, error) {
	switch b := base.(type) {
	case Object:
		v, ok := b.Property(name)

		return v, ok, nil

	case *Dict:
		v, ok := b.Get(name)

		return v, ok, nil
	}

	rv, ok := objectValue(base)
	if !ok {
		return nil, false, notObject(base)
	}

	switch rv.Kind() {
	case reflect.Map:
		key, ok := mapKey(rv.Type().Key(), name)
		if !ok {
			return nil, false, nil
		}

		v := rv.MapIndex(key)
		if !v.IsValid() {
			return nil, false, nil
		}

		return v.Interface(), true, nil

	case reflect.Struct:
		f, ok := structField(rv, name)
		if !ok {
			return nil, false, nil
		}

		return f.Interface(), true, nil
	}

	return nil, false, notObject(base)
}

// getMethod returns the named method of base.
func getMethod(base any, name string) (Method, bool, error) {
	if o, ok := base.(Object); ok {
		m, ok := o.Method(name)

		return m, ok, nil
	}

	if _, ok := objectValue(base); !ok {
		return nil, false, notObject(base)
	}

	if _, isDict := base.(*Dict); isDict {
		return nil, false, nil
	}

	for _, candidate := range memberNames(name) {
		m := reflect.ValueOf(base).MethodByName(candidate)
		if m.IsValid() {
			return reflectMethod(candidate, m), true, nil
		}
	}

	return nil, false, nil
}

// objectValue dereferences base and reports whether it is a struct or map.
func objectValue(base any) (reflect.Value, bool) {
	if base == nil {
		return reflect.Value{}, false
	}

	if _, ok := base.(*Dict); ok {
		return reflect.ValueOf(base), true
	}

	rv := reflect.ValueOf(base)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, false
		}

		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct, reflect.Map:
		return rv, true
	}

	return reflect.Value{}, false
}

// structField finds an exported field by template name: a field tagged
// `stencil:"name"`, then a field named name or Name.
func structField(rv reflect.Value, name string) (reflect.Value, bool) {
	t := rv.Type()

	for i := range t.NumField() {
		f := t.Field(i)
		if f.IsExported() && f.Tag.Get(memberTag) == name {
			return rv.Field(i), true
		}
	}

	for _, candidate := range memberNames(name) {
		f, ok := t.FieldByName(candidate)
		if !ok || !f.IsExported() || f.Tag.Get(memberTag) == "-" {
			continue
		}

		if v, err := rv.FieldByIndexErr(f.Index); err == nil {
			return v, true
		}
	}

	return reflect.Value{}, false
}

// memberNames returns the Go identifiers a template member name may refer
// to: the name itself and the name with its first letter upper-cased.
func memberNames(name string) []string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return []string{name}
	}

	return []string{name, string(unicode.ToUpper(r)) + name[size:]}
}

func reflectMethod(name string, m reflect.Value) Method {
	t := m.Type()

	return func(args ...any) (any, error) {
		fixed := t.NumIn()
		if t.IsVariadic() {
			fixed--
		}

		if len(args) < fixed || (!t.IsVariadic() && len(args) > fixed) {
			return nil, ErrType.Wrap(
				fmt.Errorf("method %s expects %d arguments, got %d",
					name, fixed, len(args)),
			)
		}

		in := make([]reflect.Value, len(args))

		for i, a := range args {
			var pt reflect.Type
			if i < fixed {
				pt = t.In(i)
			} else {
				pt = t.In(fixed).Elem()
			}

			v, err := convertArg(a, pt)
			if err != nil {
				return nil, ErrType.Wrap(
					fmt.Errorf("method %s argument %d: %w", name, i+1, err),
				)
			}

			in[i] = v
		}

		return callResults(m.Call(in))
	}
}

// convertArg converts a template value to a reflect.Value of type t.
func convertArg(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map,
			reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}

		return reflect.Value{}, fmt.Errorf("null is not a %s", t)
	}

	v := reflect.ValueOf(a)

	switch {
	case v.Type().AssignableTo(t):
		return v, nil
	case isNumericKind(t.Kind()):
		n, ok := number(a, false)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%s is not a number", TypeName(a))
		}

		return reflect.ValueOf(n).Convert(t), nil
	case t.Kind() == reflect.String:
		if s, ok := normalize(a).(string); ok {
			return reflect.ValueOf(s).Convert(t), nil
		}
	case v.Type().ConvertibleTo(t) && v.Kind() == t.Kind():
		return v.Convert(t), nil
	}

	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", TypeName(a), t)
}

// callResults maps the results of a reflected call to a value and error.
// A trailing error result is returned as the error.
func callResults(out []reflect.Value) (any, error) {
	if n := len(out); n > 0 && out[n-1].Type().Implements(errorType) {
		if !out[n-1].IsNil() {
			err, _ := out[n-1].Interface().(error)

			return nil, err
		}

		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}

	res := make([]any, len(out))
	for i, v := range out {
		res[i] = v.Interface()
	}

	return res, nil
}

func notObject(base any) error {
	return ErrType.Wrap(fmt.Errorf("%s is not an object", TypeName(base)))
}

// Loop is the metadata bound to the name "loop" inside a for body.
type Loop struct {
	Index0   int64
	Index1   int64
	Length   int64
	Revindex int64
	IsFirst  bool
	IsLast   bool
}

// Property implements [Object].
func (l *Loop) Property(name string) (any, bool) {
	switch strings.ToLower(name) {
	case "index0", "index":
		return l.Index0, true
	case "index1":
		return l.Index1, true
	case "length":
		return l.Length, true
	case "revindex":
		return l.Revindex, true
	case "is_first", "first":
		return l.IsFirst, true
	case "is_last", "last":
		return l.IsLast, true
	}

	return nil, false
}

// Method implements [Object]. Loop metadata has no methods.
func (l *Loop) Method(string) (Method, bool) { return nil, false }

// Map returns the metadata as a plain map.
func (l *Loop) Map() map[string]any {
	return map[string]any{
		"index0":   l.Index0,
		"index1":   l.Index1,
		"length":   l.Length,
		"revindex": l.Revindex,
		"is_first": l.IsFirst,
		"is_last":  l.IsLast,
	}
}

// MarshalJSON encodes the metadata as a JSON object.
func (l *Loop) MarshalJSON() ([]byte, error) {
	return marshalJSON(l.Map())
}

// Members returns the sorted names a template can use to access members of
// v: dictionary and map keys, struct fields and exported methods, each
// method name with its first letter lower-cased. It returns nil for values
// that are not object-like.
func Members(v any) []string {
	names := make(map[string]struct{})

	switch b := v.(type) {
	case *Dict:
		for k := range b.All() {
			if s, ok := k.(string); ok {
				names[s] = struct{}{}
			}
		}

		return sortedKeys(names)

	case *Loop:
		return sortedKeys(b.Map())
	}

	rv, ok := objectValue(v)
	if !ok {
		return nil
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}

		for _, k := range rv.MapKeys() {
			names[k.String()] = struct{}{}
		}

	case reflect.Struct:
		t := rv.Type()

		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() || f.Anonymous {
				continue
			}

			switch tag := f.Tag.Get(memberTag); tag {
			case "-":
			case "":
				names[lowerFirst(f.Name)] = struct{}{}
			default:
				names[tag] = struct{}{}
			}
		}
	}

	t := reflect.TypeOf(v)

	for i := range t.NumMethod() {
		if m := t.Method(i); m.IsExported() && m.Name != "String" {
			names[lowerFirst(m.Name)] = struct{}{}
		}
	}

	return sortedKeys(names)
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}

	return string(unicode.ToLower(r)) + s[size:]
}
