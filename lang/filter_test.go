package lang

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestFilters(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"upper", `"abc"|upper`, "ABC"},
		{"lower", `"ABC"|lower`, "abc"},
		{"title", `"hello world"|title`, "Hello World"},
		{"capitalize", `"hELLO"|capitalize`, "Hello"},
		{"trim", `"  hi  "|trim`, "hi"},
		{"trim cutset", `"xxhixx"|trim("x")`, "hi"},
		{"length string", `"héllo"|length`, "5"},
		{"length array", `[1, 2, 3]|length`, "3"},
		{"length dict", `{"a": 1}|length`, "1"},
		{"default null", `null|default("d")`, "d"},
		{"default empty", `""|default("d")`, "d"},
		{"default zero", `0|default("d")`, "0"},
		{"split", `"a,b,c"|split(",")|join("-")`, "a-b-c"},
		{"split fields", `" a  b "|split|length`, "2"},
		{"replace", `"aaa"|replace("a", "b")`, "bbb"},
		{"replace count", `"aaa"|replace("a", "b", 2)`, "bba"},
		{"first", `[3, 1, 2]|first`, "3"},
		{"first string", `"héllo"|first`, "h"},
		{"first empty", `typeof ([]|first)`, "null"},
		{"last", `[3, 1, 2]|last`, "2"},
		{"reverse", `[3, 1, 2]|reverse|join`, "213"},
		{"reverse string", `"héllo"|reverse`, "olléh"},
		{"sort", `[3, 1, 2]|sort|join(",")`, "1,2,3"},
		{"sort strings", `["b", "c", "a"]|sort|join`, "abc"},
		{"keys", `{"b": 1, "a": 2}|keys|join(",")`, "b,a"},
		{"values", `{"b": 1, "a": 2}|values|join(",")`, "1,2"},
		{"abs", `(-3)|abs`, "3"},
		{"abs float", `(-3.5)|abs`, "3.5"},
		{"postfix binds tighter", `-3|abs`, "-3"},
		{"round", `2.5|round`, "3"},
		{"round negative", `(-2.5)|round`, "-3"},
		{"round places", `2.567|round(2)`, "2.57"},
		{"round integer", `7|round(2)`, "7"},
		{"escape", `"<a & b>"|escape`, "&lt;a &amp; b&gt;"},
		{"json", `{"a": [1, null]}|json`, `{"a":[1,null]}`},
		{"json indent", `[1]|json(2)`, "[\n  1\n]"},
		{"yaml", `{"a": 1}|yaml`, "a: 1\n"},
		{"markdown", `"# Hi"|markdown`, "<h1>Hi</h1>\n"},
		{"number", `1234567|number`, "1,234,567"},
		{"number locale", `1234567|number("de")`, "1.234.567"},
		{"date", `0|date`, "1970-01-01"},
		{"date layout", `0|date("Jan 2, 2006")`, "Jan 1, 1970"},
		{"date locale", `0|date("Monday, 2 January 2006", "de")`, "Donnerstag, 1 Januar 1970"},
		{"date string", `"2024-03-05T10:00:00Z"|date("02.01.2006")`, "05.03.2024"},
		{"call", `"hello"|call("upper")`, "HELLO"},
		{"call args", `"a,b"|call("split", ",")|length`, "2"},
	}

	e := newEngine(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderString(t, e, "{% print "+tt.expr+"; %}", nil); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFilters_Locale(t *testing.T) {
	e := newEngine(t)

	if got := renderString(t, e, `{% print 9.5|currency("USD"); %}`, nil); !strings.Contains(got, "9.50") {
		t.Errorf("expected an amount with two decimals, got %q", got)
	}

	if got := renderString(t, e, `{% print 0.25|percent; %}`, nil); !strings.Contains(got, "25") {
		t.Errorf("expected 25 percent, got %q", got)
	}
}

func TestFilters_PathPrefix(t *testing.T) {
	sep := string(os.PathListSeparator)
	vars := map[string]any{"p": "/usr/bin" + sep + "/bin"}

	got := renderString(t, newEngine(t), `{% print p|path_prefix("/opt/bin"); %}`, vars)

	if !strings.HasPrefix(got, "/opt/bin"+sep) || !strings.Contains(got, "/usr/bin") {
		t.Errorf("expected /opt/bin prepended, got %q", got)
	}
}

func TestFilters_Errors(t *testing.T) {
	tests := []string{
		`"a"|replace("a")`,
		`"a"|replace("a", "b", "c")`,
		`5|join`,
		`5|length`,
		`"abc"|round`,
		`1.5|round(-1)`,
		`"x"|abs`,
		`[1, "a"]|sort`,
		`[]|keys`,
		`"x"|title("not a locale!")`,
		`"x"|date`,
		`1|date("a", "b", "c")`,
		`1|currency("NOPE")`,
		`"x"|call`,
		`"x"|call("nope")`,
		`"x"|call(1)`,
		`[]|default`,
	}

	e := newEngine(t)

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := renderError(t, e, "{% print "+expr+"; %}", nil)
			if !errors.Is(err, ErrType) {
				t.Errorf("expected type error, got %v", err)
			}
		})
	}
}

func TestWithFilter(t *testing.T) {
	e := newEngine(t, WithFilter("wrap", func(v any, args ...any) (any, error) {
		s, err := Stringify(v)
		if err != nil {
			return nil, err
		}

		return "<" + s + ">", nil
	}))

	if got := renderString(t, e, `{% print "x"|wrap|upper; %}`, nil); got != "<X>" {
		t.Errorf("expected <X>, got %s", got)
	}

	if _, ok := NewRegistry().Filter("wrap"); ok {
		t.Error("expected the default registry unchanged")
	}
}

func TestFilters_YAMLNonStringKeys(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{`{% print ["a", "k": 1]|yaml; %}`, []string{": a", "k: 1"}},
		{`{% print {1: "x", 2.5: "y"}|yaml; %}`, []string{": x", ": y"}},
		{`{% dump({1: "x"}); %}`, []string{": x"}},
		{`{% dump({true: [1, {0: "z"}]}); %}`, []string{": z"}},
	}

	e := newEngine(t)

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := renderString(t, e, tt.src, nil)

			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("expected %q in %q", w, got)
				}
			}
		})
	}
}
