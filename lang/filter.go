package lang

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ardnew/mung"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/builtin"
	"github.com/goccy/go-yaml"
	"github.com/goodsign/monday"
	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	xnumber "golang.org/x/text/number"
)

// DefaultLocale is the locale used by the number, currency, percent, title
// and date filters when none is given.
const DefaultLocale = "en"

// DefaultDateLayout is the layout used by the date filter when none is
// given.
const DefaultDateLayout = "2006-01-02"

func builtinFilters() map[string]Filter {
	return map[string]Filter{
		"upper":       stringFilter(strings.ToUpper),
		"lower":       stringFilter(strings.ToLower),
		"title":       filterTitle,
		"capitalize":  stringFilter(capitalize),
		"trim":        filterTrim,
		"length":      filterLength,
		"default":     filterDefault,
		"join":        filterJoin,
		"split":       filterSplit,
		"replace":     filterReplace,
		"first":       filterFirst,
		"last":        filterLast,
		"reverse":     filterReverse,
		"sort":        filterSort,
		"keys":        filterKeys,
		"values":      filterValues,
		"abs":         filterAbs,
		"round":       filterRound,
		"escape":      stringFilter(html.EscapeString),
		"json":        filterJSON,
		"yaml":        filterYAML,
		"markdown":    filterMarkdown,
		"number":      filterNumber,
		"currency":    filterCurrency,
		"percent":     filterPercent,
		"date":        filterDate,
		"path_prefix": filterPathPrefix,
		"call":        filterCall,
	}
}

// filterError returns a type error naming the filter.
func filterError(name, format string, args ...any) error {
	return ErrType.With(slog.String("filter", name)).
		Wrap(fmt.Errorf(name+": "+format, args...))
}

// arity checks that the number of filter arguments is in [lo, hi].
func arity(name string, args []any, lo, hi int) error {
	if n := len(args); n < lo || n > hi {
		if lo == hi {
			return filterError(name, "takes %d argument(s), got %d", lo, n)
		}

		return filterError(name, "takes %d to %d arguments, got %d", lo, hi, n)
	}

	return nil
}

// stringArg returns args[i] as a string, or def when absent.
func stringArg(args []any, i int, def string) (string, error) {
	if i >= len(args) {
		return def, nil
	}

	return Stringify(args[i])
}

func stringFilter(fn func(string) string) Filter {
	return func(v any, _ ...any) (any, error) {
		s, err := Stringify(v)
		if err != nil {
			return nil, err
		}

		return fn(s), nil
	}
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}

	return string(unicode.ToUpper(r)) + strings.ToLower(s[n:])
}

func filterTitle(v any, args ...any) (any, error) {
	if err := arity("title", args, 0, 1); err != nil {
		return nil, err
	}

	s, err := Stringify(v)
	if err != nil {
		return nil, err
	}

	loc, err := stringArg(args, 0, DefaultLocale)
	if err != nil {
		return nil, err
	}

	tag, err := language.Parse(loc)
	if err != nil {
		return nil, filterError("title", "invalid locale %q", loc)
	}

	return cases.Title(tag).String(s), nil
}

func filterTrim(v any, args ...any) (any, error) {
	if err := arity("trim", args, 0, 1); err != nil {
		return nil, err
	}

	s, err := Stringify(v)
	if err != nil {
		return nil, err
	}

	if len(args) == 0 {
		return strings.TrimSpace(s), nil
	}

	cutset, err := Stringify(args[0])
	if err != nil {
		return nil, err
	}

	return strings.Trim(s, cutset), nil
}

func filterLength(v any, _ ...any) (any, error) {
	if s, ok := normalize(v).(string); ok {
		return int64(utf8.RuneCountInString(s)), nil
	}

	if l, ok := list(v); ok {
		return int64(len(l)), nil
	}

	if d, ok := dict(v); ok {
		return int64(d.Len()), nil
	}

	return nil, filterError("length", "%s has no length", TypeName(v))
}

// filterDefault replaces null and the empty string with its argument.
func filterDefault(v any, args ...any) (any, error) {
	if err := arity("default", args, 1, 1); err != nil {
		return nil, err
	}

	if v == nil || v == "" {
		return args[0], nil
	}

	return v, nil
}

func filterJoin(v any, args ...any) (any, error) {
	if err := arity("join", args, 0, 1); err != nil {
		return nil, err
	}

	l, ok := list(v)
	if !ok {
		return nil, filterError("join", "%s is not an array", TypeName(v))
	}

	sep, err := stringArg(args, 0, "")
	if err != nil {
		return nil, err
	}

	parts := make([]string, len(l))
	for i, e := range l {
		if parts[i], err = Stringify(e); err != nil {
			return nil, err
		}
	}

	return strings.Join(parts, sep), nil
}

// filterSplit splits on its argument, or on runs of white space without
// one.
func filterSplit(v any, args ...any) (any, error) {
	if err := arity("split", args, 0, 1); err != nil {
		return nil, err
	}

	s, err := Stringify(v)
	if err != nil {
		return nil, err
	}

	var parts []string

	if len(args) == 0 {
		parts = strings.Fields(s)
	} else {
		sep, err := Stringify(args[0])
		if err != nil {
			return nil, err
		}

		parts = strings.Split(s, sep)
	}

	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}

	return out, nil
}

func filterReplace(v any, args ...any) (any, error) {
	if err := arity("replace", args, 2, 3); err != nil {
		return nil, err
	}

	s, err := Stringify(v)
	if err != nil {
		return nil, err
	}

	from, err := Stringify(args[0])
	if err != nil {
		return nil, err
	}

	to, err := Stringify(args[1])
	if err != nil {
		return nil, err
	}

	n := -1

	if len(args) == 3 {
		var ok bool
		if n, ok = toInt(args[2]); !ok {
			return nil, filterError("replace", "count must be an integer")
		}
	}

	return strings.Replace(s, from, to, n), nil
}

func filterFirst(v any, _ ...any) (any, error) {
	if s, ok := normalize(v).(string); ok {
		r, n := utf8.DecodeRuneInString(s)
		if n == 0 {
			return "", nil
		}

		return string(r), nil
	}

	l, ok := list(v)
	if !ok {
		return nil, filterError("first", "%s is not an array", TypeName(v))
	}

	if len(l) == 0 {
		return nil, nil
	}

	return l[0], nil
}

func filterLast(v any, _ ...any) (any, error) {
	if s, ok := normalize(v).(string); ok {
		r, n := utf8.DecodeLastRuneInString(s)
		if n == 0 {
			return "", nil
		}

		return string(r), nil
	}

	l, ok := list(v)
	if !ok {
		return nil, filterError("last", "%s is not an array", TypeName(v))
	}

	if len(l) == 0 {
		return nil, nil
	}

	return l[len(l)-1], nil
}

func filterReverse(v any, _ ...any) (any, error) {
	if s, ok := normalize(v).(string); ok {
		r := []rune(s)
		slices.Reverse(r)

		return string(r), nil
	}

	l, ok := list(v)
	if !ok {
		return nil, filterError("reverse", "%s is not an array", TypeName(v))
	}

	out := slices.Clone(l)
	slices.Reverse(out)

	return out, nil
}

func filterSort(v any, _ ...any) (any, error) {
	l, ok := list(v)
	if !ok {
		return nil, filterError("sort", "%s is not an array", TypeName(v))
	}

	out := slices.Clone(l)

	var err error

	slices.SortStableFunc(out, func(a, b any) int {
		c, cerr := Compare(a, b)
		if cerr != nil && err == nil {
			err = cerr
		}

		return c
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func filterKeys(v any, _ ...any) (any, error) {
	d, ok := dict(v)
	if !ok {
		return nil, filterError("keys", "%s is not a dict", TypeName(v))
	}

	return d.Keys(), nil
}

func filterValues(v any, _ ...any) (any, error) {
	d, ok := dict(v)
	if !ok {
		return nil, filterError("values", "%s is not a dict", TypeName(v))
	}

	return d.Values(), nil
}

func filterAbs(v any, _ ...any) (any, error) {
	n, ok := number(v, true)
	if !ok {
		return nil, filterError("abs", "%s is not a number", TypeName(v))
	}

	if i, ok := n.(int64); ok {
		if i < 0 {
			return -i, nil
		}

		return i, nil
	}

	return math.Abs(toFloat(n)), nil
}

// filterRound rounds half away from zero to the given number of decimal
// places. With no places the result is an integer.
func filterRound(v any, args ...any) (any, error) {
	if err := arity("round", args, 0, 1); err != nil {
		return nil, err
	}

	n, ok := number(v, true)
	if !ok {
		return nil, filterError("round", "%s is not a number", TypeName(v))
	}

	places := 0

	if len(args) == 1 {
		if places, ok = toInt(args[0]); !ok || places < 0 {
			return nil, filterError("round", "places must be a non-negative integer")
		}
	}

	if i, ok := n.(int64); ok {
		return i, nil
	}

	if places == 0 {
		return int64(math.Round(toFloat(n))), nil
	}

	scale := math.Pow10(places)

	return math.Round(toFloat(n)*scale) / scale, nil
}

func filterJSON(v any, args ...any) (any, error) {
	if err := arity("json", args, 0, 1); err != nil {
		return nil, err
	}

	indent := 0
	if len(args) == 1 {
		indent, _ = toInt(args[0])
	}

	var (
		b   []byte
		err error
	)

	if indent > 0 {
		b, err = json.MarshalIndent(v, "", strings.Repeat(" ", indent))
	} else {
		b, err = marshalJSON(v)
	}

	if err != nil {
		return nil, filterError("json", "%v", err)
	}

	return string(b), nil
}

func filterYAML(v any, args ...any) (any, error) {
	if err := arity("yaml", args, 0, 1); err != nil {
		return nil, err
	}

	var opts []yaml.EncodeOption

	if len(args) == 1 {
		if indent, ok := toInt(args[0]); ok && indent > 0 {
			opts = append(opts, yaml.Indent(indent))
		}
	}

	b, err := yaml.MarshalWithOptions(v, opts...)
	if err != nil {
		return nil, filterError("yaml", "%v", err)
	}

	return string(b), nil
}

func filterMarkdown(v any, _ ...any) (any, error) {
	s, err := Stringify(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(s), &buf); err != nil {
		return nil, filterError("markdown", "%v", err)
	}

	return buf.String(), nil
}

// printer returns a message printer for the locale in args[i].
func printer(name string, args []any, i int) (*message.Printer, error) {
	loc, err := stringArg(args, i, DefaultLocale)
	if err != nil {
		return nil, err
	}

	tag, err := language.Parse(loc)
	if err != nil {
		return nil, filterError(name, "invalid locale %q", loc)
	}

	return message.NewPrinter(tag), nil
}

// filterNumber formats a number with the digit grouping of a locale.
func filterNumber(v any, args ...any) (any, error) {
	if err := arity("number", args, 0, 1); err != nil {
		return nil, err
	}

	n, ok := number(v, true)
	if !ok {
		return nil, filterError("number", "%s is not a number", TypeName(v))
	}

	p, err := printer("number", args, 0)
	if err != nil {
		return nil, err
	}

	return p.Sprintf("%v", xnumber.Decimal(n)), nil
}

func filterCurrency(v any, args ...any) (any, error) {
	if err := arity("currency", args, 1, 2); err != nil {
		return nil, err
	}

	n, ok := number(v, true)
	if !ok {
		return nil, filterError("currency", "%s is not a number", TypeName(v))
	}

	code, err := Stringify(args[0])
	if err != nil {
		return nil, err
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, filterError("currency", "invalid currency code %q", code)
	}

	p, err := printer("currency", args, 1)
	if err != nil {
		return nil, err
	}

	return p.Sprintf("%v", currency.Symbol(unit.Amount(n))), nil
}

func filterPercent(v any, args ...any) (any, error) {
	if err := arity("percent", args, 0, 1); err != nil {
		return nil, err
	}

	n, ok := number(v, true)
	if !ok {
		return nil, filterError("percent", "%s is not a number", TypeName(v))
	}

	p, err := printer("percent", args, 0)
	if err != nil {
		return nil, err
	}

	return p.Sprintf("%v", xnumber.Percent(toFloat(n))), nil
}

// filterDate formats a time with a Go layout and localized month and day
// names. The value may be a time.Time, a Unix timestamp, or an RFC 3339
// string.
func filterDate(v any, args ...any) (any, error) {
	if err := arity("date", args, 0, 2); err != nil {
		return nil, err
	}

	t, err := toTime(v)
	if err != nil {
		return nil, filterError("date", "%v", err)
	}

	layout, err := stringArg(args, 0, DefaultDateLayout)
	if err != nil {
		return nil, err
	}

	loc, err := stringArg(args, 1, DefaultLocale)
	if err != nil {
		return nil, err
	}

	return monday.Format(t, layout, dateLocale(loc)), nil
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x != nil {
			return *x, nil
		}
	}

	switch x := normalize(v).(type) {
	case int64:
		return time.Unix(x, 0).UTC(), nil
	case float64:
		sec, frac := math.Modf(x)

		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	case string:
		return time.Parse(time.RFC3339, x)
	}

	return time.Time{}, fmt.Errorf("%s is not a time", TypeName(v))
}

// dateLocale maps a BCP 47 locale to a monday locale, falling back to the
// language alone and then to US English.
func dateLocale(loc string) monday.Locale {
	locales := map[string]monday.Locale{
		"en":    monday.LocaleEnUS,
		"en_us": monday.LocaleEnUS,
		"en_gb": monday.LocaleEnGB,
		"de":    monday.LocaleDeDE,
		"de_de": monday.LocaleDeDE,
		"fr":    monday.LocaleFrFR,
		"fr_fr": monday.LocaleFrFR,
		"fr_ca": monday.LocaleFrCA,
		"es":    monday.LocaleEsES,
		"es_es": monday.LocaleEsES,
		"it":    monday.LocaleItIT,
		"it_it": monday.LocaleItIT,
		"pt":    monday.LocalePtPT,
		"pt_pt": monday.LocalePtPT,
		"pt_br": monday.LocalePtBR,
		"nl":    monday.LocaleNlNL,
		"nl_nl": monday.LocaleNlNL,
		"nl_be": monday.LocaleNlBE,
		"ru":    monday.LocaleRuRU,
		"pl":    monday.LocalePlPL,
		"sv":    monday.LocaleSvSE,
		"fi":    monday.LocaleFiFI,
		"da":    monday.LocaleDaDK,
		"ja":    monday.LocaleJaJP,
		"zh":    monday.LocaleZhCN,
		"zh_cn": monday.LocaleZhCN,
		"zh_tw": monday.LocaleZhTW,
		"ko":    monday.LocaleKoKR,
		"tr":    monday.LocaleTrTR,
		"uk":    monday.LocaleUkUA,
	}

	loc = strings.ToLower(strings.ReplaceAll(loc, "-", "_"))

	if l, ok := locales[loc]; ok {
		return l
	}

	if lang, _, ok := strings.Cut(loc, "_"); ok {
		if l, ok := locales[lang]; ok {
			return l
		}
	}

	return monday.LocaleEnUS
}

// filterPathPrefix prepends items to a PATH-like list, dropping duplicates.
func filterPathPrefix(v any, args ...any) (any, error) {
	s, err := Stringify(v)
	if err != nil {
		return nil, err
	}

	prefix := make([]string, len(args))
	for i, a := range args {
		if prefix[i], err = Stringify(a); err != nil {
			return nil, err
		}
	}

	return mung.Make(
		mung.WithSubjectItems(s),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String(), nil
}

// filterCall invokes an expr-lang builtin with the piped value as its first
// argument: value|call("name", args...).
func filterCall(v any, args ...any) (any, error) {
	if len(args) == 0 {
		return nil, filterError("call", "missing builtin name")
	}

	name, ok := args[0].(string)
	if !ok || !isIdentifier(name) {
		return nil, filterError("call", "builtin name must be an identifier")
	}

	if _, ok := builtin.Index[name]; !ok {
		return nil, filterError("call", "unknown builtin %q", name)
	}

	env := map[string]any{"_0": ToNative(v)}
	params := []string{"_0"}

	for i, a := range args[1:] {
		p := fmt.Sprintf("_%d", i+1)
		env[p] = ToNative(a)
		params = append(params, p)
	}

	return expr.Eval(name+"("+strings.Join(params, ", ")+")", env)
}
