package lang

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
)

func TestError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target *Error
		want   bool
	}{
		{"sentinel", ErrType, ErrType, true},
		{"derived kind", ErrType, ErrRuntime, true},
		{"wrapped kind", ErrKey.Wrap(errors.New("x")), ErrRuntime, true},
		{"located kind", ErrReference.At(3), ErrReference, true},
		{"sibling kind", ErrType.At(1), ErrKey, false},
		{"parent is not child", ErrRuntime.Wrap(errors.New("x")), ErrType, false},
		{"syntax is not runtime", ErrSyntax.At(1), ErrRuntime, false},
		{"instance is not a target", ErrType, ErrType.At(2), false},
		{"nested sentinel", ErrSyntax.Wrap(ErrMaxDepthExceeded), ErrMaxDepthExceeded, true},
		{"fmt wrapped", fmt.Errorf("render: %w", ErrAttribute.At(4)), ErrAttribute, true},
		{"plain error", WrapError(errors.New("x")), ErrRuntime, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrType, "type error"},
		{ErrType.At(7), "line 7: type error"},
		{ErrKey.At(2).Wrap(errors.New(`key "a" not found`)), `line 2: key error: key "a" not found`},
		{WrapError(errors.New("plain")), "plain"},
		{ErrSyntax.Wrap(ErrMaxDepthExceeded), "syntax error: maximum nesting depth exceeded"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestError_Immutable(t *testing.T) {
	base := ErrType.With(slog.String("a", "1"))
	_ = base.With(slog.String("b", "2"))
	_ = base.At(9)

	if len(base.attrs) != 1 || base.Line() != 0 {
		t.Errorf("expected base error unchanged, got attrs=%v line=%d",
			base.attrs, base.Line())
	}

	if ErrType.Line() != 0 || ErrType.err != nil {
		t.Error("expected sentinel unchanged")
	}
}

func TestWrapError(t *testing.T) {
	located := ErrType.At(5)

	if got := WrapError(fmt.Errorf("ctx: %w", located)); got != located {
		t.Errorf("expected the Error in the chain, got %v", got)
	}

	plain := errors.New("plain")
	if got := WrapError(plain); !errors.Is(got, plain) {
		t.Errorf("expected wrapped plain error, got %v", got)
	}
}

func TestLine(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("x"), 0},
		{"direct", ErrType.At(3), 3},
		{"wrapped by fmt", fmt.Errorf("a: %w", ErrKey.At(8)), 8},
		{"inner line", ErrSyntax.Wrap(ErrKey.At(6)), 6},
		{"outer wins", ErrSyntax.At(2).Wrap(ErrKey.At(6)), 2},
		{"no line", ErrSyntax.Wrap(errors.New("x")), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Line(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestAtLine(t *testing.T) {
	plain := errors.New("plain")

	if got := atLine(plain, 4); got != plain { //nolint:errorlint
		t.Errorf("expected plain error unchanged, got %v", got)
	}

	if got := Line(atLine(ErrType.Wrap(plain), 4)); got != 4 {
		t.Errorf("expected line 4, got %d", got)
	}

	if got := Line(atLine(ErrType.At(2), 4)); got != 2 {
		t.Errorf("expected existing line 2 kept, got %d", got)
	}

	wrapped := fmt.Errorf("host: %w", ErrType)
	if got := atLine(wrapped, 4); got != wrapped { //nolint:errorlint
		t.Errorf("expected foreign wrapper unchanged, got %v", got)
	}

	if atLine(nil, 4) != nil {
		t.Error("expected nil to stay nil")
	}
}

func TestError_LogValue(t *testing.T) {
	err := ErrReference.At(3).
		With(slog.String("name", "x")).
		Wrap(errors.New(`"x" is not defined`))

	attrs := err.LogValue().Group()

	want := map[string]string{
		"error": "reference error",
		"line":  "3",
		"cause": `"x" is not defined`,
		"name":  "x",
	}

	if len(attrs) != len(want) {
		t.Fatalf("expected %d attributes, got %v", len(want), attrs)
	}

	for _, a := range attrs {
		if got := a.Value.String(); got != want[a.Key] {
			t.Errorf("%s: expected %q, got %q", a.Key, want[a.Key], got)
		}
	}
}
