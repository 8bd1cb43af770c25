package lang

import (
	"errors"
	"slices"
	"testing"
)

func TestRegistry_Core(t *testing.T) {
	reg := NewRegistry()

	for _, sym := range []string{"=", "or", "||", "and", "&&", "==", "!=", "<",
		"<=", ">", ">=", "in", "not in", "+", "-", "~", "*", "/", "%"} {
		if _, ok := reg.Operator(sym); !ok {
			t.Errorf("expected binary operator %q", sym)
		}
	}

	for _, sym := range []string{"-", "+", "not", "!", "typeof"} {
		if _, ok := reg.Unary(sym); !ok {
			t.Errorf("expected unary operator %q", sym)
		}
	}

	want := []string{"else", "elseif", "endfor", "endif", "for", "if", "print"}
	if got := reg.Keywords(); !slices.Equal(got, want) {
		t.Errorf("expected keywords %v, got %v", want, got)
	}

	for _, name := range []string{"upper", "join", "json", "date", "call"} {
		if _, ok := reg.Filter(name); !ok {
			t.Errorf("expected filter %q", name)
		}
	}

	if got := reg.Tags(); !slices.Equal(got, []string{"dump", "env", "expr", "now", "range"}) {
		t.Errorf("unexpected tags %v", got)
	}

	op, _ := reg.Operator("=")
	if !op.Assign || op.Assoc != AssocRight || op.Precedence != PrecAssign {
		t.Errorf("unexpected assignment operator %+v", op)
	}
}

func TestRegistry_Empty(t *testing.T) {
	reg := NewEmptyRegistry()

	if len(reg.Symbols()) != 0 || reg.Filters() != nil || reg.Tags() != nil {
		t.Error("expected an empty registry")
	}

	e := newEngine(t, WithRegistry(reg))

	if got := renderString(t, e, "plain {% x %} text", map[string]any{"x": 1}); got != "plain  text" {
		t.Errorf("expected plain  text, got %q", got)
	}

	if _, err := e.Parse(t.Context(), "{% print x; %}"); !errors.Is(err, ErrSyntax) {
		t.Errorf("expected syntax error without the print statement, got %v", err)
	}
}

func TestRegistry_Symbols(t *testing.T) {
	symbols := NewRegistry().Symbols()

	for i := 1; i < len(symbols); i++ {
		if len(symbols[i]) > len(symbols[i-1]) {
			t.Fatalf("expected longest symbols first, got %q before %q",
				symbols[i-1], symbols[i])
		}
	}

	for _, sym := range []string{"not in", "typeof", "<=", "if"} {
		if !slices.Contains(symbols, sym) {
			t.Errorf("expected symbol %q", sym)
		}
	}
}

func TestRegistry_Reserved(t *testing.T) {
	reg := NewRegistry()

	for _, name := range []string{"if", "endfor", "and", "in", "typeof", "not"} {
		if !reg.Reserved(name) {
			t.Errorf("expected %q to be reserved", name)
		}
	}

	for _, name := range []string{"x", "loop", "upper", "range", "true"} {
		if reg.Reserved(name) {
			t.Errorf("expected %q not to be reserved", name)
		}
	}
}

func TestRegistry_RegisterErrors(t *testing.T) {
	eval := func(l, _ any) (any, error) { return l, nil }
	unary := func(v any) (any, error) { return v, nil }
	parse := func(*Parser, Token) (Node, error) { return nil, nil }

	tests := []struct {
		name string
		fn   func(*Registry) error
	}{
		{"empty symbol", func(r *Registry) error {
			return r.RegisterOperator(BinaryOperator{Symbol: " ", Precedence: 1, Eval: eval})
		}},
		{"punctuation symbol", func(r *Registry) error {
			return r.RegisterOperator(BinaryOperator{Symbol: "(", Precedence: 1, Eval: eval})
		}},
		{"zero precedence", func(r *Registry) error {
			return r.RegisterOperator(BinaryOperator{Symbol: "**", Eval: eval})
		}},
		{"missing eval", func(r *Registry) error {
			return r.RegisterOperator(BinaryOperator{Symbol: "**", Precedence: 1})
		}},
		{"keyword operator", func(r *Registry) error {
			return r.RegisterOperator(BinaryOperator{Symbol: "if", Precedence: 1, Eval: eval})
		}},
		{"incomplete unary", func(r *Registry) error {
			return r.RegisterUnary(UnaryOperator{Symbol: "#", Precedence: 1})
		}},
		{"keyword unary", func(r *Registry) error {
			return r.RegisterUnary(UnaryOperator{Symbol: "endif", Precedence: 1, Eval: unary})
		}},
		{"statement without parser", func(r *Registry) error {
			return r.RegisterStatement(Statement{Keyword: "loop"})
		}},
		{"statement bad keyword", func(r *Registry) error {
			return r.RegisterStatement(Statement{Keyword: "1x", Parse: parse})
		}},
		{"statement bad reserved", func(r *Registry) error {
			return r.RegisterStatement(Statement{Keyword: "loop", Reserved: []string{"end-loop"}, Parse: parse})
		}},
		{"statement operator keyword", func(r *Registry) error {
			return r.RegisterStatement(Statement{Keyword: "and", Parse: parse})
		}},
		{"filter name", func(r *Registry) error {
			return r.RegisterFilter("to-upper", func(v any, _ ...any) (any, error) { return v, nil })
		}},
		{"nil filter", func(r *Registry) error { return r.RegisterFilter("f", nil) }},
		{"nil tag", func(r *Registry) error { return r.RegisterTag("t", nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(NewRegistry()); !errors.Is(err, ErrRegistry) {
				t.Errorf("expected registry error, got %v", err)
			}
		})
	}
}

func TestRegistry_CanonicalSymbol(t *testing.T) {
	reg := NewEmptyRegistry()

	err := reg.RegisterOperator(BinaryOperator{
		Symbol:     "  is   not ",
		Precedence: PrecEquality,
		Eval:       opNotEqual,
	})
	if err != nil {
		t.Fatalf("register error: %v", err)
	}

	if _, ok := reg.Operator("is not"); !ok {
		t.Fatal("expected operator registered as \"is not\"")
	}

	e := newEngine(t, WithRegistry(reg))

	tokens, err := e.Tokenize("{% a is\tnot b %}")
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}

	if tokens[2].Kind != TokenOperator || tokens[2].Text != "is not" {
		t.Errorf("expected operator \"is not\", got %s", tokens[2])
	}
}

func TestRegistry_Clone(t *testing.T) {
	reg := NewRegistry()
	clone := reg.Clone()

	if err := clone.RegisterFilter("shout", stringFilter(func(s string) string { return s + "!" })); err != nil {
		t.Fatalf("register error: %v", err)
	}

	if _, ok := reg.Filter("shout"); ok {
		t.Error("expected the original registry unchanged")
	}

	e := newEngine(t, WithRegistry(clone))

	// Registering after the engine is built does not affect it.
	if err := clone.RegisterFilter("late", stringFilter(func(s string) string { return s })); err != nil {
		t.Fatalf("register error: %v", err)
	}

	if _, err := e.Parse(t.Context(), "{% print 1|late; %}"); !errors.Is(err, ErrSyntax) {
		t.Errorf("expected late filter unknown to the engine, got %v", err)
	}

	if got := renderString(t, e, "{% print \"hi\"|shout; %}", nil); got != "hi!" {
		t.Errorf("expected hi!, got %s", got)
	}

	if _, ok := e.Registry().Filter("shout"); !ok {
		t.Error("expected engine registry to include shout")
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	if _, err := New(WithFilter("bad name", stringFilter(nil))); !errors.Is(err, ErrRegistry) {
		t.Errorf("expected registry error for filter, got %v", err)
	}

	if _, err := New(WithTag("1", tagNow)); !errors.Is(err, ErrRegistry) {
		t.Errorf("expected registry error for tag, got %v", err)
	}

	if _, err := New(WithDelimiters("%%", "%%")); !errors.Is(err, ErrRegistry) {
		t.Errorf("expected registry error for delimiters, got %v", err)
	}
}
