package lang

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func newEngine(t testing.TB, opts ...Option) *Engine {
	t.Helper()

	e, err := New(opts...)
	if err != nil {
		t.Fatalf("engine error: %v", err)
	}

	return e
}

// formatted parses src and returns its native formatting.
func formatted(t *testing.T, e *Engine, src string) string {
	t.Helper()

	tmpl, err := e.Parse(t.Context(), src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	var sb strings.Builder
	if err := tmpl.Format(t.Context(), &sb); err != nil {
		t.Fatalf("format error: %v", err)
	}

	return sb.String()
}

func TestParser_Precedence(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 + 2 * 3", "1 + (2 * 3)"},
		{"2 - 3 - 4", "(2 - 3) - 4"},
		{"a or b and c", "a or (b and c)"},
		{"a || b && c", "a || (b && c)"},
		{"a = b = 1", "a = (b = 1)"},
		{"not a == b", "(not a) == b"},
		{"-a * b", "(-a) * b"},
		{"a ~ b + c", "(a ~ b) + c"},
		{"a < b == c", "(a < b) == c"},
		{"a + 1 < b * 2", "(a + 1) < (b * 2)"},
		{"x not in y and z", "(x not in y) and z"},
		{"(1 + 2) * 3", "(1 + 2) * 3"},
		{"typeof x == \"null\"", "(typeof x) == \"null\""},
		{"-x|abs", "-x|abs"},
		{"a.b(1)[2]|join(\",\")", "a.b(1)[2]|join(\",\")"},
		{"range(3)", "range(3)"},
		{"[1, \"k\": 2]", "[1, \"k\": 2]"},
		{"{\"a\": 1, b: [2]}", "{\"a\": 1, b: [2]}"},
		{"$if + 1.0", "$if + 1.0"},
	}

	e := newEngine(t)

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := formatted(t, e, "{% "+tt.expr+"; %}")
			want := "{% " + tt.want + "; %}"

			if got != want {
				t.Errorf("expected %s, got %s", want, got)
			}
		})
	}
}

func TestParser_Nodes(t *testing.T) {
	e := newEngine(t)

	tmpl, err := e.Parse(t.Context(), "a{% print x.y; %}b")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	nodes := tmpl.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}

	if _, ok := nodes[0].(*Text); !ok {
		t.Errorf("expected *Text, got %T", nodes[0])
	}

	p, ok := nodes[1].(*Print)
	if !ok {
		t.Fatalf("expected *Print, got %T", nodes[1])
	}

	access, ok := p.Expr.(*PropertyAccess)
	if !ok {
		t.Fatalf("expected *PropertyAccess, got %T", p.Expr)
	}

	if access.Strict {
		t.Error("expected lenient property access")
	}

	strict := newEngine(t, WithStrict(true))

	tmpl, err = strict.Parse(t.Context(), "{% x.y(); %}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if call, ok := tmpl.Nodes()[0].(*MethodCall); !ok || !call.Strict {
		t.Errorf("expected strict *MethodCall, got %#v", tmpl.Nodes()[0])
	}
}

func TestParser_Statements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"if chain",
			"{% if (a): %}A{% elseif b: %}B{% else: %}C{% endif; %}",
			"{% if a: %}A{% elseif b: %}B{% else: %}C{% endif; %}",
		},
		{
			"if in one tag",
			"{% if a: print 1; endif %}",
			"{% if a: %}{% print 1; %}{% endif; %}",
		},
		{
			"for one binding",
			"{% for v in items: %}[{% print v; %}]{% endfor; %}",
			"{% for (v) in items: %}[{% print v; %}]{% endfor; %}",
		},
		{
			"for two bindings",
			"{% for ($k, v) in d: print k; endfor; %}",
			"{% for (k, v) in d: %}{% print k; %}{% endfor; %}",
		},
		{
			"reserved binding",
			"{% for ($in) in d: endfor %}",
			"{% for ($in) in d: %}{% endfor; %}",
		},
		{
			"implicit terminator",
			"{% x = 1 %}{% print x %}",
			"{% x = 1; %}{% print x; %}",
		},
		{
			"empty statements",
			"{% ; ; %}",
			"",
		},
	}

	e := newEngine(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatted(t, e, tt.src); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParser_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"missing endif", "{% if x: %}\nA", 2, "unexpected end of template"},
		{"missing endfor", "{% for x in y: %}", 1, "unexpected end of template"},
		{"assign to literal", "{% 1 = 2; %}", 1, "cannot assign to literal integer"},
		{"assign to call", "\n{% f.x() = 2; %}", 2, "cannot assign"},
		{"unknown filter", "{% x|nope; %}", 1, `unknown filter "nope"`},
		{"unknown tag", "{% nope(1); %}", 1, `unknown tag "nope"`},
		{"three bindings", "{% for (a, b, c) in x: endfor; %}", 1, "one or two bindings"},
		{"literal binding", "{% for 1 in x: endfor; %}", 1, "must be a variable name"},
		{"loop binding", "{% for loop in x: endfor; %}", 1, "reserved for loop metadata"},
		{"loop key binding", "{% for (i, $loop) in x: endfor; %}", 1, "reserved for loop metadata"},
		{"missing in", "{% for x of y: endfor; %}", 1, `expected "in"`},
		{"unclosed paren", "{% print (1; %}", 1, "expected )"},
		{"stray keyword", "{% else: %}", 1, `unexpected keyword "else"`},
		{"else not last", "{% if a: else: else: endif; %}", 1, "else must be the last branch"},
		{"elseif after else", "{% if a: else: elseif b: endif; %}", 1, "elseif after else"},
		{"missing terminator", "{% print 1 2; %}", 1, "expected ';'"},
		{"dict without colon", "{% {1: 2, 3} %}", 1, "expected ':' after dictionary key"},
		{"missing colon", "{% if a print 1; endif; %}", 1, "expected :"},
		{"bad member", "\n\n{% x.(1) %}", 3, "expected name"},
		{"dangling operator", "{% 1 + %}", 1, "unexpected tag close"},
		{"lex error", "{% \n#", 2, "unexpected input"},
	}

	e := newEngine(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Parse(t.Context(), tt.src)
			if !errors.Is(err, ErrSyntax) {
				t.Fatalf("expected syntax error, got %v", err)
			}

			if got := Line(err); got != tt.line {
				t.Errorf("expected line %d, got %d (%v)", tt.line, got, err)
			}

			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("expected message containing %q, got %q", tt.msg, err)
			}
		})
	}
}

func TestParser_MaxDepth(t *testing.T) {
	deep := "{% print " + strings.Repeat("(", 20) + "1" +
		strings.Repeat(")", 20) + "; %}"

	_, err := newEngine(t, WithMaxDepth(10)).Parse(t.Context(), deep)
	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Fatalf("expected max depth error, got %v", err)
	}

	if !errors.Is(err, ErrSyntax) {
		t.Errorf("expected syntax error, got %v", err)
	}

	if _, err := newEngine(t, WithMaxDepth(0)).Parse(t.Context(), deep); err != nil {
		t.Errorf("expected unbounded parse to succeed, got %v", err)
	}

	if _, err := newEngine(t).Parse(t.Context(), deep); err != nil {
		t.Errorf("expected default depth to allow 20 levels, got %v", err)
	}
}

func TestParser_CustomOperator(t *testing.T) {
	reg := NewRegistry()

	err := reg.RegisterOperator(BinaryOperator{
		Symbol:     "**",
		Precedence: PrecUnary + 1,
		Assoc:      AssocRight,
		Eval: func(l, r any) (any, error) {
			a, aok := number(l, false)
			b, bok := number(r, false)

			if !aok || !bok {
				return nil, ErrType.Wrap(errors.New("** needs numbers"))
			}

			return math.Pow(toFloat(a), toFloat(b)), nil
		},
	})
	if err != nil {
		t.Fatalf("register error: %v", err)
	}

	e := newEngine(t, WithRegistry(reg))

	tests := []struct {
		expr string
		want string
	}{
		{"2 ** 3 ** 2", "512"},
		{"-2 ** 2", "-4"},
		{"2 * 3 ** 2", "18"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := renderString(t, e, "{% print "+tt.expr+"; %}", nil); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	// The default registry does not know the operator.
	if _, err := newEngine(t).Parse(t.Context(), "{% 2 ** 2 %}"); err == nil {
		t.Error("expected parse error without the operator registered")
	}
}

// repeat renders its body a fixed number of times:
//
//	repeat n: body endrepeat;
type repeat struct {
	Count Node
	Body  []Node
	Pos
}

func (n *repeat) Evaluate(st *State) (any, error) {
	v, err := st.Eval(n.Count)
	if err != nil {
		return nil, err
	}

	count, ok := toInt(v)
	if !ok {
		return nil, ErrType.At(n.Line()).Wrap(errors.New("repeat count"))
	}

	for range count {
		if err := st.Render(n.Body); err != nil {
			return nil, err
		}
	}

	return nil, nil
}

func parseRepeat(p *Parser, kw Token) (Node, error) {
	count, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}

	if _, err := p.Expect(TokenColon); err != nil {
		return nil, err
	}

	body, err := p.ParseBody("endrepeat")
	if err != nil {
		return nil, err
	}

	p.Next()

	return &repeat{Pos: Pos(kw.Line), Count: count, Body: body}, p.EndStatement()
}

func TestParser_CustomStatement(t *testing.T) {
	reg := NewRegistry()

	err := reg.RegisterStatement(Statement{
		Keyword:  "repeat",
		Reserved: []string{"endrepeat"},
		Parse:    parseRepeat,
	})
	if err != nil {
		t.Fatalf("register error: %v", err)
	}

	e := newEngine(t, WithRegistry(reg))

	tmpl, err := e.Parse(t.Context(), "{% repeat 3: %}ab{% endrepeat; %}!")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	out, err := e.RenderString(t.Context(), tmpl, nil)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	if out != "ababab!" {
		t.Errorf("expected ababab!, got %s", out)
	}

	var sb strings.Builder
	if err := tmpl.Format(t.Context(), &sb); !errors.Is(err, ErrFormat) {
		t.Errorf("expected format error for host statement, got %v", err)
	}

	if _, err := e.Parse(t.Context(), "{% repeat 2: x %}"); !errors.Is(err, ErrSyntax) {
		t.Errorf("expected syntax error for missing endrepeat, got %v", err)
	}

	// Reserved words of a statement lex as keywords, so they are not
	// variable names.
	if _, err := e.Parse(t.Context(), "{% print endrepeat; %}"); !errors.Is(err, ErrSyntax) {
		t.Errorf("expected syntax error for reserved word, got %v", err)
	}
}
