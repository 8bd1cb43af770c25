package repl

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ardnew/stencil/lang"
	"github.com/ardnew/stencil/log"
)

// Session holds the engine and the variables that persist between inputs.
type Session struct {
	engine *lang.Engine
	reg    *lang.Registry
	scope  *lang.Scope
	vars   map[string]any
	logger log.Logger
}

// Result is the outcome of evaluating one input.
type Result struct {
	// Output is the text written by the input.
	Output string
	// Values are the values of the input's bare expressions, in order.
	Values []any
}

// NewSession returns a session whose scope starts with vars.
func NewSession(e *lang.Engine, vars map[string]any, logger log.Logger) *Session {
	return &Session{
		engine: e,
		reg:    e.Registry(),
		scope:  e.NewScope(vars),
		vars:   vars,
		logger: logger,
	}
}

// Scope returns the session scope.
func (s *Session) Scope() *lang.Scope { return s.scope }

// Engine returns the session engine.
func (s *Session) Engine() *lang.Engine { return s.engine }

// Reset discards every variable assigned since the session started.
func (s *Session) Reset() {
	s.scope = s.engine.NewScope(s.vars)
}

// Replace discards the session variables and starts over with vars.
func (s *Session) Replace(vars map[string]any) {
	s.vars = vars
	s.Reset()
}

// isTemplate reports whether input is template source rather than the
// statements of a single tag.
func (s *Session) isTemplate(input string) bool {
	open, _ := s.engine.Delimiters()

	return strings.Contains(input, open)
}

// Eval evaluates input in the session scope.
//
// Input containing the opening delimiter is rendered as a template. Any
// other input is parsed as the statements of one tag, and the value of
// each bare expression is collected in the result.
func (s *Session) Eval(ctx context.Context, input string) (Result, error) {
	src := input

	if !s.isTemplate(input) {
		open, close := s.engine.Delimiters()
		src = open + " " + input + " " + close
	}

	tmpl, err := s.engine.Parse(ctx, src)
	if err != nil {
		return Result{}, err
	}

	var (
		out strings.Builder
		res Result
	)

	st := lang.NewState(ctx, s.scope, &out)

	for _, n := range tmpl.Nodes() {
		if isStatement(n) {
			err = st.Render([]lang.Node{n})
		} else {
			var v any

			v, err = st.Eval(n)
			if err == nil {
				res.Values = append(res.Values, v)
			}
		}

		if err != nil {
			break
		}
	}

	res.Output = out.String()

	s.logger.TraceContext(ctx, "repl eval",
		slog.Int("node_count", len(tmpl.Nodes())),
		slog.Int("value_count", len(res.Values)),
		slog.Int("output_length", len(res.Output)))

	return res, err
}

// isStatement reports whether n is a statement rather than an expression.
func isStatement(n lang.Node) bool {
	switch n.(type) {
	case *lang.Text, *lang.Print, *lang.If, *lang.For, *lang.Assign:
		return true
	}

	return false
}

// formatResult renders an expression value for display. Strings are quoted
// so that they are distinguishable from other scalars.
func formatResult(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	}

	s, err := lang.Stringify(v)
	if err != nil {
		return "<" + lang.TypeName(v) + ">"
	}

	return s
}
