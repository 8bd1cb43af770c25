package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format writes the template in native template syntax. Parsing the output
// yields a template that renders identically.
func (t *Template) Format(_ context.Context, w io.Writer) error {
	f := &formatter{open: t.open, close: t.close, reg: t.reg}

	f.body(t.nodes)

	if f.err != nil {
		return ErrFormat.Wrap(f.err)
	}

	_, err := io.WriteString(w, f.sb.String())

	return err
}

// FormatJSON writes the syntax tree as JSON.
func (t *Template) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	var (
		jsonData []byte
		err      error
	)

	tree := nodeList(t.nodes)

	if indent > 0 {
		jsonData, err = json.MarshalIndent(tree, "", strings.Repeat(" ", indent))
	} else {
		jsonData, err = json.Marshal(tree)
	}

	if err != nil {
		return ErrFormat.Wrap(err)
	}

	_, err = fmt.Fprintln(w, string(jsonData))

	return err
}

// FormatYAML writes the syntax tree as YAML. A positive indent selects block
// style with node fields in a fixed order. Otherwise the tree is written on
// one line in flow style with each node's fields sorted by name.
func (t *Template) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	var (
		tree any = nodeList(t.nodes)
		opts []yaml.EncodeOption
	)

	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		// Flow style does not apply to the ordered mappings of a Dict.
		tree = ToNative(tree)
		opts = append(opts, yaml.Flow(true))
	}

	yamlData, err := yaml.MarshalContext(ctx, tree, opts...)
	if err != nil {
		return ErrFormat.Wrap(err)
	}

	_, err = fmt.Fprint(w, string(yamlData))

	return err
}

type formatter struct {
	sb    strings.Builder
	reg   *Registry
	open  string
	close string
	err   error
}

func (f *formatter) body(nodes []Node) {
	for _, n := range nodes {
		if t, ok := n.(*Text); ok {
			f.sb.WriteString(t.Content)

			continue
		}

		f.statement(n)
	}
}

// tag writes one tag holding s.
func (f *formatter) tag(s string) {
	f.sb.WriteString(f.open)
	f.sb.WriteByte(' ')
	f.sb.WriteString(s)
	f.sb.WriteByte(' ')
	f.sb.WriteString(f.close)
}

func (f *formatter) statement(n Node) {
	switch n := n.(type) {
	case *If:
		for i, b := range n.Branches {
			switch {
			case i == 0:
				f.tag(KeywordIf + " " + f.expr(b.Cond, true) + ":")
			case b.Cond == nil:
				f.tag(KeywordElse + ":")
			default:
				f.tag(KeywordElseIf + " " + f.expr(b.Cond, true) + ":")
			}

			f.body(b.Body)
		}

		f.tag(KeywordEndIf + ";")

	case *For:
		names := make([]string, len(n.Bindings))
		for i, b := range n.Bindings {
			names[i] = f.name(b)
		}

		f.tag(fmt.Sprintf("%s (%s) in %s:", KeywordFor,
			strings.Join(names, ", "), f.expr(n.Seq, true)))
		f.body(n.Body)
		f.tag(KeywordEndFor + ";")

	case *Print:
		f.tag(KeywordPrint + " " + f.expr(n.Expr, true) + ";")

	default:
		f.tag(f.expr(n, true) + ";")
	}
}

// name writes a variable name, using the '$' form when the bare name would
// lex as something else.
func (f *formatter) name(s string) string {
	switch strings.ToLower(s) {
	case "true", "false", "null":
		return "$" + s
	}

	if f.reg != nil && f.reg.Reserved(s) {
		return "$" + s
	}

	return s
}

// expr returns the source form of an expression. Operator applications are
// parenthesized unless top is set.
func (f *formatter) expr(n Node, top bool) string {
	paren := func(s string) string {
		if top {
			return s
		}

		return "(" + s + ")"
	}

	switch n := n.(type) {
	case *Literal:
		return formatLiteral(n.Value)

	case *Variable:
		return f.name(n.Name)

	case *ArrayLit:
		return "[" + f.entries(n.Entries) + "]"

	case *DictLit:
		return "{" + f.entries(n.Entries) + "}"

	case *UnaryOp:
		sep := ""
		if isIdentifier(n.Op) {
			sep = " "
		}

		return paren(n.Op + sep + f.expr(n.Operand, false))

	case *BinaryOp:
		return paren(f.expr(n.Left, false) + " " + n.Op + " " +
			f.expr(n.Right, false))

	case *Assign:
		return paren(f.name(n.Target.Name) + " = " + f.expr(n.Value, false))

	case *Index:
		return f.expr(n.Base, false) + "[" + f.expr(n.Index, true) + "]"

	case *PropertyAccess:
		return f.expr(n.Base, false) + "." + f.member(n.Name)

	case *MethodCall:
		return f.expr(n.Base, false) + "." + f.member(n.Name) + f.args(n.Args)

	case *FilterApply:
		s := f.expr(n.Value, false) + "|" + n.Filter
		if len(n.Args) > 0 {
			s += f.args(n.Args)
		}

		return s

	case *TagCall:
		return n.Tag + f.args(n.Args)
	}

	if f.err == nil {
		f.err = fmt.Errorf("%s at line %d is not an expression", describe(n),
			n.Line())
	}

	return ""
}

func (f *formatter) member(n Node) string {
	if lit, ok := n.(*Literal); ok {
		if s, ok := lit.Value.(string); ok && isIdentifier(s) {
			return s
		}
	}

	if f.err == nil {
		f.err = fmt.Errorf("member name at line %d is not an identifier",
			n.Line())
	}

	return ""
}

func (f *formatter) args(args []Node) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = f.expr(a, true)
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

func (f *formatter) entries(entries []Entry) string {
	parts := make([]string, len(entries))

	for i, e := range entries {
		if e.Keyed() {
			parts[i] = f.expr(e.Key, false) + ": " + f.expr(e.Value, true)
		} else {
			parts[i] = f.expr(e.Value, true)
		}
	}

	return strings.Join(parts, ", ")
}

// formatLiteral returns the source form of a literal value. Floats always
// carry a fraction so that they lex as floats again.
func formatLiteral(v any) string {
	switch x := normalize(v).(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case int64:
		if x < 0 {
			return "(" + strconv.FormatInt(x, 10) + ")"
		}

		return strconv.FormatInt(x, 10)
	case float64:
		s := formatFloat(x)
		if !strings.Contains(s, ".") {
			s += ".0"
		}

		if x < 0 {
			return "(" + s + ")"
		}

		return s
	case string:
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)

		return `"` + r.Replace(x) + `"`
	}

	s, _ := Stringify(v)

	return formatLiteral(s)
}

// nodeList converts nodes to ordered dictionaries for JSON and YAML output.
func nodeList(nodes []Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = nodeMap(n)
	}

	return out
}

func nodeMap(n Node) any {
	if n == nil {
		return nil
	}

	d := NewDict()
	d.Set("line", int64(n.Line()))

	switch n := n.(type) {
	case *Text:
		d.Set("type", "Text")
		d.Set("content", n.Content)

	case *Print:
		d.Set("type", "Print")
		d.Set("expr", nodeMap(n.Expr))

	case *If:
		d.Set("type", "If")

		branches := make([]any, len(n.Branches))

		for i, b := range n.Branches {
			bd := NewDict()
			bd.Set("cond", nodeMap(b.Cond))
			bd.Set("body", nodeList(b.Body))
			branches[i] = bd
		}

		d.Set("branches", branches)

	case *For:
		d.Set("type", "For")

		bindings := make([]any, len(n.Bindings))
		for i, b := range n.Bindings {
			bindings[i] = b
		}

		d.Set("bindings", bindings)
		d.Set("seq", nodeMap(n.Seq))
		d.Set("body", nodeList(n.Body))

	case *Literal:
		d.Set("type", "Literal")
		d.Set("value", n.Value)

	case *ArrayLit:
		d.Set("type", "Array")
		d.Set("entries", entryList(n.Entries))

	case *DictLit:
		d.Set("type", "Dict")
		d.Set("entries", entryList(n.Entries))

	case *Variable:
		d.Set("type", "Variable")
		d.Set("name", n.Name)

	case *UnaryOp:
		d.Set("type", "UnaryOp")
		d.Set("op", n.Op)
		d.Set("operand", nodeMap(n.Operand))

	case *BinaryOp:
		d.Set("type", "BinaryOp")
		d.Set("op", n.Op)
		d.Set("left", nodeMap(n.Left))
		d.Set("right", nodeMap(n.Right))

	case *Assign:
		d.Set("type", "Assign")
		d.Set("target", n.Target.Name)
		d.Set("value", nodeMap(n.Value))

	case *Index:
		d.Set("type", "Index")
		d.Set("base", nodeMap(n.Base))
		d.Set("index", nodeMap(n.Index))

	case *PropertyAccess:
		d.Set("type", "PropertyAccess")
		d.Set("base", nodeMap(n.Base))
		d.Set("name", nodeMap(n.Name))
		d.Set("strict", n.Strict)

	case *MethodCall:
		d.Set("type", "MethodCall")
		d.Set("base", nodeMap(n.Base))
		d.Set("name", nodeMap(n.Name))
		d.Set("args", nodeList(n.Args))
		d.Set("strict", n.Strict)

	case *FilterApply:
		d.Set("type", "Filter")
		d.Set("filter", n.Filter)
		d.Set("value", nodeMap(n.Value))
		d.Set("args", nodeList(n.Args))

	case *TagCall:
		d.Set("type", "Tag")
		d.Set("tag", n.Tag)
		d.Set("args", nodeList(n.Args))

	default:
		d.Set("type", fmt.Sprintf("%T", n))
	}

	return d
}

func entryList(entries []Entry) []any {
	out := make([]any, len(entries))

	for i, e := range entries {
		ed := NewDict()
		if e.Keyed() {
			ed.Set("key", nodeMap(e.Key))
		}

		ed.Set("value", nodeMap(e.Value))
		out[i] = ed
	}

	return out
}
