package lang

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ardnew/stencil/log"
)

// State is the evaluation state of a single render: the scope, the output
// writer, and the engine configuration. Tags and host statements receive
// the State to read variables and write output.
type State struct {
	ctx    context.Context
	scope  *Scope
	w      io.Writer
	logger log.Logger
}

// NewState returns a State rendering into w with the given scope.
func NewState(ctx context.Context, scope *Scope, w io.Writer) *State {
	return &State{ctx: ctx, scope: scope, w: w}
}

// Context returns the context of the render.
func (st *State) Context() context.Context { return st.ctx }

// Scope returns the variable scope of the render.
func (st *State) Scope() *Scope { return st.scope }

// Write appends s to the output.
func (st *State) Write(s string) error {
	_, err := io.WriteString(st.w, s)

	return err
}

// Eval evaluates a single node.
func (st *State) Eval(n Node) (any, error) {
	if err := st.ctx.Err(); err != nil {
		return nil, err
	}

	return n.Evaluate(st)
}

// Render evaluates nodes in order, discarding their values.
func (st *State) Render(nodes []Node) error {
	for _, n := range nodes {
		if _, err := st.Eval(n); err != nil {
			return err
		}
	}

	return nil
}

// renderFrame renders nodes inside a new scope frame that is removed when
// rendering ends, successfully or not.
func (st *State) renderFrame(nodes []Node) error {
	pop := st.scope.Push()
	defer pop()

	return st.Render(nodes)
}

// evalArgs evaluates argument nodes left to right.
func (st *State) evalArgs(args []Node) ([]any, error) {
	vals := make([]any, len(args))

	for i, a := range args {
		v, err := st.Eval(a)
		if err != nil {
			return nil, err
		}

		vals[i] = v
	}

	return vals, nil
}

// Evaluate writes the text.
func (n *Text) Evaluate(st *State) (any, error) {
	return nil, st.Write(n.Content)
}

// Evaluate writes the string form of the expression.
func (n *Print) Evaluate(st *State) (any, error) {
	v, err := st.Eval(n.Expr)
	if err != nil {
		return nil, err
	}

	// An assignment has no printable value.
	if _, ok := n.Expr.(*Assign); ok {
		return nil, nil
	}

	s, err := Stringify(v)
	if err != nil {
		return nil, atLine(err, n.Line())
	}

	return nil, st.Write(s)
}

// Evaluate renders the first branch whose condition is true.
func (n *If) Evaluate(st *State) (any, error) {
	for _, b := range n.Branches {
		if b.Cond != nil {
			v, err := st.Eval(b.Cond)
			if err != nil {
				return nil, err
			}

			if !Truthy(v) {
				continue
			}
		}

		return nil, st.renderFrame(b.Body)
	}

	return nil, nil
}

// Evaluate renders the body once per element. One frame holds the bindings
// and loop metadata for the whole loop.
func (n *For) Evaluate(st *State) (any, error) {
	v, err := st.Eval(n.Seq)
	if err != nil {
		return nil, err
	}

	seq, length, ok := iterate(v)
	if !ok {
		return nil, ErrType.At(n.Line()).Wrap(
			fmt.Errorf("%s is not iterable", TypeName(v)),
		)
	}

	pop := st.scope.Push()
	defer pop()

	st.logger.TraceContext(st.ctx, "enter loop",
		slog.Int("line", n.Line()),
		slog.Int("length", length))

	i := 0

	for key, val := range seq {
		if err = st.ctx.Err(); err != nil {
			break
		}

		if len(n.Bindings) == 2 {
			st.scope.Define(n.Bindings[0], key)
			st.scope.Define(n.Bindings[1], val)
		} else {
			st.scope.Define(n.Bindings[0], val)
		}

		st.scope.Define(LoopName, &Loop{
			Index0:   int64(i),
			Index1:   int64(i + 1),
			Length:   int64(length),
			Revindex: int64(length - i - 1),
			IsFirst:  i == 0,
			IsLast:   i == length-1,
		})

		if err = st.Render(n.Body); err != nil {
			break
		}

		i++
	}

	return nil, err
}

// Evaluate returns the literal value.
func (n *Literal) Evaluate(*State) (any, error) { return n.Value, nil }

// Evaluate builds a []any, or a [Dict] when any entry is keyed.
func (n *ArrayLit) Evaluate(st *State) (any, error) {
	keyed := false

	for _, e := range n.Entries {
		if e.Keyed() {
			keyed = true

			break
		}
	}

	if keyed {
		return evalEntries(st, n.Entries, n.Line())
	}

	out := make([]any, len(n.Entries))

	for i, e := range n.Entries {
		v, err := st.Eval(e.Value)
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

// Evaluate builds a [Dict].
func (n *DictLit) Evaluate(st *State) (any, error) {
	return evalEntries(st, n.Entries, n.Line())
}

func evalEntries(st *State, entries []Entry, line int) (*Dict, error) {
	d := NewDict()

	for _, e := range entries {
		var key any

		if e.Keyed() {
			k, err := st.Eval(e.Key)
			if err != nil {
				return nil, err
			}

			if !isScalar(k) {
				return nil, ErrType.At(line).Wrap(
					fmt.Errorf("%s cannot be used as a key", TypeName(k)),
				)
			}

			key = k
		} else {
			key = d.nextIndex()
		}

		v, err := st.Eval(e.Value)
		if err != nil {
			return nil, err
		}

		d.Set(key, v)
	}

	return d, nil
}

// Evaluate looks the name up in scope.
func (n *Variable) Evaluate(st *State) (any, error) {
	if v, ok := st.scope.Lookup(n.Name); ok {
		return v, nil
	}

	return nil, ErrReference.At(n.Line()).
		With(slog.String("name", n.Name)).
		Wrap(fmt.Errorf("%q is not defined", n.Name))
}

// Evaluate applies the prefix operator.
func (n *UnaryOp) Evaluate(st *State) (any, error) {
	if n.op.Undefined != nil {
		if v, ok := n.Operand.(*Variable); ok {
			if _, defined := st.scope.Lookup(v.Name); !defined {
				return n.op.Undefined(), nil
			}
		}
	}

	v, err := st.Eval(n.Operand)
	if err != nil {
		return nil, err
	}

	res, err := n.op.Eval(v)

	return res, atLine(err, n.Line())
}

// Evaluate applies the infix operator. When the operator short-circuits on
// the left operand the right operand is not evaluated.
func (n *BinaryOp) Evaluate(st *State) (any, error) {
	l, err := st.Eval(n.Left)
	if err != nil {
		return nil, err
	}

	if n.op.Short != nil {
		if res, done := n.op.Short(l); done {
			return res, nil
		}
	}

	r, err := st.Eval(n.Right)
	if err != nil {
		return nil, err
	}

	res, err := n.op.Eval(l, r)

	return res, atLine(err, n.Line())
}

// Evaluate stores the value in scope and yields it, so that a chain such as
// a = b = 2 binds both names.
func (n *Assign) Evaluate(st *State) (any, error) {
	v, err := st.Eval(n.Value)
	if err != nil {
		return nil, err
	}

	st.scope.Set(n.Target.Name, v)

	return v, nil
}

// Evaluate reads base[index].
func (n *Index) Evaluate(st *State) (any, error) {
	base, err := st.Eval(n.Base)
	if err != nil {
		return nil, err
	}

	index, err := st.Eval(n.Index)
	if err != nil {
		return nil, err
	}

	v, err := lookupIndex(base, index)

	return v, atLine(err, n.Line())
}

// Evaluate reads the named member. A missing member is null unless the
// node is strict.
func (n *PropertyAccess) Evaluate(st *State) (any, error) {
	base, name, err := evalMember(st, n.Base, n.Name, n.Line())
	if err != nil {
		return nil, err
	}

	v, found, err := getProperty(base, name)
	if err != nil {
		return nil, atLine(err, n.Line())
	}

	if !found {
		return nil, missingMember(n.Strict, base, name, "property", n.Line())
	}

	return v, nil
}

// Evaluate calls the named method. A missing method yields null unless the
// node is strict.
func (n *MethodCall) Evaluate(st *State) (any, error) {
	base, name, err := evalMember(st, n.Base, n.Name, n.Line())
	if err != nil {
		return nil, err
	}

	m, found, err := getMethod(base, name)
	if err != nil {
		return nil, atLine(err, n.Line())
	}

	if !found {
		return nil, missingMember(n.Strict, base, name, "method", n.Line())
	}

	args, err := st.evalArgs(n.Args)
	if err != nil {
		return nil, err
	}

	v, err := m(args...)

	return v, atLine(err, n.Line())
}

func evalMember(st *State, baseNode, nameNode Node, line int) (any, string, error) {
	base, err := st.Eval(baseNode)
	if err != nil {
		return nil, "", err
	}

	nv, err := st.Eval(nameNode)
	if err != nil {
		return nil, "", err
	}

	name, ok := nv.(string)
	if !ok {
		return nil, "", ErrType.At(line).Wrap(
			fmt.Errorf("member name must be a string, not %s", TypeName(nv)),
		)
	}

	return base, name, nil
}

func missingMember(strict bool, base any, name, kind string, line int) error {
	if !strict {
		return nil
	}

	return ErrAttribute.At(line).
		With(slog.String("member", name)).
		Wrap(fmt.Errorf("%s has no %s %q", TypeName(base), kind, name))
}

// Evaluate pipes the value through the filter. Errors raised by the filter
// are returned as is, except that an [Error] without a line gets this one.
func (n *FilterApply) Evaluate(st *State) (any, error) {
	v, err := st.Eval(n.Value)
	if err != nil {
		return nil, err
	}

	args, err := st.evalArgs(n.Args)
	if err != nil {
		return nil, err
	}

	res, err := n.fn(v, args...)

	return res, atLine(err, n.Line())
}

// Evaluate invokes the tag. Errors raised by the tag are returned as is,
// except that an [Error] without a line gets this one.
func (n *TagCall) Evaluate(st *State) (any, error) {
	args, err := st.evalArgs(n.Args)
	if err != nil {
		return nil, err
	}

	res, err := n.fn(st, args...)

	return res, atLine(err, n.Line())
}
