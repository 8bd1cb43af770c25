package lang

// Node is an element of a parsed template.
//
// Nodes are immutable once the parser returns them. Evaluate renders the
// node in the given state and returns its value; statements that only
// write output return nil.
type Node interface {
	Line() int
	Evaluate(st *State) (any, error)
}

// Pos records the 1-based source line of a node.
type Pos int

// Line returns the source line.
func (p Pos) Line() int { return int(p) }

// Text is literal template text outside of any tag.
type Text struct {
	Content string
	Pos
}

// Print writes the string form of an expression.
type Print struct {
	Expr Node
	Pos
}

// Branch is one arm of an [If] statement. Cond is nil for the else arm.
type Branch struct {
	Cond Node
	Body []Node
}

// If renders the body of the first branch whose condition holds.
type If struct {
	Branches []Branch
	Pos
}

// For renders its body once per element of a sequence.
//
// Bindings holds one name (the value) or two names (the key, then the
// value).
type For struct {
	Seq      Node
	Bindings []string
	Body     []Node
	Pos
}

// Literal is a scalar constant: int64, float64, bool, string, or nil.
type Literal struct {
	Value any
	Pos
}

// Entry is an element of an array or dictionary literal. Key is nil for a
// positional entry.
type Entry struct {
	Key   Node
	Value Node
}

// Keyed reports whether the entry has an explicit key.
func (e Entry) Keyed() bool { return e.Key != nil }

// ArrayLit is an array literal: [a, b, c]. When any entry is keyed the
// literal evaluates to a [Dict] and positional entries receive the next
// free integer key.
type ArrayLit struct {
	Entries []Entry
	Pos
}

// DictLit is a dictionary literal: {k: v, ...}.
type DictLit struct {
	Entries []Entry
	Pos
}

// Variable is a reference to a name in scope.
type Variable struct {
	Name string
	Pos
}

// UnaryOp applies a prefix operator.
type UnaryOp struct {
	Operand Node
	Op      string
	op      UnaryOperator
	Pos
}

// BinaryOp applies an infix operator.
type BinaryOp struct {
	Left  Node
	Right Node
	Op    string
	op    BinaryOperator
	Pos
}

// Assign stores a value in scope. Printing an assignment writes nothing.
type Assign struct {
	Target *Variable
	Value  Node
	Pos
}

// Index reads an element of an array or dictionary: base[index].
type Index struct {
	Base  Node
	Index Node
	Pos
}

// PropertyAccess reads a public member of an object: base.name.
type PropertyAccess struct {
	Base   Node
	Name   Node
	Pos
	Strict bool
}

// MethodCall invokes a public method of an object: base.name(args...).
type MethodCall struct {
	Base   Node
	Name   Node
	Args   []Node
	Pos
	Strict bool
}

// FilterApply pipes a value through a registered filter:
// value|name(args...).
type FilterApply struct {
	Value  Node
	fn     Filter
	Filter string
	Args   []Node
	Pos
}

// TagCall invokes a registered tag: name(args...).
type TagCall struct {
	fn   Tag
	Tag  string
	Args []Node
	Pos
}

// NewUnaryOp returns a UnaryOp bound to op.
func NewUnaryOp(line int, op UnaryOperator, operand Node) *UnaryOp {
	return &UnaryOp{Pos: Pos(line), Op: op.Symbol, op: op, Operand: operand}
}

// NewBinaryOp returns a BinaryOp bound to op.
func NewBinaryOp(line int, op BinaryOperator, left, right Node) *BinaryOp {
	return &BinaryOp{
		Pos:   Pos(line),
		Op:    op.Symbol,
		op:    op,
		Left:  left,
		Right: right,
	}
}

// NewFilterApply returns a FilterApply bound to fn.
func NewFilterApply(
	line int,
	name string,
	fn Filter,
	value Node,
	args ...Node,
) *FilterApply {
	return &FilterApply{
		Pos:    Pos(line),
		Filter: name,
		fn:     fn,
		Value:  value,
		Args:   args,
	}
}

// NewTagCall returns a TagCall bound to fn.
func NewTagCall(line int, name string, fn Tag, args ...Node) *TagCall {
	return &TagCall{Pos: Pos(line), Tag: name, fn: fn, Args: args}
}
