package lang

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Assoc is the associativity of a binary operator.
type Assoc int

const (
	AssocLeft  Assoc = iota // left
	AssocRight              // right
)

// BinaryOperator defines an infix operator.
type BinaryOperator struct {
	// Eval computes the result from both evaluated operands.
	Eval func(left, right any) (any, error)
	// Short, if set, is consulted after evaluating the left operand. When it
	// returns true the right operand is never evaluated and the returned
	// value is the result.
	Short      func(left any) (any, bool)
	Symbol     string
	Precedence int
	Assoc      Assoc
	// Assign marks the assignment operator. Its left operand must be a
	// bare variable and Eval is not used.
	Assign bool
}

// UnaryOperator defines a prefix operator.
type UnaryOperator struct {
	Eval func(operand any) (any, error)
	// Undefined, if set, supplies the result when the operand is a
	// variable that is not defined, instead of raising a reference error.
	Undefined  func() any
	Symbol     string
	Precedence int
}

// Statement defines a keyword-led statement grammar.
type Statement struct {
	// Parse is called with the keyword token already consumed.
	Parse func(p *Parser, keyword Token) (Node, error)
	// Keyword introduces the statement.
	Keyword string
	// Reserved lists further keywords the grammar uses to delimit its body,
	// such as "else" or "endif".
	Reserved []string
}

// Filter transforms a piped value: value|name(args...).
type Filter func(value any, args ...any) (any, error)

// Tag is a callable invoked by name: name(args...). It may write to the
// output through st.
type Tag func(st *State, args ...any) (any, error)

// Registry holds the operators, statements, filters and tags known to an
// [Engine]. The engine copies the registry on construction, so changes made
// afterward do not affect engines already created.
type Registry struct {
	binary     map[string]BinaryOperator
	unary      map[string]UnaryOperator
	statements map[string]Statement
	filters    map[string]Filter
	tags       map[string]Tag
}

// NewRegistry returns a registry holding the core operators and statements
// along with the builtin filters and tags.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()

	for _, op := range coreBinaryOperators() {
		r.binary[op.Symbol] = op
	}

	for _, op := range coreUnaryOperators() {
		r.unary[op.Symbol] = op
	}

	for _, st := range coreStatements() {
		r.statements[st.Keyword] = st
	}

	maps.Copy(r.filters, builtinFilters())
	maps.Copy(r.tags, builtinTags())

	return r
}

// NewEmptyRegistry returns a registry with nothing registered.
func NewEmptyRegistry() *Registry {
	return &Registry{
		binary:     make(map[string]BinaryOperator),
		unary:      make(map[string]UnaryOperator),
		statements: make(map[string]Statement),
		filters:    make(map[string]Filter),
		tags:       make(map[string]Tag),
	}
}

// RegisterOperator adds or replaces a binary operator.
func (r *Registry) RegisterOperator(op BinaryOperator) error {
	sym, err := canonicalSymbol(op.Symbol)
	if err != nil {
		return err
	}

	op.Symbol = sym

	if op.Precedence <= 0 {
		return ErrRegistry.Wrap(
			fmt.Errorf("operator %q: precedence must be positive", op.Symbol),
		)
	}

	if op.Eval == nil && !op.Assign {
		return ErrRegistry.Wrap(
			fmt.Errorf("operator %q: missing evaluation function", op.Symbol),
		)
	}

	if r.isKeyword(op.Symbol) {
		return ErrRegistry.Wrap(
			fmt.Errorf("operator %q: symbol is a statement keyword", op.Symbol),
		)
	}

	r.binary[op.Symbol] = op

	return nil
}

// RegisterUnary adds or replaces a prefix operator.
func (r *Registry) RegisterUnary(op UnaryOperator) error {
	sym, err := canonicalSymbol(op.Symbol)
	if err != nil {
		return err
	}

	op.Symbol = sym

	if op.Precedence <= 0 || op.Eval == nil {
		return ErrRegistry.Wrap(
			fmt.Errorf("unary operator %q: incomplete definition", op.Symbol),
		)
	}

	if r.isKeyword(op.Symbol) {
		return ErrRegistry.Wrap(
			fmt.Errorf("unary operator %q: symbol is a statement keyword",
				op.Symbol),
		)
	}

	r.unary[op.Symbol] = op

	return nil
}

// RegisterStatement adds or replaces a statement grammar.
func (r *Registry) RegisterStatement(st Statement) error {
	if !isIdentifier(st.Keyword) || st.Parse == nil {
		return ErrRegistry.Wrap(
			fmt.Errorf("statement %q: incomplete definition", st.Keyword),
		)
	}

	for _, kw := range append([]string{st.Keyword}, st.Reserved...) {
		if !isIdentifier(kw) {
			return ErrRegistry.Wrap(
				fmt.Errorf("statement %q: invalid keyword %q", st.Keyword, kw),
			)
		}

		if _, ok := r.binary[kw]; ok {
			return ErrRegistry.Wrap(
				fmt.Errorf("statement %q: keyword %q is an operator",
					st.Keyword, kw),
			)
		}
	}

	r.statements[st.Keyword] = st

	return nil
}

// RegisterFilter adds or replaces a filter.
func (r *Registry) RegisterFilter(name string, f Filter) error {
	if !isIdentifier(name) || f == nil {
		return ErrRegistry.Wrap(fmt.Errorf("filter %q: invalid definition", name))
	}

	r.filters[name] = f

	return nil
}

// RegisterTag adds or replaces a tag.
func (r *Registry) RegisterTag(name string, t Tag) error {
	if !isIdentifier(name) || t == nil {
		return ErrRegistry.Wrap(fmt.Errorf("tag %q: invalid definition", name))
	}

	r.tags[name] = t

	return nil
}

// Operator returns the binary operator registered under symbol.
func (r *Registry) Operator(symbol string) (BinaryOperator, bool) {
	op, ok := r.binary[symbol]

	return op, ok
}

// Unary returns the prefix operator registered under symbol.
func (r *Registry) Unary(symbol string) (UnaryOperator, bool) {
	op, ok := r.unary[symbol]

	return op, ok
}

// Statement returns the statement introduced by keyword.
func (r *Registry) Statement(keyword string) (Statement, bool) {
	st, ok := r.statements[keyword]

	return st, ok
}

// Filter returns the filter registered under name.
func (r *Registry) Filter(name string) (Filter, bool) {
	f, ok := r.filters[name]

	return f, ok
}

// Tag returns the tag registered under name.
func (r *Registry) Tag(name string) (Tag, bool) {
	t, ok := r.tags[name]

	return t, ok
}

// Filters returns the sorted names of all registered filters.
func (r *Registry) Filters() []string { return sortedKeys(r.filters) }

// Tags returns the sorted names of all registered tags.
func (r *Registry) Tags() []string { return sortedKeys(r.tags) }

// Keywords returns the sorted statement keywords, including the reserved
// words of every statement.
func (r *Registry) Keywords() []string {
	var kw []string

	for _, st := range r.statements {
		kw = append(kw, st.Keyword)
		kw = append(kw, st.Reserved...)
	}

	slices.Sort(kw)

	return slices.Compact(kw)
}

// Symbols returns every operator and keyword symbol, longest first.
func (r *Registry) Symbols() []string {
	set := make(map[string]bool)

	for sym := range r.binary {
		set[sym] = true
	}

	for sym := range r.unary {
		set[sym] = true
	}

	for _, kw := range r.Keywords() {
		set[kw] = true
	}

	symbols := slices.Collect(maps.Keys(set))
	sortSymbols(symbols)

	return symbols
}

// Reserved reports whether name lexes as something other than an
// identifier.
func (r *Registry) Reserved(name string) bool {
	_, bin := r.binary[name]
	_, un := r.unary[name]

	return bin || un || r.isKeyword(name)
}

func (r *Registry) isKeyword(name string) bool {
	for _, st := range r.statements {
		if st.Keyword == name || slices.Contains(st.Reserved, name) {
			return true
		}
	}

	return false
}

// Clone returns a deep copy of r.
func (r *Registry) Clone() *Registry {
	return &Registry{
		binary:     maps.Clone(r.binary),
		unary:      maps.Clone(r.unary),
		statements: maps.Clone(r.statements),
		filters:    maps.Clone(r.filters),
		tags:       maps.Clone(r.tags),
	}
}

// canonicalSymbol collapses internal whitespace in sym to single spaces.
func canonicalSymbol(sym string) (string, error) {
	sym = strings.Join(strings.Fields(sym), " ")
	if sym == "" {
		return "", ErrRegistry.Wrap(errors.New("empty operator symbol"))
	}

	if _, ok := punctuation[sym[0]]; ok && len(sym) == 1 {
		return "", ErrRegistry.Wrap(
			fmt.Errorf("operator %q: reserved punctuation", sym),
		)
	}

	return sym, nil
}
