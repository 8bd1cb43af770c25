package lang

import (
	"fmt"
	"math"
)

// Operator precedence levels, lowest first.
const (
	PrecAssign = iota + 1
	PrecOr
	PrecAnd
	PrecEquality
	PrecRelational
	PrecAdditive
	PrecMultiplicative
	PrecUnary
)

func coreBinaryOperators() []BinaryOperator {
	or := BinaryOperator{
		Precedence: PrecOr,
		Short: func(l any) (any, bool) {
			if Truthy(l) {
				return true, true
			}

			return nil, false
		},
		Eval: func(_, r any) (any, error) { return Truthy(r), nil },
	}

	and := BinaryOperator{
		Precedence: PrecAnd,
		Short: func(l any) (any, bool) {
			if !Truthy(l) {
				return false, true
			}

			return nil, false
		},
		Eval: func(_, r any) (any, error) { return Truthy(r), nil },
	}

	ops := []BinaryOperator{
		{Symbol: "=", Precedence: PrecAssign, Assoc: AssocRight, Assign: true},
		{Symbol: "==", Precedence: PrecEquality, Eval: opEqual},
		{Symbol: "!=", Precedence: PrecEquality, Eval: opNotEqual},
		{Symbol: "<", Precedence: PrecRelational, Eval: ordering(func(c int) bool { return c < 0 })},
		{Symbol: "<=", Precedence: PrecRelational, Eval: ordering(func(c int) bool { return c <= 0 })},
		{Symbol: ">", Precedence: PrecRelational, Eval: ordering(func(c int) bool { return c > 0 })},
		{Symbol: ">=", Precedence: PrecRelational, Eval: ordering(func(c int) bool { return c >= 0 })},
		{Symbol: "in", Precedence: PrecRelational, Eval: opIn},
		{Symbol: "not in", Precedence: PrecRelational, Eval: opNotIn},
		{Symbol: "+", Precedence: PrecAdditive, Eval: opAdd},
		{Symbol: "-", Precedence: PrecAdditive, Eval: arithmetic("-", opSub)},
		{Symbol: "~", Precedence: PrecAdditive, Eval: opConcat},
		{Symbol: "*", Precedence: PrecMultiplicative, Eval: arithmetic("*", opMul)},
		{Symbol: "/", Precedence: PrecMultiplicative, Eval: arithmetic("/", opDiv)},
		{Symbol: "%", Precedence: PrecMultiplicative, Eval: arithmetic("%", opMod)},
	}

	for _, sym := range []string{"or", "||"} {
		or.Symbol = sym
		ops = append(ops, or)
	}

	for _, sym := range []string{"and", "&&"} {
		and.Symbol = sym
		ops = append(ops, and)
	}

	return ops
}

func coreUnaryOperators() []UnaryOperator {
	not := func(v any) (any, error) { return !Truthy(v), nil }

	return []UnaryOperator{
		{Symbol: "-", Precedence: PrecUnary, Eval: opNegate},
		{Symbol: "+", Precedence: PrecUnary, Eval: opPlus},
		{Symbol: "not", Precedence: PrecUnary, Eval: not},
		{Symbol: "!", Precedence: PrecUnary, Eval: not},
		{
			Symbol:     "typeof",
			Precedence: PrecUnary,
			Eval:       func(v any) (any, error) { return TypeName(v), nil },
			Undefined:  func() any { return "undefined" },
		},
	}
}

func opEqual(l, r any) (any, error)    { return LooseEqual(l, r), nil }
func opNotEqual(l, r any) (any, error) { return !LooseEqual(l, r), nil }

func ordering(test func(int) bool) func(l, r any) (any, error) {
	return func(l, r any) (any, error) {
		c, err := Compare(l, r)
		if err != nil {
			return nil, err
		}

		return test(c), nil
	}
}

func opIn(l, r any) (any, error) { return Contains(r, l) }

func opNotIn(l, r any) (any, error) {
	found, err := Contains(r, l)

	return !found, err
}

// opAdd concatenates when either operand is a string and adds otherwise.
// Integer results that overflow an int64 are computed as floats.
func opAdd(l, r any) (any, error) {
	_, ls := normalize(l).(string)
	_, rs := normalize(r).(string)

	if ls || rs {
		return opConcat(l, r)
	}

	return arithmetic("+", func(a, b any) (any, error) {
		if ai, ok := a.(int64); ok {
			if bi, ok := b.(int64); ok {
				if s := ai + bi; (ai^s)&(bi^s) >= 0 {
					return s, nil
				}
			}
		}

		return toFloat(a) + toFloat(b), nil
	})(l, r)
}

func opConcat(l, r any) (any, error) {
	ls, err := Stringify(l)
	if err != nil {
		return nil, err
	}

	rs, err := Stringify(r)
	if err != nil {
		return nil, err
	}

	return ls + rs, nil
}

// arithmetic coerces both operands to numbers before calling fn.
func arithmetic(sym string, fn func(a, b any) (any, error)) func(l, r any) (any, error) {
	return func(l, r any) (any, error) {
		a, aok := number(l, true)
		b, bok := number(r, true)

		if !aok || !bok {
			return nil, ErrType.Wrap(
				fmt.Errorf("unsupported operand types for %s: %s and %s",
					sym, TypeName(l), TypeName(r)),
			)
		}

		return fn(a, b)
	}
}

func opSub(a, b any) (any, error) {
	if ai, ok := a.(int64); ok {
		if bi, ok := b.(int64); ok {
			if d := ai - bi; (ai^bi)&(ai^d) >= 0 {
				return d, nil
			}
		}
	}

	return toFloat(a) - toFloat(b), nil
}

func opMul(a, b any) (any, error) {
	if ai, ok := a.(int64); ok {
		if bi, ok := b.(int64); ok {
			if p, ok := mulInt(ai, bi); ok {
				return p, nil
			}
		}
	}

	return toFloat(a) * toFloat(b), nil
}

// mulInt returns a*b and reports whether the product fits in an int64.
func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}

	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}

	return p, true
}

// opDiv yields an integer when both operands are integers and divide evenly.
func opDiv(a, b any) (any, error) {
	if toFloat(b) == 0 {
		return nil, ErrType.Wrap(fmt.Errorf("division by zero"))
	}

	if ai, ok := a.(int64); ok {
		if bi, ok := b.(int64); ok && ai%bi == 0 && (ai != math.MinInt64 || bi != -1) {
			return ai / bi, nil
		}
	}

	return toFloat(a) / toFloat(b), nil
}

// opMod truncates both operands to integers.
func opMod(a, b any) (any, error) {
	ai, bi := truncate(a), truncate(b)
	if bi == 0 {
		return nil, ErrType.Wrap(fmt.Errorf("modulo by zero"))
	}

	return ai % bi, nil
}

func truncate(n any) int64 {
	switch x := n.(type) {
	case int64:
		return x
	case float64:
		return int64(math.Trunc(x))
	}

	return 0
}

func opNegate(v any) (any, error) {
	n, ok := number(v, false)
	if !ok {
		return nil, ErrType.Wrap(
			fmt.Errorf("bad operand type for unary -: %s", TypeName(v)),
		)
	}

	if i, ok := n.(int64); ok && i != math.MinInt64 {
		return -i, nil
	}

	return -toFloat(n), nil
}

func opPlus(v any) (any, error) {
	n, ok := number(v, false)
	if !ok {
		return nil, ErrType.Wrap(
			fmt.Errorf("bad operand type for unary +: %s", TypeName(v)),
		)
	}

	return n, nil
}
