package expr

import (
	"fmt"
	"strconv"

	"github.com/lemonberrylabs/nonbool/pkg/types"
)

// maxRows caps the number of rows a join of finite variables may produce.
const maxRows = 1 << 16

// relation is a comparison the evaluator performs natively. Greater-than
// comparisons are evaluated as swapped less-than comparisons, and != as the
// negation of ==.
type relation int

const (
	relEq relation = iota
	relLt
	relLe
	relGt
	relGe
)

var relationNames = [...]string{relEq: "eq", relLt: "lt", relLe: "le", relGt: "gt", relGe: "ge"}

func (r relation) String() string { return relationNames[r] }

func (r relation) test(a, b int64) bool {
	switch r {
	case relEq:
		return a == b
	case relLt:
		return a < b
	case relLe:
		return a <= b
	case relGt:
		return a > b
	default:
		return a >= b
	}
}

// swap returns the relation with its operands exchanged: a < b is b > a.
func (r relation) swap() relation {
	switch r {
	case relLt:
		return relGt
	case relLe:
		return relGe
	case relGt:
		return relLt
	case relGe:
		return relLe
	default:
		return r
	}
}

// alias names the condition "left <rel> right", e.g. "A_gt_5".
func alias(left string, rel relation, right string) *Symbol {
	return finalSymbol(left + "_" + rel.String() + "_" + right)
}

func typeError(op string, r Result) error {
	return types.NewTypeError(fmt.Sprintf("cannot apply %s to %s", op, r.Kind()))
}

func typeError2(op string, l, r Result) error {
	return types.NewTypeError(fmt.Sprintf("cannot apply %s to %s and %s", op, l.Kind(), r.Kind()))
}

// compare evaluates "l <rel> r" and returns a boolean result.
func compare(rel relation, l, r Result) (Result, error) {
	op := "cmp_" + rel.String()

	switch l := l.(type) {
	case *LiteralInt:
		switch r := r.(type) {
		case *LiteralInt:
			return boolResult(rel.test(l.Value, r.Value)), nil
		case *FiniteValues:
			return r.apply(func(cur int64) bool { return rel.test(l.Value, cur) }), nil
		case *Symbol:
			if r.State == SymbolUnknown {
				return alias(r.Name, rel.swap(), strconv.FormatInt(l.Value, 10)), nil
			}
		}

	case *FiniteValues:
		switch r := r.(type) {
		case *LiteralInt:
			return l.apply(func(cur int64) bool { return rel.test(cur, r.Value) }), nil
		case *FiniteValues:
			joined, err := join(l, r, maxRows, func(a, b int64) (int64, error) {
				if rel.test(a, b) {
					return 1, nil
				}
				return 0, nil
			})
			if err != nil {
				return nil, err
			}
			return joined.apply(func(cur int64) bool { return cur != 0 }), nil
		case *Symbol:
			if r.State != SymbolFinal && len(l.Vars) == 1 {
				return alias(l.Vars[0], rel, r.Name), nil
			}
		}

	case *Symbol:
		if l.State == SymbolFinal {
			break
		}
		switch r := r.(type) {
		case *LiteralInt:
			if l.State == SymbolInfinite {
				return l, nil
			}
			return alias(l.Name, rel, strconv.FormatInt(r.Value, 10)), nil
		case *FiniteValues:
			if len(r.Vars) == 1 {
				return alias(r.Vars[0], rel.swap(), l.Name), nil
			}
		case *Symbol:
			if r.State != SymbolFinal {
				return alias(l.Name, rel, r.Name), nil
			}
		}
	}

	return nil, typeError2(op, l, r)
}

// compareSwapped evaluates a greater-than comparison "l > r" as "r < l" for
// rel relLt, or "l >= r" as "r <= l" for relLe. An infinite left operand
// stays the receiver.
func compareSwapped(rel relation, l, r Result) (Result, error) {
	if s, ok := l.(*Symbol); ok && s.State == SymbolInfinite {
		return compare(rel.swap(), l, r)
	}
	return compare(rel, r, l)
}

// arithOp is a binary integer operation.
type arithOp struct {
	name string
	fn   func(a, b int64) (int64, error)
}

var (
	opAdd    = arithOp{"add", func(a, b int64) (int64, error) { return a + b, nil }}
	opSub    = arithOp{"sub", func(a, b int64) (int64, error) { return a - b, nil }}
	opMul    = arithOp{"mul", func(a, b int64) (int64, error) { return a * b, nil }}
	opDiv    = arithOp{"div", checkedDiv}
	opMod    = arithOp{"mod", checkedMod}
	opBinAnd = arithOp{"bin_and", func(a, b int64) (int64, error) { return a & b, nil }}
	opBinOr  = arithOp{"bin_or", func(a, b int64) (int64, error) { return a | b, nil }}
	opBinXor = arithOp{"bin_xor", func(a, b int64) (int64, error) { return a ^ b, nil }}
)

func checkedDiv(a, b int64) (int64, error) {
	if b == 0 {
		return 0, types.NewZeroDivisionError()
	}
	return a / b, nil
}

func checkedMod(a, b int64) (int64, error) {
	if b == 0 {
		return 0, types.NewZeroDivisionError()
	}
	return a % b, nil
}

// isNumeric reports whether arithmetic may be applied to r.
func isNumeric(r Result) bool {
	switch r := r.(type) {
	case *LiteralInt, *FiniteValues:
		return true
	case *Symbol:
		return r.State == SymbolInfinite
	}
	return false
}

// arith evaluates "l <op> r".
func arith(op arithOp, l, r Result) (Result, error) {
	switch l := l.(type) {
	case *LiteralInt:
		switch r := r.(type) {
		case *LiteralInt:
			v, err := op.fn(l.Value, r.Value)
			if err != nil {
				return nil, err
			}
			return &LiteralInt{Value: v}, nil
		case *FiniteValues:
			return r.mapCurrent(func(cur int64) (int64, error) { return op.fn(l.Value, cur) })
		}

	case *FiniteValues:
		switch r := r.(type) {
		case *LiteralInt:
			return l.mapCurrent(func(cur int64) (int64, error) { return op.fn(cur, r.Value) })
		case *FiniteValues:
			return join(l, r, maxRows, op.fn)
		}

	case *Symbol:
		if l.State == SymbolInfinite && isNumeric(r) {
			return l, nil
		}
	}

	return nil, typeError2(op.name, l, r)
}

// unaryOp is a unary integer operation.
type unaryOp struct {
	name string
	fn   func(a int64) int64
}

var (
	opNeg    = unaryOp{"neg", func(a int64) int64 { return -a }}
	opPlus   = unaryOp{"plus", func(a int64) int64 { return a }}
	opBinInv = unaryOp{"bin_inv", func(a int64) int64 { return ^a }}
)

// unary evaluates "<op> x".
func unary(op unaryOp, x Result) (Result, error) {
	switch x := x.(type) {
	case *LiteralInt:
		return &LiteralInt{Value: op.fn(x.Value)}, nil
	case *FiniteValues:
		return x.mapCurrent(func(cur int64) (int64, error) { return op.fn(cur), nil })
	case *Symbol:
		if x.State == SymbolInfinite {
			return x, nil
		}
	}
	return nil, typeError(op.name, x)
}

// mapCurrent returns a copy of r with fn applied to every current value.
func (r *FiniteValues) mapCurrent(fn func(cur int64) (int64, error)) (*FiniteValues, error) {
	rows := make([]Row, len(r.Rows))
	for i, row := range r.Rows {
		v, err := fn(row.Current)
		if err != nil {
			return nil, err
		}
		rows[i] = Row{Original: row.Original, Current: v}
	}
	return &FiniteValues{Vars: r.Vars, Rows: rows}, nil
}

// join combines every row of l with every row of r, computing the new
// current value with fn. The result tracks the variables of l followed by
// those of r, even when a name appears on both sides.
func join(l, r *FiniteValues, limit int, fn func(a, b int64) (int64, error)) (*FiniteValues, error) {
	vars := make([]string, 0, len(l.Vars)+len(r.Vars))
	vars = append(vars, l.Vars...)
	vars = append(vars, r.Vars...)

	rows := make([]Row, 0, min(len(l.Rows)*len(r.Rows), limit))
	for _, lr := range l.Rows {
		for _, rr := range r.Rows {
			if len(rows) >= limit {
				return nil, types.NewResourceLimitError(
					fmt.Sprintf("joining %v and %v exceeds %d rows", l.Vars, r.Vars, limit))
			}
			cur, err := fn(lr.Current, rr.Current)
			if err != nil {
				return nil, err
			}
			orig := make([]int64, 0, len(vars))
			orig = append(orig, lr.Original...)
			orig = append(orig, rr.Original...)
			rows = append(rows, Row{Original: orig, Current: cur})
		}
	}
	return &FiniteValues{Vars: vars, Rows: rows}, nil
}
