package expr

import (
	"strings"

	"github.com/lemonberrylabs/nonbool/pkg/formula"
)

// ToCppString renders a result as a preprocessor condition in which every
// presence flag is wrapped in defined(...).
func ToCppString(r Result) string {
	return render(r, ModeCpp)
}

// ToPlainString renders a result as a plain boolean expression over bare
// flag names.
func ToPlainString(r Result) string {
	return render(r, ModePlain)
}

// ToString renders r in the given mode.
func ToString(r Result, mode Mode) string {
	return render(r, mode)
}

func render(r Result, mode Mode) string {
	switch r := r.(type) {
	case *LiteralBool:
		return cBool(r.Value)
	case *LiteralInt:
		return cBool(r.Value != 0)
	case *Symbol:
		if r.State == SymbolUnknown {
			return "!" + flag(r.Name+"_eq_0", mode)
		}
		return flag(r.Name, mode)
	case *FiniteValues:
		return renderTruthy(r, mode)
	case *BoolAnd:
		return operand(r.Left, mode) + " && " + operand(r.Right, mode)
	case *BoolOr:
		return operand(r.Left, mode) + " || " + operand(r.Right, mode)
	case *BoolNot:
		return "!(" + render(r.Inner, mode) + ")"
	default:
		return "0"
	}
}

// operand renders r as the operand of a connective.
func operand(r Result, mode Mode) string {
	s := render(r, mode)
	if isJunction(r) {
		return "(" + s + ")"
	}
	return s
}

func isJunction(r Result) bool {
	switch r.(type) {
	case *BoolAnd, *BoolOr:
		return true
	}
	return false
}

func flag(name string, mode Mode) string {
	if mode == ModeCpp {
		return "defined(" + name + ")"
	}
	return name
}

func cBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// renderTruthy renders "current != 0" for a finite value as the
// parenthesized conjunction of its negated zero rows. A single-variable row
// is negated without parentheses, e.g. !defined(A_eq_0).
func renderTruthy(r *FiniteValues, mode Mode) string {
	t := r.truthy()
	var terms []string
	for _, term := range conjuncts(t) {
		if not, ok := term.(*BoolNot); ok {
			terms = append(terms, "!"+operand(not.Inner, mode))
		} else {
			terms = append(terms, render(term, mode))
		}
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return "(" + strings.Join(terms, " && ") + ")"
}

// conjuncts flattens a left-nested BoolAnd chain.
func conjuncts(r Result) []Result {
	if and, ok := r.(*BoolAnd); ok {
		return append(conjuncts(and.Left), and.Right)
	}
	return []Result{r}
}

// truthy returns the boolean meaning of a finite value used as a condition:
// "current != 0". Each row whose current value is zero is excluded.
func (r *FiniteValues) truthy() Result {
	var zero []Row
	for _, row := range r.Rows {
		if row.Current == 0 {
			zero = append(zero, row)
		}
	}
	switch {
	case len(zero) == 0:
		return True
	case len(zero) == len(r.Rows):
		return False
	}

	var out Result
	for _, row := range zero {
		term := &BoolNot{Inner: r.rowCondition(row)}
		if out == nil {
			out = term
		} else {
			out = &BoolAnd{Left: out, Right: term}
		}
	}
	return out
}

// ToFormula converts a result into a logic formula with the same case
// mapping as ToPlainString.
func ToFormula(r Result) formula.Formula {
	switch r := r.(type) {
	case *LiteralBool:
		return formula.Const(r.Value)
	case *LiteralInt:
		return formula.Const(r.Value != 0)
	case *Symbol:
		if r.State == SymbolUnknown {
			return &formula.Not{Inner: &formula.Variable{Name: r.Name + "_eq_0"}}
		}
		return &formula.Variable{Name: r.Name}
	case *FiniteValues:
		return ToFormula(r.truthy())
	case *BoolAnd:
		return &formula.And{Left: ToFormula(r.Left), Right: ToFormula(r.Right)}
	case *BoolOr:
		return &formula.Or{Left: ToFormula(r.Left), Right: ToFormula(r.Right)}
	case *BoolNot:
		return &formula.Not{Inner: ToFormula(r.Inner)}
	default:
		return formula.False
	}
}
