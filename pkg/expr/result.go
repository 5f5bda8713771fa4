package expr

import (
	"strconv"
	"strings"
)

// Result is the typed value the evaluator computes for every node. The set
// of implementations is closed:
//
//	*LiteralInt, *LiteralBool, *FiniteValues, *Symbol, *BoolAnd, *BoolOr, *BoolNot
type Result interface {
	// Kind names the variant for error messages, e.g. "LiteralInt".
	Kind() string
	String() string
	isResult()
}

// LiteralInt is a fully known integer.
type LiteralInt struct {
	Value int64
}

func (*LiteralInt) isResult()        {}
func (*LiteralInt) Kind() string     { return "LiteralInt" }
func (r *LiteralInt) String() string { return strconv.FormatInt(r.Value, 10) }

// LiteralBool is a fully known boolean. Use True and False.
type LiteralBool struct {
	Value bool
}

// True and False are the only LiteralBool values.
var (
	True  = &LiteralBool{Value: true}
	False = &LiteralBool{Value: false}
)

func boolResult(b bool) *LiteralBool {
	if b {
		return True
	}
	return False
}

func (*LiteralBool) isResult()    {}
func (*LiteralBool) Kind() string { return "LiteralBool" }

func (r *LiteralBool) String() string {
	if r.Value {
		return "true"
	}
	return "false"
}

// Row is one feasible assignment of the tracked variables of a FiniteValues.
// Original holds the value of each tracked variable, Current the value of the
// whole arithmetic expression under that assignment.
type Row struct {
	Original []int64
	Current  int64
}

// FiniteValues tracks one or more finite-domain variables through arithmetic.
// It is immutable: every operation returns a new value.
type FiniteValues struct {
	Vars []string
	Rows []Row
}

// NewFiniteValues seeds a FiniteValues with one row per domain value.
func NewFiniteValues(name string, values []int64) *FiniteValues {
	rows := make([]Row, len(values))
	for i, v := range values {
		rows[i] = Row{Original: []int64{v}, Current: v}
	}
	return &FiniteValues{Vars: []string{name}, Rows: rows}
}

func (*FiniteValues) isResult()    {}
func (*FiniteValues) Kind() string { return "FiniteValues" }

func (r *FiniteValues) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(r.Vars, ","))
	sb.WriteString("{")
	for i, row := range r.Rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		for j, o := range row.Original {
			if j > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(strconv.FormatInt(o, 10))
		}
		sb.WriteString("->")
		sb.WriteString(strconv.FormatInt(row.Current, 10))
	}
	sb.WriteString("}")
	return sb.String()
}

// rowCondition is the boolean meaning "the tracked variables have the values
// of row": the conjunction of VAR_eq_VALUE for every variable.
func (r *FiniteValues) rowCondition(row Row) Result {
	var cond Result
	for i, name := range r.Vars {
		sym := finalSymbol(name + "_eq_" + strconv.FormatInt(row.Original[i], 10))
		if cond == nil {
			cond = sym
		} else {
			cond = &BoolAnd{Left: cond, Right: sym}
		}
	}
	return cond
}

// apply keeps the rows whose current value satisfies pred and returns the
// disjunction of their row conditions, or False if no row survives.
func (r *FiniteValues) apply(pred func(current int64) bool) Result {
	var out Result
	for _, row := range r.Rows {
		if !pred(row.Current) {
			continue
		}
		cond := r.rowCondition(row)
		if out == nil {
			out = cond
		} else {
			out = &BoolOr{Left: out, Right: cond}
		}
	}
	if out == nil {
		return False
	}
	return out
}

// SymbolState describes how much is known about a Symbol.
type SymbolState int

const (
	// SymbolUnknown is an integer variable without a known domain.
	SymbolUnknown SymbolState = iota
	// SymbolInfinite is a variable known to exist with an unbounded domain.
	SymbolInfinite
	// SymbolFinal is a finished boolean condition; nothing may be applied to it.
	SymbolFinal
)

// String returns the state name.
func (s SymbolState) String() string {
	switch s {
	case SymbolUnknown:
		return "Unknown"
	case SymbolInfinite:
		return "Infinite"
	case SymbolFinal:
		return "Final"
	default:
		return "Invalid"
	}
}

// Symbol is a named condition that could not be enumerated.
type Symbol struct {
	Name  string
	State SymbolState
}

func finalSymbol(name string) *Symbol {
	return &Symbol{Name: name, State: SymbolFinal}
}

func (*Symbol) isResult() {}

func (r *Symbol) Kind() string { return "Symbol(" + r.State.String() + ")" }

func (r *Symbol) String() string { return r.Name + ":" + r.State.String() }

// BoolAnd is the conjunction of two results.
type BoolAnd struct {
	Left, Right Result
}

func (*BoolAnd) isResult()        {}
func (*BoolAnd) Kind() string     { return "BoolAnd" }
func (r *BoolAnd) String() string { return "AND(" + r.Left.String() + ", " + r.Right.String() + ")" }

// BoolOr is the disjunction of two results.
type BoolOr struct {
	Left, Right Result
}

func (*BoolOr) isResult()        {}
func (*BoolOr) Kind() string     { return "BoolOr" }
func (r *BoolOr) String() string { return "OR(" + r.Left.String() + ", " + r.Right.String() + ")" }

// BoolNot is the negation of a result.
type BoolNot struct {
	Inner Result
}

func (*BoolNot) isResult()        {}
func (*BoolNot) Kind() string     { return "BoolNot" }
func (r *BoolNot) String() string { return "NOT(" + r.Inner.String() + ")" }
