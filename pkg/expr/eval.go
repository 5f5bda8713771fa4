package expr

import (
	"fmt"

	"github.com/lemonberrylabs/nonbool/pkg/types"
)

// Mode selects the dialect of the condition.
type Mode int

const (
	// ModeCpp accepts defined(NAME) and renders presence flags as defined(...).
	ModeCpp Mode = iota
	// ModePlain rejects function calls and renders presence flags as bare names.
	ModePlain
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModePlain {
		return "plain"
	}
	return "cpp"
}

// ParseMode converts "cpp" or "plain" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "cpp":
		return ModeCpp, nil
	case "plain":
		return ModePlain, nil
	default:
		return ModeCpp, fmt.Errorf("unknown mode %q (want cpp or plain)", s)
	}
}

// Evaluator evaluates expression trees against a variable and a constant
// table. It holds no mutable state and may be shared between goroutines as
// long as the tables are not modified.
type Evaluator struct {
	Mode      Mode
	Variables types.VariableTable
	Constants types.ConstantTable
}

// Evaluate evaluates node against vars and consts in the given mode.
func Evaluate(node Node, vars types.VariableTable, consts types.ConstantTable, mode Mode) (Result, error) {
	e := &Evaluator{Mode: mode, Variables: vars, Constants: consts}
	return e.Eval(node)
}

// Eval evaluates an expression node.
func (e *Evaluator) Eval(node Node) (Result, error) {
	switch n := node.(type) {
	case *IntegerNode:
		return &LiteralInt{Value: n.Value}, nil
	case *VariableNode:
		return e.evalVariable(n), nil
	case *CallNode:
		return e.evalCall(n)
	case *OperatorNode:
		return e.evalOperator(n)
	default:
		return nil, fmt.Errorf("unsupported expression node type: %T", node)
	}
}

func (e *Evaluator) evalVariable(n *VariableNode) Result {
	if v, ok := e.Constants.Lookup(n.Name); ok {
		return &LiteralInt{Value: v}
	}
	v, ok := e.Variables.Lookup(n.Name)
	if !ok {
		return &Symbol{Name: n.Name, State: SymbolUnknown}
	}
	if v.Infinite {
		return &Symbol{Name: n.Name, State: SymbolInfinite}
	}
	return NewFiniteValues(n.Name, v.Values)
}

func (e *Evaluator) evalCall(n *CallNode) (Result, error) {
	if e.Mode != ModeCpp {
		return nil, types.NewUnsupportedFunctionError(
			fmt.Sprintf("function %s is not allowed in plain mode", n.Name), n.Pos)
	}
	arg, ok := n.Argument.(*VariableNode)
	if n.Name != "defined" || !ok {
		return nil, types.NewUnsupportedFunctionError(
			fmt.Sprintf("unsupported function call %s", n), n.Pos)
	}
	return finalSymbol(arg.Name), nil
}

func (e *Evaluator) evalOperator(n *OperatorNode) (Result, error) {
	switch n.Op {
	case OpIntInc, OpIntDec, OpBinShl, OpBinShr:
		return nil, types.NewUnsupportedOperatorError(
			fmt.Sprintf("operator %s is not supported", n.Op.Symbol()), n.Pos)
	}

	left, err := e.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	if n.Op.IsUnary() {
		return e.evalUnary(n, left)
	}
	right, err := e.Eval(n.Right)
	if err != nil {
		return nil, err
	}

	var res Result
	switch n.Op {
	case OpBoolAnd:
		return &BoolAnd{Left: left, Right: right}, nil
	case OpBoolOr:
		return &BoolOr{Left: left, Right: right}, nil

	case OpCmpEq:
		res, err = compare(relEq, left, right)
	case OpCmpNe:
		res, err = compare(relEq, left, right)
		if err == nil {
			res = &BoolNot{Inner: res}
		}
	case OpCmpLt:
		res, err = compare(relLt, left, right)
	case OpCmpLe:
		res, err = compare(relLe, left, right)
	case OpCmpGt:
		res, err = compareSwapped(relLt, left, right)
	case OpCmpGe:
		res, err = compareSwapped(relLe, left, right)

	case OpIntAdd:
		res, err = arith(opAdd, left, right)
	case OpIntSub:
		res, err = arith(opSub, left, right)
	case OpIntMul:
		res, err = arith(opMul, left, right)
	case OpIntDiv:
		res, err = arith(opDiv, left, right)
	case OpIntMod:
		res, err = arith(opMod, left, right)
	case OpBinAnd:
		res, err = arith(opBinAnd, left, right)
	case OpBinOr:
		res, err = arith(opBinOr, left, right)
	case OpBinXor:
		res, err = arith(opBinXor, left, right)

	default:
		return nil, types.NewUnsupportedOperatorError(
			fmt.Sprintf("operator %s is not supported", n.Op.Symbol()), n.Pos)
	}
	return res, withPosition(err, n.Pos)
}

func (e *Evaluator) evalUnary(n *OperatorNode, operand Result) (Result, error) {
	var res Result
	var err error
	switch n.Op {
	case OpBoolNot:
		return &BoolNot{Inner: operand}, nil
	case OpIntSubUnary:
		res, err = unary(opNeg, operand)
	case OpIntAddUnary:
		res, err = unary(opPlus, operand)
	case OpBinInv:
		res, err = unary(opBinInv, operand)
	default:
		return nil, types.NewUnsupportedOperatorError(
			fmt.Sprintf("operator %s is not supported", n.Op.Symbol()), n.Pos)
	}
	return res, withPosition(err, n.Pos)
}

// withPosition attaches the operator position to errors raised by typed
// operations, which do not know where in the source they were applied.
func withPosition(err error, pos int) error {
	if err == nil {
		return nil
	}
	if ee, ok := err.(*types.ExpressionError); ok && len(ee.Positions) == 0 {
		c := *ee
		c.Positions = []int{pos}
		return &c
	}
	return err
}
