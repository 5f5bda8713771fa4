package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/nonbool/pkg/types"
)

// Parser turns the tokens of one condition into an expression tree. It works
// in passes over a nested list skeleton built from the brackets:
//
//  1. bracket folding
//  2. literal recognition
//  3. function-call folding
//  4. unary +/- disambiguation
//  5. precedence resolution
type Parser struct {
	input  string
	tokens []Token
}

// Parse parses a complete condition expression (without the #if/#elif prefix).
func Parse(input string) (Node, error) {
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{input: input, tokens: tokens}
	return p.parse()
}

func (p *Parser) parse() (Node, error) {
	root, err := p.foldBrackets()
	if err != nil {
		return nil, err
	}
	if err := p.recognizeLiterals(root); err != nil {
		return nil, err
	}
	if err := p.foldCalls(root); err != nil {
		return nil, err
	}
	disambiguateUnary(root)
	return p.resolveList(root)
}

func (p *Parser) errorf(kind string, positions []int, format string, args ...interface{}) error {
	return types.NewParseError(kind, p.input, fmt.Sprintf(format, args...), positions...)
}

// foldBrackets builds the list skeleton: every bracket pair becomes a nested
// ListNode, every other token a leaf.
func (p *Parser) foldBrackets() (*ListNode, error) {
	root := &ListNode{Pos: 0}
	stack := []*ListNode{root}

	for _, tok := range p.tokens {
		top := stack[len(stack)-1]
		switch tok.Type {
		case TokenLParen:
			l := &ListNode{Pos: tok.Pos}
			top.Elements = append(top.Elements, l)
			stack = append(stack, l)
		case TokenRParen:
			if len(stack) == 1 {
				return nil, p.errorf(types.TagUnbalancedBrackets, []int{tok.Pos}, "unexpected closing bracket")
			}
			stack = stack[:len(stack)-1]
		case TokenIdent:
			top.Elements = append(top.Elements, &VariableNode{Name: tok.Value, Pos: tok.Pos})
		case TokenOperator:
			top.Elements = append(top.Elements, &operatorLeaf{Op: tok.Op, Pos: tok.Pos})
		}
	}

	if len(stack) != 1 {
		return nil, p.errorf(types.TagUnbalancedBrackets, []int{stack[len(stack)-1].Pos}, "unclosed bracket")
	}
	return root, nil
}

// recognizeLiterals replaces identifiers starting with a digit by integer literals.
func (p *Parser) recognizeLiterals(list *ListNode) error {
	for i, e := range list.Elements {
		switch n := e.(type) {
		case *ListNode:
			if err := p.recognizeLiterals(n); err != nil {
				return err
			}
		case *VariableNode:
			if n.Name[0] < '0' || n.Name[0] > '9' {
				continue
			}
			v, ok := parseLiteral(n.Name)
			if !ok {
				return p.errorf(types.TagInvalidLiteral, []int{n.Pos}, "invalid integer literal %q", n.Name)
			}
			list.Elements[i] = &IntegerNode{Value: v, Pos: n.Pos}
		}
	}
	return nil
}

// parseLiteral parses a decimal or 0x-prefixed hexadecimal literal with an
// optional l/ul suffix. Hexadecimal literals are limited to the 32-bit signed
// range.
func parseLiteral(text string) (int64, bool) {
	s := strings.ToLower(text)
	if strings.HasSuffix(s, "ul") {
		s = s[:len(s)-2]
	} else if strings.HasSuffix(s, "l") {
		s = s[:len(s)-1]
	}

	if strings.HasPrefix(s, "0x") {
		v, err := strconv.ParseInt(s[2:], 16, 64)
		if err != nil || v > math.MaxInt32 {
			return 0, false
		}
		return v, true
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// foldCalls turns an identifier followed by a bracket group into a CallNode.
// "defined NAME" without brackets is folded the same way.
func (p *Parser) foldCalls(list *ListNode) error {
	folded := make([]Node, 0, len(list.Elements))
	for i := 0; i < len(list.Elements); i++ {
		e := list.Elements[i]

		if sub, ok := e.(*ListNode); ok {
			if err := p.foldCalls(sub); err != nil {
				return err
			}
			folded = append(folded, sub)
			continue
		}

		v, ok := e.(*VariableNode)
		if !ok || i+1 >= len(list.Elements) {
			folded = append(folded, e)
			continue
		}

		switch next := list.Elements[i+1].(type) {
		case *ListNode:
			if err := p.foldCalls(next); err != nil {
				return err
			}
			call := &CallNode{Name: v.Name, Pos: v.Pos}
			switch len(next.Elements) {
			case 0:
			case 1:
				call.Argument = next.Elements[0]
			default:
				return p.errorf(types.TagTooManyArguments, []int{v.Pos, next.Pos},
					"function %s called with more than one argument", v.Name)
			}
			folded = append(folded, call)
			i++
		case *VariableNode:
			if v.Name != "defined" {
				folded = append(folded, e)
				continue
			}
			folded = append(folded, &CallNode{Name: v.Name, Argument: next, Pos: v.Pos})
			i++
		default:
			folded = append(folded, e)
		}
	}
	list.Elements = folded
	return nil
}

// disambiguateUnary marks + and - as unary when they start a list or follow
// another operator.
func disambiguateUnary(n Node) {
	switch n := n.(type) {
	case *ListNode:
		for i, e := range n.Elements {
			disambiguateUnary(e)
			leaf, ok := e.(*operatorLeaf)
			if !ok || (leaf.Op != OpIntAdd && leaf.Op != OpIntSub) {
				continue
			}
			if i > 0 {
				if _, prevIsOp := n.Elements[i-1].(*operatorLeaf); !prevIsOp {
					continue
				}
			}
			if leaf.Op == OpIntAdd {
				leaf.Op = OpIntAddUnary
			} else {
				leaf.Op = OpIntSubUnary
			}
		}
	case *CallNode:
		if n.Argument != nil {
			disambiguateUnary(n.Argument)
		}
	}
}

// resolveNode resolves a single element of a list.
func (p *Parser) resolveNode(n Node) (Node, error) {
	switch n := n.(type) {
	case *ListNode:
		return p.resolveList(n)
	case *CallNode:
		if n.Argument == nil {
			return n, nil
		}
		arg, err := p.resolveNode(n.Argument)
		if err != nil {
			return nil, err
		}
		return &CallNode{Name: n.Name, Argument: arg, Pos: n.Pos}, nil
	case *operatorLeaf:
		return nil, p.errorf(types.TagMissingOperand, []int{n.Pos}, "operator %s without operands", n.Op.Symbol())
	default:
		return n, nil
	}
}

// resolveList splits a list at its weakest operator. Of several operators
// with the same lowest precedence the leftmost wins, so chains of equal
// precedence nest to the right: A - B + C is INT_SUB(A, INT_ADD(B, C)).
func (p *Parser) resolveList(list *ListNode) (Node, error) {
	switch len(list.Elements) {
	case 0:
		return nil, p.errorf(types.TagExpectedOperand, []int{list.Pos}, "expected operand")
	case 1:
		return p.resolveNode(list.Elements[0])
	}

	split := -1
	var op *operatorLeaf
	for i, e := range list.Elements {
		leaf, ok := e.(*operatorLeaf)
		if !ok {
			continue
		}
		if op == nil || leaf.Op.Precedence() < op.Op.Precedence() {
			split, op = i, leaf
		}
	}
	if op == nil {
		return nil, p.errorf(types.TagNoOperatorFound, []int{list.Elements[1].Position()},
			"no operator between operands")
	}

	if op.Op.IsUnary() {
		last := len(list.Elements) - 1
		postfix := (op.Op == OpIntInc || op.Op == OpIntDec) && split == last
		if split != 0 && !postfix {
			return nil, p.errorf(types.TagBadUnaryPlacement, []int{op.Pos},
				"unary operator %s must precede its operand", op.Op.Symbol())
		}
		rest := make([]Node, 0, last)
		rest = append(rest, list.Elements[:split]...)
		rest = append(rest, list.Elements[split+1:]...)
		operand, err := p.resolveList(subList(rest, op.Pos))
		if err != nil {
			return nil, err
		}
		return &OperatorNode{Op: op.Op, Left: operand, Pos: op.Pos}, nil
	}

	leftElems, rightElems := list.Elements[:split], list.Elements[split+1:]
	if len(leftElems) == 0 || len(rightElems) == 0 {
		return nil, p.errorf(types.TagMissingOperand, []int{op.Pos},
			"operator %s is missing an operand", op.Op.Symbol())
	}
	left, err := p.resolveList(subList(leftElems, op.Pos))
	if err != nil {
		return nil, err
	}
	right, err := p.resolveList(subList(rightElems, op.Pos))
	if err != nil {
		return nil, err
	}
	return &OperatorNode{Op: op.Op, Left: left, Right: right, Pos: op.Pos}, nil
}

func subList(elems []Node, fallbackPos int) *ListNode {
	pos := fallbackPos
	if len(elems) > 0 {
		pos = elems[0].Position()
	}
	return &ListNode{Elements: elems, Pos: pos}
}
