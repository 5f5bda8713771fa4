package expr

import (
	"strconv"
	"strings"
)

// Node is the interface for all expression AST nodes.
type Node interface {
	nodeType() string
	// Position returns the offset of the node's first character in the source.
	Position() int
	// String renders the node as a tree, e.g. "INT_SUB(A, INT_ADD(B, C))".
	String() string
}

// ListNode is a bracketed group of nodes. It only exists while parsing; the
// tree returned by Parse never contains one.
type ListNode struct {
	Elements []Node
	Pos      int
}

func (n *ListNode) nodeType() string { return "List" }
func (n *ListNode) Position() int    { return n.Pos }

func (n *ListNode) String() string {
	parts := make([]string, len(n.Elements))
	for i, e := range n.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// VariableNode represents an identifier.
type VariableNode struct {
	Name string
	Pos  int
}

func (n *VariableNode) nodeType() string { return "Variable" }
func (n *VariableNode) Position() int    { return n.Pos }
func (n *VariableNode) String() string   { return n.Name }

// IntegerNode represents an integer literal.
type IntegerNode struct {
	Value int64
	Pos   int
}

func (n *IntegerNode) nodeType() string { return "Integer" }
func (n *IntegerNode) Position() int    { return n.Pos }
func (n *IntegerNode) String() string   { return strconv.FormatInt(n.Value, 10) }

// CallNode represents a function call such as defined(X). Argument is nil
// for an empty argument list.
type CallNode struct {
	Name     string
	Argument Node
	Pos      int
}

func (n *CallNode) nodeType() string { return "Call" }
func (n *CallNode) Position() int    { return n.Pos }

func (n *CallNode) String() string {
	if n.Argument == nil {
		return n.Name + "()"
	}
	return n.Name + "(" + n.Argument.String() + ")"
}

// OperatorNode represents an operator application. Unary operators keep their
// operand in Left and leave Right nil.
type OperatorNode struct {
	Op    Operator
	Left  Node
	Right Node
	Pos   int
}

func (n *OperatorNode) nodeType() string { return "Operator" }
func (n *OperatorNode) Position() int    { return n.Pos }

func (n *OperatorNode) String() string {
	if n.Right == nil {
		return n.Op.String() + "(" + n.Left.String() + ")"
	}
	return n.Op.String() + "(" + n.Left.String() + ", " + n.Right.String() + ")"
}

// operatorLeaf is an operator token that has not been resolved into an
// OperatorNode yet.
type operatorLeaf struct {
	Op  Operator
	Pos int
}

func (n *operatorLeaf) nodeType() string { return "OperatorLeaf" }
func (n *operatorLeaf) Position() int    { return n.Pos }
func (n *operatorLeaf) String() string   { return n.Op.Symbol() }
