// Package formula provides a small propositional logic tree used to hand
// converted conditions to a boolean engine without going through text.
package formula

import "sort"

// Formula is a propositional formula.
type Formula interface {
	// String renders the formula in C boolean syntax.
	String() string
	// Eval evaluates the formula; variables missing from assignment are false.
	Eval(assignment map[string]bool) bool
	isFormula()
}

// Constant is true or false. Use True and False.
type Constant struct{ Value bool }

// True and False are the constant formulas.
var (
	True  = &Constant{Value: true}
	False = &Constant{Value: false}
)

// Const returns True or False.
func Const(b bool) *Constant {
	if b {
		return True
	}
	return False
}

func (*Constant) isFormula() {}

func (c *Constant) Eval(map[string]bool) bool { return c.Value }

func (c *Constant) String() string {
	if c.Value {
		return "1"
	}
	return "0"
}

// Variable is a boolean variable.
type Variable struct{ Name string }

func (*Variable) isFormula() {}

func (v *Variable) Eval(a map[string]bool) bool { return a[v.Name] }

func (v *Variable) String() string { return v.Name }

// Not negates its operand.
type Not struct{ Inner Formula }

func (*Not) isFormula() {}

func (n *Not) Eval(a map[string]bool) bool { return !n.Inner.Eval(a) }

func (n *Not) String() string { return "!" + operand(n.Inner) }

// And is a conjunction.
type And struct{ Left, Right Formula }

func (*And) isFormula() {}

func (n *And) Eval(a map[string]bool) bool { return n.Left.Eval(a) && n.Right.Eval(a) }

func (n *And) String() string { return operand(n.Left) + " && " + operand(n.Right) }

// Or is a disjunction.
type Or struct{ Left, Right Formula }

func (*Or) isFormula() {}

func (n *Or) Eval(a map[string]bool) bool { return n.Left.Eval(a) || n.Right.Eval(a) }

func (n *Or) String() string { return operand(n.Left) + " || " + operand(n.Right) }

func operand(f Formula) string {
	switch f.(type) {
	case *And, *Or:
		return "(" + f.String() + ")"
	}
	return f.String()
}

// Variables returns the sorted names of all variables in f.
func Variables(f Formula) []string {
	seen := make(map[string]bool)
	collect(f, seen)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collect(f Formula, seen map[string]bool) {
	switch f := f.(type) {
	case *Variable:
		seen[f.Name] = true
	case *Not:
		collect(f.Inner, seen)
	case *And:
		collect(f.Left, seen)
		collect(f.Right, seen)
	case *Or:
		collect(f.Left, seen)
		collect(f.Right, seen)
	}
}
