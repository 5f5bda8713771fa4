// Package types holds the data shared between the expression core and its
// collaborators: variable domains, constants and the tagged error type.
package types

import (
	"fmt"
	"sort"
)

// Variable describes the domain of one configuration variable. A variable is
// either finite (Values lists every value it may take, sorted ascending) or
// infinite (known to exist, domain unbounded).
type Variable struct {
	Name     string
	Values   []int64
	Infinite bool
}

// NewFiniteVariable creates a finite variable. Values are sorted and
// de-duplicated.
func NewFiniteVariable(name string, values ...int64) *Variable {
	return &Variable{Name: name, Values: normalizeValues(values)}
}

// NewInfiniteVariable creates a variable with an unbounded domain.
func NewInfiniteVariable(name string) *Variable {
	return &Variable{Name: name, Infinite: true}
}

// Contains reports whether v may take value x. Infinite variables contain
// every value.
func (v *Variable) Contains(x int64) bool {
	if v.Infinite {
		return true
	}
	i := sort.Search(len(v.Values), func(i int) bool { return v.Values[i] >= x })
	return i < len(v.Values) && v.Values[i] == x
}

// String returns a debug-friendly representation of the domain.
func (v *Variable) String() string {
	if v.Infinite {
		return v.Name + " = <infinite>"
	}
	return fmt.Sprintf("%s = %v", v.Name, v.Values)
}

// VariableTable maps variable names to their domains. It is treated as a
// read-only snapshot by the evaluator.
type VariableTable map[string]*Variable

// NewVariableTable builds a table from the given variables. Later entries
// replace earlier ones with the same name.
func NewVariableTable(vars ...*Variable) VariableTable {
	t := make(VariableTable, len(vars))
	for _, v := range vars {
		t[v.Name] = v
	}
	return t
}

// Lookup returns the domain of name, if known.
func (t VariableTable) Lookup(name string) (*Variable, bool) {
	v, ok := t[name]
	return v, ok
}

// Names returns the variable names in sorted order.
func (t VariableTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConstantTable maps constant names to their values. Constants are resolved
// before variables.
type ConstantTable map[string]int64

// Lookup returns the value of constant name, if known.
func (t ConstantTable) Lookup(name string) (int64, bool) {
	v, ok := t[name]
	return v, ok
}

func normalizeValues(values []int64) []int64 {
	out := append([]int64(nil), values...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, v := range out {
		if i > 0 && v == out[n-1] {
			continue
		}
		out[n] = v
		n++
	}
	return out[:n]
}
