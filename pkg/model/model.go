// Package model loads variability models: the domains of the configuration
// variables and the named constants a conversion is run against.
package model

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/lemonberrylabs/nonbool/pkg/types"
	"gopkg.in/yaml.v3"
)

// MaxSourceSize is the maximum model source size in bytes (8 MB).
const MaxSourceSize = 8 * 1024 * 1024

// ParseError represents an error encountered while reading a model.
type ParseError struct {
	Message  string
	Location string // e.g., "variable 'A' (line 4)"
}

func (e *ParseError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("model error at %s: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("model error: %s", e.Message)
}

// Variable is the model entry of one configuration variable.
type Variable struct {
	Name     string  `yaml:"name" json:"name"`
	Values   []int64 `yaml:"values,omitempty,flow" json:"values,omitempty"`
	Infinite bool    `yaml:"infinite,omitempty" json:"infinite,omitempty"`
}

// Model is a variability model.
type Model struct {
	Variables []Variable       `yaml:"variables" json:"variables"`
	Constants map[string]int64 `yaml:"constants,omitempty" json:"constants,omitempty"`
}

// Load reads a YAML or JSON model from path.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse parses a YAML or JSON model. Finite domains are sorted and
// de-duplicated.
func Parse(source []byte) (*Model, error) {
	if len(source) > MaxSourceSize {
		return nil, &ParseError{Message: fmt.Sprintf("model source size %d exceeds maximum %d bytes", len(source), MaxSourceSize)}
	}

	var raw yaml.Node
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if raw.Kind != yaml.DocumentNode || len(raw.Content) == 0 {
		return &Model{}, nil
	}

	root := raw.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "model must be a mapping", Location: lineLocation(root)}
	}

	m := &Model{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		val := root.Content[i+1]

		switch key.Value {
		case "variables":
			vars, err := parseVariables(val)
			if err != nil {
				return nil, err
			}
			m.Variables = vars
		case "constants":
			consts, err := parseConstants(val)
			if err != nil {
				return nil, err
			}
			m.Constants = consts
		default:
			return nil, &ParseError{
				Message:  fmt.Sprintf("unknown key '%s'", key.Value),
				Location: lineLocation(key),
			}
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseVariables(node *yaml.Node) ([]Variable, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, &ParseError{Message: "'variables' must be a list", Location: lineLocation(node)}
	}

	vars := make([]Variable, 0, len(node.Content))
	for _, item := range node.Content {
		var v Variable
		if err := item.Decode(&v); err != nil {
			return nil, &ParseError{Message: err.Error(), Location: lineLocation(item)}
		}
		if v.Name == "" {
			return nil, &ParseError{Message: "variable without a name", Location: lineLocation(item)}
		}
		if v.Infinite && len(v.Values) > 0 {
			return nil, &ParseError{
				Message:  "'values' and 'infinite' are mutually exclusive",
				Location: fmt.Sprintf("variable '%s' (%s)", v.Name, lineLocation(item)),
			}
		}
		if !v.Infinite && len(v.Values) == 0 {
			return nil, &ParseError{
				Message:  "finite variable needs at least one value",
				Location: fmt.Sprintf("variable '%s' (%s)", v.Name, lineLocation(item)),
			}
		}
		if !v.Infinite {
			v.Values = types.NewFiniteVariable(v.Name, v.Values...).Values
		}
		vars = append(vars, v)
	}
	return vars, nil
}

func parseConstants(node *yaml.Node) (map[string]int64, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "'constants' must be a mapping", Location: lineLocation(node)}
	}

	consts := make(map[string]int64, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var v int64
		if err := node.Content[i+1].Decode(&v); err != nil {
			return nil, &ParseError{
				Message:  fmt.Sprintf("constant value must be an integer: %v", err),
				Location: fmt.Sprintf("constant '%s' (%s)", name, lineLocation(node.Content[i])),
			}
		}
		consts[name] = v
	}
	return consts, nil
}

func lineLocation(n *yaml.Node) string {
	return "line " + strconv.Itoa(n.Line)
}

// Validate checks that variable names are unique and non-empty.
func (m *Model) Validate() error {
	seen := make(map[string]bool, len(m.Variables))
	for _, v := range m.Variables {
		if v.Name == "" {
			return &ParseError{Message: "variable without a name"}
		}
		if seen[v.Name] {
			return &ParseError{Message: "duplicate variable", Location: fmt.Sprintf("variable '%s'", v.Name)}
		}
		seen[v.Name] = true
	}
	return nil
}

// VariableTable returns the domains as a lookup table for the evaluator.
func (m *Model) VariableTable() types.VariableTable {
	t := make(types.VariableTable, len(m.Variables))
	for _, v := range m.Variables {
		if v.Infinite {
			t[v.Name] = types.NewInfiniteVariable(v.Name)
		} else {
			t[v.Name] = types.NewFiniteVariable(v.Name, v.Values...)
		}
	}
	return t
}

// ConstantTable returns the constants as a lookup table for the evaluator.
func (m *Model) ConstantTable() types.ConstantTable {
	t := make(types.ConstantTable, len(m.Constants))
	for name, v := range m.Constants {
		t[name] = v
	}
	return t
}

// Marshal renders the model as YAML with variables sorted by name.
func (m *Model) Marshal() ([]byte, error) {
	out := Model{Variables: append([]Variable(nil), m.Variables...), Constants: m.Constants}
	sort.Slice(out.Variables, func(i, j int) bool { return out.Variables[i].Name < out.Variables[j].Name })
	return yaml.Marshal(&out)
}

// Save writes the model as YAML to path.
func (m *Model) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
