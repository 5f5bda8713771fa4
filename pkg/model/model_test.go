package model

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/lemonberrylabs/nonbool/pkg/types"
)

func TestParse(t *testing.T) {
	src := `
variables:
  - name: A
    values: [2, 0, 1, 2]
  - name: SIZE
    infinite: true
constants:
  MAX: 10
`
	m, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Variables) != 2 {
		t.Fatalf("expected 2 variables, got %d", len(m.Variables))
	}
	if want := []int64{0, 1, 2}; !reflect.DeepEqual(m.Variables[0].Values, want) {
		t.Errorf("got %v, want %v", m.Variables[0].Values, want)
	}

	vars := m.VariableTable()
	if v, ok := vars.Lookup("SIZE"); !ok || !v.Infinite {
		t.Errorf("expected infinite SIZE, got %v", v)
	}
	if v, ok := m.ConstantTable().Lookup("MAX"); !ok || v != 10 {
		t.Errorf("expected MAX=10, got %d", v)
	}
}

func TestParseJSON(t *testing.T) {
	src := `{"variables": [{"name": "B", "values": [1]}], "constants": {"K": -3}}`
	m, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Variables[0].Name != "B" || m.Constants["K"] != -3 {
		t.Errorf("unexpected model %+v", m)
	}
}

func TestParseEmpty(t *testing.T) {
	m, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Variables) != 0 {
		t.Errorf("expected empty model, got %+v", m)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"not a mapping", "- a\n- b\n", "model must be a mapping"},
		{"unknown key", "vars: []\n", "unknown key 'vars'"},
		{"variables not a list", "variables: {}\n", "'variables' must be a list"},
		{"missing name", "variables:\n  - values: [1]\n", "variable without a name"},
		{"no values", "variables:\n  - name: A\n", "finite variable needs at least one value"},
		{"both kinds", "variables:\n  - name: A\n    values: [1]\n    infinite: true\n", "mutually exclusive"},
		{"duplicate", "variables:\n  - name: A\n    values: [1]\n  - name: A\n    infinite: true\n", "duplicate variable"},
		{"bad constant", "constants:\n  K: abc\n", "constant value must be an integer"},
		{"invalid yaml", "variables: [\n", "invalid YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if !strings.Contains(pe.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", pe.Error(), tt.want)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := &Model{
		Variables: []Variable{
			{Name: "Z", Infinite: true},
			{Name: "A", Values: []int64{0, 4}},
		},
		Constants: map[string]int64{"K": 1},
	}
	path := filepath.Join(t.TempDir(), "model.yaml")
	if err := m.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Variables[0].Name != "A" || got.Variables[1].Name != "Z" {
		t.Errorf("expected variables sorted by name, got %+v", got.Variables)
	}
	if !got.Variables[1].Infinite || got.Constants["K"] != 1 {
		t.Errorf("unexpected model %+v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestInferrer(t *testing.T) {
	in := NewInferrer(types.ConstantTable{"MAX": 4})
	lines := []string{
		"#if A == 1 && 2 < B",
		"#elif A >= 0x10 || defined(C)",
		"#if D1 == 3 && MAX > SIZE",
		"#ifdef E",
		"int x = F == 7;",
		"#if G != -2",
	}
	for _, l := range lines {
		in.ScanLine(l)
	}

	m := in.Model()
	got := make(map[string][]int64)
	for _, v := range m.Variables {
		got[v.Name] = v.Values
	}
	want := map[string][]int64{
		"A":  {0, 1, 16},
		"B":  {0, 2},
		"D1": {0, 3},
		"G":  {-2, 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if m.Constants["MAX"] != 4 {
		t.Errorf("expected constants to be carried, got %v", m.Constants)
	}
}

func TestInferContinuation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.h")
	src := "#if A == 1 && \\\n    B == 2\n#endif\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Infer([]string{path}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Variables) != 2 || m.Variables[1].Name != "B" {
		t.Errorf("unexpected model %+v", m.Variables)
	}
}
