package formula

import (
	"reflect"
	"testing"
)

func TestFormulaString(t *testing.T) {
	a, b, c := &Variable{Name: "a"}, &Variable{Name: "b"}, &Variable{Name: "c"}

	tests := []struct {
		f    Formula
		want string
	}{
		{True, "1"},
		{False, "0"},
		{&Not{Inner: a}, "!a"},
		{&And{Left: a, Right: b}, "a && b"},
		{&Or{Left: &And{Left: a, Right: b}, Right: c}, "(a && b) || c"},
		{&Not{Inner: &Or{Left: a, Right: b}}, "!(a || b)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.f.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormulaEval(t *testing.T) {
	a, b := &Variable{Name: "a"}, &Variable{Name: "b"}
	f := &Or{Left: &And{Left: a, Right: &Not{Inner: b}}, Right: False}

	tests := []struct {
		assignment map[string]bool
		want       bool
	}{
		{map[string]bool{"a": true}, true},
		{map[string]bool{"a": true, "b": true}, false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := f.Eval(tt.assignment); got != tt.want {
			t.Errorf("Eval(%v) = %v, want %v", tt.assignment, got, tt.want)
		}
	}
}

func TestVariables(t *testing.T) {
	f := &And{
		Left:  &Or{Left: &Variable{Name: "b"}, Right: &Not{Inner: &Variable{Name: "a"}}},
		Right: &Or{Left: &Variable{Name: "b"}, Right: True},
	}
	want := []string{"a", "b"}
	if got := Variables(f); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := Variables(Const(true)); len(got) != 0 {
		t.Errorf("expected no variables, got %v", got)
	}
}
