package expr

import (
	"errors"
	"sync"
	"testing"

	"github.com/lemonberrylabs/nonbool/pkg/types"
)

func TestReplaceCppLine(t *testing.T) {
	vars := types.NewVariableTable(
		types.NewFiniteVariable("A", 0, 1, 2),
		types.NewFiniteVariable("B", 0, 1),
	)

	tests := []struct {
		line string
		want string
	}{
		{"#if (A & 2) > 0", "#if defined(A_eq_2)"},
		{"#if (A == B)", "#if (defined(A_eq_0) && defined(B_eq_0)) || (defined(A_eq_1) && defined(B_eq_1))"},
		{"#elif A == 1", "#elif defined(A_eq_1)"},
		{"#if(A)", "#if !defined(A_eq_0)"},
		{"  #  if X", "  #  if !defined(X_eq_0)"},
		{"#if defined(B) && B", "#if defined(B) && !defined(B_eq_0)"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ReplaceCppLine(tt.line, vars, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplaceCppLineErrors(t *testing.T) {
	tests := []struct {
		line string
		tag  string
	}{
		{"#ifdef A", types.TagDirectiveError},
		{"#ifndef A", types.TagDirectiveError},
		{"#else", types.TagDirectiveError},
		{"int x = 1;", types.TagDirectiveError},
		{"#if A ==", types.TagMissingOperand},
		{"#if", types.TagExpectedOperand},
		{"#if A = 1", types.TagLexError},
		{"#if X + 1", types.TagTypeError},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := ReplaceCppLine(tt.line, nil, nil)
			var ee *types.ExpressionError
			if !errors.As(err, &ee) {
				t.Fatalf("expected ExpressionError, got %v", err)
			}
			if !ee.HasTag(tt.tag) {
				t.Errorf("expected tag %s, got %v", tt.tag, ee.Tags)
			}
		})
	}
}

func TestReplacerEvalErrorCarriesExpression(t *testing.T) {
	r := NewReplacer(nil, nil, nil)
	_, err := r.Convert("  X + 1 == 2 ")
	var ee *types.ExpressionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExpressionError, got %v", err)
	}
	if ee.Expression != "X + 1 == 2" {
		t.Errorf("expected trimmed expression, got %q", ee.Expression)
	}
	if got := ee.Marker(); got != "  ^" {
		t.Errorf("got marker %q", got)
	}
}

func TestReplacerConcurrent(t *testing.T) {
	cache, err := NewCache(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := NewReplacer(types.NewVariableTable(types.NewFiniteVariable("A", 0, 1, 2)), nil, cache)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.ReplaceLine("#if A * 2 == 4")
			if err != nil {
				errs <- err
				return
			}
			if got != "#if defined(A_eq_2)" {
				errs <- errors.New("unexpected result " + got)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestConvertPlainAndFormula(t *testing.T) {
	r := NewReplacer(types.NewVariableTable(types.NewFiniteVariable("A", 0, 1)), nil, nil)
	r.Mode = ModePlain

	s, err := r.ConvertString("A == 1 || Y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "A_eq_1 || !Y_eq_0" {
		t.Errorf("got %q", s)
	}

	f, err := r.ConvertFormula("A == 1 || Y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.String() != s {
		t.Errorf("formula %q differs from %q", f.String(), s)
	}
}
