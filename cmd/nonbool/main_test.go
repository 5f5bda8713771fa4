package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDefine(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		value   int64
		wantErr bool
	}{
		{"A=3", "A", 3, false},
		{"A", "A", 1, false},
		{"MASK=0x10", "MASK", 16, false},
		{"N=-2", "N", -2, false},
		{"=1", "", 0, true},
		{"A=x", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, value, err := parseDefine(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s=%d", name, value)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tt.name || value != tt.value {
				t.Errorf("got %s=%d, want %s=%d", name, value, tt.name, tt.value)
			}
		})
	}
}

func TestExprCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	src := "variables:\n  - name: A\n    values: [0, 1, 2]\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"expr", "--model", path, "-D", "K=2", "(A & 2) > 0", "A == K"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "defined(A_eq_2)\ndefined(A_eq_2)\n"
	if got := out.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !strings.HasPrefix(rootCmd.Version, version) {
		t.Errorf("unexpected version %q", rootCmd.Version)
	}
}
