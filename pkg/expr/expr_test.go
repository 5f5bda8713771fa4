package expr

import (
	"errors"
	"testing"

	"github.com/lemonberrylabs/nonbool/pkg/types"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"A && B", []string{"A", "&&", "B"}},
		{"defined(A)||!B", []string{"defined", "(", "A", ")", "||", "!", "B"}},
		{"A++ - --B", []string{"A", "++", "-", "--", "B"}},
		{"A<=B>>2", []string{"A", "<=", "B", ">>", "2"}},
		{"0x1Ful+CONFIG_X", []string{"0x1Ful", "+", "CONFIG_X"}},
		{"~A^B|C&D", []string{"~", "A", "^", "B", "|", "C", "&", "D"}},
		{"  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := NewLexer(tt.input).Tokenize()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(tokens) != len(tt.want) {
				t.Fatalf("expected %d tokens, got %d: %v", len(tt.want), len(tokens), tokens)
			}
			for i, tok := range tokens {
				if tok.Value != tt.want[i] {
					t.Errorf("token %d: expected %q, got %q", i, tt.want[i], tok.Value)
				}
			}
		})
	}
}

func TestTokenPositions(t *testing.T) {
	tokens, err := NewLexer("  A ==  12").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []struct {
		typ      TokenType
		pos, len int
	}{
		{TokenIdent, 2, 1},
		{TokenOperator, 4, 2},
		{TokenIdent, 8, 2},
	}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(tokens))
	}
	for i, w := range want {
		if tokens[i].Type != w.typ || tokens[i].Pos != w.pos || tokens[i].Len != w.len {
			t.Errorf("token %d: expected %s@%d+%d, got %s@%d+%d",
				i, w.typ, w.pos, w.len, tokens[i].Type, tokens[i].Pos, tokens[i].Len)
		}
	}
	if tokens[1].Op != OpCmpEq {
		t.Errorf("expected CMP_EQ, got %s", tokens[1].Op)
	}
}

func TestTokenizeInvalidCharacter(t *testing.T) {
	tests := []struct {
		input string
		pos   int
	}{
		{"A = B", 2},
		{"A # B", 2},
		{"A ? B : C", 2},
		{"A.B", 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := NewLexer(tt.input).Tokenize()
			var ee *types.ExpressionError
			if !errors.As(err, &ee) {
				t.Fatalf("expected ExpressionError, got %v", err)
			}
			if !ee.HasTag(types.TagLexError) {
				t.Errorf("expected LexError tag, got %v", ee.Tags)
			}
			if len(ee.Positions) != 1 || ee.Positions[0] != tt.pos {
				t.Errorf("expected position %d, got %v", tt.pos, ee.Positions)
			}
		})
	}
}

func TestParseTreeShape(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"A", "A"},
		{"((A))", "A"},
		{"A - B + C", "INT_SUB(A, INT_ADD(B, C))"},
		{"A * B + C", "INT_ADD(INT_MUL(A, B), C)"},
		{"A || B || C", "BOOL_OR(A, BOOL_OR(B, C))"},
		{"A == 1 || B == 2 && C", "BOOL_OR(CMP_EQ(A, 1), BOOL_AND(CMP_EQ(B, 2), C))"},
		{"(A & 2) > 0", "CMP_GT(BIN_AND(A, 2), 0)"},
		{"A++", "INT_INC(A)"},
		{"--A", "INT_DEC(A)"},
		{"-A", "INT_SUB_UNARY(A)"},
		{"+A", "INT_ADD_UNARY(A)"},
		{"A - -B", "INT_SUB(A, INT_SUB_UNARY(B))"},
		{"-A + B", "INT_ADD(INT_SUB_UNARY(A), B)"},
		{"~A", "BIN_INV(A)"},
		{"!defined(A) && B", "BOOL_AND(BOOL_NOT(defined(A)), B)"},
		{"defined A || defined(B)", "BOOL_OR(defined(A), defined(B))"},
		{"f((A))", "f(A)"},
		{"defined()", "defined()"},
		{"10UL + 0x10", "INT_ADD(10, 16)"},
		{"5l", "5"},
		{"0x7fffffff", "2147483647"},
		{"A << 2 < B", "CMP_LT(BIN_SHL(A, 2), B)"},
		{"A | B ^ C & D", "BIN_OR(A, BIN_XOR(B, BIN_AND(C, D)))"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if got := node.String(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseUnaryOperand(t *testing.T) {
	node, err := Parse("A++")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	op, ok := node.(*OperatorNode)
	if !ok {
		t.Fatalf("expected *OperatorNode, got %T", node)
	}
	if op.Op != OpIntInc || op.Right != nil {
		t.Errorf("expected INT_INC with no right operand, got %s", op)
	}
	if v, ok := op.Left.(*VariableNode); !ok || v.Name != "A" {
		t.Errorf("expected left operand A, got %v", op.Left)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		tag   string
	}{
		{"A!", types.TagBadUnaryPlacement},
		{"A ~ B", types.TagBadUnaryPlacement},
		{"A B", types.TagNoOperatorFound},
		{"(A", types.TagUnbalancedBrackets},
		{"A)", types.TagUnbalancedBrackets},
		{"()", types.TagExpectedOperand},
		{"", types.TagExpectedOperand},
		{"A +", types.TagMissingOperand},
		{"== A", types.TagMissingOperand},
		{"!", types.TagMissingOperand},
		{"1abc", types.TagInvalidLiteral},
		{"99999999999999999999", types.TagInvalidLiteral},
		{"0x80000000", types.TagInvalidLiteral},
		{"0x", types.TagInvalidLiteral},
		{"f(A B)", types.TagTooManyArguments},
		{"defined(A == 1)", types.TagTooManyArguments},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			var ee *types.ExpressionError
			if !errors.As(err, &ee) {
				t.Fatalf("expected ExpressionError, got %v", err)
			}
			if !ee.HasTag(types.TagParseError) || !ee.HasTag(tt.tag) {
				t.Errorf("expected tags [ParseError %s], got %v", tt.tag, ee.Tags)
			}
			if ee.Expression != tt.input {
				t.Errorf("expected expression %q, got %q", tt.input, ee.Expression)
			}
		})
	}
}

func TestParseErrorMarker(t *testing.T) {
	tests := []struct {
		input  string
		marker string
	}{
		{"A B", "  ^"},
		{"A + (B", "    ^"},
		{"A == 1 !", "       ^"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			var ee *types.ExpressionError
			if !errors.As(err, &ee) {
				t.Fatalf("expected ExpressionError, got %v", err)
			}
			if got := ee.Marker(); got != tt.marker {
				t.Errorf("got marker %q, want %q", got, tt.marker)
			}
		})
	}
}

func TestCacheParse(t *testing.T) {
	c, err := NewCache(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := c.Parse("A + B")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	second, err := c.Parse("A + B")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if first != second {
		t.Error("expected cached tree to be reused")
	}

	if _, err := c.Parse("A B"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := c.Parse("A B"); err == nil {
		t.Fatal("expected cached parse error")
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 cached entries, got %d", c.Len())
	}
}
