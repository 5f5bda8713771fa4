// Package expr implements the C preprocessor condition parser and the
// symbolic evaluator that rewrites integer conditions on configuration
// variables into conditions over defined(NAME) presence flags.
package expr

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenIdent    TokenType = iota // identifier or numeric literal
	TokenOperator                  // operator, see Operator
	TokenLParen                    // (
	TokenRParen                    // )
)

// Token represents a single lexical token.
type Token struct {
	Type  TokenType
	Value string   // raw source text
	Op    Operator // operator kind (for TokenOperator)
	Pos   int      // position in source
	Len   int      // length in source
}

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenIdent:
		return "IDENT"
	case TokenOperator:
		return "OPERATOR"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	default:
		return "UNKNOWN"
	}
}

// Operator is the closed set of operators understood in a condition.
type Operator int

const (
	OpBoolAnd Operator = iota
	OpBoolOr
	OpBoolNot

	OpCmpEq
	OpCmpNe
	OpCmpLt
	OpCmpLe
	OpCmpGt
	OpCmpGe

	OpIntAdd
	OpIntSub
	OpIntMul
	OpIntDiv
	OpIntMod
	OpIntAddUnary
	OpIntSubUnary
	OpIntInc
	OpIntDec

	OpBinAnd
	OpBinOr
	OpBinXor
	OpBinInv
	OpBinShl
	OpBinShr
)

type operatorInfo struct {
	name       string
	symbol     string
	unary      bool
	precedence int
}

// Lower precedence binds weaker.
var operators = [...]operatorInfo{
	OpBoolAnd: {"BOOL_AND", "&&", false, 2},
	OpBoolOr:  {"BOOL_OR", "||", false, 1},
	OpBoolNot: {"BOOL_NOT", "!", true, 11},

	OpCmpEq: {"CMP_EQ", "==", false, 6},
	OpCmpNe: {"CMP_NE", "!=", false, 6},
	OpCmpLt: {"CMP_LT", "<", false, 7},
	OpCmpLe: {"CMP_LE", "<=", false, 7},
	OpCmpGt: {"CMP_GT", ">", false, 7},
	OpCmpGe: {"CMP_GE", ">=", false, 7},

	OpIntAdd:      {"INT_ADD", "+", false, 9},
	OpIntSub:      {"INT_SUB", "-", false, 9},
	OpIntMul:      {"INT_MUL", "*", false, 10},
	OpIntDiv:      {"INT_DIV", "/", false, 10},
	OpIntMod:      {"INT_MOD", "%", false, 10},
	OpIntAddUnary: {"INT_ADD_UNARY", "+", true, 11},
	OpIntSubUnary: {"INT_SUB_UNARY", "-", true, 11},
	OpIntInc:      {"INT_INC", "++", true, 12},
	OpIntDec:      {"INT_DEC", "--", true, 12},

	OpBinAnd: {"BIN_AND", "&", false, 5},
	OpBinOr:  {"BIN_OR", "|", false, 3},
	OpBinXor: {"BIN_XOR", "^", false, 4},
	OpBinInv: {"BIN_INV", "~", true, 11},
	OpBinShl: {"BIN_SHL", "<<", false, 8},
	OpBinShr: {"BIN_SHR", ">>", false, 8},
}

// String returns the operator's name, e.g. "INT_ADD".
func (o Operator) String() string { return operators[o].name }

// Symbol returns the operator as written in C, e.g. "+".
func (o Operator) Symbol() string { return operators[o].symbol }

// IsUnary reports whether the operator takes a single operand.
func (o Operator) IsUnary() bool { return operators[o].unary }

// Precedence returns the binding strength; lower binds weaker.
func (o Operator) Precedence() int { return operators[o].precedence }

// operatorSymbols lists the lexer's operator table, two-character symbols
// first so the longest match wins. Unary +/- are lexed as their binary forms
// and disambiguated by the parser.
var operatorSymbols = []struct {
	symbol string
	op     Operator
}{
	{"&&", OpBoolAnd},
	{"||", OpBoolOr},
	{"==", OpCmpEq},
	{"!=", OpCmpNe},
	{"<=", OpCmpLe},
	{">=", OpCmpGe},
	{"<<", OpBinShl},
	{">>", OpBinShr},
	{"++", OpIntInc},
	{"--", OpIntDec},

	{"!", OpBoolNot},
	{"<", OpCmpLt},
	{">", OpCmpGt},
	{"+", OpIntAdd},
	{"-", OpIntSub},
	{"*", OpIntMul},
	{"/", OpIntDiv},
	{"%", OpIntMod},
	{"&", OpBinAnd},
	{"|", OpBinOr},
	{"^", OpBinXor},
	{"~", OpBinInv},
}
