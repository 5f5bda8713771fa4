package expr

import (
	"strings"
	"unicode"

	"github.com/lemonberrylabs/nonbool/pkg/types"
)

// Lexer tokenizes a condition expression.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans the entire input and returns all tokens.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			return l.tokens, nil
		}
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
	}
}

// next returns the token starting at the current position.
func (l *Lexer) next() (Token, error) {
	start := l.pos
	ch := l.input[l.pos]

	switch ch {
	case '(':
		l.pos++
		return Token{Type: TokenLParen, Value: "(", Pos: start, Len: 1}, nil
	case ')':
		l.pos++
		return Token{Type: TokenRParen, Value: ")", Pos: start, Len: 1}, nil
	}

	for _, o := range operatorSymbols {
		if strings.HasPrefix(l.input[l.pos:], o.symbol) {
			l.pos += len(o.symbol)
			return Token{Type: TokenOperator, Value: o.symbol, Op: o.op, Pos: start, Len: len(o.symbol)}, nil
		}
	}

	if isIdentPart(ch) {
		for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
			l.pos++
		}
		return Token{Type: TokenIdent, Value: l.input[start:l.pos], Pos: start, Len: l.pos - start}, nil
	}

	return Token{}, types.NewLexError(l.input, start, ch)
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

// isIdentPart also accepts digits at the start of a run, so numeric literals
// come out as identifiers and are recognized by the parser.
func isIdentPart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
}
