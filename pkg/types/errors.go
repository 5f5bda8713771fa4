package types

import (
	"fmt"
	"sort"
	"strings"
)

// Error tag constants. An error always carries its category tag (LexError,
// ParseError, ...) and, for parse errors, the specific kind as a second tag.
const (
	TagLexError            = "LexError"
	TagParseError          = "ParseError"
	TagUnbalancedBrackets  = "UnbalancedBrackets"
	TagInvalidLiteral      = "InvalidLiteral"
	TagTooManyArguments    = "TooManyArguments"
	TagExpectedOperand     = "ExpectedOperand"
	TagMissingOperand      = "MissingOperand"
	TagBadUnaryPlacement   = "BadUnaryPlacement"
	TagNoOperatorFound     = "NoOperatorFound"
	TagUnsupportedFunction = "UnsupportedFunction"
	TagUnsupportedOperator = "UnsupportedOperator"
	TagTypeError           = "TypeError"
	TagZeroDivisionError   = "ZeroDivisionError"
	TagResourceLimitError  = "ResourceLimitError"
	TagDirectiveError      = "DirectiveError"
)

// ExpressionError is returned by every stage of the conversion pipeline.
type ExpressionError struct {
	Message    string
	Expression string // expression text the error refers to, may be empty
	Positions  []int  // offending character offsets into Expression
	Tags       []string
}

// Error implements the error interface.
func (e *ExpressionError) Error() string {
	if e.Expression == "" {
		return fmt.Sprintf("%s (tags=[%s])", e.Message, strings.Join(e.Tags, ", "))
	}
	return fmt.Sprintf("%s in %q (tags=[%s])", e.Message, e.Expression, strings.Join(e.Tags, ", "))
}

// HasTag returns true if the error has the specified tag.
func (e *ExpressionError) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Marker returns a line of the same width as Expression with a caret under
// every offending position, e.g. "    ^  ^". It returns "" if no position is known.
func (e *ExpressionError) Marker() string {
	if len(e.Positions) == 0 {
		return ""
	}
	positions := append([]int(nil), e.Positions...)
	sort.Ints(positions)

	width := len(e.Expression)
	if last := positions[len(positions)-1] + 1; last > width {
		width = last
	}
	marker := []byte(strings.Repeat(" ", width))
	for _, p := range positions {
		if p >= 0 {
			marker[p] = '^'
		}
	}
	return strings.TrimRight(string(marker), " ")
}

// WithExpression returns a copy of e bound to the given expression text.
// Positions are shifted by offset, which is used when the expression was cut
// out of a longer line.
func (e *ExpressionError) WithExpression(expression string, offset int) *ExpressionError {
	c := *e
	c.Expression = expression
	c.Positions = make([]int, len(e.Positions))
	for i, p := range e.Positions {
		c.Positions[i] = p + offset
	}
	return &c
}

// Common error constructors.

// NewLexError creates a LexError for an invalid character.
func NewLexError(expression string, pos int, ch byte) *ExpressionError {
	return &ExpressionError{
		Message:    fmt.Sprintf("invalid character %q at position %d", ch, pos),
		Expression: expression,
		Positions:  []int{pos},
		Tags:       []string{TagLexError},
	}
}

// NewParseError creates a ParseError of the given kind.
func NewParseError(kind, expression, msg string, positions ...int) *ExpressionError {
	return &ExpressionError{
		Message:    msg,
		Expression: expression,
		Positions:  positions,
		Tags:       []string{TagParseError, kind},
	}
}

// NewUnsupportedFunctionError creates an UnsupportedFunction error.
func NewUnsupportedFunctionError(msg string, positions ...int) *ExpressionError {
	return &ExpressionError{Message: msg, Positions: positions, Tags: []string{TagUnsupportedFunction}}
}

// NewUnsupportedOperatorError creates an UnsupportedOperator error.
func NewUnsupportedOperatorError(msg string, positions ...int) *ExpressionError {
	return &ExpressionError{Message: msg, Positions: positions, Tags: []string{TagUnsupportedOperator}}
}

// NewTypeError creates a TypeError.
func NewTypeError(msg string) *ExpressionError {
	return &ExpressionError{Message: msg, Tags: []string{TagTypeError}}
}

// NewZeroDivisionError creates a ZeroDivisionError.
func NewZeroDivisionError() *ExpressionError {
	return &ExpressionError{Message: "division by zero", Tags: []string{TagZeroDivisionError}}
}

// NewResourceLimitError creates a ResourceLimitError.
func NewResourceLimitError(msg string) *ExpressionError {
	return &ExpressionError{Message: msg, Tags: []string{TagResourceLimitError}}
}

// NewDirectiveError creates a DirectiveError for lines that are not #if/#elif.
func NewDirectiveError(line string) *ExpressionError {
	return &ExpressionError{
		Message:    "line is not an #if or #elif directive",
		Expression: line,
		Tags:       []string{TagDirectiveError},
	}
}
