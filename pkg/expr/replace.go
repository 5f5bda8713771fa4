package expr

import (
	"errors"
	"regexp"
	"strings"

	"github.com/lemonberrylabs/nonbool/pkg/formula"
	"github.com/lemonberrylabs/nonbool/pkg/types"
)

// directivePattern splits "#if <cond>" and "#elif <cond>" lines. #ifdef and
// #ifndef do not match.
var directivePattern = regexp.MustCompile(`^(\s*#\s*(?:if|elif))\b(.*)$`)

// Replacer converts conditions against fixed variable and constant tables.
// It is safe for concurrent use.
type Replacer struct {
	Variables types.VariableTable
	Constants types.ConstantTable
	Mode      Mode
	cache     *Cache
}

// NewReplacer creates a Replacer in ModeCpp. cache may be nil.
func NewReplacer(vars types.VariableTable, consts types.ConstantTable, cache *Cache) *Replacer {
	return &Replacer{Variables: vars, Constants: consts, Mode: ModeCpp, cache: cache}
}

// Convert parses and evaluates a bare condition.
func (r *Replacer) Convert(expression string) (Result, error) {
	expression = strings.TrimSpace(expression)
	node, err := r.cache.Parse(expression)
	if err != nil {
		return nil, err
	}
	res, err := Evaluate(node, r.Variables, r.Constants, r.Mode)
	if err != nil {
		return nil, bindExpression(err, expression)
	}
	return res, nil
}

// ConvertString converts a bare condition and renders it in the replacer's mode.
func (r *Replacer) ConvertString(expression string) (string, error) {
	res, err := r.Convert(expression)
	if err != nil {
		return "", err
	}
	return ToString(res, r.Mode), nil
}

// ConvertFormula converts a bare condition into a logic formula.
func (r *Replacer) ConvertFormula(expression string) (formula.Formula, error) {
	res, err := r.Convert(expression)
	if err != nil {
		return nil, err
	}
	return ToFormula(res), nil
}

// ReplaceLine rewrites an "#if" or "#elif" line. The directive prefix is kept
// and followed by the converted condition; any other line is an error.
func (r *Replacer) ReplaceLine(line string) (string, error) {
	m := directivePattern.FindStringSubmatch(line)
	if m == nil {
		return "", types.NewDirectiveError(line)
	}
	res, err := r.Convert(m[2])
	if err != nil {
		return "", err
	}
	return m[1] + " " + ToCppString(res), nil
}

// IsConditionLine reports whether line is an #if or #elif directive.
func IsConditionLine(line string) bool {
	return directivePattern.MatchString(line)
}

// ReplaceCppLine rewrites a single "#if" or "#elif" line.
func ReplaceCppLine(line string, vars types.VariableTable, consts types.ConstantTable) (string, error) {
	return NewReplacer(vars, consts, nil).ReplaceLine(line)
}

func bindExpression(err error, expression string) error {
	var ee *types.ExpressionError
	if errors.As(err, &ee) && ee.Expression == "" {
		return ee.WithExpression(expression, 0)
	}
	return err
}
