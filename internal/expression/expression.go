// Package expression evaluates the SystemVerilog constant expressions used as
// IP-XACT parameter values, bounds and vector ranges.
//
// Every evaluation produces a canonical string. Anything that cannot be
// evaluated, from a syntax error to an unknown reference, produces Invalid.
// Evaluation never panics.
package expression

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Parser evaluates expressions to their canonical text.
type Parser interface {
	// ParseExpression returns the evaluated text, or Invalid.
	ParseExpression(expression string) string
	// Evaluate returns the evaluated text and whether evaluation succeeded.
	Evaluate(expression string) (string, bool)
	IsValidExpression(expression string) bool
	IsArrayExpression(expression string) bool
	IsPlainValue(expression string) bool
	// BaseForExpression returns the largest base among the literals of the
	// expression (2, 8, 10 or 16), or 0 for strings.
	BaseForExpression(expression string) int
}

// SystemVerilogParser evaluates literal-only expressions. Any identifier
// other than true and false is invalid. The zero value is ready to use.
type SystemVerilogParser struct{}

var _ Parser = SystemVerilogParser{}

func (SystemVerilogParser) ParseExpression(expression string) string {
	text, _ := evaluate(expression, &evaluator{})
	return text
}

func (SystemVerilogParser) Evaluate(expression string) (string, bool) {
	return evaluate(expression, &evaluator{})
}

func (SystemVerilogParser) IsValidExpression(expression string) bool {
	_, ok := evaluate(expression, &evaluator{})
	return ok
}

func (SystemVerilogParser) IsArrayExpression(expression string) bool {
	return IsArray(expression)
}

func (SystemVerilogParser) IsPlainValue(expression string) bool {
	return isPlainValue(expression)
}

func (SystemVerilogParser) BaseForExpression(expression string) int {
	return baseForExpression(expression, nil, 0)
}

// IsArray reports whether the text looks like an array: it contains both
// braces.
func IsArray(expression string) bool {
	return strings.Contains(expression, "{") && strings.Contains(expression, "}")
}

func evaluate(expression string, e *evaluator) (string, bool) {
	n, err := parse(expression)
	if err != nil {
		return Invalid, false
	}
	v := e.eval(n)
	if !v.valid() {
		return Invalid, false
	}
	return v.String(), true
}

// isPlainValue accepts an empty expression, one literal or string, possibly
// in parentheses, and a negated number.
func isPlainValue(expression string) bool {
	tokens, err := tokenize(expression)
	if err != nil {
		return false
	}
	tokens = tokens[:len(tokens)-1]
	for len(tokens) >= 2 && tokens[0].Value == "(" && tokens[len(tokens)-1].Value == ")" &&
		tokens[0].Type == tokPunct && tokens[len(tokens)-1].Type == tokPunct {
		tokens = tokens[1 : len(tokens)-1]
	}
	switch len(tokens) {
	case 0:
		return true
	case 1:
		return isNumberToken(tokens[0].Type) || tokens[0].Type == tokString
	case 2:
		return tokens[0].Type == tokOperator && tokens[0].Value == "-" && isNumberToken(tokens[1].Type)
	}
	return false
}

// baseForExpression walks the literals of an expression. ident, when set,
// returns the base of a referenced value.
func baseForExpression(expression string, ident func(name string, depth int) int, depth int) int {
	tokens, err := tokenize(expression)
	if err != nil {
		return 0
	}
	base := 0
	for _, tok := range tokens {
		switch {
		case tok.Type == tokString:
			return 0
		case isNumberToken(tok.Type):
			_, b := literal(tok.Value, literalKind(tok.Type))
			base = max(base, b)
		case tok.Type == tokIdent && ident != nil:
			base = max(base, ident(tok.Value, depth))
		case tok.Type == lexer.EOF:
			return base
		}
	}
	return base
}

// SplitArray strips the outer braces of an array value and splits it on
// every comma. Nested arrays are not split.
func SplitArray(expression string) []string {
	parts := strings.Split(expression, ",")
	first := strings.TrimLeft(parts[0], " \t")
	first = strings.TrimPrefix(first, "'")
	parts[0] = strings.TrimPrefix(first, "{")
	last := len(parts) - 1
	parts[last] = strings.TrimSuffix(strings.TrimRight(parts[last], " \t\r\n"), "}")
	return parts
}
