package expression

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

var errSyntax = errors.New("syntax error")

// =============================================================================
// AST
// =============================================================================

type node interface{ isNode() }

type numberNode struct {
	text string
	kind tokenKind
}

type stringNode struct{ text string }

type identNode struct{ name string }

type arrayNode struct{ elems []node }

type unaryNode struct {
	op string
	x  node
}

type binaryNode struct {
	op   string
	x, y node
}

type ternaryNode struct{ cond, then, els node }

type callNode struct {
	fn   string
	args []node
}

type emptyNode struct{}

func (numberNode) isNode()  {}
func (stringNode) isNode()  {}
func (identNode) isNode()   {}
func (arrayNode) isNode()   {}
func (unaryNode) isNode()   {}
func (binaryNode) isNode()  {}
func (ternaryNode) isNode() {}
func (callNode) isNode()    {}
func (emptyNode) isNode()   {}

type tokenKind int

const (
	litInt tokenKind = iota
	litUnbased
	litReal
	litHex
	litMagnitude
	litBased
)

func literalKind(t lexer.TokenType) tokenKind {
	switch t {
	case tokUnbased:
		return litUnbased
	case tokReal:
		return litReal
	case tokHex:
		return litHex
	case tokMagnitude:
		return litMagnitude
	case tokBased:
		return litBased
	}
	return litInt
}

// binary operator precedence, higher binds tighter. The ternary operator sits
// below all of them and unary operators above.
var precedence = map[string]int{
	"||": 3,
	"&&": 4,
	"|":  5,
	"^":  6,
	"&":  7,
	"==": 8, "!=": 8,
	"<": 9, ">": 9, "<=": 9, ">=": 9,
	"<<": 10, ">>": 10,
	"+": 11, "-": 11,
	"*": 12, "/": 12, "%": 12,
	"**": 13,
}

// =============================================================================
// Parser
// =============================================================================

type parser struct {
	tokens []lexer.Token
	pos    int
}

// parse turns an expression into an AST. An empty expression, or a lone pair
// of parentheses, parses to emptyNode.
func parse(expression string) (node, error) {
	tokens, err := tokenize(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errSyntax, err)
	}
	p := &parser{tokens: tokens}
	if p.isEOF() {
		return emptyNode{}, nil
	}
	if len(tokens) == 3 && p.checkValue("(") && tokens[1].Value == ")" {
		return emptyNode{}, nil
	}
	n, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if !p.isEOF() {
		return nil, p.errorf("unexpected %q", p.peek().Value)
	}
	return n, nil
}

func (p *parser) isEOF() bool {
	return p.peek().Type == lexer.EOF
}

func (p *parser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() lexer.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) checkValue(v string) bool {
	tok := p.peek()
	return tok.Type != lexer.EOF && tok.Type != tokString && tok.Value == v
}

func (p *parser) expect(v string) error {
	if !p.checkValue(v) {
		return p.errorf("expected %q, found %q", v, p.peek().Value)
	}
	p.advance()
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at token %d: %s", errSyntax, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) parseTernary() (node, error) {
	cond, err := p.parseBinary(3)
	if err != nil {
		return nil, err
	}
	if !p.checkValue("?") {
		return cond, nil
	}
	p.advance()
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return ternaryNode{cond: cond, then: then, els: els}, nil
}

// parseBinary is a precedence climbing loop over left associative operators.
func (p *parser) parseBinary(minPrec int) (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.Type != tokOperator {
			return left, nil
		}
		prec, ok := precedence[tok.Value]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.Value, x: left, y: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	tok := p.peek()
	if tok.Type == tokOperator {
		switch tok.Value {
		case "-", "+", "~", "!":
			p.advance()
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			if tok.Value == "+" {
				return x, nil
			}
			return unaryNode{op: tok.Value, x: x}, nil
		}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.peek()
	switch {
	case isNumberToken(tok.Type):
		p.advance()
		return numberNode{text: tok.Value, kind: literalKind(tok.Type)}, nil
	case tok.Type == tokString:
		p.advance()
		return stringNode{text: tok.Value}, nil
	case tok.Type == tokIdent:
		p.advance()
		return identNode{name: tok.Value}, nil
	case tok.Type == tokFunction:
		p.advance()
		return p.parseCall(tok.Value)
	case tok.Type == tokArrayOpen:
		p.advance()
		return p.parseArray()
	case p.checkValue("{"):
		p.advance()
		return p.parseArray()
	case p.checkValue("("):
		p.advance()
		inner, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	if tok.Type == lexer.EOF {
		return nil, p.errorf("unexpected end of expression")
	}
	return nil, p.errorf("unexpected %q", tok.Value)
}

func (p *parser) parseArray() (node, error) {
	var elems []node
	for {
		elem, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		if p.checkValue(",") {
			p.advance()
			continue
		}
		if err := p.expect("}"); err != nil {
			return nil, err
		}
		return arrayNode{elems: elems}, nil
	}
}

func (p *parser) parseCall(fn string) (node, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	call := callNode{fn: strings.ToLower(fn)}
	if p.checkValue(")") {
		p.advance()
		return call, nil
	}
	for {
		arg, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		if p.checkValue(",") {
			p.advance()
			continue
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return call, nil
	}
}
