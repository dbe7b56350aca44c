package expression

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// exprLexer tokenizes SystemVerilog constant expressions as they appear in
// IP-XACT parameter values. Rule order matters: sized and based literals must
// win over plain integers, magnitude suffixes over identifiers.
var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},

	{Name: "String", Pattern: `"[^"]*"`},

	// 8'hFF, 'sd2, 'b0101
	{Name: "Based", Pattern: `[0-9]*'[sS]?[dDbBoOhH][0-9a-fA-F_]+`},
	// '{ starts an assignment pattern
	{Name: "ArrayOpen", Pattern: `'\{`},
	// '2 is an unbased decimal
	{Name: "Unbased", Pattern: `'[0-9][0-9_]*`},

	// legacy SPIRIT forms: 0xFF, #FF, 4k
	{Name: "Hex", Pattern: `0[xX][0-9a-fA-F]+|#[0-9a-fA-F]+`},
	{Name: "Real", Pattern: `[0-9][0-9_]*\.[0-9_]+([eE][+-]?[0-9]+)?|[0-9]+[eE][+-]?[0-9]+`},
	{Name: "Magnitude", Pattern: `[0-9]+[kKmMgGtT]\b`},
	{Name: "Int", Pattern: `[0-9][0-9_]*`},

	{Name: "Function", Pattern: `\$[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},

	{Name: "Operator", Pattern: `\*\*|<<|>>|<=|>=|==|!=|&&|\|\||[-+*/%<>!~&|^?:]`},
	{Name: "Punct", Pattern: `[(),{}]`},
})

var exprSymbols = exprLexer.Symbols()

var (
	tokWhitespace = exprSymbols["Whitespace"]
	tokString     = exprSymbols["String"]
	tokBased      = exprSymbols["Based"]
	tokArrayOpen  = exprSymbols["ArrayOpen"]
	tokUnbased    = exprSymbols["Unbased"]
	tokHex        = exprSymbols["Hex"]
	tokReal       = exprSymbols["Real"]
	tokMagnitude  = exprSymbols["Magnitude"]
	tokInt        = exprSymbols["Int"]
	tokFunction   = exprSymbols["Function"]
	tokIdent      = exprSymbols["Ident"]
	tokOperator   = exprSymbols["Operator"]
	tokPunct      = exprSymbols["Punct"]
)

// tokenize lexes an expression and drops whitespace. The returned slice always
// ends with an EOF token.
func tokenize(expression string) ([]lexer.Token, error) {
	lex, err := exprLexer.LexString("", expression)
	if err != nil {
		return nil, err
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, err
	}
	tokens := all[:0]
	for _, tok := range all {
		if tok.Type != tokWhitespace {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.EOF {
		tokens = append(tokens, lexer.Token{Type: lexer.EOF})
	}
	return tokens, nil
}

// isNumberToken reports whether the token is any numeric literal.
func isNumberToken(t lexer.TokenType) bool {
	switch t {
	case tokBased, tokUnbased, tokHex, tokReal, tokMagnitude, tokInt:
		return true
	}
	return false
}
