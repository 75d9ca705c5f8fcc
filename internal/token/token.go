package token

// TokenType identifies the lexical class of a token.
type TokenType string

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	// Identifiers: type names, variable names, concept names
	IDENT TokenType = "IDENT"

	// Delimiters
	COMMA    TokenType = ","
	LT       TokenType = "<"
	GT       TokenType = ">"
	LPAREN   TokenType = "("
	RPAREN   TokenType = ")"
	LBRACKET TokenType = "["
	RBRACKET TokenType = "]"
)

// Token is a single lexical unit of a type expression, with its
// position in the source text (1-based line and column).
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Column int
}
