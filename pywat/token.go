package pywat

import (
	"maps"
	"slices"
)

// TokenType identifies the lexical category of a token.
type TokenType string

const (
	tokenIllegal TokenType = "ILLEGAL"
	tokenEOF     TokenType = "EOF"

	tokenNewline TokenType = "NEWLINE"
	tokenIndent  TokenType = "INDENT"
	tokenDedent  TokenType = "DEDENT"

	tokenIdent TokenType = "IDENT"
	tokenInt   TokenType = "INT"

	tokenAssign   TokenType = "="
	tokenPlus     TokenType = "+"
	tokenMinus    TokenType = "-"
	tokenAsterisk TokenType = "*"
	tokenFloorDiv TokenType = "//"
	tokenPercent  TokenType = "%"
	tokenLT       TokenType = "<"
	tokenGT       TokenType = ">"
	tokenLTE      TokenType = "<="
	tokenGTE      TokenType = ">="
	tokenEQ       TokenType = "=="
	tokenNotEQ    TokenType = "!="

	tokenComma  TokenType = ","
	tokenColon  TokenType = ":"
	tokenDot    TokenType = "."
	tokenArrow  TokenType = "->"
	tokenLParen TokenType = "("
	tokenRParen TokenType = ")"

	tokenDef    TokenType = "DEF"
	tokenClass  TokenType = "CLASS"
	tokenIf     TokenType = "IF"
	tokenElif   TokenType = "ELIF"
	tokenElse   TokenType = "ELSE"
	tokenWhile  TokenType = "WHILE"
	tokenPass   TokenType = "PASS"
	tokenReturn TokenType = "RETURN"
	tokenNot    TokenType = "NOT"
	tokenIs     TokenType = "IS"
	tokenTrue   TokenType = "TRUE"
	tokenFalse  TokenType = "FALSE"
	tokenNone   TokenType = "NONE"
)

var keywords = map[string]TokenType{
	"def":    tokenDef,
	"class":  tokenClass,
	"if":     tokenIf,
	"elif":   tokenElif,
	"else":   tokenElse,
	"while":  tokenWhile,
	"pass":   tokenPass,
	"return": tokenReturn,
	"not":    tokenNot,
	"is":     tokenIs,
	"True":   tokenTrue,
	"False":  tokenFalse,
	"None":   tokenNone,
}

// Keywords lists the reserved words in sorted order.
func Keywords() []string {
	names := slices.Collect(maps.Keys(keywords))
	slices.Sort(names)
	return names
}

// Token captures lexical information for the parser.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

// Position identifies a line and column in the source text.
type Position struct {
	Line   int
	Column int
}

func lookupIdent(ident string) TokenType {
	if tt, ok := keywords[ident]; ok {
		return tt
	}
	return tokenIdent
}
