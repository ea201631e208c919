package script

import "fmt"

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenText
	TokenIdent
	TokenInt
	TokenFloat
	TokenTagOpen
	TokenTagClose
	TokenFunc
	TokenString
	TokenSymbol
)

var tokenKindNames = [...]string{
	TokenEOF:      "EOF",
	TokenText:     "TEXT",
	TokenIdent:    "IDENT",
	TokenInt:      "INT",
	TokenFloat:    "FLOAT",
	TokenTagOpen:  "TAG_OPEN",
	TokenTagClose: "TAG_CLOSE",
	TokenFunc:     "FUNC",
	TokenString:   "STRING",
	TokenSymbol:   "SYMBOL",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is one lexical unit. Value holds the decoded text: literal text with
// escapes resolved, an identifier, the digits of a number, a function name
// without its '@', or a string body with escapes resolved.
type Token struct {
	Kind  TokenKind
	Value string
	Pos   int // byte offset of the token's first character
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Kind, t.Value)
}
