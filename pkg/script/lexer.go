package script

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// lexMode is the lexer's current lexical context.
type lexMode int

const (
	modeLiteral lexMode = iota
	modeTag
)

// Lexer converts script text into tokens, one per call to Next.
// It starts in literal mode, switches to tag mode after emitting a
// TagOpen token and back to literal mode after a TagClose token.
type Lexer struct {
	src  string
	pos  int
	mode lexMode
	done bool
}

// NewLexer creates a lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src}
}

// Next returns the next token. Once TokenEOF has been returned every further
// call returns TokenEOF again.
func (l *Lexer) Next() (Token, error) {
	if l.done {
		return Token{Kind: TokenEOF, Pos: len(l.src)}, nil
	}
	if l.mode == modeTag {
		return l.nextTag()
	}
	return l.nextLiteral()
}

// Tokens drains the lexer. Handy for tests and the check command.
func (l *Lexer) Tokens() ([]Token, error) {
	var out []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return out, err
		}
		out = append(out, tok)
		if tok.Kind == TokenEOF {
			return out, nil
		}
	}
}

func (l *Lexer) errorf(pos int, format string, args ...any) error {
	return newSyntaxError(ErrLex, l.src, pos, format, args...)
}

func (l *Lexer) eof() Token {
	l.done = true
	return Token{Kind: TokenEOF, Pos: len(l.src)}
}

func (l *Lexer) nextLiteral() (Token, error) {
	if l.pos >= len(l.src) {
		return l.eof(), nil
	}
	if strings.HasPrefix(l.src[l.pos:], "{$") {
		start := l.pos
		l.pos += 2
		l.mode = modeTag
		return Token{Kind: TokenTagOpen, Value: "{$", Pos: start}, nil
	}

	start := l.pos
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' {
			if l.pos+1 >= len(l.src) {
				return Token{}, l.errorf(l.pos, "dangling escape at end of input")
			}
			next := l.src[l.pos+1]
			if next != '\\' && next != '{' {
				return Token{}, l.errorf(l.pos, "unsupported escape %q in text", "\\"+string(next))
			}
			sb.WriteByte(next)
			l.pos += 2
			continue
		}
		if c == '{' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '$' {
			break
		}
		sb.WriteByte(c)
		l.pos++
	}
	return Token{Kind: TokenText, Value: sb.String(), Pos: start}, nil
}

func (l *Lexer) nextTag() (Token, error) {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		l.pos += size
	}
	if l.pos >= len(l.src) {
		return l.eof(), nil
	}

	start := l.pos
	c := l.src[l.pos]
	switch {
	case c == '$' && l.peekByte(1) == '}':
		l.pos += 2
		l.mode = modeLiteral
		return Token{Kind: TokenTagClose, Value: "$}", Pos: start}, nil
	case isDigit(c) || (c == '-' && isDigit(l.peekByte(1))):
		return l.lexNumber()
	case c == '"':
		return l.lexString()
	case c == '@':
		l.pos++
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		if l.pos >= len(l.src) || !unicode.IsLetter(r) {
			return Token{}, l.errorf(start, "function name expected after '@'")
		}
		name := l.readIdent()
		return Token{Kind: TokenFunc, Value: name, Pos: start}, nil
	}

	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	if unicode.IsLetter(r) {
		return Token{Kind: TokenIdent, Value: l.readIdent(), Pos: start}, nil
	}
	l.pos += size
	return Token{Kind: TokenSymbol, Value: string(r), Pos: start}, nil
}

func (l *Lexer) peekByte(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) readIdent() string {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		l.pos += size
	}
	return l.src[start:l.pos]
}

func (l *Lexer) lexNumber() (Token, error) {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}
	digitsStart := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	intPart := l.src[digitsStart:l.pos]
	if len(intPart) > 1 && intPart[0] == '0' {
		return Token{}, l.errorf(start, "leading zero in number %q", l.src[start:l.pos])
	}

	kind := TokenInt
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		kind = TokenFloat
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}

	// A number running straight into a letter is malformed, e.g. "12ab".
	if l.pos < len(l.src) {
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		if unicode.IsLetter(r) || r == '_' {
			return Token{}, l.errorf(start, "malformed number %q", l.src[start:l.pos+1])
		}
	}
	return Token{Kind: kind, Value: l.src[start:l.pos], Pos: start}, nil
}

func (l *Lexer) lexString() (Token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '"':
			l.pos++
			return Token{Kind: TokenString, Value: sb.String(), Pos: start}, nil
		case '\\':
			if l.pos+1 >= len(l.src) {
				return Token{}, l.errorf(start, "unterminated string")
			}
			switch esc := l.src[l.pos+1]; esc {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '"', '\\':
				sb.WriteByte(esc)
			default:
				return Token{}, l.errorf(l.pos, "unsupported escape %q in string", "\\"+string(esc))
			}
			l.pos += 2
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return Token{}, l.errorf(start, "unterminated string")
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
