package script

import (
	"errors"
	"fmt"
)

// Error classes for malformed scripts.
var (
	ErrLex   = errors.New("lexical error")
	ErrParse = errors.New("parse error")
)

// SyntaxError describes a lexical or parse failure at a byte offset.
type SyntaxError struct {
	Kind error // ErrLex or ErrParse
	Pos  int
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v at line %d, column %d: %s", e.Kind, e.Line, e.Col, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Kind
}

func newSyntaxError(kind error, src string, pos int, format string, args ...any) *SyntaxError {
	line, col := position(src, pos)
	return &SyntaxError{
		Kind: kind,
		Pos:  pos,
		Line: line,
		Col:  col,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// position converts a byte offset into a 1-based line and column.
func position(src string, pos int) (line, col int) {
	line, col = 1, 1
	for i := 0; i < pos && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
