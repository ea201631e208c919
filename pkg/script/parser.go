package script

import (
	"strconv"
	"strings"
)

// Parse tokenizes and parses src into a document tree.
func Parse(src string) (*Document, error) {
	p := &parser{lex: NewLexer(src), src: src}
	return p.parse()
}

type parser struct {
	lex *Lexer
	src string
	tok Token
}

func (p *parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return newSyntaxError(ErrParse, p.src, pos, format, args...)
}

func (p *parser) parse() (*Document, error) {
	doc := &Document{}
	open := []container{doc}

	for {
		if err := p.advance(); err != nil {
			return nil, err
		}
		top := open[len(open)-1]

		switch p.tok.Kind {
		case TokenEOF:
			if len(open) > 1 {
				loop := open[len(open)-1].(*ForLoop)
				return nil, p.errorf(p.tok.Pos, "unclosed FOR %s: missing END", loop.Var)
			}
			return doc, nil

		case TokenText:
			top.appendChild(&Text{Value: p.tok.Value})

		case TokenTagOpen:
			tagPos := p.tok.Pos
			if err := p.advance(); err != nil {
				return nil, err
			}
			switch {
			case p.tok.Kind == TokenIdent && strings.EqualFold(p.tok.Value, "FOR"):
				loop, err := p.parseFor()
				if err != nil {
					return nil, err
				}
				top.appendChild(loop)
				open = append(open, loop)

			case p.tok.Kind == TokenIdent && strings.EqualFold(p.tok.Value, "END"):
				if len(open) == 1 {
					return nil, p.errorf(tagPos, "END without an open FOR")
				}
				if err := p.expectClose(); err != nil {
					return nil, err
				}
				open = open[:len(open)-1]

			case p.tok.Kind == TokenSymbol && p.tok.Value == "=":
				echo, err := p.parseEcho()
				if err != nil {
					return nil, err
				}
				top.appendChild(echo)

			case p.tok.Kind == TokenEOF:
				return nil, p.errorf(tagPos, "unterminated tag")

			default:
				return nil, p.errorf(p.tok.Pos, "unknown tag %q", p.tok.Value)
			}

		default:
			return nil, p.errorf(p.tok.Pos, "unexpected %s outside a tag", p.tok.Kind)
		}
	}
}

func (p *parser) expectClose() error {
	if err := p.advance(); err != nil {
		return err
	}
	switch p.tok.Kind {
	case TokenTagClose:
		return nil
	case TokenEOF:
		return p.errorf(p.tok.Pos, "unterminated tag")
	default:
		return p.errorf(p.tok.Pos, "expected '$}', found %s", p.tok)
	}
}

// parseFor reads `var start end [step] $}` after the FOR keyword.
func (p *parser) parseFor() (*ForLoop, error) {
	forPos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind != TokenIdent {
		return nil, p.errorf(p.tok.Pos, "FOR expects a variable name, found %s", p.tok)
	}
	loop := &ForLoop{Var: p.tok.Value}

	var args []Element
	for {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind == TokenTagClose {
			break
		}
		if p.tok.Kind == TokenEOF {
			return nil, p.errorf(forPos, "unterminated FOR tag")
		}
		el, err := p.forArgument()
		if err != nil {
			return nil, err
		}
		args = append(args, el)
	}

	switch len(args) {
	case 2:
		loop.Start, loop.End = args[0], args[1]
	case 3:
		loop.Start, loop.End, loop.Step = args[0], args[1], args[2]
	default:
		return nil, p.errorf(forPos, "FOR %s expects 2 or 3 expressions, got %d", loop.Var, len(args))
	}
	return loop, nil
}

func (p *parser) forArgument() (Element, error) {
	switch p.tok.Kind {
	case TokenIdent:
		return Variable{Name: p.tok.Value}, nil
	case TokenInt, TokenFloat:
		return p.number()
	case TokenString:
		return StringLit{Value: p.tok.Value}, nil
	default:
		return nil, p.errorf(p.tok.Pos, "invalid FOR expression %s", p.tok)
	}
}

// parseEcho reads echo elements after the '=' symbol until '$}'.
func (p *parser) parseEcho() (*Echo, error) {
	echoPos := p.tok.Pos
	echo := &Echo{}
	for {
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch p.tok.Kind {
		case TokenTagClose:
			return echo, nil
		case TokenEOF:
			return nil, p.errorf(echoPos, "unterminated echo tag")
		case TokenIdent:
			echo.Elements = append(echo.Elements, Variable{Name: p.tok.Value})
		case TokenInt, TokenFloat:
			el, err := p.number()
			if err != nil {
				return nil, err
			}
			echo.Elements = append(echo.Elements, el)
		case TokenString:
			echo.Elements = append(echo.Elements, StringLit{Value: p.tok.Value})
		case TokenFunc:
			echo.Elements = append(echo.Elements, FuncCall{Name: p.tok.Value})
		case TokenSymbol:
			switch p.tok.Value {
			case "+", "-", "*", "/":
				echo.Elements = append(echo.Elements, Operator{Symbol: p.tok.Value})
			default:
				return nil, p.errorf(p.tok.Pos, "unsupported operator %q", p.tok.Value)
			}
		default:
			return nil, p.errorf(p.tok.Pos, "unexpected %s in echo tag", p.tok)
		}
	}
}

func (p *parser) number() (Element, error) {
	if p.tok.Kind == TokenFloat {
		f, err := strconv.ParseFloat(p.tok.Value, 64)
		if err != nil {
			return nil, newSyntaxError(ErrLex, p.src, p.tok.Pos, "invalid number %q", p.tok.Value)
		}
		return ConstFloat{Value: f}, nil
	}
	i, err := strconv.ParseInt(p.tok.Value, 10, 64)
	if err != nil {
		return nil, newSyntaxError(ErrLex, p.src, p.tok.Pos, "invalid number %q", p.tok.Value)
	}
	return ConstInt{Value: i}, nil
}
