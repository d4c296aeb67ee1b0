// Package lex tokenizes query source text.
package lex

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pedrosanzmtz/qf/internal/diag"
)

type lexer struct {
	input string
	pos   int
	line  int
	col   int
}

// Tokenize converts query source into a token stream terminated by EOF.
func Tokenize(input string) ([]Token, error) {
	l := &lexer{input: input, line: 1, col: 1}
	return l.run()
}

func (l *lexer) run() ([]Token, error) {
	var tokens []Token
	for {
		l.skipSpaceAndComments()
		if l.pos >= len(l.input) {
			tokens = append(tokens, l.token(EOF))
			return tokens, nil
		}

		start := l.token(EOF) // capture position
		ch := l.input[l.pos]
		switch {
		case ch == '.':
			if l.peekAt(1) == '.' {
				l.advance(2)
				tokens = append(tokens, at(start, DotDot))
			} else if isDigit(l.peekAt(1)) {
				tok, err := l.lexNumber()
				if err != nil {
					return nil, err
				}
				tokens = append(tokens, tok)
			} else {
				l.advance(1)
				tokens = append(tokens, at(start, Dot))
			}
		case ch == '"':
			tok, err := l.lexString()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case ch == '$':
			l.advance(1)
			name := l.lexName()
			if name == "" {
				return nil, diag.Syntax(start.Line, start.Column, "expected variable name after '$'")
			}
			t := at(start, Variable)
			t.Text = name
			tokens = append(tokens, t)
		case ch == '@':
			l.advance(1)
			name := l.lexName()
			if name == "" {
				return nil, diag.Syntax(start.Line, start.Column, "expected format name after '@'")
			}
			t := at(start, Format)
			t.Text = name
			tokens = append(tokens, t)
		case isDigit(ch):
			tok, err := l.lexNumber()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case isNameStart(ch):
			name := l.lexName()
			if kw, ok := keywords[name]; ok {
				tokens = append(tokens, at(start, kw))
			} else {
				t := at(start, Ident)
				t.Text = name
				tokens = append(tokens, t)
			}
		default:
			typ, err := l.lexOperator()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, at(start, typ))
		}
	}
}

func (l *lexer) lexOperator() (Type, error) {
	two := func(next byte, withNext, without Type) Type {
		l.advance(1)
		if l.peekAt(0) == next {
			l.advance(1)
			return withNext
		}
		return without
	}

	switch l.input[l.pos] {
	case '|':
		return two('=', UpdateAssign, Pipe), nil
	case ',':
		l.advance(1)
		return Comma, nil
	case ':':
		l.advance(1)
		return Colon, nil
	case ';':
		l.advance(1)
		return Semicolon, nil
	case '?':
		l.advance(1)
		return Question, nil
	case '(':
		l.advance(1)
		return LParen, nil
	case ')':
		l.advance(1)
		return RParen, nil
	case '[':
		l.advance(1)
		return LBracket, nil
	case ']':
		l.advance(1)
		return RBracket, nil
	case '{':
		l.advance(1)
		return LBrace, nil
	case '}':
		l.advance(1)
		return RBrace, nil
	case '+':
		return two('=', PlusAssign, Plus), nil
	case '-':
		return two('=', MinusAssign, Minus), nil
	case '*':
		return two('=', StarAssign, Star), nil
	case '%':
		return two('=', PercentAssign, Percent), nil
	case '<':
		return two('=', Le, Lt), nil
	case '>':
		return two('=', Ge, Gt), nil
	case '=':
		return two('=', Eq, Assign), nil
	case '/':
		l.advance(1)
		if l.peekAt(0) == '/' {
			l.advance(1)
			if l.peekAt(0) == '=' {
				l.advance(1)
				return AltAssign, nil
			}
			return Alternative, nil
		}
		if l.peekAt(0) == '=' {
			l.advance(1)
			return SlashAssign, nil
		}
		return Slash, nil
	case '!':
		l.advance(1)
		if l.peekAt(0) == '=' {
			l.advance(1)
			return Ne, nil
		}
		return 0, diag.Syntax(l.line, l.col-1, "unexpected '!', did you mean 'not'?")
	default:
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		return 0, diag.Syntax(l.line, l.col, "unexpected character %q", r)
	}
}

func (l *lexer) lexNumber() (Token, error) {
	tok := l.token(Number)
	start := l.pos

	if l.peekAt(0) == '.' {
		l.advance(1)
	}
	for isDigit(l.peekAt(0)) {
		l.advance(1)
	}
	if l.peekAt(0) == '.' {
		l.advance(1)
		for isDigit(l.peekAt(0)) {
			l.advance(1)
		}
	}
	if c := l.peekAt(0); c == 'e' || c == 'E' {
		l.advance(1)
		if c := l.peekAt(0); c == '+' || c == '-' {
			l.advance(1)
		}
		for isDigit(l.peekAt(0)) {
			l.advance(1)
		}
	}

	text := l.input[start:l.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, diag.Syntax(tok.Line, tok.Column, "invalid number %q", text)
	}
	tok.Num = n
	return tok, nil
}

// lexString reads a double-quoted string. Interpolated strings produce
// an InterpString token whose segments alternate literal text with
// recursively lexed sub-expressions.
func (l *lexer) lexString() (Token, error) {
	tok := l.token(String)
	l.advance(1) // opening quote

	var (
		literal  strings.Builder
		segments []Segment
	)

	flushLiteral := func() {
		if literal.Len() > 0 {
			segments = append(segments, Segment{Literal: literal.String()})
			literal.Reset()
		}
	}

	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case '"':
			l.advance(1)
			if segments == nil {
				tok.Text = literal.String()
				return tok, nil
			}
			flushLiteral()
			tok.Type = InterpString
			tok.Segments = segments
			return tok, nil
		case '\\':
			l.advance(1)
			if l.pos >= len(l.input) {
				return Token{}, diag.Syntax(tok.Line, tok.Column, "unterminated string escape")
			}
			esc := l.input[l.pos]
			switch esc {
			case 'n':
				literal.WriteByte('\n')
				l.advance(1)
			case 'r':
				literal.WriteByte('\r')
				l.advance(1)
			case 't':
				literal.WriteByte('\t')
				l.advance(1)
			case '\\', '"', '/':
				literal.WriteByte(esc)
				l.advance(1)
			case 'u':
				l.advance(1)
				if l.pos+4 > len(l.input) {
					return Token{}, diag.Syntax(l.line, l.col, "incomplete unicode escape")
				}
				hex := l.input[l.pos : l.pos+4]
				code, err := strconv.ParseUint(hex, 16, 32)
				if err != nil {
					return Token{}, diag.Syntax(l.line, l.col, "invalid unicode escape \\u%s", hex)
				}
				literal.WriteRune(rune(code))
				l.advance(4)
			case '(':
				l.advance(1)
				sub, err := l.lexInterpolation(tok)
				if err != nil {
					return Token{}, err
				}
				flushLiteral()
				segments = append(segments, Segment{Tokens: sub})
			default:
				return Token{}, diag.Syntax(l.line, l.col, "invalid escape character '\\%c'", esc)
			}
		default:
			r, size := utf8.DecodeRuneInString(l.input[l.pos:])
			literal.WriteRune(r)
			l.advance(size)
		}
	}
	return Token{}, diag.Syntax(tok.Line, tok.Column, "unterminated string literal")
}

// lexInterpolation consumes the balanced \(...) body and lexes it as an
// independent token stream.
func (l *lexer) lexInterpolation(strTok Token) ([]Token, error) {
	start := l.pos
	depth := 1
	for l.pos < len(l.input) && depth > 0 {
		switch l.input[l.pos] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				body := l.input[start:l.pos]
				l.advance(1) // closing paren
				sub, err := Tokenize(body)
				if err != nil {
					return nil, err
				}
				return sub, nil
			}
		}
		l.advance(1)
	}
	return nil, diag.Syntax(strTok.Line, strTok.Column, "unterminated string interpolation")
}

func (l *lexer) lexName() string {
	start := l.pos
	for l.pos < len(l.input) && isNamePart(l.input[l.pos]) {
		l.advance(1)
	}
	return l.input[start:l.pos]
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\r', '\n':
			l.advance(1)
		case '#':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance(1)
			}
		default:
			return
		}
	}
}

func (l *lexer) token(typ Type) Token {
	return Token{Type: typ, Line: l.line, Column: l.col}
}

func at(pos Token, typ Type) Token {
	pos.Type = typ
	return pos
}

func (l *lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.input); i++ {
		if l.input[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *lexer) peekAt(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNamePart(c byte) bool {
	return isNameStart(c) || isDigit(c)
}
