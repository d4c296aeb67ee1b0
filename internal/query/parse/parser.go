// Package parse builds expression trees from query source text using
// recursive descent with the jq operator precedence table.
package parse

import (
	"github.com/pedrosanzmtz/qf/internal/diag"
	"github.com/pedrosanzmtz/qf/internal/query/ast"
	"github.com/pedrosanzmtz/qf/internal/query/lex"
)

// Parse tokenizes and parses a complete query.
func Parse(input string) (ast.Expr, error) {
	tokens, err := lex.Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if p.current().Type != lex.EOF {
		return nil, p.errorf("unexpected %s", p.current().Type)
	}
	return expr, nil
}

type parser struct {
	tokens []lex.Token
	pos    int
}

func (p *parser) current() lex.Token {
	if p.pos >= len(p.tokens) {
		return lex.Token{Type: lex.EOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lex.Token {
	if p.pos+1 >= len(p.tokens) {
		return lex.Token{Type: lex.EOF}
	}
	return p.tokens[p.pos+1]
}

func (p *parser) advance() lex.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lex.Type) error {
	if p.current().Type != typ {
		return p.errorf("expected %s, got %s", typ, p.current().Type)
	}
	p.advance()
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	tok := p.current()
	return diag.Syntax(tok.Line, tok.Column, format, args...)
}

// parsePipe handles the loosest level: `|`, plus the pipe-scoped
// constructs def, label, and as-bindings.
func (p *parser) parsePipe() (ast.Expr, error) {
	switch p.current().Type {
	case lex.Def:
		return p.parseFuncDef()
	case lex.Label:
		return p.parseLabel()
	case lex.Import, lex.Include:
		return nil, p.errorf("modules are not supported")
	}

	left, err := p.parseComma()
	if err != nil {
		return nil, err
	}

	if p.current().Type == lex.Pipe {
		p.advance()
		right, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		return ast.Pipe{Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseComma() (ast.Expr, error) {
	left, err := p.parseBindable()
	if err != nil {
		return nil, err
	}
	for p.current().Type == lex.Comma {
		p.advance()
		right, err := p.parseBindable()
		if err != nil {
			return nil, err
		}
		left = ast.Comma{Left: left, Right: right}
	}
	return left, nil
}

// parseBindable parses an assignment-level expression followed by an
// optional `as PATTERN |` binding, which swallows the rest of the pipe.
func (p *parser) parseBindable() (ast.Expr, error) {
	expr, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if p.current().Type != lex.As {
		return expr, nil
	}
	p.advance()
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lex.Pipe); err != nil {
		return nil, err
	}
	body, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	return ast.As{Expr: expr, Pattern: pattern, Body: body}, nil
}

// parseNoComma parses an expression where comma is a delimiter, such as
// object construction values: pipes allowed, commas not.
func (p *parser) parseNoComma() (ast.Expr, error) {
	left, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if p.current().Type == lex.Pipe {
		p.advance()
		right, err := p.parseNoComma()
		if err != nil {
			return nil, err
		}
		return ast.Pipe{Left: left, Right: right}, nil
	}
	return left, nil
}

var assignOps = map[lex.Type]ast.AssignOp{
	lex.Assign:        ast.AssignSet,
	lex.UpdateAssign:  ast.AssignUpdate,
	lex.PlusAssign:    ast.AssignAdd,
	lex.MinusAssign:   ast.AssignSub,
	lex.StarAssign:    ast.AssignMul,
	lex.SlashAssign:   ast.AssignDiv,
	lex.PercentAssign: ast.AssignMod,
	lex.AltAssign:     ast.AssignAlt,
}

func (p *parser) parseAssign() (ast.Expr, error) {
	left, err := p.parseAlternative()
	if err != nil {
		return nil, err
	}
	if op, ok := assignOps[p.current().Type]; ok {
		p.advance()
		val, err := p.parseAssign() // right associative
		if err != nil {
			return nil, err
		}
		return ast.Assign{Op: op, Path: left, Value: val}, nil
	}
	return left, nil
}

func (p *parser) parseAlternative() (ast.Expr, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current().Type == lex.Alternative {
		p.advance()
		right, err := p.parseAlternative() // right associative
		if err != nil {
			return nil, err
		}
		return ast.Alternative{Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().Type == lex.Or {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.BinOp{Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.current().Type == lex.And {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = ast.BinOp{Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

var comparisonOps = map[lex.Type]ast.Op{
	lex.Eq: ast.OpEq,
	lex.Ne: ast.OpNe,
	lex.Lt: ast.OpLt,
	lex.Le: ast.OpLe,
	lex.Gt: ast.OpGt,
	lex.Ge: ast.OpGe,
}

func (p *parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOps[p.current().Type]
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = ast.BinOp{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.Op
		switch p.current().Type {
		case lex.Plus:
			op = ast.OpAdd
		case lex.Minus:
			op = ast.OpSub
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.BinOp{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.Op
		switch p.current().Type {
		case lex.Star:
			op = ast.OpMul
		case lex.Slash:
			op = ast.OpDiv
		case lex.Percent:
			op = ast.OpMod
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.BinOp{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (ast.Expr, error) {
	if p.current().Type == lex.Minus {
		p.advance()
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.Neg{Expr: expr}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parseSuffixes(expr)
}

func (p *parser) parseSuffixes(expr ast.Expr) (ast.Expr, error) {
	for {
		switch p.current().Type {
		case lex.Dot:
			switch p.peek().Type {
			case lex.Ident:
				p.advance()
				name := p.advance().Text
				field := ast.Field{Name: name}
				if p.current().Type == lex.Question {
					p.advance()
					field.Optional = true
				}
				expr = ast.Pipe{Left: expr, Right: field}
			case lex.String:
				p.advance()
				name := p.advance().Text
				field := ast.Field{Name: name}
				if p.current().Type == lex.Question {
					p.advance()
					field.Optional = true
				}
				expr = ast.Pipe{Left: expr, Right: field}
			default:
				return expr, nil
			}
		case lex.LBracket:
			var err error
			expr, err = p.parseBracketSuffix(expr)
			if err != nil {
				return nil, err
			}
		case lex.Question:
			p.advance()
			expr = ast.Optional{Expr: expr}
		default:
			return expr, nil
		}
	}
}

func (p *parser) parseBracketSuffix(base ast.Expr) (ast.Expr, error) {
	p.advance() // [

	// .[] iterate
	if p.current().Type == lex.RBracket {
		p.advance()
		it := ast.Iterate{Base: base}
		if p.current().Type == lex.Question {
			p.advance()
			it.Optional = true
		}
		return it, nil
	}

	// .[:to] slice
	if p.current().Type == lex.Colon {
		p.advance()
		to, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lex.RBracket); err != nil {
			return nil, err
		}
		return ast.Slice{Base: base, To: to}, nil
	}

	idx, err := p.parsePipe()
	if err != nil {
		return nil, err
	}

	// .[from:] or .[from:to] slice
	if p.current().Type == lex.Colon {
		p.advance()
		slice := ast.Slice{Base: base, From: idx}
		if p.current().Type != lex.RBracket {
			to, err := p.parsePipe()
			if err != nil {
				return nil, err
			}
			slice.To = to
		}
		if err := p.expect(lex.RBracket); err != nil {
			return nil, err
		}
		return slice, nil
	}

	if err := p.expect(lex.RBracket); err != nil {
		return nil, err
	}
	ix := ast.Index{Base: base, Idx: idx}
	if p.current().Type == lex.Question {
		p.advance()
		ix.Optional = true
	}
	return ix, nil
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	tok := p.current()
	switch tok.Type {
	case lex.Dot:
		p.advance()
		switch p.current().Type {
		case lex.Ident:
			name := p.advance().Text
			field := ast.Field{Name: name}
			if p.current().Type == lex.Question {
				p.advance()
				field.Optional = true
			}
			return field, nil
		case lex.String:
			name := p.advance().Text
			field := ast.Field{Name: name}
			if p.current().Type == lex.Question {
				p.advance()
				field.Optional = true
			}
			return field, nil
		default:
			// `.` alone; `.[...]` continues via suffix parsing.
			return ast.Identity{}, nil
		}
	case lex.DotDot:
		p.advance()
		return ast.Recurse{}, nil
	case lex.Number:
		p.advance()
		return ast.Literal{Value: tok.Num}, nil
	case lex.String:
		p.advance()
		return ast.Literal{Value: tok.Text}, nil
	case lex.InterpString:
		p.advance()
		return p.buildInterpString("", tok)
	case lex.True:
		p.advance()
		return ast.Literal{Value: true}, nil
	case lex.False:
		p.advance()
		return ast.Literal{Value: false}, nil
	case lex.Null:
		p.advance()
		return ast.Literal{Value: nil}, nil
	case lex.LParen:
		p.advance()
		expr, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lex.RParen); err != nil {
			return nil, err
		}
		return expr, nil
	case lex.LBracket:
		p.advance()
		if p.current().Type == lex.RBracket {
			p.advance()
			return ast.ArrayConstruct{}, nil
		}
		inner, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lex.RBracket); err != nil {
			return nil, err
		}
		return ast.ArrayConstruct{Inner: inner}, nil
	case lex.LBrace:
		return p.parseObjectConstruct()
	case lex.If:
		return p.parseIf()
	case lex.Try:
		p.advance()
		body, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		try := ast.Try{Body: body}
		if p.current().Type == lex.Catch {
			p.advance()
			handler, err := p.parsePostfix()
			if err != nil {
				return nil, err
			}
			try.Catch = handler
		}
		return try, nil
	case lex.Reduce:
		return p.parseReduce()
	case lex.Foreach:
		return p.parseForeach()
	case lex.Not:
		p.advance()
		return ast.FuncCall{Name: "not"}, nil
	case lex.Variable:
		p.advance()
		return ast.VarRef{Name: tok.Text}, nil
	case lex.Format:
		p.advance()
		switch next := p.current(); next.Type {
		case lex.String:
			p.advance()
			return ast.StringInterp{
				Format: tok.Text,
				Pieces: []ast.StringPiece{{Literal: next.Text}},
			}, nil
		case lex.InterpString:
			p.advance()
			return p.buildInterpString(tok.Text, next)
		default:
			return ast.FormatExpr{Name: tok.Text}, nil
		}
	case lex.Ident:
		p.advance()
		if p.current().Type != lex.LParen {
			return ast.FuncCall{Name: tok.Text}, nil
		}
		p.advance()
		var args []ast.Expr
		if p.current().Type != lex.RParen {
			arg, err := p.parsePipe()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			for p.current().Type == lex.Semicolon {
				p.advance()
				arg, err := p.parsePipe()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
		}
		if err := p.expect(lex.RParen); err != nil {
			return nil, err
		}
		return ast.FuncCall{Name: tok.Text, Args: args}, nil
	case lex.Break:
		p.advance()
		if p.current().Type != lex.Variable {
			return nil, p.errorf("expected $label after 'break'")
		}
		name := p.advance().Text
		return ast.BreakExpr{Name: name}, nil
	default:
		return nil, p.errorf("unexpected %s", tok.Type)
	}
}

func (p *parser) buildInterpString(formatName string, tok lex.Token) (ast.Expr, error) {
	pieces := make([]ast.StringPiece, 0, len(tok.Segments))
	for _, seg := range tok.Segments {
		if seg.Tokens == nil {
			pieces = append(pieces, ast.StringPiece{Literal: seg.Literal})
			continue
		}
		sub := &parser{tokens: seg.Tokens}
		expr, err := sub.parsePipe()
		if err != nil {
			return nil, err
		}
		if sub.current().Type != lex.EOF {
			return nil, sub.errorf("unexpected %s in string interpolation", sub.current().Type)
		}
		pieces = append(pieces, ast.StringPiece{Expr: expr})
	}
	return ast.StringInterp{Format: formatName, Pieces: pieces}, nil
}

func (p *parser) parseObjectConstruct() (ast.Expr, error) {
	p.advance() // {
	var entries []ast.ObjectEntry

	for p.current().Type != lex.RBrace {
		entry, err := p.parseObjectEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		if p.current().Type != lex.Comma {
			break
		}
		p.advance()
	}
	if err := p.expect(lex.RBrace); err != nil {
		return nil, err
	}
	return ast.ObjectConstruct{Entries: entries}, nil
}

func (p *parser) parseObjectEntry() (ast.ObjectEntry, error) {
	tok := p.current()
	switch tok.Type {
	case lex.Ident:
		p.advance()
		if p.current().Type != lex.Colon {
			// {name} is {name: .name}
			return ast.ObjectEntry{Key: tok.Text, Value: ast.Field{Name: tok.Text}}, nil
		}
		p.advance()
		val, err := p.parseNoComma()
		if err != nil {
			return ast.ObjectEntry{}, err
		}
		return ast.ObjectEntry{Key: tok.Text, Value: val}, nil
	case lex.String:
		p.advance()
		if p.current().Type != lex.Colon {
			return ast.ObjectEntry{Key: tok.Text, Value: ast.Field{Name: tok.Text}}, nil
		}
		p.advance()
		val, err := p.parseNoComma()
		if err != nil {
			return ast.ObjectEntry{}, err
		}
		return ast.ObjectEntry{Key: tok.Text, Value: val}, nil
	case lex.Variable:
		p.advance()
		if p.current().Type != lex.Colon {
			// {$v} is {v: $v}
			return ast.ObjectEntry{Key: tok.Text, Value: ast.VarRef{Name: tok.Text}}, nil
		}
		p.advance()
		val, err := p.parseNoComma()
		if err != nil {
			return ast.ObjectEntry{}, err
		}
		return ast.ObjectEntry{KeyExpr: ast.VarRef{Name: tok.Text}, Value: val}, nil
	case lex.Format:
		p.advance()
		return ast.ObjectEntry{Key: tok.Text, Value: ast.FormatExpr{Name: tok.Text}}, nil
	case lex.LParen:
		p.advance()
		keyExpr, err := p.parsePipe()
		if err != nil {
			return ast.ObjectEntry{}, err
		}
		if err := p.expect(lex.RParen); err != nil {
			return ast.ObjectEntry{}, err
		}
		if err := p.expect(lex.Colon); err != nil {
			return ast.ObjectEntry{}, err
		}
		val, err := p.parseNoComma()
		if err != nil {
			return ast.ObjectEntry{}, err
		}
		return ast.ObjectEntry{KeyExpr: keyExpr, Value: val}, nil
	default:
		return ast.ObjectEntry{}, p.errorf("expected object key, got %s", tok.Type)
	}
}

func (p *parser) parseIf() (ast.Expr, error) {
	p.advance() // if
	cond, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lex.Then); err != nil {
		return nil, err
	}
	then, err := p.parsePipe()
	if err != nil {
		return nil, err
	}

	out := ast.If{Cond: cond, Then: then}
	for p.current().Type == lex.Elif {
		p.advance()
		elifCond, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lex.Then); err != nil {
			return nil, err
		}
		elifThen, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		out.Elif = append(out.Elif, ast.IfBranch{Cond: elifCond, Then: elifThen})
	}
	if p.current().Type == lex.Else {
		p.advance()
		elseExpr, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		out.Else = elseExpr
	}
	if err := p.expect(lex.End); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *parser) parseReduce() (ast.Expr, error) {
	p.advance() // reduce
	src, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lex.As); err != nil {
		return nil, err
	}
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lex.LParen); err != nil {
		return nil, err
	}
	init, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lex.Semicolon); err != nil {
		return nil, err
	}
	update, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lex.RParen); err != nil {
		return nil, err
	}
	return ast.Reduce{Expr: src, Pattern: pattern, Init: init, Update: update}, nil
}

func (p *parser) parseForeach() (ast.Expr, error) {
	p.advance() // foreach
	src, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lex.As); err != nil {
		return nil, err
	}
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lex.LParen); err != nil {
		return nil, err
	}
	init, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lex.Semicolon); err != nil {
		return nil, err
	}
	update, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	out := ast.Foreach{Expr: src, Pattern: pattern, Init: init, Update: update}
	if p.current().Type == lex.Semicolon {
		p.advance()
		extract, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		out.Extract = extract
	}
	if err := p.expect(lex.RParen); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *parser) parseFuncDef() (ast.Expr, error) {
	p.advance() // def
	if p.current().Type != lex.Ident {
		return nil, p.errorf("expected function name, got %s", p.current().Type)
	}
	name := p.advance().Text

	var params []string
	if p.current().Type == lex.LParen {
		p.advance()
		for {
			if p.current().Type != lex.Ident {
				return nil, p.errorf("expected parameter name, got %s", p.current().Type)
			}
			params = append(params, p.advance().Text)
			if p.current().Type != lex.Semicolon {
				break
			}
			p.advance()
		}
		if err := p.expect(lex.RParen); err != nil {
			return nil, err
		}
	}

	if err := p.expect(lex.Colon); err != nil {
		return nil, err
	}
	body, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lex.Semicolon); err != nil {
		return nil, err
	}
	rest, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	return ast.FuncDef{Name: name, Params: params, Body: body, Rest: rest}, nil
}

func (p *parser) parseLabel() (ast.Expr, error) {
	p.advance() // label
	if p.current().Type != lex.Variable {
		return nil, p.errorf("expected $label after 'label'")
	}
	name := p.advance().Text
	if err := p.expect(lex.Pipe); err != nil {
		return nil, err
	}
	body, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	return ast.LabelExpr{Name: name, Body: body}, nil
}

func (p *parser) parsePattern() (ast.Pattern, error) {
	tok := p.current()
	switch tok.Type {
	case lex.Variable:
		p.advance()
		return ast.VarPattern{Name: tok.Text}, nil
	case lex.LBracket:
		p.advance()
		var elems []ast.Pattern
		for p.current().Type != lex.RBracket {
			elem, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
			if p.current().Type != lex.Comma {
				break
			}
			p.advance()
		}
		if err := p.expect(lex.RBracket); err != nil {
			return nil, err
		}
		return ast.ArrayPattern{Elems: elems}, nil
	case lex.LBrace:
		p.advance()
		var out ast.ObjectPattern
		for p.current().Type != lex.RBrace {
			key, pat, err := p.parseObjectPatternEntry()
			if err != nil {
				return nil, err
			}
			out.Keys = append(out.Keys, key)
			out.Patterns = append(out.Patterns, pat)
			if p.current().Type != lex.Comma {
				break
			}
			p.advance()
		}
		if err := p.expect(lex.RBrace); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, p.errorf("expected pattern ($var, [...] or {...}), got %s", tok.Type)
	}
}

func (p *parser) parseObjectPatternEntry() (string, ast.Pattern, error) {
	tok := p.current()
	switch tok.Type {
	case lex.Ident, lex.String:
		p.advance()
		if err := p.expect(lex.Colon); err != nil {
			return "", nil, err
		}
		pat, err := p.parsePattern()
		if err != nil {
			return "", nil, err
		}
		return tok.Text, pat, nil
	case lex.Variable:
		// {$name} binds .name to $name
		p.advance()
		return tok.Text, ast.VarPattern{Name: tok.Text}, nil
	default:
		return "", nil, p.errorf("expected field name in pattern, got %s", tok.Type)
	}
}
