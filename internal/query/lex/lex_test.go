package lex

import "testing"

func types(tokens []Token) []Type {
	out := make([]Type, len(tokens))
	for i, t := range tokens {
		out[i] = t.Type
	}
	return out
}

func mustTokenize(t *testing.T, input string) []Token {
	t.Helper()
	tokens, err := Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize(%q) error = %v", input, err)
	}
	return tokens
}

func TestTokenizeBasics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []Type
	}{
		{"identity", ".", []Type{Dot, EOF}},
		{"field path", ".foo.bar", []Type{Dot, Ident, Dot, Ident, EOF}},
		{"recurse", "..", []Type{DotDot, EOF}},
		{"index", ".[0]", []Type{Dot, LBracket, Number, RBracket, EOF}},
		{"pipe", ".a | .b", []Type{Dot, Ident, Pipe, Dot, Ident, EOF}},
		{"alternative", ".a // .b", []Type{Dot, Ident, Alternative, Dot, Ident, EOF}},
		{"comparisons", "== != < <= > >=", []Type{Eq, Ne, Lt, Le, Gt, Ge, EOF}},
		{"arithmetic", "+ - * / %", []Type{Plus, Minus, Star, Slash, Percent, EOF}},
		{"assignments", "= |= += -= *= /= %= //=", []Type{Assign, UpdateAssign, PlusAssign, MinusAssign, StarAssign, SlashAssign, PercentAssign, AltAssign, EOF}},
		{"keywords", "if then elif else end and or not", []Type{If, Then, Elif, Else, End, And, Or, Not, EOF}},
		{"def", "def f(a; b): .; f", []Type{Def, Ident, LParen, Ident, Semicolon, Ident, RParen, Colon, Dot, Semicolon, Ident, EOF}},
		{"variable", "$x", []Type{Variable, EOF}},
		{"format", "@base64", []Type{Format, EOF}},
		{"comment", ". # trailing words", []Type{Dot, EOF}},
		{"object", "{a: 1}", []Type{LBrace, Ident, Colon, Number, RBrace, EOF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := types(mustTokenize(t, tt.input))
			if len(got) != len(tt.want) {
				t.Fatalf("types = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("types = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestTokenizeNumbers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  float64
	}{
		{"0", 0},
		{"42", 42},
		{"3.25", 3.25},
		{".5", 0.5},
		{"1e3", 1000},
		{"2.5e-1", 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := mustTokenize(t, tt.input)
			if tokens[0].Type != Number {
				t.Fatalf("token type = %v, want Number", tokens[0].Type)
			}
			if tokens[0].Num != tt.want {
				t.Errorf("number = %v, want %v", tokens[0].Num, tt.want)
			}
		})
	}
}

func TestTokenizeStrings(t *testing.T) {
	t.Parallel()

	tokens := mustTokenize(t, `"hello world"`)
	if tokens[0].Type != String || tokens[0].Text != "hello world" {
		t.Fatalf("token = %+v, want plain string", tokens[0])
	}

	tokens = mustTokenize(t, `"a\tb\n\"c\"A"`)
	if tokens[0].Text != "a\tb\n\"c\"A" {
		t.Errorf("escapes = %q", tokens[0].Text)
	}
}

func TestTokenizeInterpolation(t *testing.T) {
	t.Parallel()

	tokens := mustTokenize(t, `"Hello \(.name)!"`)
	tok := tokens[0]
	if tok.Type != InterpString {
		t.Fatalf("token type = %v, want InterpString", tok.Type)
	}
	if len(tok.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(tok.Segments))
	}
	if tok.Segments[0].Literal != "Hello " {
		t.Errorf("segment[0] = %q", tok.Segments[0].Literal)
	}
	if tok.Segments[1].Tokens == nil {
		t.Fatal("segment[1] must carry tokens")
	}
	sub := types(tok.Segments[1].Tokens)
	if sub[0] != Dot || sub[1] != Ident {
		t.Errorf("interpolated tokens = %v", sub)
	}
	if tok.Segments[2].Literal != "!" {
		t.Errorf("segment[2] = %q", tok.Segments[2].Literal)
	}
}

func TestTokenizeErrors(t *testing.T) {
	t.Parallel()

	tests := []string{
		`"unterminated`,
		`"bad \q escape"`,
		`"\u00`,
		"&",
		"!",
		"$",
		"@",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := Tokenize(input); err == nil {
				t.Errorf("Tokenize(%q) expected error", input)
			}
		})
	}
}

func TestTokenPositions(t *testing.T) {
	t.Parallel()

	tokens := mustTokenize(t, ".a |\n  .b")
	// .b sits on line 2, column 3
	last := tokens[len(tokens)-3]
	if last.Line != 2 || last.Column != 3 {
		t.Errorf("position = %d:%d, want 2:3", last.Line, last.Column)
	}
}
