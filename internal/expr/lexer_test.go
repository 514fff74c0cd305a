package expr

import (
	"errors"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	toks, err := Tokenize(`data['x'] >= 1.5e3 and not data.y // 2 != "a\"b"`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []struct {
		typ TokenType
		lit string
	}{
		{IDENT, "data"}, {LBRACKET, "["}, {STRING, "x"}, {RBRACKET, "]"},
		{GE, ">="}, {FLOAT, "1.5e3"}, {AND, "and"}, {NOT, "not"},
		{IDENT, "data"}, {DOT, "."}, {IDENT, "y"}, {DSLASH, "//"}, {INT, "2"},
		{NE, "!="}, {STRING, `a"b`}, {EOF, ""},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w.typ || toks[i].Literal != w.lit {
			t.Errorf("token %d = %v, want %s %q", i, toks[i], w.typ, w.lit)
		}
	}
}

func TestTokenizeNumbers(t *testing.T) {
	tests := []struct {
		in  string
		typ TokenType
		lit string
	}{
		{"42", INT, "42"},
		{"1_000", INT, "1000"},
		{".5", FLOAT, ".5"},
		{"3.", FLOAT, "3."},
		{"2E-3", FLOAT, "2E-3"},
	}
	for _, tt := range tests {
		toks, err := Tokenize(tt.in)
		if err != nil {
			t.Fatalf("Tokenize(%q): %v", tt.in, err)
		}
		if toks[0].Type != tt.typ || toks[0].Literal != tt.lit {
			t.Errorf("Tokenize(%q)[0] = %v, want %s %q", tt.in, toks[0], tt.typ, tt.lit)
		}
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		in     string
		pos    int
		substr string
	}{
		{"data['x'] = 1", 10, "assignment is not allowed"},
		{"'open", 0, "unterminated string"},
		{"1abc", 1, "invalid number literal"},
		{"a $ b", 2, "unexpected character"},
		{"a ! b", 2, "unexpected character"},
	}
	for _, tt := range tests {
		_, err := Tokenize(tt.in)
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("Tokenize(%q) error = %v, want *SyntaxError", tt.in, err)
		}
		if se.Pos != tt.pos || !strings.Contains(se.Msg, tt.substr) {
			t.Errorf("Tokenize(%q) = pos %d %q, want pos %d containing %q", tt.in, se.Pos, se.Msg, tt.pos, tt.substr)
		}
	}
}
