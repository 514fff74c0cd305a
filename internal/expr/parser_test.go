package expr

import (
	"errors"
	"strings"
	"testing"
)

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"-2 ** 2", "(-(2 ** 2))"},
		{"2 ** 3 ** 2", "(2 ** (3 ** 2))"},
		{"2 ** -1", "(2 ** (-1))"},
		{"not a and b or c", "(((not a) and b) or c)"},
		{"a == 1 | b", "(a == (1 | b))"},
		{"(a > 1) & (b < 2)", "((a > 1) & (b < 2))"},
		{"~m", "(~m)"},
		{"7 // 2 % 3", "((7 // 2) % 3)"},
		{"data['x'].mean()", "data['x'].mean()"},
		{"data[data.x >= 1.5]", "data[(data.x >= 1.5)]"},
		{"max([1, 2,], 3)", "max([1, 2], 3)"},
		{"data[['a', 'b']].head(2)", "data[['a', 'b']].head(2)"},
		{"x != None", "(x != None)"},
		{"True or False", "(True or False)"},
	}
	for _, tt := range tests {
		n, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if got := n.String(); got != tt.want {
			t.Errorf("Parse(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		in     string
		substr string
	}{
		{"", "empty expression"},
		{"   ", "empty expression"},
		{"data['x'", "expected ']'"},
		{"1 +", "unexpected end of expression"},
		{"1 < 2 < 3", "chained comparisons"},
		{"data.", "expected attribute name"},
		{"(1)(2)", "only functions and methods can be called"},
		{"1 2", "unexpected integer"},
		{"lambda x", "unexpected identifier"},
		{"f(1,,2)", "unexpected ','"},
	}
	for _, tt := range tests {
		_, err := Parse(tt.in)
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("Parse(%q) error = %v, want *SyntaxError", tt.in, err)
		}
		if !strings.Contains(err.Error(), tt.substr) {
			t.Errorf("Parse(%q) error = %q, want it to contain %q", tt.in, err, tt.substr)
		}
	}
}
