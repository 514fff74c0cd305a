package expr

import (
	"fmt"
	"strings"
)

type TokenType int

const (
	// Special
	ILLEGAL TokenType = iota
	EOF

	// Literals
	IDENT  // data, mean
	INT    // 42
	FLOAT  // 4.2, 1e3
	STRING // 'x' or "x"

	// Keywords
	AND
	OR
	NOT
	TRUE
	FALSE
	NONE

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	DSLASH  // //
	PERCENT // %
	POW     // **
	EQ      // ==
	NE      // !=
	LT      // <
	LE      // <=
	GT      // >
	GE      // >=
	AMP     // &
	PIPE    // |
	TILDE   // ~

	// Punctuation
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	COMMA    // ,
	DOT      // .
)

var keywords = map[string]TokenType{
	"and":   AND,
	"or":    OR,
	"not":   NOT,
	"True":  TRUE,
	"False": FALSE,
	"None":  NONE,
}

var tokenNames = map[TokenType]string{
	ILLEGAL: "ILLEGAL", EOF: "end of input", IDENT: "identifier", INT: "integer",
	FLOAT: "float", STRING: "string", AND: "'and'", OR: "'or'", NOT: "'not'",
	TRUE: "'True'", FALSE: "'False'", NONE: "'None'",
	PLUS: "'+'", MINUS: "'-'", STAR: "'*'", SLASH: "'/'", DSLASH: "'//'",
	PERCENT: "'%'", POW: "'**'", EQ: "'=='", NE: "'!='", LT: "'<'", LE: "'<='",
	GT: "'>'", GE: "'>='", AMP: "'&'", PIPE: "'|'", TILDE: "'~'",
	LPAREN: "'('", RPAREN: "')'", LBRACKET: "'['", RBRACKET: "']'",
	COMMA: "','", DOT: "'.'",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a lexeme with its byte offset in the source.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q)", t.Type, t.Literal)
}

// Lexer splits an expression into tokens. String literals are returned
// unquoted with escapes resolved.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	err          *SyntaxError
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// Tokenize lexes the whole input, ending with an EOF token.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		if tok.Type == ILLEGAL {
			if l.err != nil {
				return nil, l.err
			}
			return nil, &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf("unexpected character %q", tok.Literal)}
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	pos := l.position

	two := func(typ TokenType) Token {
		lit := l.input[pos : pos+2]
		l.readChar()
		l.readChar()
		return Token{Type: typ, Literal: lit, Pos: pos}
	}

	var tok Token
	switch l.ch {
	case '+':
		tok = newToken(PLUS, l.ch, pos)
	case '-':
		tok = newToken(MINUS, l.ch, pos)
	case '*':
		if l.peekChar() == '*' {
			return two(POW)
		}
		tok = newToken(STAR, l.ch, pos)
	case '/':
		if l.peekChar() == '/' {
			return two(DSLASH)
		}
		tok = newToken(SLASH, l.ch, pos)
	case '%':
		tok = newToken(PERCENT, l.ch, pos)
	case '=':
		if l.peekChar() == '=' {
			return two(EQ)
		}
		l.err = &SyntaxError{Pos: pos, Msg: "assignment is not allowed; use '==' to compare"}
		tok = newToken(ILLEGAL, l.ch, pos)
	case '!':
		if l.peekChar() == '=' {
			return two(NE)
		}
		tok = newToken(ILLEGAL, l.ch, pos)
	case '<':
		if l.peekChar() == '=' {
			return two(LE)
		}
		tok = newToken(LT, l.ch, pos)
	case '>':
		if l.peekChar() == '=' {
			return two(GE)
		}
		tok = newToken(GT, l.ch, pos)
	case '&':
		tok = newToken(AMP, l.ch, pos)
	case '|':
		tok = newToken(PIPE, l.ch, pos)
	case '~':
		tok = newToken(TILDE, l.ch, pos)
	case '(':
		tok = newToken(LPAREN, l.ch, pos)
	case ')':
		tok = newToken(RPAREN, l.ch, pos)
	case '[':
		tok = newToken(LBRACKET, l.ch, pos)
	case ']':
		tok = newToken(RBRACKET, l.ch, pos)
	case ',':
		tok = newToken(COMMA, l.ch, pos)
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber()
		}
		tok = newToken(DOT, l.ch, pos)
	case '\'', '"':
		return l.readString()
	case 0:
		return Token{Type: EOF, Pos: pos}
	default:
		if isLetter(l.ch) {
			lit := l.readIdentifier()
			if kw, ok := keywords[lit]; ok {
				return Token{Type: kw, Literal: lit, Pos: pos}
			}
			return Token{Type: IDENT, Literal: lit, Pos: pos}
		}
		if isDigit(l.ch) {
			return l.readNumber()
		}
		tok = newToken(ILLEGAL, l.ch, pos)
	}

	l.readChar()
	return tok
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber accepts 12, 1_000, 1.5, .5, 1., 2e10 and 1.5E-3.
func (l *Lexer) readNumber() Token {
	position := l.position
	typ := INT
	digits := func() {
		for isDigit(l.ch) || (l.ch == '_' && isDigit(l.peekChar())) {
			l.readChar()
		}
	}
	digits()
	if l.ch == '.' {
		typ = FLOAT
		l.readChar()
		digits()
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && l.readPosition+1 < len(l.input) && isDigit(l.input[l.readPosition+1])) {
			typ = FLOAT
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			digits()
		}
	}
	lit := strings.ReplaceAll(l.input[position:l.position], "_", "")
	if isLetter(l.ch) {
		l.err = &SyntaxError{Pos: l.position, Msg: fmt.Sprintf("invalid number literal %q", l.input[position:l.position+1])}
		return Token{Type: ILLEGAL, Literal: lit, Pos: position}
	}
	return Token{Type: typ, Literal: lit, Pos: position}
}

func (l *Lexer) readString() Token {
	position := l.position
	quote := l.ch
	var sb strings.Builder
	for {
		l.readChar()
		switch l.ch {
		case 0:
			l.err = &SyntaxError{Pos: position, Msg: "unterminated string literal"}
			return Token{Type: ILLEGAL, Literal: l.input[position:], Pos: position}
		case quote:
			l.readChar()
			return Token{Type: STRING, Literal: sb.String(), Pos: position}
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 0:
				l.err = &SyntaxError{Pos: position, Msg: "unterminated string literal"}
				return Token{Type: ILLEGAL, Literal: l.input[position:], Pos: position}
			case '\\', '\'', '"':
				sb.WriteByte(l.ch)
			default:
				sb.WriteByte('\\')
				sb.WriteByte(l.ch)
			}
		default:
			sb.WriteByte(l.ch)
		}
	}
}

func newToken(tokenType TokenType, ch byte, pos int) Token {
	return Token{Type: tokenType, Literal: string(ch), Pos: pos}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
