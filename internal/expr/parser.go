package expr

import (
	"fmt"
	"strconv"
)

// Parser builds an expression tree from tokens. Precedence, lowest first:
//
//	or, and, not, comparisons, |, &, + -, * / // %, unary - + ~, **, postfix
//
// Comparisons do not chain.
type Parser struct {
	tokens  []Token
	curPos  int
	curTok  Token
	peekTok Token
}

func NewParser(tokens []Token) *Parser {
	p := &Parser{tokens: tokens}
	// Read two tokens to set curTok and peekTok
	p.nextToken()
	p.nextToken()
	return p
}

// Parse lexes and parses a complete expression.
func Parse(src string) (Node, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return NewParser(toks).Parse()
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	if p.curPos < len(p.tokens) {
		p.peekTok = p.tokens[p.curPos]
		p.curPos++
	} else {
		p.peekTok = Token{Type: EOF, Pos: p.curTok.Pos}
	}
}

func (p *Parser) Parse() (Node, error) {
	if p.curTok.Type == EOF {
		return nil, &SyntaxError{Pos: p.curTok.Pos, Msg: "empty expression"}
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.curTok.Type != EOF {
		return nil, p.unexpected()
	}
	return n, nil
}

func (p *Parser) unexpected() error {
	if p.curTok.Type == EOF {
		return &SyntaxError{Pos: p.curTok.Pos, Msg: "unexpected end of expression"}
	}
	return &SyntaxError{Pos: p.curTok.Pos, Msg: fmt.Sprintf("unexpected %s %q", p.curTok.Type, p.curTok.Literal)}
}

func (p *Parser) expect(t TokenType) error {
	if p.curTok.Type != t {
		if p.curTok.Type == EOF {
			return &SyntaxError{Pos: p.curTok.Pos, Msg: fmt.Sprintf("expected %s before end of expression", t)}
		}
		return &SyntaxError{Pos: p.curTok.Pos, Msg: fmt.Sprintf("expected %s, found %q", t, p.curTok.Literal)}
	}
	p.nextToken()
	return nil
}

// binaryLevel parses left-associative chains of ops over next.
func (p *Parser) binaryLevel(next func() (Node, error), ops ...TokenType) (Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.isOneOf(ops...) {
		op := p.curTok
		p.nextToken()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &Binary{At: op.Pos, Op: op.Type, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) isOneOf(ops ...TokenType) bool {
	for _, op := range ops {
		if p.curTok.Type == op {
			return true
		}
	}
	return false
}

func (p *Parser) parseOr() (Node, error)  { return p.binaryLevel(p.parseAnd, OR) }
func (p *Parser) parseAnd() (Node, error) { return p.binaryLevel(p.parseNot, AND) }

func (p *Parser) parseNot() (Node, error) {
	if p.curTok.Type == NOT {
		at := p.curTok.Pos
		p.nextToken()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Unary{At: at, Op: NOT, X: x}, nil
	}
	return p.parseComparison()
}

var comparisonOps = []TokenType{EQ, NE, LT, LE, GT, GE}

func (p *Parser) parseComparison() (Node, error) {
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	if !p.isOneOf(comparisonOps...) {
		return left, nil
	}
	op := p.curTok
	p.nextToken()
	right, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	if p.isOneOf(comparisonOps...) {
		return nil, &SyntaxError{Pos: p.curTok.Pos, Msg: "chained comparisons are not supported; combine them with '&' or 'and'"}
	}
	return &Binary{At: op.Pos, Op: op.Type, Left: left, Right: right}, nil
}

func (p *Parser) parseBitOr() (Node, error)  { return p.binaryLevel(p.parseBitAnd, PIPE) }
func (p *Parser) parseBitAnd() (Node, error) { return p.binaryLevel(p.parseAdditive, AMP) }
func (p *Parser) parseAdditive() (Node, error) {
	return p.binaryLevel(p.parseMultiplicative, PLUS, MINUS)
}
func (p *Parser) parseMultiplicative() (Node, error) {
	return p.binaryLevel(p.parseUnary, STAR, SLASH, DSLASH, PERCENT)
}

func (p *Parser) parseUnary() (Node, error) {
	if p.isOneOf(MINUS, PLUS, TILDE) {
		op := p.curTok
		p.nextToken()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{At: op.Pos, Op: op.Type, X: x}, nil
	}
	return p.parsePower()
}

// parsePower binds tighter than unary minus on its left, so -2**2 is -4,
// and is right-associative through parseUnary.
func (p *Parser) parsePower() (Node, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.curTok.Type != POW {
		return base, nil
	}
	op := p.curTok
	p.nextToken()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Binary{At: op.Pos, Op: POW, Left: base, Right: exp}, nil
}

func (p *Parser) parsePostfix() (Node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.curTok.Type {
		case LBRACKET:
			at := p.curTok.Pos
			p.nextToken()
			idx, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(RBRACKET); err != nil {
				return nil, err
			}
			x = &Index{At: at, X: x, Index: idx}
		case DOT:
			at := p.curTok.Pos
			p.nextToken()
			if p.curTok.Type != IDENT {
				return nil, &SyntaxError{Pos: p.curTok.Pos, Msg: "expected attribute name after '.'"}
			}
			x = &Attr{At: at, X: x, Name: p.curTok.Literal}
			p.nextToken()
		case LPAREN:
			switch x.(type) {
			case *Ident, *Attr:
			default:
				return nil, &SyntaxError{Pos: p.curTok.Pos, Msg: "only functions and methods can be called"}
			}
			at := p.curTok.Pos
			p.nextToken()
			args, err := p.parseList(RPAREN)
			if err != nil {
				return nil, err
			}
			x = &Call{At: at, Fn: x, Args: args}
		default:
			return x, nil
		}
	}
}

// parseList parses comma-separated expressions up to and including end.
// A trailing comma is allowed.
func (p *Parser) parseList(end TokenType) ([]Node, error) {
	var list []Node
	for p.curTok.Type != end {
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if p.curTok.Type == COMMA {
			p.nextToken()
			continue
		}
		if p.curTok.Type != end {
			return nil, p.expect(end)
		}
	}
	p.nextToken()
	return list, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.curTok
	switch tok.Type {
	case INT:
		p.nextToken()
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(tok.Literal, 64)
			if ferr != nil {
				return nil, &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf("invalid number %q", tok.Literal)}
			}
			return &FloatLit{At: tok.Pos, Value: f}, nil
		}
		return &IntLit{At: tok.Pos, Value: v}, nil
	case FLOAT:
		p.nextToken()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf("invalid number %q", tok.Literal)}
		}
		return &FloatLit{At: tok.Pos, Value: f}, nil
	case STRING:
		p.nextToken()
		return &StringLit{At: tok.Pos, Value: tok.Literal}, nil
	case TRUE, FALSE:
		p.nextToken()
		return &BoolLit{At: tok.Pos, Value: tok.Type == TRUE}, nil
	case NONE:
		p.nextToken()
		return &NoneLit{At: tok.Pos}, nil
	case IDENT:
		p.nextToken()
		return &Ident{At: tok.Pos, Name: tok.Literal}, nil
	case LPAREN:
		p.nextToken()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case LBRACKET:
		p.nextToken()
		elems, err := p.parseList(RBRACKET)
		if err != nil {
			return nil, err
		}
		return &ListLit{At: tok.Pos, Elems: elems}, nil
	default:
		return nil, p.unexpected()
	}
}
