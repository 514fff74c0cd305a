package expr

import (
	"strconv"
	"strings"
)

// Node is an expression tree node.
type Node interface {
	Pos() int
	String() string
	exprNode()
}

type (
	// IntLit is an integer literal.
	IntLit struct {
		At    int
		Value int64
	}
	// FloatLit is a floating point literal.
	FloatLit struct {
		At    int
		Value float64
	}
	// StringLit is a quoted string.
	StringLit struct {
		At    int
		Value string
	}
	// BoolLit is True or False.
	BoolLit struct {
		At    int
		Value bool
	}
	// NoneLit is None.
	NoneLit struct {
		At int
	}
	// Ident names a binding or a builtin function.
	Ident struct {
		At   int
		Name string
	}
	// ListLit is [a, b, ...].
	ListLit struct {
		At    int
		Elems []Node
	}
	// Unary is -x, +x, ~x or not x.
	Unary struct {
		At int
		Op TokenType
		X  Node
	}
	// Binary covers arithmetic, comparison and boolean operators.
	Binary struct {
		At    int
		Op    TokenType
		Left  Node
		Right Node
	}
	// Index is x[i].
	Index struct {
		At    int
		X     Node
		Index Node
	}
	// Attr is x.name.
	Attr struct {
		At   int
		X    Node
		Name string
	}
	// Call is f(args) for a builtin or x.method(args).
	Call struct {
		At   int
		Fn   Node // *Ident or *Attr
		Args []Node
	}
)

func (n *IntLit) Pos() int    { return n.At }
func (n *FloatLit) Pos() int  { return n.At }
func (n *StringLit) Pos() int { return n.At }
func (n *BoolLit) Pos() int   { return n.At }
func (n *NoneLit) Pos() int   { return n.At }
func (n *Ident) Pos() int     { return n.At }
func (n *ListLit) Pos() int   { return n.At }
func (n *Unary) Pos() int     { return n.At }
func (n *Binary) Pos() int    { return n.At }
func (n *Index) Pos() int     { return n.At }
func (n *Attr) Pos() int      { return n.At }
func (n *Call) Pos() int      { return n.At }

func (*IntLit) exprNode()    {}
func (*FloatLit) exprNode()  {}
func (*StringLit) exprNode() {}
func (*BoolLit) exprNode()   {}
func (*NoneLit) exprNode()   {}
func (*Ident) exprNode()     {}
func (*ListLit) exprNode()   {}
func (*Unary) exprNode()     {}
func (*Binary) exprNode()    {}
func (*Index) exprNode()     {}
func (*Attr) exprNode()      {}
func (*Call) exprNode()      {}

func (n *IntLit) String() string    { return strconv.FormatInt(n.Value, 10) }
func (n *FloatLit) String() string  { return Float(n.Value).String() }
func (n *StringLit) String() string { return Str(n.Value).Repr() }
func (n *BoolLit) String() string   { return Bool(n.Value).String() }
func (n *NoneLit) String() string   { return "None" }
func (n *Ident) String() string     { return n.Name }

func (n *ListLit) String() string { return "[" + joinNodes(n.Elems) + "]" }

func (n *Unary) String() string {
	if n.Op == NOT {
		return "(not " + n.X.String() + ")"
	}
	return "(" + opText(n.Op) + n.X.String() + ")"
}

func (n *Binary) String() string {
	return "(" + n.Left.String() + " " + opText(n.Op) + " " + n.Right.String() + ")"
}

func (n *Index) String() string { return n.X.String() + "[" + n.Index.String() + "]" }
func (n *Attr) String() string  { return n.X.String() + "." + n.Name }
func (n *Call) String() string  { return n.Fn.String() + "(" + joinNodes(n.Args) + ")" }

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, e := range nodes {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func opText(op TokenType) string {
	switch op {
	case AND:
		return "and"
	case OR:
		return "or"
	case NOT:
		return "not"
	}
	return strings.Trim(op.String(), "'")
}
