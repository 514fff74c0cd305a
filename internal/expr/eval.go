package expr

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// Binding is the only name an expression can reference besides builtins.
const Binding = "data"

// ErrNoData is returned when an expression is evaluated without a table.
var ErrNoData = errors.New("no data loaded")

// Program is a parsed expression ready to evaluate against any table.
type Program struct {
	src  string
	root Node
}

// Compile parses src. The returned Program is safe for concurrent use.
func Compile(src string) (*Program, error) {
	root, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return &Program{src: src, root: root}, nil
}

// Source returns the expression text as given.
func (p *Program) Source() string { return p.src }

// String renders the parsed tree with explicit grouping.
func (p *Program) String() string { return p.root.String() }

// Eval runs the program with t bound to data. Evaluation never panics;
// unexpected failures come back as errors.
func (p *Program) Eval(t *dataset.Table) (v Value, err error) {
	if t == nil {
		return nil, ErrNoData
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("internal error evaluating %q: %v", p.src, r)
		}
	}()
	in := &interp{data: NewFrame(t)}
	return in.eval(p.root)
}

// Eval compiles and evaluates src in one step.
func Eval(src string, t *dataset.Table) (Value, error) {
	p, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return p.Eval(t)
}

type interp struct {
	data *Frame
}

func (in *interp) eval(n Node) (Value, error) {
	switch n := n.(type) {
	case *IntLit:
		return Int(n.Value), nil
	case *FloatLit:
		return Float(n.Value), nil
	case *StringLit:
		return Str(n.Value), nil
	case *BoolLit:
		return Bool(n.Value), nil
	case *NoneLit:
		return Null{}, nil
	case *Ident:
		if n.Name == Binding {
			return in.data, nil
		}
		if _, ok := builtins[n.Name]; ok {
			return nil, typeErrorf("%s is a function; call it as %s(...)", n.Name, n.Name)
		}
		return nil, &NameError{Name: n.Name}
	case *ListLit:
		out := make(List, len(n.Elems))
		for i, e := range n.Elems {
			v, err := in.eval(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *Unary:
		x, err := in.eval(n.X)
		if err != nil {
			return nil, err
		}
		return unary(n.Op, x)
	case *Binary:
		return in.binary(n)
	case *Index:
		x, err := in.eval(n.X)
		if err != nil {
			return nil, err
		}
		i, err := in.eval(n.Index)
		if err != nil {
			return nil, err
		}
		return index(x, i)
	case *Attr:
		x, err := in.eval(n.X)
		if err != nil {
			return nil, err
		}
		return attr(x, n.Name)
	case *Call:
		return in.call(n)
	}
	return nil, fmt.Errorf("unsupported node %T", n)
}

func (in *interp) binary(n *Binary) (Value, error) {
	left, err := in.eval(n.Left)
	if err != nil {
		return nil, err
	}
	if n.Op == AND || n.Op == OR {
		t, err := truthy(left)
		if err != nil {
			return nil, err
		}
		if (n.Op == AND && !t) || (n.Op == OR && t) {
			return left, nil
		}
		return in.eval(n.Right)
	}
	right, err := in.eval(n.Right)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case EQ, NE, LT, LE, GT, GE:
		return compare(n.Op, left, right)
	case AMP, PIPE:
		return bitwise(n.Op, left, right)
	default:
		return arith(n.Op, left, right)
	}
}

func (in *interp) call(n *Call) (Value, error) {
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := in.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch fn := n.Fn.(type) {
	case *Ident:
		b, ok := builtins[fn.Name]
		if !ok {
			if fn.Name == Binding {
				return nil, typeErrorf("'DataFrame' object is not callable")
			}
			return nil, &NameError{Name: fn.Name}
		}
		return b(args)
	case *Attr:
		recv, err := in.eval(fn.X)
		if err != nil {
			return nil, err
		}
		return callMethod(recv, fn.Name, args)
	}
	return nil, typeErrorf("'%s' is not callable", n.Fn)
}

// truthy follows Python truthiness; columns and frames have none.
func truthy(v Value) (bool, error) {
	switch v := v.(type) {
	case Int:
		return v != 0, nil
	case Float:
		return v != 0, nil
	case Str:
		return v != "", nil
	case Bool:
		return bool(v), nil
	case Null:
		return false, nil
	case List:
		return len(v) > 0, nil
	case *Column:
		return false, valueErrorf("the truth value of a Series is ambiguous; use '&', '|', '~' for element-wise logic, or .any() / .all()")
	case *Frame:
		return false, valueErrorf("the truth value of a DataFrame is ambiguous; use .empty or len(data)")
	}
	return false, typeErrorf("'%s' has no truth value", v.Type())
}

func index(x, i Value) (Value, error) {
	switch x := x.(type) {
	case *Frame:
		return frameIndex(x, i)
	case *Column:
		switch i := i.(type) {
		case *Column:
			keep, err := maskRows(i, x.Len())
			if err != nil {
				return nil, err
			}
			return x.subset(keep), nil
		case Int:
			pos, err := position(int(i), x.Len(), "Series")
			if err != nil {
				return nil, err
			}
			return x.At(pos), nil
		}
		return nil, typeErrorf("Series indices must be integers or boolean masks, not '%s'", i.Type())
	case List:
		n, ok := i.(Int)
		if !ok {
			return nil, typeErrorf("list indices must be integers, not '%s'", i.Type())
		}
		pos, err := position(int(n), len(x), "list")
		if err != nil {
			return nil, err
		}
		return x[pos], nil
	case Str:
		n, ok := i.(Int)
		if !ok {
			return nil, typeErrorf("string indices must be integers, not '%s'", i.Type())
		}
		r := []rune(string(x))
		pos, err := position(int(n), len(r), "string")
		if err != nil {
			return nil, err
		}
		return Str(r[pos]), nil
	}
	return nil, typeErrorf("'%s' object is not subscriptable", x.Type())
}

func frameIndex(f *Frame, i Value) (Value, error) {
	switch i := i.(type) {
	case Str:
		return f.column(string(i))
	case Int:
		return f.column(strconv.FormatInt(int64(i), 10))
	case List:
		names := make([]string, len(i))
		for k, e := range i {
			switch e := e.(type) {
			case Str:
				names[k] = string(e)
			case Int:
				names[k] = strconv.FormatInt(int64(e), 10)
			default:
				return nil, typeErrorf("column names must be strings, not '%s'", e.Type())
			}
			if !f.t.Has(names[k]) {
				return nil, &ColumnError{Column: names[k], Available: f.t.Names()}
			}
		}
		t, err := f.t.Select(names)
		if err != nil {
			return nil, valueErrorf("%v", err)
		}
		return NewFrame(t), nil
	case *Column:
		keep, err := maskRows(i, f.t.Nrow())
		if err != nil {
			return nil, err
		}
		return NewFrame(f.t.Subset(keep)), nil
	}
	return nil, typeErrorf("DataFrame indices must be a column name, a list of names or a boolean mask, not '%s'", i.Type())
}

// maskRows returns the positions where a boolean mask is true. Missing
// mask entries count as false.
func maskRows(mask *Column, n int) ([]int, error) {
	if !mask.isBool() {
		return nil, typeErrorf("row filters need a boolean mask, got a %s column", mask.kind)
	}
	if mask.Len() != n {
		return nil, valueErrorf("boolean mask has length %d but the data has %d rows", mask.Len(), n)
	}
	keep := []int{}
	for k := 0; k < n; k++ {
		if b, ok := mask.At(k).(Bool); ok && bool(b) {
			keep = append(keep, k)
		}
	}
	return keep, nil
}

func position(i, n int, what string) (int, error) {
	pos := i
	if pos < 0 {
		pos += n
	}
	if pos < 0 || pos >= n {
		return 0, valueErrorf("index %d is out of range for %s of length %d", i, what, n)
	}
	return pos, nil
}

func attr(x Value, name string) (Value, error) {
	switch x := x.(type) {
	case *Frame:
		switch name {
		case "shape":
			return List{Int(x.t.Nrow()), Int(x.t.Ncol())}, nil
		case "columns":
			out := make(List, 0, x.t.Ncol())
			for _, n := range x.t.Names() {
				out = append(out, Str(n))
			}
			return out, nil
		case "empty":
			return Bool(x.t.Nrow() == 0 || x.t.Ncol() == 0), nil
		case "size":
			return Int(x.t.Nrow() * x.t.Ncol()), nil
		}
		return x.column(name)
	case *Column:
		switch name {
		case "size":
			return Int(x.Len()), nil
		case "name":
			return Str(x.Name()), nil
		case "empty":
			return Bool(x.Len() == 0), nil
		case "shape":
			return List{Int(x.Len())}, nil
		case "dtype":
			return Str(x.kind), nil
		}
		return nil, typeErrorf("'Series' object has no attribute '%s'", name)
	}
	return nil, typeErrorf("'%s' object has no attribute '%s'", x.Type(), name)
}
