package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// Value is the result of evaluating an expression.
type Value interface {
	// Type is the user-facing type name used in error messages.
	Type() string
	String() string
}

type (
	Int   int64
	Float float64
	Str   string
	Bool  bool
	Null  struct{}
	List  []Value
)

func (Int) Type() string   { return "int" }
func (Float) Type() string { return "float" }
func (Str) Type() string   { return "str" }
func (Bool) Type() string  { return "bool" }
func (Null) Type() string  { return "NoneType" }
func (List) Type() string  { return "list" }

func (v Int) String() string   { return strconv.FormatInt(int64(v), 10) }
func (v Float) String() string { return formatFloat(float64(v)) }
func (v Str) String() string   { return string(v) }
func (Null) String() string    { return "None" }

func (v Bool) String() string {
	if v {
		return "True"
	}
	return "False"
}

func (v List) String() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = Repr(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Repr renders v the way it would be written as a literal.
func (v Str) Repr() string {
	s := strings.ReplaceAll(string(v), `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return "'" + s + "'"
}

// Repr renders any value as a literal where one exists.
func Repr(v Value) string {
	if s, ok := v.(Str); ok {
		return s.Repr()
	}
	return v.String()
}

// formatFloat mirrors Python's repr for floats: integral values keep a
// trailing ".0" and exponents appear only at extreme magnitudes.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if a := math.Abs(f); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Column is one named column of values, possibly derived from the table.
type Column struct {
	s    series.Series
	kind dataset.Kind
}

// NewColumn wraps a gota series.
func NewColumn(s series.Series, kind dataset.Kind) *Column { return &Column{s: s, kind: kind} }

func (*Column) Type() string { return "Series" }

func (c *Column) Name() string          { return c.s.Name }
func (c *Column) Len() int              { return c.s.Len() }
func (c *Column) Kind() dataset.Kind    { return c.kind }
func (c *Column) Series() series.Series { return c.s }

func (c *Column) isNA(i int) bool { return c.s.Elem(i).IsNA() }

// numeric reports whether arithmetic applies: int, float and bool columns.
func (c *Column) numeric() bool {
	switch c.s.Type() {
	case series.Int, series.Float, series.Bool:
		return true
	}
	return false
}

func (c *Column) isBool() bool { return c.s.Type() == series.Bool }
func (c *Column) isInt() bool  { return c.s.Type() == series.Int }

// floats returns the column as float64 with NaN for missing values.
func (c *Column) floats() []float64 { return c.s.Float() }

// At returns the element at position i; missing values are Null.
func (c *Column) At(i int) Value {
	e := c.s.Elem(i)
	if e.IsNA() {
		return Null{}
	}
	switch c.s.Type() {
	case series.Int:
		n, err := e.Int()
		if err != nil {
			return Float(e.Float())
		}
		return Int(n)
	case series.Float:
		return Float(e.Float())
	case series.Bool:
		b, err := e.Bool()
		if err != nil {
			return Null{}
		}
		return Bool(b)
	default:
		return Str(e.String())
	}
}

// Values returns every element, Null for missing.
func (c *Column) Values() []Value {
	out := make([]Value, c.Len())
	for i := range out {
		out[i] = c.At(i)
	}
	return out
}

func (c *Column) subset(idx []int) *Column {
	if idx == nil {
		idx = []int{}
	}
	return &Column{s: c.s.Subset(idx), kind: c.kind}
}

func (c *Column) String() string {
	n := c.Len()
	show := make([]string, 0, 11)
	add := func(i int) {
		if c.isNA(i) {
			show = append(show, "NaN")
			return
		}
		show = append(show, elemString(c.At(i)))
	}
	if n <= 10 {
		for i := 0; i < n; i++ {
			add(i)
		}
	} else {
		for i := 0; i < 5; i++ {
			add(i)
		}
		show = append(show, "...")
		for i := n - 5; i < n; i++ {
			add(i)
		}
	}
	name := c.Name()
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("%s [%s] (length %d)", name, strings.Join(show, ", "), n)
}

func elemString(v Value) string {
	if s, ok := v.(Str); ok {
		return string(s)
	}
	return v.String()
}

func floatColumn(name string, vals []float64) *Column {
	return &Column{s: series.New(vals, series.Float, name), kind: dataset.KindNumeric}
}

// intColumn builds an int column; positions flagged in na are missing.
func intColumn(name string, vals []int, na []bool) *Column {
	cells := make([]interface{}, len(vals))
	for i, v := range vals {
		if na != nil && na[i] {
			continue
		}
		cells[i] = v
	}
	return &Column{s: series.New(cells, series.Int, name), kind: dataset.KindNumeric}
}

// boolColumn builds a boolean column; positions flagged in na are missing.
func boolColumn(name string, vals []bool, na []bool) *Column {
	cells := make([]interface{}, len(vals))
	for i, v := range vals {
		if na != nil && na[i] {
			continue
		}
		cells[i] = v
	}
	return &Column{s: series.New(cells, series.Bool, name), kind: dataset.KindBoolean}
}

func stringColumn(name string, vals []string, na []bool, kind dataset.Kind) *Column {
	cells := make([]interface{}, len(vals))
	for i, v := range vals {
		if na != nil && na[i] {
			continue
		}
		cells[i] = v
	}
	return &Column{s: series.New(cells, series.String, name), kind: kind}
}

// Frame is a table value: the bound dataset or a filtered/projected view of it.
type Frame struct {
	t *dataset.Table
}

// NewFrame wraps a table.
func NewFrame(t *dataset.Table) *Frame { return &Frame{t: t} }

func (*Frame) Type() string { return "DataFrame" }

// Table returns the underlying table.
func (f *Frame) Table() *dataset.Table { return f.t }

func (f *Frame) String() string {
	return fmt.Sprintf("DataFrame %d rows x %d columns [%s]", f.t.Nrow(), f.t.Ncol(), strings.Join(f.t.Names(), ", "))
}

func (f *Frame) column(name string) (*Column, error) {
	s, err := f.t.Column(name)
	if err != nil {
		return nil, &ColumnError{Column: name, Available: f.t.Names()}
	}
	kind, _ := f.t.Kind(name)
	return &Column{s: s, kind: kind}, nil
}
