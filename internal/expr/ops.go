package expr

import (
	"math"
	"strings"

	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// number extracts a numeric scalar. Bool counts as an int, as in Python.
func number(v Value) (f float64, n int64, isInt, ok bool) {
	switch v := v.(type) {
	case Int:
		return float64(v), int64(v), true, true
	case Bool:
		if v {
			return 1, 1, true, true
		}
		return 0, 0, true, true
	case Float:
		return float64(v), 0, false, true
	}
	return 0, 0, false, false
}

func typeLabel(v Value) string {
	if c, ok := v.(*Column); ok {
		return "Series[" + string(c.kind) + "]"
	}
	return v.Type()
}

func unsupportedOperand(op TokenType, l, r Value) error {
	return typeErrorf("unsupported operand type(s) for %s: '%s' and '%s'", opText(op), typeLabel(l), typeLabel(r))
}

func unary(op TokenType, x Value) (Value, error) {
	if op == NOT {
		t, err := truthy(x)
		if err != nil {
			return nil, err
		}
		return Bool(!t), nil
	}
	switch x := x.(type) {
	case Int:
		switch op {
		case MINUS:
			if x == math.MinInt64 {
				return -Float(x), nil
			}
			return -x, nil
		case PLUS:
			return x, nil
		case TILDE:
			return ^x, nil
		}
	case Bool:
		_, n, _, _ := number(x)
		switch op {
		case MINUS:
			return Int(-n), nil
		case PLUS:
			return Int(n), nil
		case TILDE:
			return Int(^n), nil
		}
	case Float:
		switch op {
		case MINUS:
			return -x, nil
		case PLUS:
			return x, nil
		}
	case *Column:
		return unaryColumn(op, x)
	}
	return nil, typeErrorf("bad operand type for unary %s: '%s'", opText(op), typeLabel(x))
}

func unaryColumn(op TokenType, c *Column) (Value, error) {
	n := c.Len()
	na := make([]bool, n)
	for i := range na {
		na[i] = c.isNA(i)
	}
	switch {
	case op == TILDE && c.isBool():
		vals := make([]bool, n)
		for i := range vals {
			b, _ := c.At(i).(Bool)
			vals[i] = !bool(b)
		}
		return boolColumn(c.Name(), vals, na), nil
	case op == PLUS && c.numeric():
		return c, nil
	case (op == MINUS || op == TILDE) && (c.isInt() || c.isBool()) && !(op == MINUS && hasMinInt(c, na)):
		vals := make([]int, n)
		for i := range vals {
			if na[i] {
				continue
			}
			_, x, _, _ := number(c.At(i))
			if op == MINUS {
				vals[i] = int(-x)
			} else {
				vals[i] = int(^x)
			}
		}
		return intColumn(c.Name(), vals, na), nil
	case op == MINUS && c.numeric():
		fs := c.floats()
		for i := range fs {
			fs[i] = -fs[i]
		}
		return floatColumn(c.Name(), fs), nil
	}
	return nil, typeErrorf("bad operand type for unary %s: '%s'", opText(op), typeLabel(c))
}

// hasMinInt reports whether negating c would overflow int64.
func hasMinInt(c *Column, na []bool) bool {
	for i := range na {
		if na[i] {
			continue
		}
		if x, ok := c.At(i).(Int); ok && x == math.MinInt64 {
			return true
		}
	}
	return false
}

func arith(op TokenType, l, r Value) (Value, error) {
	_, lcol := l.(*Column)
	_, rcol := r.(*Column)
	if lcol || rcol {
		return columnArith(op, l, r)
	}
	switch op {
	case PLUS:
		if a, ok := l.(Str); ok {
			if b, ok := r.(Str); ok {
				return a + b, nil
			}
		}
		if a, ok := l.(List); ok {
			if b, ok := r.(List); ok {
				return append(append(List{}, a...), b...), nil
			}
		}
	case STAR:
		if s, n, ok := repeatOperands(l, r); ok {
			switch s := s.(type) {
			case Str:
				if err := checkRepeat(len(s), n); err != nil {
					return nil, err
				}
				return Str(strings.Repeat(string(s), n)), nil
			case List:
				if err := checkRepeat(len(s), n); err != nil {
					return nil, err
				}
				out := make(List, 0, len(s)*n)
				for i := 0; i < n; i++ {
					out = append(out, s...)
				}
				return out, nil
			}
		}
	}
	a, ai, aInt, aok := number(l)
	b, bi, bInt, bok := number(r)
	if !aok || !bok {
		return nil, unsupportedOperand(op, l, r)
	}
	if aInt && bInt {
		return intArith(op, ai, bi)
	}
	return floatArith(op, a, b)
}

// repeatOperands matches "text" * 3, 3 * "text" and the list forms.
func repeatOperands(l, r Value) (Value, int, bool) {
	seq, cnt := l, r
	if _, ok := cnt.(Int); !ok {
		seq, cnt = r, l
	}
	n, ok := cnt.(Int)
	if !ok {
		return nil, 0, false
	}
	switch seq.(type) {
	case Str, List:
		if n < 0 {
			n = 0
		}
		if n > maxRepeat {
			n = maxRepeat + 1
		}
		return seq, int(n), true
	}
	return nil, 0, false
}

// maxRepeat bounds the size of a repeated string (in bytes) or list (in
// elements).
const maxRepeat = 1 << 20

func checkRepeat(size, n int) error {
	if size > 0 && n > 0 && size > maxRepeat/n {
		return valueErrorf("repetition result too large (limit %d)", maxRepeat)
	}
	return nil
}

func intArith(op TokenType, a, b int64) (Value, error) {
	switch op {
	case PLUS, MINUS, STAR:
		if c, ok := intOp(op, a, b); ok {
			return Int(c), nil
		}
		return Float(floatOp(op, float64(a), float64(b))), nil
	case SLASH:
		if b == 0 {
			return nil, valueErrorf("division by zero")
		}
		return Float(float64(a) / float64(b)), nil
	case DSLASH, PERCENT:
		if b == 0 {
			return nil, valueErrorf("integer division or modulo by zero")
		}
		if op == DSLASH {
			if a == math.MinInt64 && b == -1 {
				return Float(floatOp(op, float64(a), float64(b))), nil
			}
			return Int(floorDiv(a, b)), nil
		}
		return Int(floorMod(a, b)), nil
	case POW:
		if b < 0 {
			if a == 0 {
				return nil, valueErrorf("0 cannot be raised to a negative power")
			}
			return Float(math.Pow(float64(a), float64(b))), nil
		}
		if p, ok := ipow(a, b); ok {
			return Int(p), nil
		}
		return Float(math.Pow(float64(a), float64(b))), nil
	}
	return nil, typeErrorf("unsupported operator %s", opText(op))
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

// ipow reports false when the result overflows int64.
func ipow(a, b int64) (int64, bool) {
	result, base := int64(1), a
	var ok bool
	for b > 0 {
		if b&1 == 1 {
			if result, ok = mulChecked(result, base); !ok {
				return 0, false
			}
		}
		b >>= 1
		if b > 0 {
			if base, ok = mulChecked(base, base); !ok {
				return 0, false
			}
		}
	}
	return result, true
}

// intOp applies an integer operator and reports false when the result
// does not fit in int64.
func intOp(op TokenType, a, b int64) (int64, bool) {
	switch op {
	case PLUS:
		return addChecked(a, b)
	case MINUS:
		return subChecked(a, b)
	case STAR:
		return mulChecked(a, b)
	case DSLASH:
		if a == math.MinInt64 && b == -1 {
			return 0, false
		}
		return floorDiv(a, b), true
	case PERCENT:
		return floorMod(a, b), true
	}
	return 0, false
}

func addChecked(a, b int64) (int64, bool) {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		return 0, false
	}
	return c, true
}

func subChecked(a, b int64) (int64, bool) {
	c := a - b
	if (b > 0 && c > a) || (b < 0 && c < a) {
		return 0, false
	}
	return c, true
}

func mulChecked(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return c, true
}

func floatArith(op TokenType, a, b float64) (Value, error) {
	switch op {
	case SLASH:
		if b == 0 {
			return nil, valueErrorf("float division by zero")
		}
	case DSLASH:
		if b == 0 {
			return nil, valueErrorf("float floor division by zero")
		}
	case PERCENT:
		if b == 0 {
			return nil, valueErrorf("float modulo by zero")
		}
	case POW:
		if a == 0 && b < 0 {
			return nil, valueErrorf("0.0 cannot be raised to a negative power")
		}
		if a < 0 && b != math.Trunc(b) {
			return nil, valueErrorf("negative number cannot be raised to a fractional power")
		}
	}
	return Float(floatOp(op, a, b)), nil
}

// floatOp is the unchecked element-wise form: division by zero yields
// infinities or NaN instead of failing.
func floatOp(op TokenType, a, b float64) float64 {
	switch op {
	case PLUS:
		return a + b
	case MINUS:
		return a - b
	case STAR:
		return a * b
	case SLASH:
		return a / b
	case DSLASH:
		return math.Floor(a / b)
	case PERCENT:
		if b == 0 {
			return math.NaN()
		}
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m
	case POW:
		return math.Pow(a, b)
	}
	return math.NaN()
}

// operand is one side of an element-wise operation: a column or a scalar
// broadcast to every row.
type operand struct {
	col      *Column
	sc       Value
	fs       []float64
	f        float64
	n        int64
	num      bool
	integral bool
	text     bool
	null     bool
	datetime bool
}

func newOperand(v Value) (*operand, bool) {
	o := &operand{}
	switch v := v.(type) {
	case *Column:
		o.col = v
		o.num = v.numeric()
		o.integral = v.isInt() || v.isBool()
		o.text = v.s.Type() == series.String
		o.datetime = v.kind == dataset.KindDatetime
		if o.num {
			o.fs = v.floats()
		}
	case Null:
		o.sc, o.null = v, true
	case Str:
		o.sc, o.text = v, true
	default:
		f, n, isInt, ok := number(v)
		if !ok {
			return nil, false
		}
		o.sc, o.f, o.n, o.num, o.integral = v, f, n, true, isInt
	}
	return o, true
}

func (o *operand) na(i int) bool {
	if o.col != nil {
		return o.col.isNA(i)
	}
	return o.null
}

func (o *operand) floatAt(i int) float64 {
	if o.col != nil {
		return o.fs[i]
	}
	return o.f
}

// intAt is exact for integral operands, unlike floatAt.
func (o *operand) intAt(i int) int64 {
	if o.col != nil {
		_, n, _, _ := number(o.col.At(i))
		return n
	}
	return o.n
}

func (o *operand) strAt(i int) string {
	if o.col != nil {
		return o.col.s.Elem(i).String()
	}
	return string(o.sc.(Str))
}

// broadcast pairs two operands; two columns must have the same length.
func broadcast(l, r Value) (lo, ro *operand, n int, name string, err error) {
	var ok bool
	if lo, ok = newOperand(l); !ok {
		return nil, nil, 0, "", errNotElementwise(l)
	}
	if ro, ok = newOperand(r); !ok {
		return nil, nil, 0, "", errNotElementwise(r)
	}
	switch {
	case lo.col != nil && ro.col != nil:
		if lo.col.Len() != ro.col.Len() {
			return nil, nil, 0, "", valueErrorf("cannot combine columns of different lengths (%d and %d)", lo.col.Len(), ro.col.Len())
		}
		n, name = lo.col.Len(), lo.col.Name()
	case lo.col != nil:
		n, name = lo.col.Len(), lo.col.Name()
	default:
		n, name = ro.col.Len(), ro.col.Name()
	}
	return lo, ro, n, name, nil
}

func errNotElementwise(v Value) error {
	if _, ok := v.(*Frame); ok {
		return typeErrorf("operations on a whole DataFrame are not supported; select a column first")
	}
	return typeErrorf("'%s' cannot be combined with a Series element-wise", v.Type())
}

func columnArith(op TokenType, l, r Value) (Value, error) {
	lo, ro, n, name, err := broadcast(l, r)
	if err != nil {
		return nil, err
	}
	na := make([]bool, n)
	for i := range na {
		na[i] = lo.na(i) || ro.na(i)
	}
	if lo.text || ro.text {
		return textArith(op, l, r, lo, ro, n, name, na)
	}
	if !lo.num || !ro.num {
		return nil, unsupportedOperand(op, l, r)
	}
	if lo.integral && ro.integral && intSafe(op, ro, n, na) {
		if vals, ok := intColumnOp(op, lo, ro, n, na); ok {
			return intColumn(name, vals, na), nil
		}
	}
	vals := make([]float64, n)
	for i := range vals {
		if na[i] {
			vals[i] = math.NaN()
			continue
		}
		vals[i] = floatOp(op, lo.floatAt(i), ro.floatAt(i))
	}
	return floatColumn(name, vals), nil
}

// intColumnOp reports false when any row overflows int64; the caller then
// computes the whole column in floating point.
func intColumnOp(op TokenType, lo, ro *operand, n int, na []bool) ([]int, bool) {
	vals := make([]int, n)
	for i := range vals {
		if na[i] {
			continue
		}
		c, ok := intOp(op, lo.intAt(i), ro.intAt(i))
		if !ok {
			return nil, false
		}
		vals[i] = int(c)
	}
	return vals, true
}

// intSafe reports whether an integer operation stays integral: no true
// division or powers, and no zero divisor.
func intSafe(op TokenType, divisor *operand, n int, na []bool) bool {
	switch op {
	case PLUS, MINUS, STAR:
		return true
	case DSLASH, PERCENT:
		for i := 0; i < n; i++ {
			if !na[i] && divisor.floatAt(i) == 0 {
				return false
			}
		}
		return true
	}
	return false
}

func textArith(op TokenType, l, r Value, lo, ro *operand, n int, name string, na []bool) (Value, error) {
	vals := make([]string, n)
	switch {
	case op == PLUS && lo.text && ro.text:
		for i := range vals {
			if !na[i] {
				vals[i] = lo.strAt(i) + ro.strAt(i)
			}
		}
	case op == STAR && lo.text && ro.col == nil && ro.integral:
		times := int(min(max(ro.f, 0), maxRepeat+1))
		for i := range vals {
			if !na[i] {
				if err := checkRepeat(len(lo.strAt(i)), times); err != nil {
					return nil, err
				}
			}
		}
		for i := range vals {
			if !na[i] {
				vals[i] = strings.Repeat(lo.strAt(i), times)
			}
		}
	default:
		return nil, unsupportedOperand(op, l, r)
	}
	return stringColumn(name, vals, na, dataset.KindText), nil
}

// cmpValues orders two scalars. comparable is false when either side is
// NaN; err is set when the types cannot be ordered against each other.
func cmpValues(l, r Value) (c int, comparable bool, err error) {
	if a, _, _, ok := number(l); ok {
		if b, _, _, ok := number(r); ok {
			if math.IsNaN(a) || math.IsNaN(b) {
				return 0, false, nil
			}
			return cmpFloat(a, b), true, nil
		}
	}
	switch a := l.(type) {
	case Str:
		if b, ok := r.(Str); ok {
			return strings.Compare(string(a), string(b)), true, nil
		}
	case Null:
		if _, ok := r.(Null); ok {
			return 0, true, nil
		}
	case List:
		if b, ok := r.(List); ok {
			for i := 0; i < len(a) && i < len(b); i++ {
				c, ok, err := cmpValues(a[i], b[i])
				if err != nil || !ok {
					return 0, ok, err
				}
				if c != 0 {
					return c, true, nil
				}
			}
			return cmpFloat(float64(len(a)), float64(len(b))), true, nil
		}
	}
	return 0, false, typeErrorf("cannot compare '%s' with '%s'", l.Type(), r.Type())
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpResult(op TokenType, c int) bool {
	switch op {
	case EQ:
		return c == 0
	case NE:
		return c != 0
	case LT:
		return c < 0
	case LE:
		return c <= 0
	case GT:
		return c > 0
	case GE:
		return c >= 0
	}
	return false
}

func notOrderable(op TokenType, l, r Value) error {
	return typeErrorf("'%s' not supported between instances of '%s' and '%s'", opText(op), typeLabel(l), typeLabel(r))
}

func compare(op TokenType, l, r Value) (Value, error) {
	_, lcol := l.(*Column)
	_, rcol := r.(*Column)
	if lcol || rcol {
		return columnCompare(op, l, r)
	}
	if _, ok := l.(*Frame); ok {
		return nil, errNotElementwise(l)
	}
	if _, ok := r.(*Frame); ok {
		return nil, errNotElementwise(r)
	}
	equality := op == EQ || op == NE
	c, ok, err := cmpValues(l, r)
	if err != nil {
		if equality {
			return Bool(op == NE), nil
		}
		return nil, notOrderable(op, l, r)
	}
	if _, isNull := l.(Null); isNull && !equality {
		return nil, notOrderable(op, l, r)
	}
	if !ok {
		return Bool(op == NE), nil
	}
	return Bool(cmpResult(op, c)), nil
}

// columnCompare compares element-wise. Missing values compare unequal to
// everything, so only != yields true for them.
func columnCompare(op TokenType, l, r Value) (Value, error) {
	lo, ro, n, name, err := broadcast(l, r)
	if err != nil {
		return nil, err
	}
	equality := op == EQ || op == NE
	res := make([]bool, n)
	switch {
	case lo.num && ro.num:
		for i := range res {
			a, b := lo.floatAt(i), ro.floatAt(i)
			if math.IsNaN(a) || math.IsNaN(b) {
				res[i] = op == NE
				continue
			}
			res[i] = cmpResult(op, cmpFloat(a, b))
		}
	case lo.text && ro.text:
		useTime := lo.datetime || ro.datetime
		for i := range res {
			if lo.na(i) || ro.na(i) {
				res[i] = op == NE
				continue
			}
			a, b := lo.strAt(i), ro.strAt(i)
			if useTime {
				ta, okA := dataset.ParseTime(a)
				tb, okB := dataset.ParseTime(b)
				if okA && okB {
					res[i] = cmpResult(op, ta.Compare(tb))
					continue
				}
			}
			res[i] = cmpResult(op, strings.Compare(a, b))
		}
	case equality:
		for i := range res {
			res[i] = op == NE
		}
	default:
		return nil, notOrderable(op, l, r)
	}
	return boolColumn(name, res, nil), nil
}

func bitwise(op TokenType, l, r Value) (Value, error) {
	_, lcol := l.(*Column)
	_, rcol := r.(*Column)
	if lcol || rcol {
		return maskLogic(op, l, r)
	}
	if a, ok := l.(Bool); ok {
		if b, ok := r.(Bool); ok {
			if op == AMP {
				return a && b, nil
			}
			return a || b, nil
		}
	}
	_, a, aInt, aok := number(l)
	_, b, bInt, bok := number(r)
	if !aok || !bok || !aInt || !bInt {
		return nil, unsupportedOperand(op, l, r)
	}
	if op == AMP {
		return Int(a & b), nil
	}
	return Int(a | b), nil
}

func maskLogic(op TokenType, l, r Value) (Value, error) {
	lo, ro, n, name, err := broadcast(l, r)
	if err != nil {
		return nil, err
	}
	if !isMaskOperand(lo) || !isMaskOperand(ro) {
		return nil, typeErrorf("'%s' combines boolean masks; wrap each comparison in parentheses, e.g. (data['a'] > 1) %s (data['b'] < 2)", opText(op), opText(op))
	}
	res := make([]bool, n)
	for i := range res {
		a := !lo.na(i) && lo.floatAt(i) != 0
		b := !ro.na(i) && ro.floatAt(i) != 0
		if op == AMP {
			res[i] = a && b
		} else {
			res[i] = a || b
		}
	}
	return boolColumn(name, res, nil), nil
}

func isMaskOperand(o *operand) bool {
	if o.col != nil {
		return o.col.isBool()
	}
	_, ok := o.sc.(Bool)
	return ok
}
