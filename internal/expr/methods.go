package expr

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/datalens-cli/internal/analysis"
	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

type builtin func(args []Value) (Value, error)

var builtins = map[string]builtin{
	"len":   builtinLen,
	"abs":   builtinAbs,
	"round": builtinRound,
	"min":   func(args []Value) (Value, error) { return builtinExtreme("min", args) },
	"max":   func(args []Value) (Value, error) { return builtinExtreme("max", args) },
	"sum":   builtinSum,
}

// Builtins lists the callable function names, sorted.
func Builtins() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func arity(name string, args []Value, lo, hi int) error {
	if len(args) >= lo && len(args) <= hi {
		return nil
	}
	if lo == hi {
		return typeErrorf("%s() takes %d argument(s) (%d given)", name, lo, len(args))
	}
	return typeErrorf("%s() takes %d to %d arguments (%d given)", name, lo, hi, len(args))
}

// intArg returns args[i] as an int, or def when it was not passed.
func intArg(name string, args []Value, i, def int) (int, error) {
	if i >= len(args) {
		return def, nil
	}
	n, ok := args[i].(Int)
	if !ok {
		return 0, typeErrorf("%s() argument must be an integer, not '%s'", name, args[i].Type())
	}
	return int(n), nil
}

func callMethod(recv Value, name string, args []Value) (Value, error) {
	switch r := recv.(type) {
	case *Column:
		return columnMethod(r, name, args)
	case *Frame:
		return frameMethod(r, name, args)
	case Str:
		return strMethod(r, name, args)
	case List:
		return listMethod(r, name, args)
	}
	return nil, typeErrorf("'%s' object has no method '%s'", recv.Type(), name)
}

func frameMethod(f *Frame, name string, args []Value) (Value, error) {
	switch name {
	case "head", "tail":
		if err := arity(name, args, 0, 1); err != nil {
			return nil, err
		}
		n, err := intArg(name, args, 0, 5)
		if err != nil {
			return nil, err
		}
		if name == "head" {
			return NewFrame(f.t.Head(n)), nil
		}
		return NewFrame(f.t.Tail(n)), nil
	case "dropna":
		if err := arity(name, args, 0, 0); err != nil {
			return nil, err
		}
		keep := make([]bool, f.t.Nrow())
		for i := range keep {
			keep[i] = true
		}
		for _, col := range f.t.Names() {
			s, err := f.t.Column(col)
			if err != nil {
				return nil, err
			}
			for i, na := range s.IsNaN() {
				if na {
					keep[i] = false
				}
			}
		}
		rows := []int{}
		for i, k := range keep {
			if k {
				rows = append(rows, i)
			}
		}
		return NewFrame(f.t.Subset(rows)), nil
	}
	return nil, typeErrorf("'DataFrame' object has no method '%s'", name)
}

// present returns the non-missing values of a numeric column.
func present(c *Column) []float64 {
	fs := c.floats()
	out := make([]float64, 0, len(fs))
	for _, f := range fs {
		if !math.IsNaN(f) {
			out = append(out, f)
		}
	}
	return out
}

func requireNumeric(c *Column, method string) error {
	if c.numeric() {
		return nil
	}
	return typeErrorf("%s() needs a numeric column; '%s' holds %s values", method, c.Name(), c.kind)
}

func columnMethod(c *Column, name string, args []Value) (Value, error) {
	switch name {
	case "mean", "median", "sum", "count", "nunique", "unique", "abs", "dropna",
		"isna", "isnull", "notna", "notnull", "tolist", "to_list", "value_counts",
		"any", "all", "min", "max":
		if err := arity(name, args, 0, 0); err != nil {
			return nil, err
		}
	}
	switch name {
	case "mean":
		if err := requireNumeric(c, name); err != nil {
			return nil, err
		}
		vals := present(c)
		if len(vals) == 0 {
			return Float(math.NaN()), nil
		}
		return Float(series.Floats(vals).Mean()), nil
	case "median":
		if err := requireNumeric(c, name); err != nil {
			return nil, err
		}
		vals := present(c)
		sort.Float64s(vals)
		return Float(analysis.Quantile(vals, 0.5)), nil
	case "std", "var":
		return spread(c, name, args)
	case "sum":
		if err := requireNumeric(c, name); err != nil {
			return nil, err
		}
		vals := present(c)
		if c.isInt() || c.isBool() {
			var total int64
			for _, v := range vals {
				total += int64(v)
			}
			return Int(total), nil
		}
		var total float64
		for _, v := range vals {
			total += v
		}
		return Float(total), nil
	case "min", "max":
		return columnExtreme(c, name)
	case "count":
		n := 0
		for i := 0; i < c.Len(); i++ {
			if !c.isNA(i) {
				n++
			}
		}
		return Int(n), nil
	case "nunique":
		seen := map[string]bool{}
		for i := 0; i < c.Len(); i++ {
			if !c.isNA(i) {
				seen[valueKey(c.At(i))] = true
			}
		}
		return Int(len(seen)), nil
	case "unique":
		seen := map[string]bool{}
		out := List{}
		for _, v := range c.Values() {
			k := valueKey(v)
			if !seen[k] {
				seen[k] = true
				out = append(out, v)
			}
		}
		return out, nil
	case "quantile":
		return quantile(c, args)
	case "isin":
		return isin(c, args)
	case "abs":
		return absColumn(c)
	case "round":
		if err := arity(name, args, 0, 1); err != nil {
			return nil, err
		}
		digits, err := intArg(name, args, 0, 0)
		if err != nil {
			return nil, err
		}
		return roundColumn(c, digits)
	case "head", "tail":
		if err := arity(name, args, 0, 1); err != nil {
			return nil, err
		}
		n, err := intArg(name, args, 0, 5)
		if err != nil {
			return nil, err
		}
		n = min(max(n, 0), c.Len())
		if name == "head" {
			return c.subset(seqInts(0, n)), nil
		}
		return c.subset(seqInts(c.Len()-n, c.Len())), nil
	case "dropna":
		keep := []int{}
		for i := 0; i < c.Len(); i++ {
			if !c.isNA(i) {
				keep = append(keep, i)
			}
		}
		return c.subset(keep), nil
	case "isna", "isnull", "notna", "notnull":
		want := name == "isna" || name == "isnull"
		out := make([]bool, c.Len())
		for i := range out {
			out[i] = c.isNA(i) == want
		}
		return boolColumn(c.Name(), out, nil), nil
	case "tolist", "to_list":
		return List(c.Values()), nil
	case "value_counts":
		return valueCounts(c), nil
	case "any", "all":
		all := true
		anyTrue := false
		for _, v := range c.Values() {
			if _, ok := v.(Null); ok {
				continue
			}
			t, _ := truthy(v)
			anyTrue = anyTrue || t
			all = all && t
		}
		if name == "any" {
			return Bool(anyTrue), nil
		}
		return Bool(all), nil
	case "between":
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		lo, err := compare(GE, c, args[0])
		if err != nil {
			return nil, err
		}
		hi, err := compare(LE, c, args[1])
		if err != nil {
			return nil, err
		}
		return maskLogic(AMP, lo, hi)
	case "sort_values":
		if err := arity(name, args, 0, 1); err != nil {
			return nil, err
		}
		asc := true
		if len(args) == 1 {
			b, ok := args[0].(Bool)
			if !ok {
				return nil, typeErrorf("sort_values() argument must be True or False, not '%s'", args[0].Type())
			}
			asc = bool(b)
		}
		return c.subset(c.s.Order(!asc)), nil
	case "nlargest", "nsmallest":
		if err := arity(name, args, 0, 1); err != nil {
			return nil, err
		}
		if err := requireNumeric(c, name); err != nil {
			return nil, err
		}
		n, err := intArg(name, args, 0, 5)
		if err != nil {
			return nil, err
		}
		order := []int{}
		for _, i := range c.s.Order(name == "nlargest") {
			if !c.isNA(i) {
				order = append(order, i)
			}
		}
		return c.subset(order[:min(max(n, 0), len(order))]), nil
	}
	return nil, typeErrorf("'Series' object has no method '%s'", name)
}

func seqInts(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

// spread computes the sample variance or standard deviation; an optional
// argument sets the delta degrees of freedom (default 1).
func spread(c *Column, name string, args []Value) (Value, error) {
	if err := arity(name, args, 0, 1); err != nil {
		return nil, err
	}
	if err := requireNumeric(c, name); err != nil {
		return nil, err
	}
	ddof, err := intArg(name, args, 0, 1)
	if err != nil {
		return nil, err
	}
	vals := present(c)
	if len(vals)-ddof <= 0 {
		return Float(math.NaN()), nil
	}
	var mean float64
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	var ss float64
	for _, v := range vals {
		ss += (v - mean) * (v - mean)
	}
	variance := ss / float64(len(vals)-ddof)
	if name == "var" {
		return Float(variance), nil
	}
	return Float(math.Sqrt(variance)), nil
}

func columnExtreme(c *Column, name string) (Value, error) {
	wantMax := name == "max"
	var best Value
	var bestTime time.Time
	for i := 0; i < c.Len(); i++ {
		v := c.At(i)
		if _, ok := v.(Null); ok {
			continue
		}
		if f, ok := v.(Float); ok && math.IsNaN(float64(f)) {
			continue
		}
		if best == nil {
			best = v
			if c.kind == dataset.KindDatetime {
				bestTime, _ = dataset.ParseTime(string(v.(Str)))
			}
			continue
		}
		var cmp int
		if c.kind == dataset.KindDatetime {
			t, ok := dataset.ParseTime(string(v.(Str)))
			if ok && !bestTime.IsZero() {
				cmp = t.Compare(bestTime)
			} else {
				cmp = strings.Compare(string(v.(Str)), string(best.(Str)))
			}
			if (wantMax && cmp > 0) || (!wantMax && cmp < 0) {
				best, bestTime = v, t
			}
			continue
		}
		cmp, _, err := cmpValues(v, best)
		if err != nil {
			return nil, err
		}
		if (wantMax && cmp > 0) || (!wantMax && cmp < 0) {
			best = v
		}
	}
	if best == nil {
		return Float(math.NaN()), nil
	}
	return best, nil
}

func quantile(c *Column, args []Value) (Value, error) {
	if err := arity("quantile", args, 0, 1); err != nil {
		return nil, err
	}
	if err := requireNumeric(c, "quantile"); err != nil {
		return nil, err
	}
	vals := present(c)
	sort.Float64s(vals)
	at := func(q Value) (Value, error) {
		f, _, _, ok := number(q)
		if !ok {
			return nil, typeErrorf("quantile() expects a number between 0 and 1, not '%s'", q.Type())
		}
		if f < 0 || f > 1 || math.IsNaN(f) {
			return nil, valueErrorf("quantile must be between 0 and 1, got %s", q)
		}
		return Float(analysis.Quantile(vals, f)), nil
	}
	if len(args) == 0 {
		return at(Float(0.5))
	}
	if qs, ok := args[0].(List); ok {
		out := make(List, len(qs))
		for i, q := range qs {
			v, err := at(q)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	return at(args[0])
}

// valueKey identifies a value for set membership; numbers compare by
// value across int, float and bool.
func valueKey(v Value) string {
	if f, _, _, ok := number(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	if s, ok := v.(Str); ok {
		return "s:" + string(s)
	}
	return v.Type() + ":" + v.String()
}

func isin(c *Column, args []Value) (Value, error) {
	if err := arity("isin", args, 1, 1); err != nil {
		return nil, err
	}
	var values []Value
	switch a := args[0].(type) {
	case List:
		values = a
	case *Column:
		values = a.Values()
	default:
		return nil, typeErrorf("isin() expects a list of values, not '%s'", a.Type())
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if _, ok := v.(Null); ok {
			continue
		}
		set[valueKey(v)] = true
	}
	out := make([]bool, c.Len())
	for i := range out {
		if !c.isNA(i) {
			out[i] = set[valueKey(c.At(i))]
		}
	}
	return boolColumn(c.Name(), out, nil), nil
}

func absColumn(c *Column) (Value, error) {
	if err := requireNumeric(c, "abs"); err != nil {
		return nil, err
	}
	fs := c.floats()
	if c.isInt() || c.isBool() {
		vals := make([]int, len(fs))
		na := make([]bool, len(fs))
		for i, f := range fs {
			na[i] = math.IsNaN(f)
			if !na[i] {
				vals[i] = int(math.Abs(f))
			}
		}
		return intColumn(c.Name(), vals, na), nil
	}
	for i := range fs {
		fs[i] = math.Abs(fs[i])
	}
	return floatColumn(c.Name(), fs), nil
}

func roundTo(f float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.RoundToEven(f*p) / p
}

func roundColumn(c *Column, digits int) (Value, error) {
	if err := requireNumeric(c, "round"); err != nil {
		return nil, err
	}
	if (c.isInt() || c.isBool()) && digits >= 0 {
		return unaryColumn(PLUS, c)
	}
	fs := c.floats()
	for i := range fs {
		if !math.IsNaN(fs[i]) {
			fs[i] = roundTo(fs[i], digits)
		}
	}
	return floatColumn(c.Name(), fs), nil
}

// valueCounts returns [value, count] pairs, most frequent first; ties keep
// the order of first appearance.
func valueCounts(c *Column) List {
	type bucket struct {
		v Value
		n int
	}
	var order []*bucket
	byKey := map[string]*bucket{}
	for _, v := range c.Values() {
		if _, ok := v.(Null); ok {
			continue
		}
		k := valueKey(v)
		b, ok := byKey[k]
		if !ok {
			b = &bucket{v: v}
			byKey[k] = b
			order = append(order, b)
		}
		b.n++
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].n > order[j].n })
	out := make(List, len(order))
	for i, b := range order {
		out[i] = List{b.v, Int(b.n)}
	}
	return out
}

func strMethod(s Str, name string, args []Value) (Value, error) {
	switch name {
	case "lower", "upper", "strip":
		if err := arity(name, args, 0, 0); err != nil {
			return nil, err
		}
		switch name {
		case "lower":
			return Str(strings.ToLower(string(s))), nil
		case "upper":
			return Str(strings.ToUpper(string(s))), nil
		}
		return Str(strings.TrimSpace(string(s))), nil
	case "startswith", "endswith":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		p, ok := args[0].(Str)
		if !ok {
			return nil, typeErrorf("%s() argument must be str, not '%s'", name, args[0].Type())
		}
		if name == "startswith" {
			return Bool(strings.HasPrefix(string(s), string(p))), nil
		}
		return Bool(strings.HasSuffix(string(s), string(p))), nil
	}
	return nil, typeErrorf("'str' object has no method '%s'", name)
}

func listMethod(l List, name string, args []Value) (Value, error) {
	switch name {
	case "count", "index":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		n := 0
		for i, v := range l {
			c, ok, err := cmpValues(v, args[0])
			if err != nil || !ok || c != 0 {
				continue
			}
			if name == "index" {
				return Int(i), nil
			}
			n++
		}
		if name == "index" {
			return nil, valueErrorf("%s is not in list", Repr(args[0]))
		}
		return Int(n), nil
	}
	return nil, typeErrorf("'list' object has no method '%s'", name)
}

func builtinLen(args []Value) (Value, error) {
	if err := arity("len", args, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *Frame:
		return Int(v.t.Nrow()), nil
	case *Column:
		return Int(v.Len()), nil
	case List:
		return Int(len(v)), nil
	case Str:
		return Int(len([]rune(string(v)))), nil
	}
	return nil, typeErrorf("object of type '%s' has no len()", args[0].Type())
}

func builtinAbs(args []Value) (Value, error) {
	if err := arity("abs", args, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case Int:
		if v < 0 {
			return -v, nil
		}
		return v, nil
	case Bool:
		_, n, _, _ := number(v)
		return Int(n), nil
	case Float:
		return Float(math.Abs(float64(v))), nil
	case *Column:
		return absColumn(v)
	}
	return nil, typeErrorf("bad operand type for abs(): '%s'", args[0].Type())
}

func builtinRound(args []Value) (Value, error) {
	if err := arity("round", args, 1, 2); err != nil {
		return nil, err
	}
	digits, err := intArg("round", args, 1, 0)
	if err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *Column:
		return roundColumn(v, digits)
	case Int, Bool:
		_, n, _, _ := number(v)
		if digits >= 0 {
			return Int(n), nil
		}
		return Int(int64(roundTo(float64(n), digits))), nil
	case Float:
		f := float64(v)
		if len(args) == 1 {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, valueErrorf("cannot convert %s to integer", v)
			}
			return Int(int64(math.RoundToEven(f))), nil
		}
		return Float(roundTo(f, digits)), nil
	}
	return nil, typeErrorf("type '%s' doesn't define round()", args[0].Type())
}

func builtinExtreme(name string, args []Value) (Value, error) {
	if len(args) == 0 {
		return nil, typeErrorf("%s expected at least 1 argument, got 0", name)
	}
	items := args
	if len(args) == 1 {
		switch v := args[0].(type) {
		case *Column:
			return columnExtreme(v, name)
		case List:
			items = v
		default:
			return nil, typeErrorf("'%s' object is not iterable", v.Type())
		}
	}
	if len(items) == 0 {
		return nil, valueErrorf("%s() arg is an empty sequence", name)
	}
	best := items[0]
	for _, v := range items[1:] {
		c, _, err := cmpValues(v, best)
		if err != nil {
			return nil, notOrderable(map[string]TokenType{"min": LT, "max": GT}[name], v, best)
		}
		if (name == "max" && c > 0) || (name == "min" && c < 0) {
			best = v
		}
	}
	return best, nil
}

func builtinSum(args []Value) (Value, error) {
	if err := arity("sum", args, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *Column:
		return columnMethod(v, "sum", nil)
	case List:
		var total Value = Int(0)
		for _, e := range v {
			if _, _, _, ok := number(e); !ok {
				return nil, typeErrorf("unsupported operand type(s) for +: '%s' and '%s'", total.Type(), e.Type())
			}
			next, err := arith(PLUS, total, e)
			if err != nil {
				return nil, err
			}
			total = next
		}
		return total, nil
	}
	return nil, typeErrorf("'%s' object is not iterable", args[0].Type())
}
