package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrColumnNotFound is returned when a lookup names a column the table lacks.
var ErrColumnNotFound = errors.New("column not found")

// Table is an immutable in-memory dataset with named, typed columns.
type Table struct {
	Name  string
	df    dataframe.DataFrame
	names []string
	kinds []Kind
}

// FromRecords builds a Table from a header row followed by data rows.
// Ragged rows are padded with missing cells; extra cells are dropped.
func FromRecords(name string, records [][]string, opt Options) (*Table, error) {
	if len(records) == 0 {
		return nil, errors.New("no header row")
	}
	header := uniqueNames(records[0])
	if len(header) == 0 {
		return nil, errors.New("no columns")
	}
	rows := records[1:]
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		rows = rows[:opt.MaxRows]
	}
	cols := make([]series.Series, len(header))
	kinds := make([]Kind, len(header))
	for j, colName := range header {
		cells := make([]string, len(rows))
		for i, rec := range rows {
			if j < len(rec) {
				cells[i] = rec[j]
			}
		}
		kind, typ, values := inferColumn(cells, opt)
		s := series.New(values, typ, colName)
		if s.Err != nil {
			return nil, fmt.Errorf("column %q: %w", colName, s.Err)
		}
		cols[j] = s
		kinds[j] = kind
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return nil, fmt.Errorf("build table: %w", df.Err)
	}
	return &Table{Name: name, df: df, names: header, kinds: kinds}, nil
}

// uniqueNames trims header cells, names blank ones "Unnamed: i" and
// suffixes duplicates with ".1", ".2", ...
func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		n := strings.TrimSpace(h)
		if i == 0 {
			n = strings.TrimPrefix(n, "\uFEFF")
		}
		if n == "" {
			n = fmt.Sprintf("Unnamed: %d", i)
		}
		base := n
		for seen[n] > 0 {
			n = fmt.Sprintf("%s.%d", base, seen[base])
			seen[base]++
		}
		seen[n]++
		out[i] = n
	}
	return out
}

// Names returns the column names in order.
func (t *Table) Names() []string { return append([]string(nil), t.names...) }

// Kinds returns the inferred kind of every column, aligned with Names.
func (t *Table) Kinds() []Kind { return append([]Kind(nil), t.kinds...) }

// Nrow returns the number of data rows.
func (t *Table) Nrow() int { return t.df.Nrow() }

// Ncol returns the number of columns.
func (t *Table) Ncol() int { return len(t.names) }

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool { return t.index(name) >= 0 }

// Kind returns the inferred kind of a column.
func (t *Table) Kind(name string) (Kind, bool) {
	i := t.index(name)
	if i < 0 {
		return "", false
	}
	return t.kinds[i], true
}

// Column returns the named column as a gota series.
func (t *Table) Column(name string) (series.Series, error) {
	if !t.Has(name) {
		return series.Series{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return t.df.Col(name), nil
}

// ColumnsOf returns the names of columns with the given kind.
func (t *Table) ColumnsOf(kind Kind) []string {
	var out []string
	for i, k := range t.kinds {
		if k == kind {
			out = append(out, t.names[i])
		}
	}
	return out
}

// Frame exposes the underlying gota DataFrame.
func (t *Table) Frame() dataframe.DataFrame { return t.df }

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > t.Nrow() {
		n = t.Nrow()
	}
	return t.Subset(seq(0, n))
}

// Tail returns the last n rows.
func (t *Table) Tail(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > t.Nrow() {
		n = t.Nrow()
	}
	return t.Subset(seq(t.Nrow()-n, t.Nrow()))
}

// Subset returns the rows at the given positions, in order.
func (t *Table) Subset(rows []int) *Table {
	if rows == nil {
		rows = []int{}
	}
	return &Table{Name: t.Name, df: t.df.Subset(rows), names: t.names, kinds: t.kinds}
}

// Select returns a table with only the named columns, in the given order.
func (t *Table) Select(names []string) (*Table, error) {
	kinds := make([]Kind, len(names))
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		if seen[n] {
			return nil, fmt.Errorf("column %q selected twice", n)
		}
		seen[n] = true
		k, ok := t.Kind(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, n)
		}
		kinds[i] = k
	}
	df := t.df.Select(names)
	if df.Err != nil {
		return nil, df.Err
	}
	return &Table{Name: t.Name, df: df, names: append([]string(nil), names...), kinds: kinds}, nil
}

// Rows renders every row as display strings; missing values render as "NaN".
func (t *Table) Rows() [][]string {
	n := t.Nrow()
	out := make([][]string, n)
	for i := range out {
		out[i] = make([]string, len(t.names))
	}
	for j, name := range t.names {
		s := t.df.Col(name)
		na := s.IsNaN()
		switch s.Type() {
		case series.Float, series.Int:
			vals := s.Float()
			for i := 0; i < n; i++ {
				if na[i] {
					out[i][j] = naToken
					continue
				}
				out[i][j] = FormatFloat(vals[i])
			}
		default:
			recs := s.Records()
			for i := 0; i < n; i++ {
				if na[i] {
					out[i][j] = naToken
					continue
				}
				out[i][j] = recs[i]
			}
		}
	}
	return out
}

// FormatFloat renders the shortest decimal form of f, switching to
// exponent notation only for very large or very small magnitudes.
func FormatFloat(f float64) string {
	if math.IsNaN(f) {
		return naToken
	}
	if a := math.Abs(f); a != 0 && !math.IsInf(f, 0) && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func (t *Table) index(name string) int {
	for i, n := range t.names {
		if n == name {
			return i
		}
	}
	return -1
}
