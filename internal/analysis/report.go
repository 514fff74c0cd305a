package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// Options controls what Describe computes.
type Options struct {
	// SampleRows determines how many leading rows to include in the report.
	SampleRows int
	// TopValues limits the most frequent values kept per text column.
	TopValues int
	// GroupBy computes per-group numeric summaries for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{
		SampleRows:       5,
		TopValues:        5,
		Outliers:         true,
		OutlierThreshold: 3.5,
	}
}

// Report summarizes a Table the way pandas' info/describe would.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
	Groups   []GroupResult
	Corr     *CorrMatrix
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    dataset.Kind
	NonNull int
	Missing int
	Unique  int
	// Numeric describe() stats; NaN where undefined.
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Text and boolean top values
	TopValues []CategoryCount
	// Datetime range, in the column's own notation
	Earliest string
	Latest   string
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key     string
	Size    int
	Metrics map[string]NumSummary // by column name
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// Numeric returns the summaries of numeric columns; empty when there are none.
func (r *Report) Numeric() []ColumnSummary { return r.ofKind(dataset.KindNumeric) }

// Text returns the summaries of text columns; empty when there are none.
func (r *Report) Text() []ColumnSummary { return r.ofKind(dataset.KindText) }

func (r *Report) ofKind(k dataset.Kind) []ColumnSummary {
	out := []ColumnSummary{}
	for _, c := range r.Cols {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Describe computes a Report for t. A table without numeric columns simply
// yields an empty numeric summary.
func Describe(t *dataset.Table, opt Options) *Report {
	if opt.TopValues <= 0 {
		opt.TopValues = 5
	}
	rep := &Report{Name: t.Name, Rows: t.Nrow()}
	if opt.SampleRows > 0 {
		rep.Samples = t.Head(opt.SampleRows).Rows()
	}

	numeric := map[string][]float64{}
	for _, name := range t.Names() {
		kind, _ := t.Kind(name)
		s, err := t.Column(name)
		if err != nil {
			rep.Warnings = append(rep.Warnings, err.Error())
			continue
		}
		cs := ColumnSummary{Name: name, Kind: kind}
		na := s.IsNaN()
		for _, missing := range na {
			if missing {
				cs.Missing++
			} else {
				cs.NonNull++
			}
		}
		switch kind {
		case dataset.KindNumeric:
			vals := s.Float()
			numeric[name] = vals
			describeNumeric(&cs, present(vals), opt)
		case dataset.KindDatetime:
			describeDatetime(&cs, s, na)
		default:
			describeCategorical(&cs, s, na, opt.TopValues)
		}
		rep.Cols = append(rep.Cols, cs)
	}

	if len(opt.GroupBy) > 0 {
		rep.Groups = groupSummaries(t, opt.GroupBy, numeric, rep)
	}
	if opt.Correlations {
		rep.Corr = correlations(t.ColumnsOf(dataset.KindNumeric), numeric)
	}
	return rep
}

func present(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func describeNumeric(cs *ColumnSummary, vals []float64, opt Options) {
	cs.Count = len(vals)
	nan := math.NaN()
	cs.Mean, cs.Std, cs.Min, cs.Q25, cs.Median, cs.Q75, cs.Max = nan, nan, nan, nan, nan, nan, nan
	if len(vals) == 0 {
		return
	}
	s := series.Floats(vals)
	cs.Mean = s.Mean()
	if len(vals) > 1 {
		cs.Std = s.StdDev()
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	cs.Min = sorted[0]
	cs.Max = sorted[len(sorted)-1]
	cs.Q25 = Quantile(sorted, 0.25)
	cs.Median = Quantile(sorted, 0.5)
	cs.Q75 = Quantile(sorted, 0.75)

	seen := map[float64]bool{}
	for _, v := range vals {
		seen[v] = true
	}
	cs.Unique = len(seen)

	if opt.Outliers && len(vals) >= 8 {
		thr := opt.OutlierThreshold
		if thr <= 0 {
			thr = 3.5
		}
		cs.OutliersCount, cs.OutliersMaxAbsZ = robustOutliers(vals, thr)
		cs.OutlierThreshold = thr
	}
}

func describeDatetime(cs *ColumnSummary, s series.Series, na []bool) {
	seen := map[string]bool{}
	var lo, hi time.Time
	for i, v := range s.Records() {
		if na[i] {
			continue
		}
		seen[v] = true
		ts, ok := dataset.ParseTime(v)
		if !ok {
			continue
		}
		if cs.Earliest == "" || ts.Before(lo) {
			lo, cs.Earliest = ts, v
		}
		if cs.Latest == "" || ts.After(hi) {
			hi, cs.Latest = ts, v
		}
	}
	cs.Unique = len(seen)
}

func describeCategorical(cs *ColumnSummary, s series.Series, na []bool, top int) {
	counts := map[string]int{}
	for i, v := range s.Records() {
		if na[i] {
			continue
		}
		counts[v]++
	}
	cs.Unique = len(counts)
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > top {
		tops = tops[:top]
	}
	cs.TopValues = tops
}

func groupSummaries(t *dataset.Table, by []string, numeric map[string][]float64, rep *Report) []GroupResult {
	var keyCols [][]string
	var keyNames []string
	rows := t.Rows()
	for _, name := range by {
		name = strings.TrimSpace(name)
		if !t.Has(name) {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("group-by column %q not found", name))
			continue
		}
		idx := columnIndex(t, name)
		col := make([]string, t.Nrow())
		for i, row := range rows {
			col[i] = row[idx]
		}
		keyCols = append(keyCols, col)
		keyNames = append(keyNames, name)
	}
	if len(keyCols) == 0 {
		return nil
	}

	numCols := t.ColumnsOf(dataset.KindNumeric)
	groups := map[string]*GroupResult{}
	for i := 0; i < t.Nrow(); i++ {
		parts := make([]string, len(keyCols))
		for k, col := range keyCols {
			parts[k] = fmt.Sprintf("%s=%s", keyNames[k], safeVal(col[i]))
		}
		key := strings.Join(parts, " | ")
		g := groups[key]
		if g == nil {
			g = &GroupResult{Key: key, Metrics: map[string]NumSummary{}}
			groups[key] = g
		}
		g.Size++
		for _, name := range numCols {
			x := numeric[name][i]
			if math.IsNaN(x) {
				continue
			}
			m, ok := g.Metrics[name]
			if !ok {
				m = NumSummary{Min: x, Max: x}
			}
			m.Mean += (x - m.Mean) / float64(m.Count+1)
			m.Count++
			m.Min = math.Min(m.Min, x)
			m.Max = math.Max(m.Max, x)
			g.Metrics[name] = m
		}
	}

	outs := make([]GroupResult, 0, len(groups))
	for _, g := range groups {
		outs = append(outs, *g)
	}
	sort.Slice(outs, func(i, j int) bool {
		if outs[i].Size == outs[j].Size {
			return outs[i].Key < outs[j].Key
		}
		return outs[i].Size > outs[j].Size
	})
	if len(outs) > 20 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("showing 20 of %d groups", len(outs)))
		outs = outs[:20]
	}
	return outs
}

func columnIndex(t *dataset.Table, name string) int {
	for i, n := range t.Names() {
		if n == name {
			return i
		}
	}
	return -1
}

func correlations(names []string, numeric map[string][]float64) *CorrMatrix {
	if len(names) < 2 {
		return nil
	}
	n := len(names)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
		mat[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			r, ok := pearson(numeric[names[a]], numeric[names[b]])
			if !ok {
				r = math.NaN()
			}
			mat[a][b], mat[b][a] = r, r
		}
	}
	return &CorrMatrix{Columns: names, Values: mat}
}
