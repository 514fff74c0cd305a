package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

var csvRows = []string{
	"Group,Score,Weight,Category,Seen",
	"A,10,1.5,alpha,2024-01-03",
	"A,11,1.7,alpha,2024-01-01",
	"A,9.5,1.4,beta,2024-02-01",
	"B,10.5,1.6,alpha,",
	"B,9.8,1.5,beta,2024-01-15",
	"B,10.2,1.6,alpha,2024-01-20",
	"A,8.8,1.3,gamma,2024-01-05",
	"B,9.7,1.5,beta,2024-01-06",
	"A,50,7.0,alpha,2024-01-07",
	"B,,1.5,gamma,2024-01-08",
}

func loadFixture(t *testing.T) *dataset.Table {
	t.Helper()
	tb, err := dataset.LoadText("metrics.csv", strings.Join(csvRows, "\n"), dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("LoadText: %v", err)
	}
	return tb
}

func TestDescribe(t *testing.T) {
	opt := DefaultOptions()
	opt.SampleRows = 3
	opt.Correlations = true
	rep := Describe(loadFixture(t), opt)

	if rep.Name != "metrics.csv" || rep.Rows != 10 || len(rep.Cols) != 5 {
		t.Fatalf("report = %s rows=%d cols=%d", rep.Name, rep.Rows, len(rep.Cols))
	}
	if len(rep.Samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(rep.Samples))
	}

	num := rep.Numeric()
	if len(num) != 2 || num[0].Name != "Score" || num[1].Name != "Weight" {
		t.Fatalf("numeric columns = %+v", num)
	}
	score := num[0]
	if score.Count != 9 || score.Missing != 1 {
		t.Fatalf("score count=%d missing=%d", score.Count, score.Missing)
	}
	if score.Min != 8.8 || score.Max != 50 || score.Median != 10 {
		t.Fatalf("score min/median/max = %v/%v/%v", score.Min, score.Median, score.Max)
	}
	if math.Abs(score.Q25-9.7) > 1e-9 || math.Abs(score.Q75-10.5) > 1e-9 {
		t.Fatalf("score quartiles = %v, %v", score.Q25, score.Q75)
	}
	if score.OutliersCount != 1 || score.OutlierThreshold != 3.5 {
		t.Fatalf("score outliers = %d thr=%v", score.OutliersCount, score.OutlierThreshold)
	}

	text := rep.Text()
	if len(text) != 2 || text[1].Name != "Category" {
		t.Fatalf("text columns = %+v", text)
	}
	cat := text[1]
	if cat.Unique != 3 || cat.TopValues[0] != (CategoryCount{Value: "alpha", Count: 5}) {
		t.Fatalf("category summary = %+v", cat)
	}

	var seen ColumnSummary
	for _, c := range rep.Cols {
		if c.Name == "Seen" {
			seen = c
		}
	}
	if seen.Kind != dataset.KindDatetime || seen.Earliest != "2024-01-01" || seen.Latest != "2024-02-01" {
		t.Fatalf("datetime summary = %+v", seen)
	}

	if rep.Corr == nil || len(rep.Corr.Columns) != 2 {
		t.Fatalf("corr = %+v", rep.Corr)
	}
	if r := rep.Corr.Values[0][1]; r < 0.99 {
		t.Fatalf("score~weight r = %v, want strong positive", r)
	}
}

func TestDescribeNoNumericColumns(t *testing.T) {
	tb, err := dataset.LoadText("words", "name,city\nann,oslo\nbob,rome\n", dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("LoadText: %v", err)
	}
	rep := Describe(tb, DefaultOptions())
	if got := rep.Numeric(); got == nil || len(got) != 0 {
		t.Fatalf("numeric = %#v, want empty non-nil", got)
	}
	if len(rep.Text()) != 2 {
		t.Fatalf("text = %+v", rep.Text())
	}
	if strings.Contains(rep.Markdown(), "[NUMERIC SUMMARY]") {
		t.Fatal("markdown should omit the numeric section")
	}
}

func TestDescribeGroupBy(t *testing.T) {
	opt := DefaultOptions()
	opt.GroupBy = []string{"Group", "Missing"}
	rep := Describe(loadFixture(t), opt)
	if len(rep.Groups) != 2 {
		t.Fatalf("groups = %+v", rep.Groups)
	}
	a := rep.Groups[0]
	if a.Key != "Group=A" || a.Size != 5 {
		t.Fatalf("first group = %+v", a)
	}
	if m := a.Metrics["Score"]; m.Count != 5 || m.Min != 8.8 || m.Max != 50 {
		t.Fatalf("group A score = %+v", m)
	}
	if b := rep.Groups[1].Metrics["Score"]; b.Count != 4 {
		t.Fatalf("group B score count = %d, want 4 (one missing)", b.Count)
	}
	if len(rep.Warnings) != 1 || !strings.Contains(rep.Warnings[0], `"Missing"`) {
		t.Fatalf("warnings = %v", rep.Warnings)
	}
}

func TestMarkdown(t *testing.T) {
	opt := DefaultOptions()
	opt.Correlations = true
	opt.GroupBy = []string{"Group"}
	md := Describe(loadFixture(t), opt).Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: metrics.csv",
		"Rows: 10",
		"- Score: numeric (non-null 9, missing 10.0%)",
		"outliers: 1 above |z|>3.5",
		"- Category: text (non-null 10, missing 0.0%); top: alpha(5), beta(3), gamma(2)",
		"- Seen: datetime",
		"[NUMERIC SUMMARY]",
		"| Score | 9 |",
		"[GROUP-BY SUMMARY]",
		"Group=A (n=5)",
		"[CORRELATIONS]",
		"- Score ~ Weight: r=",
		"[HEAD]",
		"| Group | Score | Weight | Category | Seen |",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	tests := []struct {
		q, want float64
	}{
		{0, 1}, {1, 4}, {0.5, 2.5}, {0.25, 1.75}, {-1, 1}, {2, 4},
	}
	for _, tt := range tests {
		if got := Quantile(sorted, tt.q); got != tt.want {
			t.Errorf("Quantile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
	if !math.IsNaN(Quantile(nil, 0.5)) {
		t.Error("Quantile(nil) should be NaN")
	}
}

func TestPearson(t *testing.T) {
	nan := math.NaN()
	r, ok := pearson([]float64{1, 2, 3, nan}, []float64{2, 4, 6, 8})
	if !ok || math.Abs(r-1) > 1e-9 {
		t.Fatalf("pearson = %v, %v", r, ok)
	}
	if _, ok := pearson([]float64{1, 1, 1}, []float64{1, 2, 3}); ok {
		t.Fatal("zero variance should not produce r")
	}
}

func TestStat(t *testing.T) {
	if Stat(math.NaN()) != "NaN" || Stat(2) != "2" || Stat(1.23456789) != "1.23457" {
		t.Fatalf("Stat = %s %s %s", Stat(math.NaN()), Stat(2), Stat(1.23456789))
	}
}
