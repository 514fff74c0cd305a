package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func init() { color.NoColor = true }

// resetFlags clears values and Changed state that cobra keeps between
// invocations of the same command tree.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), stdin, args...)
}

func executeContext(t *testing.T, ctx context.Context, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, "", args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

// tempHome isolates config and insight storage under a fresh HOME.
func tempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const salesCSV = "Day,Sales\nMon,100\nTue,150\nSat,80\nSun,60\n"

func TestCLI_InsightLifecycle(t *testing.T) {
	home := tempHome(t)
	data := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)

	out := runCmd(t, "insight", "add", "avg_sales", "data['Sales'].mean()", "-f", data)
	if !strings.Contains(out, "✓ Saved: 'avg_sales'") || !strings.Contains(out, "sample result: 97.5") {
		t.Fatalf("unexpected add output:\n%s", out)
	}
	saved, err := os.ReadFile(filepath.Join(home, ".datalens", "saved_insights.json"))
	if err != nil {
		t.Fatalf("read insights: %v", err)
	}
	if want := "{\n  \"avg_sales\": \"data['Sales'].mean()\"\n}\n"; string(saved) != want {
		t.Fatalf("insights file = %q, want %q", saved, want)
	}

	runCmd(t, "insight", "add", "weekend", "data[data['Day'].isin(['Sat','Sun'])]['Sales'].mean()", "-f", data)

	if out, err := execute(t, "", "insight", "add", "bad", "data['missing_col']", "-f", data); err == nil {
		t.Fatalf("expected rejection, got:\n%s", out)
	} else if !strings.Contains(err.Error(), "missing_col") {
		t.Fatalf("rejection should name the column: %v", err)
	}

	out = runCmd(t, "insight", "list")
	if !strings.Contains(out, "avg_sales") || !strings.Contains(out, "weekend") || strings.Contains(out, "bad") {
		t.Fatalf("unexpected list output:\n%s", out)
	}

	out = runCmd(t, "load", "-f", data)
	for _, want := range []string{"Loaded sales.csv: 4 rows x 2 columns", "✓ avg_sales: 97.5", "✓ weekend: 70.0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("load output missing %q:\n%s", want, out)
		}
	}

	out = runCmd(t, "insight", "remove", "weekend")
	if !strings.Contains(out, "Removed: 'weekend'") {
		t.Fatalf("unexpected remove output:\n%s", out)
	}
	if _, err := execute(t, "", "insight", "remove", "weekend"); err == nil {
		t.Fatalf("removing a missing insight should fail")
	}
	out = runCmd(t, "insight", "eval", "--text", "Day,Sales\nMon,10\n")
	if !strings.Contains(out, "✓ avg_sales: 10.0") || strings.Contains(out, "weekend") {
		t.Fatalf("unexpected eval output:\n%s", out)
	}
}

func TestCLI_LoadIsolatesFailingInsights(t *testing.T) {
	home := tempHome(t)
	writeFile(t, filepath.Join(home, ".datalens", "saved_insights.json"),
		`{"bad": "data['missing_col']", "rows": "len(data)"}`)

	out := runCmd(t, "load", "--text", "x,y\n1,2\n3,4\n")
	for _, want := range []string{"✗ Error in 'bad'", "missing_col", "✓ rows: 2", "1 of 2 insights failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("load output missing %q:\n%s", want, out)
		}
	}

	out = runCmd(t, "load", "--text", "x,y\n1,2\n", "--no-insights")
	if strings.Contains(out, "Insights") {
		t.Fatalf("--no-insights still evaluated:\n%s", out)
	}
}

func TestCLI_InterruptedAddSavesNothing(t *testing.T) {
	home := tempHome(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executeContext(t, ctx, "", "insight", "add", "rows", "len(data)", "--text", "x\n1\n")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".datalens", "saved_insights.json")); !os.IsNotExist(err) {
		t.Fatalf("insights file written after interrupt, stat err = %v", err)
	}
}

func TestCLI_LoadFromStdinJSON(t *testing.T) {
	tempHome(t)
	out, err := execute(t, `[{"a": 1, "b": "x"}, {"a": 2, "b": "y"}]`, "load", "--stdin", "--head", "0")
	if err != nil {
		t.Fatalf("load --stdin: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 rows x 2 columns") || !strings.Contains(out, "numeric") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "(no insights saved") {
		t.Fatalf("empty store not reported:\n%s", out)
	}
}

func TestCLI_SourceFlagErrors(t *testing.T) {
	home := tempHome(t)
	data := writeFile(t, filepath.Join(home, "d.csv"), "a\n1\n")
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no source", []string{"load"}, "exactly one of"},
		{"two sources", []string{"load", "-f", data, "--text", "a\n1"}, "exactly one of"},
		{"bad delimiter", []string{"load", "-f", data, "--delimiter", "#"}, "unsupported --delimiter"},
		{"unsupported file", []string{"load", "-f", writeFile(t, filepath.Join(home, "d.parquet"), "x")}, "unsupported data format"},
		{"blank text", []string{"load", "--text", "   "}, "no data provided"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestCLI_ReportWritesMarkdown(t *testing.T) {
	home := tempHome(t)
	data := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	outPath := filepath.Join(home, "reports", "sales.md")

	out := runCmd(t, "report", "-f", data, "-o", outPath, "--group-by", "Day")
	if !strings.Contains(out, "Wrote report to") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	md, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(md), "[DATASET SUMMARY]") || !strings.Contains(string(md), "Rows: 4") {
		t.Fatalf("unexpected report:\n%s", md)
	}

	if _, err := execute(t, "", "report", "-f", data, "--group-by", "Nope"); err == nil {
		t.Fatalf("expected error for unknown --group-by column")
	}
}

// reportHeadRows counts the data rows of the [HEAD] table in a report.
func reportHeadRows(t *testing.T, md string) int {
	t.Helper()
	_, head, ok := strings.Cut(md, "[HEAD]\n")
	if !ok {
		t.Fatalf("report has no [HEAD] section:\n%s", md)
	}
	n := 0
	for _, line := range strings.Split(head, "\n") {
		if !strings.HasPrefix(line, "|") {
			break
		}
		n++
	}
	// header and separator lines
	return n - 2
}

func TestCLI_ReportSampleRowsFollowHeadRows(t *testing.T) {
	home := tempHome(t)
	data := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	t.Setenv("DATALENS_HEAD_ROWS", "2")
	t.Setenv("DATALENS_SAMPLE_ROWS", "1")

	if got := reportHeadRows(t, runCmd(t, "report", "-f", data)); got != 2 {
		t.Fatalf("head rows = %d, want head_rows (2)", got)
	}
	if got := reportHeadRows(t, runCmd(t, "report", "-f", data, "--sample-rows", "3")); got != 3 {
		t.Fatalf("head rows = %d, want --sample-rows (3)", got)
	}
}

func TestCLI_SQLiteBackend(t *testing.T) {
	home := tempHome(t)
	data := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	db := filepath.Join(home, "store", "insights.db")

	runCmd(t, "--backend", "sqlite", "--insights", db, "insight", "add", "total", "data['Sales'].sum()", "-f", data)
	if _, err := os.Stat(db); err != nil {
		t.Fatalf("database not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".datalens", "saved_insights.json")); !os.IsNotExist(err) {
		t.Fatalf("json store should be untouched, stat err = %v", err)
	}
	out := runCmd(t, "--backend", "sqlite", "--insights", db, "insight", "eval", "-f", data)
	if !strings.Contains(out, "✓ total: 390") {
		t.Fatalf("unexpected eval output:\n%s", out)
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := tempHome(t)
	runCmd(t, "config", "set", "sample_rows", "2")
	runCmd(t, "config", "set", "store_backend", "sqlite")
	if _, err := execute(t, "", "config", "set", "store_backend", "redis"); err == nil {
		t.Fatalf("expected invalid store_backend error")
	}
	if _, err := execute(t, "", "config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if _, err := os.Stat(filepath.Join(home, ".datalens", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := runCmd(t, "config", "show")
	for _, want := range []string{"sample_rows: 2", "store_backend: sqlite", filepath.Join(home, ".datalens", "insights.db")} {
		if !strings.Contains(out, want) {
			t.Fatalf("config show missing %q:\n%s", want, out)
		}
	}
}
