package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/KaramelBytes/datalens-cli/internal/insight"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
	errMark  = color.New(color.FgRed).SprintFunc()
	heading  = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// printRows renders the leading n rows of t as a table.
func printRows(w io.Writer, t *dataset.Table, n int) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(t.Names())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(t.Head(n).Rows())
	tw.Render()
}

// printSchema lists every column with its inferred kind and missing count.
func printSchema(w io.Writer, t *dataset.Table) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Column", "Kind", "Missing"})
	tw.SetAutoFormatHeaders(false)
	kinds := t.Kinds()
	for i, name := range t.Names() {
		missing := 0
		if s, err := t.Column(name); err == nil {
			for _, na := range s.IsNaN() {
				if na {
					missing++
				}
			}
		}
		tw.Append([]string{name, string(kinds[i]), strconv.Itoa(missing)})
	}
	tw.Render()
}

// printResults writes one line per insight result. It returns how many failed.
func printResults(w io.Writer, results []insight.Result) int {
	failed := 0
	for _, r := range results {
		if r.OK() {
			fmt.Fprintf(w, "%s %s: %s\n", okMark("✓"), r.Name, r.Value)
			continue
		}
		failed++
		fmt.Fprintf(w, "%s Error in '%s': %v\n", errMark("✗"), r.Name, r.Err)
	}
	return failed
}
