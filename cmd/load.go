package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	loadSrc        sourceFlags
	loadHead       int
	loadNoInsights bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load data, preview it and apply saved insights",
	Example: `  datalens load -f sales.csv
  datalens load --text $'Day,Sales\nMon,100\nTue,150'
  cat records.json | datalens load --stdin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		t, err := loadSrc.load(cmd, c.MaxRows)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Loaded %s: %d rows x %d columns\n", okMark("✓"), t.Name, t.Nrow(), t.Ncol())
		printSchema(out, t)
		head := c.HeadRows
		if cmd.Flags().Changed("head") {
			head = loadHead
		}
		if head > 0 && t.Nrow() > 0 {
			printRows(out, t, head)
		}
		if loadNoInsights {
			return nil
		}

		st, closeStore, err := openStore(c)
		if err != nil {
			return err
		}
		defer closeStore()
		set := st.Load(cmd.Context())
		fmt.Fprintf(out, "\n%s\n", heading("Insights"))
		if set.Len() == 0 {
			fmt.Fprintln(out, "(no insights saved; add one with 'datalens insight add')")
			return nil
		}
		if failed := printResults(out, st.EvaluateAll(cmd.Context(), set, t)); failed > 0 {
			fmt.Fprintf(out, "%s %d of %d insights failed\n", warnMark("⚠"), failed, set.Len())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadSrc.register(loadCmd.Flags())
	loadCmd.Flags().IntVar(&loadHead, "head", 5, "number of leading rows to preview (0 = none)")
	loadCmd.Flags().BoolVar(&loadNoInsights, "no-insights", false, "skip evaluating saved insights")
}
