package cmd

import (
	"fmt"

	"github.com/KaramelBytes/datalens-cli/internal/analysis"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	repSrc        sourceFlags
	repOutputPath string
	repSampleRows int
	repTopValues  int
	repGroupBy    []string
	repCorr       bool
	repOutliers   bool
	repOutlierThr float64
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Describe a dataset and produce a Markdown report",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		t, err := repSrc.load(cmd, c.MaxRows)
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		opt.SampleRows = c.HeadRows
		if cmd.Flags().Changed("sample-rows") {
			opt.SampleRows = repSampleRows
		}
		if repTopValues > 0 {
			opt.TopValues = repTopValues
		}
		for _, g := range repGroupBy {
			if !t.Has(g) {
				return fmt.Errorf("--group-by: no column named %q (columns: %v)", g, t.Names())
			}
		}
		opt.GroupBy = repGroupBy
		opt.Correlations = c.Correlations
		if cmd.Flags().Changed("correlations") {
			opt.Correlations = repCorr
		}
		if cmd.Flags().Changed("outliers") {
			opt.Outliers = repOutliers
		}
		opt.OutlierThreshold = c.OutlierThreshold
		if repOutlierThr > 0 {
			opt.OutlierThreshold = repOutlierThr
		}

		md := analysis.Describe(t, opt).Markdown()
		if repOutputPath == "" {
			fmt.Fprintln(cmd.OutOrStdout(), md)
			return nil
		}
		if err := utils.SafeWriteFile(repOutputPath, []byte(md)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote report to %s\n", okMark("✓"), repOutputPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	repSrc.register(reportCmd.Flags())
	reportCmd.Flags().StringVarP(&repOutputPath, "output", "o", "", "optional path to write the report (Markdown)")
	reportCmd.Flags().IntVar(&repSampleRows, "sample-rows", 5, "number of leading rows to include (default head_rows from config)")
	reportCmd.Flags().IntVar(&repTopValues, "top", 0, "most frequent values listed per text column (default 5)")
	reportCmd.Flags().StringSliceVar(&repGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	reportCmd.Flags().BoolVar(&repCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	reportCmd.Flags().BoolVar(&repOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	reportCmd.Flags().Float64Var(&repOutlierThr, "outlier-threshold", 0, "robust |z| threshold for outliers (default from config, 3.5)")
}
