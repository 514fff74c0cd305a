package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/expr"
	"github.com/KaramelBytes/datalens-cli/internal/insight"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	insAddSrc  sourceFlags
	insEvalSrc sourceFlags
)

var insightCmd = &cobra.Command{
	Use:     "insight",
	Aliases: []string{"insights"},
	Short:   "Manage saved insights (named expressions over `data`)",
	Long: `An insight is a named expression evaluated against the loaded table, bound as ` + "`data`" + `.

Expressions support literals, arithmetic, comparisons, and/or/not, & and | on
boolean masks, column access (data['col']), boolean filtering
(data[data['x'] > 1]) and a fixed set of methods and functions:
  ` + strings.Join(expr.Builtins(), ", ") + `, and column methods such as mean, median, sum,
  min, max, count, nunique, std, quantile, isin, value_counts, sort_values.`,
}

var insightAddCmd = &cobra.Command{
	Use:   "add <name> <expression>",
	Short: "Validate an expression on a sample of the data and save it",
	Example: `  datalens insight add avg_sales "data['Sales'].mean()" -f sales.csv
  datalens insight add weekend "data[data['Day'].isin(['Sat','Sun'])]['Sales'].mean()" -f sales.csv`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		t, err := insAddSrc.load(cmd, c.MaxRows)
		if err != nil {
			return err
		}
		st, closeStore, err := openStore(c)
		if err != nil {
			return err
		}
		defer closeStore()
		set := st.Load(cmd.Context())
		v, err := st.ValidateAndAdd(cmd.Context(), set, args[0], args[1], t)
		if err != nil {
			var ve *insight.ValidationError
			if errors.As(err, &ve) {
				return fmt.Errorf("invalid logic: %w", err)
			}
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Saved: '%s'\n", okMark("✓"), strings.TrimSpace(args[0]))
		fmt.Fprintf(out, "  sample result: %s\n", v)
		return nil
	},
}

var insightListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved insights",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		st, closeStore, err := openStore(c)
		if err != nil {
			return err
		}
		defer closeStore()
		set := st.Load(cmd.Context())
		out := cmd.OutOrStdout()
		if set.Len() == 0 {
			fmt.Fprintln(out, "(no insights)")
			return nil
		}
		tw := tablewriter.NewWriter(out)
		tw.SetHeader([]string{"Name", "Expression"})
		tw.SetAutoFormatHeaders(false)
		tw.SetAutoWrapText(false)
		for _, e := range set.Entries() {
			tw.Append([]string{e.Name, e.Expression})
		}
		tw.Render()
		return nil
	},
}

var insightEvalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate every saved insight against the data",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		t, err := insEvalSrc.load(cmd, c.MaxRows)
		if err != nil {
			return err
		}
		st, closeStore, err := openStore(c)
		if err != nil {
			return err
		}
		defer closeStore()
		set := st.Load(cmd.Context())
		out := cmd.OutOrStdout()
		if set.Len() == 0 {
			fmt.Fprintln(out, "(no insights)")
			return nil
		}
		if failed := printResults(out, st.EvaluateAll(cmd.Context(), set, t)); failed > 0 {
			fmt.Fprintf(out, "%s %d of %d insights failed\n", warnMark("⚠"), failed, set.Len())
		}
		return nil
	},
}

var insightRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved insight",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		st, closeStore, err := openStore(c)
		if err != nil {
			return err
		}
		defer closeStore()
		ok, err := st.Remove(cmd.Context(), st.Load(cmd.Context()), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no insight named %q", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Removed: '%s'\n", okMark("✓"), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(insightCmd)
	insightCmd.AddCommand(insightAddCmd, insightListCmd, insightEvalCmd, insightRemoveCmd)
	insAddSrc.register(insightAddCmd.Flags())
	insEvalSrc.register(insightEvalCmd.Flags())
}
