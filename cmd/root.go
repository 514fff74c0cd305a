package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cfgpkg "github.com/KaramelBytes/datalens-cli/internal/config"
	"github.com/KaramelBytes/datalens-cli/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	debug        bool
	flagInsights string
	flagBackend  string
	flagLogFmt   string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var logger = logging.Discard()

var rootCmd = &cobra.Command{
	Use:   "datalens",
	Short: "DataLens CLI: load tabular data and keep reusable insights about it",
	Long: `DataLens loads CSV, JSON or XLSX data (from files or pasted text), describes it,
and lets you save named expressions ("insights") that are re-evaluated every time data is loaded.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main(). Ctrl-C cancels the
// command's context.
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errMark("✗ Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.datalens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagInsights, "insights", "", "insights file or database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "insight store backend: json | sqlite (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFmt, "log-format", "", "log format: text | json (overrides config)")
}

func loadConfig() {
	if _, err := settings(); err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
	}
}

// settings returns the loaded configuration, loading it on first use.
func settings() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	applyOverrides(c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cfg = c
	logger = logging.Setup(c.LogLevel, c.LogFormat, os.Stderr)
	return cfg, nil
}

// applyOverrides applies CLI flags on top of file and env configuration.
func applyOverrides(c *cfgpkg.Global) {
	f := rootCmd.PersistentFlags()
	if f.Changed("backend") && flagBackend != "" {
		c.StoreBackend = flagBackend
	}
	if f.Changed("insights") && flagInsights != "" {
		if c.StoreBackend == cfgpkg.BackendSQLite {
			c.SQLitePath = flagInsights
		} else {
			c.InsightsPath = flagInsights
		}
	}
	if f.Changed("log-format") && flagLogFmt != "" {
		c.LogFormat = flagLogFmt
	}
	if debug {
		c.LogLevel = "debug"
	}
}
