package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/datalens-cli/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Global configuration structure.
type Global struct {
	// Insight store
	InsightsPath string `mapstructure:"insights_path" yaml:"insights_path"`
	StoreBackend string `mapstructure:"store_backend" yaml:"store_backend"`
	SQLitePath   string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// Loading and display
	SampleRows       int     `mapstructure:"sample_rows" yaml:"sample_rows"`
	HeadRows         int     `mapstructure:"head_rows" yaml:"head_rows"`
	MaxRows          int     `mapstructure:"max_rows" yaml:"max_rows"`
	Correlations     bool    `mapstructure:"correlations" yaml:"correlations"`
	OutlierThreshold float64 `mapstructure:"outlier_threshold" yaml:"outlier_threshold"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Dir returns ~/.datalens.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".datalens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.datalens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (including a .env file in the working directory) > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DATALENS")
	v.AutomaticEnv()

	v.SetDefault("insights_path", "")
	v.SetDefault("store_backend", BackendJSON)
	v.SetDefault("sqlite_path", "")
	v.SetDefault("sample_rows", 5)
	v.SetDefault("head_rows", 5)
	v.SetDefault("max_rows", 0)
	v.SetDefault("correlations", false)
	v.SetDefault("outlier_threshold", 3.5)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.resolvePaths(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values no command can work with.
func (c *Global) Validate() error {
	switch c.StoreBackend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("invalid store_backend: %q (use %s or %s)", c.StoreBackend, BackendJSON, BackendSQLite)
	}
	if c.SampleRows <= 0 {
		return fmt.Errorf("sample_rows must be positive, got %d", c.SampleRows)
	}
	if c.HeadRows < 0 {
		return fmt.Errorf("head_rows must not be negative, got %d", c.HeadRows)
	}
	if c.MaxRows < 0 {
		return fmt.Errorf("max_rows must not be negative, got %d", c.MaxRows)
	}
	return nil
}

// resolvePaths fills store locations under ~/.datalens when unset and
// expands a leading "~" in configured ones.
func (c *Global) resolvePaths() error {
	for _, p := range []*string{&c.InsightsPath, &c.SQLitePath} {
		if *p == "" {
			continue
		}
		expanded, err := utils.ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	if c.InsightsPath != "" && c.SQLitePath != "" {
		return nil
	}
	dir, err := Dir()
	if err != nil {
		return err
	}
	if c.InsightsPath == "" {
		c.InsightsPath = filepath.Join(dir, "saved_insights.json")
	}
	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(dir, "insights.db")
	}
	return nil
}
