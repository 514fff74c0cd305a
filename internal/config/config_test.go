package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, home)

	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.StoreBackend != BackendJSON {
		t.Fatalf("expected json backend, got %q", c.StoreBackend)
	}
	if c.SampleRows != 5 || c.HeadRows != 5 {
		t.Fatalf("unexpected row defaults: %+v", c)
	}
	want := filepath.Join(home, ".datalens", "saved_insights.json")
	if c.InsightsPath != want {
		t.Fatalf("insights path = %s, want %s", c.InsightsPath, want)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, home)
	cfgFile := filepath.Join(home, "cfg.yaml")

	c, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	c.SampleRows = 12
	c.StoreBackend = BackendSQLite
	if err := Save(c, cfgFile); err != nil {
		t.Fatalf("save: %v", err)
	}
	again, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.SampleRows != 12 || again.StoreBackend != BackendSQLite {
		t.Fatalf("values not persisted: %+v", again)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, home)
	t.Setenv("DATALENS_SAMPLE_ROWS", "9")

	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.SampleRows != 9 {
		t.Fatalf("expected env override, got %d", c.SampleRows)
	}
}

func TestDotEnvIsRead(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, home)
	if err := os.WriteFile(filepath.Join(home, ".env"), []byte("DATALENS_HEAD_ROWS=3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("DATALENS_HEAD_ROWS") })

	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HeadRows != 3 {
		t.Fatalf("expected .env value, got %d", c.HeadRows)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	c := &Global{StoreBackend: "redis", SampleRows: 5}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestConfiguredPathsExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, home)
	t.Setenv("DATALENS_INSIGHTS_PATH", "~/data/mine.json")

	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if want := filepath.Join(home, "data", "mine.json"); c.InsightsPath != want {
		t.Fatalf("insights path = %s, want %s", c.InsightsPath, want)
	}
	if want := filepath.Join(home, ".datalens", "insights.db"); c.SQLitePath != want {
		t.Fatalf("sqlite path = %s, want %s", c.SQLitePath, want)
	}
}
