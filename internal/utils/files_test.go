package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeWriteFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "store.json")
	if err := SafeWriteFile(p, []byte("first")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := SafeWriteFile(p, []byte("second")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "second" {
		t.Fatalf("unexpected content: %q", b)
	}
	entries, err := os.ReadDir(filepath.Dir(p))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestSafeWriteFileFailsIntoMissingParentFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := SafeWriteFile(filepath.Join(blocker, "store.json"), []byte("{}")); err == nil {
		t.Fatalf("expected error writing below a regular file")
	}
}

func TestPrettyJSONKeepsOperatorsReadable(t *testing.T) {
	b, err := PrettyJSON(map[string]string{"k": "a < b && c > d"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), "a < b && c > d") {
		t.Fatalf("expected unescaped operators, got %s", b)
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := ExpandHome("~/.datalens/x.json")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != filepath.Join(home, ".datalens", "x.json") {
		t.Fatalf("unexpected path: %s", got)
	}
	got, err = ExpandHome("rel/../a.json")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != "a.json" {
		t.Fatalf("expected cleaned path, got %s", got)
	}
}
