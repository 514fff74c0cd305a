package insight

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileBackendMissingFile(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "nested", "saved_insights.json"))
	s, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
	s.Put("rows", "len(data)")
	if err := b.Save(context.Background(), s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := os.ReadFile(b.Location())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if want := "{\n  \"rows\": \"len(data)\"\n}\n"; string(got) != want {
		t.Fatalf("file = %q, want %q", got, want)
	}
}

func TestFileBackendSaveLoadIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "saved_insights.json")
	s := NewSet()
	s.Put("zeta", "data['x'] > 1 & data['y'] < 2")
	s.Put("avg", "data['x'].mean()")
	s.Put("ünïcode", "data['naïve'].sum()")
	if err := NewFileBackend(path).Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, esc := range []string{`\u003e`, `\u003c`, `\u0026`} {
		if bytes.Contains(first, []byte(esc)) {
			t.Fatalf("operators were HTML-escaped (%s): %s", esc, first)
		}
	}

	b := NewFileBackend(path)
	loaded, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.Entries(), s.Entries()) {
		t.Fatalf("Entries = %v, want %v", loaded.Entries(), s.Entries())
	}
	if err := b.Save(ctx, loaded); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("save(load()) changed the file:\n%s\n---\n%s", first, second)
	}
}

func TestFileBackendMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved_insights.json")
	if err := os.WriteFile(path, []byte(`{"a": 1}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileBackend(path).Load(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFileBackendKeepsMalformedFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "saved_insights.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b := NewFileBackend(path)
	if _, err := b.Load(ctx); err == nil {
		t.Fatalf("expected parse error")
	}
	s := NewSet()
	s.Put("rows", "len(data)")
	if err := b.Save(ctx, s); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Save err = %v, want ErrMalformed", err)
	}
	if got, _ := os.ReadFile(path); string(got) != "not json" {
		t.Fatalf("malformed file was overwritten: %q", got)
	}

	if err := os.WriteFile(path, []byte("\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	blank, err := b.Load(ctx)
	if err != nil || blank.Len() != 0 {
		t.Fatalf("blank file Load = %v, %v", blank, err)
	}
	if err := b.Save(ctx, s); err != nil {
		t.Fatalf("Save over blank file: %v", err)
	}
}

func TestFileBackendConflict(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "saved_insights.json")
	mine, theirs := NewFileBackend(path), NewFileBackend(path)

	a, err := mine.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, err := theirs.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b.Put("theirs", "1")
	if err := theirs.Save(ctx, b); err != nil {
		t.Fatalf("Save: %v", err)
	}
	a.Put("mine", "2")
	if err := mine.Save(ctx, a); !errors.Is(err, ErrConflict) {
		t.Fatalf("Save err = %v, want ErrConflict", err)
	}
	if got, _ := os.ReadFile(path); !bytes.Contains(got, []byte("theirs")) || bytes.Contains(got, []byte("mine")) {
		t.Fatalf("conflicting save touched the file: %s", got)
	}

	fresh, err := mine.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fresh.Put("mine", "2")
	if err := mine.Save(ctx, fresh); err != nil {
		t.Fatalf("Save after reload: %v", err)
	}
	// consecutive saves from one backend never conflict with themselves
	fresh.Put("again", "3")
	if err := mine.Save(ctx, fresh); err != nil {
		t.Fatalf("second Save: %v", err)
	}
}

func TestFileBackendCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := NewFileBackend(filepath.Join(t.TempDir(), "x.json"))
	if _, err := b.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Load err = %v", err)
	}
	if err := b.Save(ctx, NewSet()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Save err = %v", err)
	}
}

func TestSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "insights.db")
	b, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer b.Close()

	s, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("new database has %d insights", s.Len())
	}
	s.Put("zeta", "len(data)")
	s.Put("alpha", "data['x'].mean()")
	if err := b.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Delete("zeta")
	s.Put("beta", "data['x'].max()")
	if err := b.Save(ctx, s); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	other, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer other.Close()
	got, err := other.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []Entry{{"alpha", "data['x'].mean()"}, {"beta", "data['x'].max()"}}
	if !reflect.DeepEqual(got.Entries(), want) {
		t.Fatalf("Entries = %v, want %v", got.Entries(), want)
	}

	got.Put("theirs", "1")
	if err := other.Save(ctx, got); err != nil {
		t.Fatalf("other Save: %v", err)
	}
	s.Put("mine", "2")
	if err := b.Save(ctx, s); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale Save err = %v, want ErrConflict", err)
	}
}
