package insight

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteBackend stores insights in one table, one row per insight.
type SQLiteBackend struct {
	db   *sql.DB
	path string

	mu   sync.Mutex
	last fingerprint
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS insights (
		position INTEGER NOT NULL,
		name TEXT PRIMARY KEY,
		expression TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create insights table: %w", err)
	}
	return &SQLiteBackend{db: db, path: path}, nil
}

func (b *SQLiteBackend) Location() string { return b.path }

func (b *SQLiteBackend) Close() error { return b.db.Close() }

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readRows(ctx context.Context, q querier) (*Set, error) {
	rows, err := q.QueryContext(ctx, `SELECT name, expression FROM insights ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("select insights: %w", err)
	}
	defer func() { _ = rows.Close() }()
	set := NewSet()
	for rows.Next() {
		var name, expression string
		if err := rows.Scan(&name, &expression); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		set.Put(name, expression)
	}
	return set, rows.Err()
}

// digest fingerprints the rows of a set.
func digest(s *Set) fingerprint {
	h := sha256.New()
	for _, e := range s.Entries() {
		h.Write([]byte(e.Name))
		h.Write([]byte{0})
		h.Write([]byte(e.Expression))
		h.Write([]byte{0})
	}
	f := fingerprint{seen: true, exists: true}
	copy(f.sum[:], h.Sum(nil))
	return f
}

func (b *SQLiteBackend) Load(ctx context.Context) (*Set, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, err := readRows(ctx, b.db)
	if err != nil {
		return nil, err
	}
	b.last = digest(set)
	return set, nil
}

// Save replaces every row inside one transaction. It returns ErrConflict
// when the rows differ from what this backend last loaded or saved.
func (b *SQLiteBackend) Save(ctx context.Context, s *Set) (retErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if b.last.seen {
		current, err := readRows(ctx, tx)
		if err != nil {
			return err
		}
		if digest(current) != b.last {
			return fmt.Errorf("%s: %w", b.path, ErrConflict)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM insights`); err != nil {
		return fmt.Errorf("clear insights: %w", err)
	}
	for i, e := range s.Entries() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO insights (position, name, expression) VALUES (?, ?, ?)`, i, e.Name, e.Expression); err != nil {
			return fmt.Errorf("insert %q: %w", e.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	b.last = digest(s)
	return nil
}
