package insight

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/KaramelBytes/datalens-cli/internal/utils"
)

// ErrConflict is returned by Save when the stored insights changed after
// the backend last read or wrote them.
var ErrConflict = errors.New("insights were modified by another session")

// ErrMalformed is returned by FileBackend.Save when the existing file cannot
// be parsed. The file is left for the user to repair or move aside.
var ErrMalformed = errors.New("insights file is not a valid JSON object of name/expression strings; fix or move it aside before saving")

// Backend is durable storage for a whole Set. Save replaces everything.
type Backend interface {
	Load(ctx context.Context) (*Set, error)
	Save(ctx context.Context, s *Set) error
	// Location describes where insights live, for display.
	Location() string
}

// fingerprint is what a backend last observed in storage.
type fingerprint struct {
	seen   bool
	exists bool
	sum    [sha256.Size]byte
}

func observe(exists bool, content []byte) fingerprint {
	return fingerprint{seen: true, exists: exists, sum: sha256.Sum256(content)}
}

// FileBackend stores insights as one JSON object in a file. Writes go to a
// temp file that is renamed into place.
type FileBackend struct {
	path string

	mu   sync.Mutex
	last fingerprint
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Location() string { return b.path }

// Load reads the file. A missing or blank file is an empty set.
func (b *FileBackend) Load(ctx context.Context) (*Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	content, exists, err := b.read()
	if err != nil {
		return nil, err
	}
	b.last = observe(exists, content)
	set, err := parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.path, err)
	}
	return set, nil
}

func parse(content []byte) (*Set, error) {
	set := NewSet()
	if len(bytes.TrimSpace(content)) == 0 {
		return set, nil
	}
	if err := set.UnmarshalJSON(content); err != nil {
		return nil, err
	}
	return set, nil
}

func (b *FileBackend) read() ([]byte, bool, error) {
	content, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read insights: %w", err)
	}
	return content, true, nil
}

// Save rewrites the file with s. If the file changed since this backend
// last loaded or saved it, Save returns ErrConflict; if it holds content
// that does not parse, ErrMalformed. Either way nothing is written.
func (b *FileBackend) Save(ctx context.Context, s *Set) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	content, exists, err := b.read()
	if err != nil {
		return err
	}
	if b.last.seen && observe(exists, content) != b.last {
		return fmt.Errorf("%s: %w", b.path, ErrConflict)
	}
	if _, err := parse(content); err != nil {
		return fmt.Errorf("%s: %w (%v)", b.path, ErrMalformed, err)
	}
	data, err := utils.PrettyJSON(s)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(b.path, data); err != nil {
		return fmt.Errorf("write insights: %w", err)
	}
	b.last = observe(true, data)
	return nil
}
