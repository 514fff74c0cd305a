package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/KaramelBytes/datalens-cli/internal/expr"
	"github.com/KaramelBytes/datalens-cli/internal/logging"
)

// DefaultSampleRows is how many leading rows a new insight is tried on.
const DefaultSampleRows = 5

// CategoryInput marks a rejected insight with a blank name or expression.
const CategoryInput = "input"

// ValidationError explains why an insight was not added.
type ValidationError struct {
	Name       string
	Expression string
	// Category is CategoryInput or one of the expr categories.
	Category string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("insight %q rejected (%s error): %v", e.Name, e.Category, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Result is the outcome of evaluating one insight.
type Result struct {
	Name       string
	Expression string
	Value      expr.Value
	Err        error
}

func (r Result) OK() bool { return r.Err == nil }

// Store loads, validates, persists and evaluates insights over a Backend.
type Store struct {
	backend    Backend
	log        *slog.Logger
	sampleRows int
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSampleRows sets how many rows ValidateAndAdd evaluates against.
func WithSampleRows(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.sampleRows = n
		}
	}
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, log: logging.Discard(), sampleRows: DefaultSampleRows}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Location() string { return s.backend.Location() }

// Load returns the stored insights. Storage that is missing, unreadable or
// malformed yields an empty set and a logged warning.
func (s *Store) Load(ctx context.Context) *Set {
	set, err := s.backend.Load(ctx)
	if err != nil {
		s.log.Warn("insights unavailable, starting empty", "location", s.backend.Location(), "error", err)
		return NewSet()
	}
	s.log.Debug("insights loaded", "location", s.backend.Location(), "count", set.Len())
	return set
}

// Save persists the whole set.
func (s *Store) Save(ctx context.Context, set *Set) error {
	if err := s.backend.Save(ctx, set); err != nil {
		s.log.Error("saving insights failed", "location", s.backend.Location(), "error", err)
		return err
	}
	s.log.Debug("insights saved", "location", s.backend.Location(), "count", set.Len())
	return nil
}

// ValidateAndAdd tries expression on the first rows of sample, then stores
// it under name and persists the set. It returns the trial value. On any
// failure set and storage are left as they were.
//
// If storage changed since it was loaded, the newer contents are reloaded,
// the insight is applied on top and the save is retried once.
func (s *Store) ValidateAndAdd(ctx context.Context, set *Set, name, expression string, sample *dataset.Table) (expr.Value, error) {
	name = strings.TrimSpace(name)
	expression = strings.TrimSpace(expression)
	reject := func(category string, err error) error {
		s.log.Info("insight rejected", "name", name, "category", category, "error", err)
		return &ValidationError{Name: name, Expression: expression, Category: category, Err: err}
	}
	switch {
	case name == "":
		return nil, reject(CategoryInput, errors.New("name is empty"))
	case expression == "":
		return nil, reject(CategoryInput, errors.New("expression is empty"))
	case sample == nil:
		return nil, reject(CategoryInput, expr.ErrNoData)
	}
	prog, err := expr.Compile(expression)
	if err != nil {
		return nil, reject(expr.Category(err), err)
	}
	value, err := prog.Eval(sample.Head(s.sampleRows))
	if err != nil {
		return nil, reject(expr.Category(err), err)
	}

	candidate := set.Clone()
	replaced := candidate.Put(name, expression)
	err = s.backend.Save(ctx, candidate)
	if errors.Is(err, ErrConflict) {
		s.log.Warn("insights changed on disk, merging", "location", s.backend.Location())
		fresh, lerr := s.backend.Load(ctx)
		if lerr != nil {
			return nil, fmt.Errorf("reload insights: %w", lerr)
		}
		replaced = fresh.Put(name, expression)
		candidate = fresh
		err = s.backend.Save(ctx, candidate)
	}
	if err != nil {
		s.log.Error("saving insights failed", "location", s.backend.Location(), "error", err)
		return nil, err
	}
	set.replaceWith(candidate)
	s.log.Info("insight saved", "name", name, "replaced", replaced, "count", set.Len())
	return value, nil
}

// Remove deletes name and persists the set. It reports whether name existed.
func (s *Store) Remove(ctx context.Context, set *Set, name string) (bool, error) {
	if _, ok := set.Get(name); !ok {
		return false, nil
	}
	candidate := set.Clone()
	candidate.Delete(name)
	if err := s.Save(ctx, candidate); err != nil {
		return false, err
	}
	set.replaceWith(candidate)
	return true, nil
}

// EvaluateAll evaluates every insight against t in insertion order. It
// never fails as a whole: each Result carries its own value or error, and
// there is exactly one Result per insight. Once ctx is done the remaining
// insights report ctx.Err().
func (s *Store) EvaluateAll(ctx context.Context, set *Set, t *dataset.Table) []Result {
	runID := uuid.NewString()
	log := s.log.With("run_id", runID)
	entries := set.Entries()
	results := make([]Result, len(entries))
	failed := 0
	start := time.Now()
	for i, e := range entries {
		results[i] = Result{Name: e.Name, Expression: e.Expression}
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			failed++
			continue
		}
		began := time.Now()
		results[i].Value, results[i].Err = evaluate(e.Expression, t)
		if results[i].Err != nil {
			failed++
			log.Debug("insight failed", "name", e.Name, "category", expr.Category(results[i].Err), "error", results[i].Err)
			continue
		}
		log.Debug("insight evaluated", "name", e.Name, "elapsed", time.Since(began))
	}
	log.Info("insights evaluated", "count", len(results), "failed", failed, "elapsed", time.Since(start))
	return results
}

func evaluate(expression string, t *dataset.Table) (v expr.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("evaluation panicked: %v", r)
		}
	}()
	return expr.Eval(expression, t)
}
