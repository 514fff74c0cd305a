// Package insight persists named expressions and evaluates them against
// loaded tables.
package insight

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Entry is one saved insight.
type Entry struct {
	Name       string
	Expression string
}

// Set maps insight names to expressions and remembers insertion order.
// The zero value is not usable; call NewSet.
type Set struct {
	names []string
	exprs map[string]string
}

func NewSet() *Set {
	return &Set{exprs: make(map[string]string)}
}

func (s *Set) Len() int { return len(s.names) }

// Get returns the expression stored under name.
func (s *Set) Get(name string) (string, bool) {
	e, ok := s.exprs[name]
	return e, ok
}

// Put inserts or overwrites name. An overwritten entry keeps its position.
func (s *Set) Put(name, expression string) (replaced bool) {
	if _, ok := s.exprs[name]; ok {
		s.exprs[name] = expression
		return true
	}
	s.names = append(s.names, name)
	s.exprs[name] = expression
	return false
}

// Delete removes name and reports whether it was present.
func (s *Set) Delete(name string) bool {
	if _, ok := s.exprs[name]; !ok {
		return false
	}
	delete(s.exprs, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
	return true
}

// Names returns the insight names in insertion order.
func (s *Set) Names() []string { return append([]string(nil), s.names...) }

// Entries returns the insights in insertion order.
func (s *Set) Entries() []Entry {
	out := make([]Entry, len(s.names))
	for i, n := range s.names {
		out[i] = Entry{Name: n, Expression: s.exprs[n]}
	}
	return out
}

func (s *Set) Clone() *Set {
	c := &Set{names: s.Names(), exprs: make(map[string]string, len(s.exprs))}
	for k, v := range s.exprs {
		c.exprs[k] = v
	}
	return c
}

func (s *Set) replaceWith(o *Set) {
	s.names, s.exprs = o.names, o.exprs
}

// MarshalJSON writes a flat JSON object in insertion order.
func (s *Set) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	quote := func(str string) ([]byte, error) {
		buf.Reset()
		if err := enc.Encode(str); err != nil {
			return nil, err
		}
		return bytes.TrimRight(buf.Bytes(), "\n"), nil
	}
	out := []byte{'{'}
	for i, n := range s.names {
		if i > 0 {
			out = append(out, ',')
		}
		key, err := quote(n)
		if err != nil {
			return nil, err
		}
		out = append(append(out, key...), ':')
		val, err := quote(s.exprs[n])
		if err != nil {
			return nil, err
		}
		out = append(out, val...)
	}
	return append(out, '}'), nil
}

// UnmarshalJSON reads a flat JSON object of strings, keeping key order.
// A repeated key keeps its first position and its last value.
func (s *Set) UnmarshalJSON(b []byte) error {
	fresh := NewSet()
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		s.replaceWith(fresh)
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("insights must be a JSON object of name to expression")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("insight %q: %w", name, err)
		}
		var expression string
		if err := json.Unmarshal(raw, &expression); err != nil {
			return fmt.Errorf("insight %q: expression must be a string, got %s", name, raw)
		}
		fresh.Put(name, expression)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	s.replaceWith(fresh)
	return nil
}
