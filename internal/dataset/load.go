package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Options controls how raw input becomes a Table.
type Options struct {
	// Delimiter for delimited text. If 0, ',' (or '\t' for .tsv files).
	Delimiter rune
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
	// MaxRows limits rows kept; 0 means unlimited.
	MaxRows int
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// DefaultOptions returns the loader defaults.
func DefaultOptions() Options { return Options{} }

var (
	// ErrUnsupportedFormat indicates a file extension no parser handles.
	ErrUnsupportedFormat = errors.New("unsupported data format")
	// ErrEmptyInput indicates blank pasted text or an empty file.
	ErrEmptyInput = errors.New("no data provided")
)

// ParseError wraps any failure turning input into a Table.
type ParseError struct {
	Format string
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("parse %s %s: %v", e.Format, e.Source, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parser turns raw content into records: a header row followed by data rows.
type Parser interface {
	Format() string
	CanParse(filename string) bool
	Records(content []byte, opt Options) ([][]string, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

func init() {
	Register(csvParser{})
	Register(jsonParser{})
	Register(xlsxParser{})
}

// LoadText parses pasted text, choosing JSON or delimited parsing via Sniff.
func LoadText(name, text string, opt Options) (*Table, error) {
	var p Parser
	switch Sniff(text) {
	case FormatRecords:
		p = jsonParser{}
	case FormatDelimited:
		p = csvParser{}
	default:
		return nil, &ParseError{Format: "text", Source: name, Err: ErrEmptyInput}
	}
	return build(p, name, []byte(text), opt)
}

// LoadFile reads a file and parses it by extension.
func LoadFile(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Format: formatOf(path), Source: filepath.Base(path), Err: err}
	}
	defer f.Close()
	return LoadReader(path, f, opt)
}

// LoadReader parses r, dispatching purely on the extension of name.
func LoadReader(name string, r io.Reader, opt Options) (*Table, error) {
	p := parserFor(name)
	if p == nil {
		return nil, &ParseError{Format: formatOf(name), Source: filepath.Base(name), Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))}
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Format: p.Format(), Source: filepath.Base(name), Err: err}
	}
	if len(content) == 0 {
		return nil, &ParseError{Format: p.Format(), Source: filepath.Base(name), Err: ErrEmptyInput}
	}
	if opt.Delimiter == 0 && strings.EqualFold(filepath.Ext(name), ".tsv") {
		opt.Delimiter = '\t'
	}
	return build(p, filepath.Base(name), content, opt)
}

func build(p Parser, name string, content []byte, opt Options) (*Table, error) {
	records, err := p.Records(content, opt)
	if err != nil {
		return nil, &ParseError{Format: p.Format(), Source: name, Err: err}
	}
	t, err := FromRecords(name, records, opt)
	if err != nil {
		return nil, &ParseError{Format: p.Format(), Source: name, Err: err}
	}
	return t, nil
}

func parserFor(name string) Parser {
	for _, p := range registry {
		if p.CanParse(name) {
			return p
		}
	}
	return nil
}

func formatOf(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return "file"
	}
	return ext
}
