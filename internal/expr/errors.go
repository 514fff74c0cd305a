package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// SyntaxError reports malformed expression text. Pos is a byte offset.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at column %d: %s", e.Pos+1, e.Msg)
}

// NameError reports an identifier that is neither a binding nor a function.
type NameError struct {
	Name string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("name '%s' is not defined (only 'data' is available)", e.Name)
}

// ColumnError reports a reference to a column the table does not have.
type ColumnError struct {
	Column    string
	Available []string
}

func (e *ColumnError) Error() string {
	msg := fmt.Sprintf("column '%s' not found", e.Column)
	if len(e.Available) > 0 {
		msg += fmt.Sprintf(" (available: %s)", strings.Join(e.Available, ", "))
	}
	return msg
}

func (e *ColumnError) Unwrap() error { return dataset.ErrColumnNotFound }

// TypeError reports an operation applied to values of the wrong type.
type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string { return e.Msg }

// ValueError reports an operation on well-typed but unusable values.
type ValueError struct {
	Msg string
}

func (e *ValueError) Error() string { return e.Msg }

func typeErrorf(format string, args ...any) error {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}

func valueErrorf(format string, args ...any) error {
	return &ValueError{Msg: fmt.Sprintf(format, args...)}
}

// Error categories reported by Category.
const (
	CategorySyntax  = "syntax"
	CategoryName    = "name"
	CategoryColumn  = "column"
	CategoryType    = "type"
	CategoryValue   = "value"
	CategoryRuntime = "runtime"
)

// Category classifies an evaluation error for display.
func Category(err error) string {
	var (
		se *SyntaxError
		ne *NameError
		ce *ColumnError
		te *TypeError
		ve *ValueError
	)
	switch {
	case errors.As(err, &se):
		return CategorySyntax
	case errors.As(err, &ne):
		return CategoryName
	case errors.As(err, &ce):
		return CategoryColumn
	case errors.As(err, &te):
		return CategoryType
	case errors.As(err, &ve):
		return CategoryValue
	default:
		return CategoryRuntime
	}
}
