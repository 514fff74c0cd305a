package dataset

import (
	"strings"
	"unicode"
)

// Format is the result of sniffing pasted text.
type Format int

const (
	FormatUnrecognized Format = iota
	FormatDelimited
	FormatRecords
)

func (f Format) String() string {
	switch f {
	case FormatDelimited:
		return "csv"
	case FormatRecords:
		return "json"
	default:
		return "unrecognized"
	}
}

// Sniff classifies pasted text by its first non-whitespace character:
// '{' or '[' means JSON records, anything else delimited text. Blank text
// is unrecognized.
//
// This is a heuristic, not a validator. A CSV whose first header field
// starts with '{' is classified as JSON and then fails to parse.
func Sniff(text string) Format {
	trimmed := strings.TrimLeftFunc(strings.TrimPrefix(text, "\uFEFF"), unicode.IsSpace)
	if trimmed == "" {
		return FormatUnrecognized
	}
	switch trimmed[0] {
	case '{', '[':
		return FormatRecords
	default:
		return FormatDelimited
	}
}
