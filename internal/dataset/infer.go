package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/series"
)

// Kind is the inferred scalar type of a column.
type Kind string

const (
	KindNumeric  Kind = "numeric"
	KindText     Kind = "text"
	KindDatetime Kind = "datetime"
	KindBoolean  Kind = "boolean"
)

// naToken is how missing cells are handed to gota.
const naToken = "NaN"

var missingTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(raw string) bool {
	return missingTokens[strings.TrimSpace(raw)]
}

// inferColumn decides the kind of a raw column and returns the cells
// normalized for the matching gota series type.
func inferColumn(cells []string, opt Options) (Kind, series.Type, []string) {
	out := make([]string, len(cells))
	var present, bools, ints, nums, dates int
	for i, c := range cells {
		v := strings.TrimSpace(c)
		if missingTokens[v] {
			out[i] = naToken
			continue
		}
		out[i] = v
		present++
		if isBoolWord(v) {
			bools++
			continue
		}
		if clean, ok := cleanNumeric(v, opt); ok {
			nums++
			if _, err := strconv.Atoi(clean); err == nil {
				ints++
			}
			continue
		}
		if _, ok := parseTimeMaybe(v); ok {
			dates++
		}
	}

	switch {
	case present == 0:
		// pandas reads an all-empty column as float NaN.
		return KindNumeric, series.Float, out
	case bools == present:
		for i, v := range out {
			if v != naToken {
				out[i] = strings.ToLower(v)
			}
		}
		return KindBoolean, series.Bool, out
	case nums == present:
		for i, v := range out {
			if v == naToken {
				continue
			}
			clean, _ := cleanNumeric(v, opt)
			out[i] = clean
		}
		if ints == present {
			return KindNumeric, series.Int, out
		}
		return KindNumeric, series.Float, out
	case dates == present:
		return KindDatetime, series.String, out
	default:
		return KindText, series.String, out
	}
}

func isBoolWord(v string) bool {
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "false")
}

// ParseTime parses the datetime layouts recognized during inference.
func ParseTime(s string) (time.Time, bool) { return parseTimeMaybe(strings.TrimSpace(s)) }

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05",
		"1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// cleanNumeric strips percent signs and locale separators and returns a
// string strconv can parse.
func cleanNumeric(s string, opt Options) (string, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", false
	}
	// Words like "inf" and "nan" parse as floats but are not data.
	if math.IsNaN(f) || strings.ContainsAny(strings.ToLower(raw), "inxy") {
		return "", false
	}
	if _, err := strconv.Atoi(raw); err == nil {
		return raw, true
	}
	return strconv.FormatFloat(f, 'g', -1, 64), true
}
