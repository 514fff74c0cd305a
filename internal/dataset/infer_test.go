package dataset

import (
	"reflect"
	"testing"

	"github.com/go-gota/gota/series"
)

func TestInferColumn(t *testing.T) {
	tests := []struct {
		name     string
		cells    []string
		opt      Options
		kind     Kind
		typ      series.Type
		expected []string
	}{
		{"ints", []string{"1", "2", "3"}, Options{}, KindNumeric, series.Int, []string{"1", "2", "3"}},
		{"floats with gap", []string{"1.5", "2", ""}, Options{}, KindNumeric, series.Float, []string{"1.5", "2", "NaN"}},
		{"decimal comma", []string{"0,5", "1,25"}, Options{}, KindNumeric, series.Float, []string{"0.5", "1.25"}},
		{"explicit locale", []string{"1.000,5", "2.000,0"}, Options{DecimalSeparator: ',', ThousandsSeparator: '.'}, KindNumeric, series.Float, []string{"1000.5", "2000"}},
		{"percent", []string{"10%", "12.5%"}, Options{}, KindNumeric, series.Float, []string{"10", "12.5"}},
		{"booleans", []string{"true", "False", "NA"}, Options{}, KindBoolean, series.Bool, []string{"true", "false", "NaN"}},
		{"dates", []string{"2024-01-01", "2024-02-15", ""}, Options{}, KindDatetime, series.String, []string{"2024-01-01", "2024-02-15", "NaN"}},
		{"mixed text", []string{"a", "1", "b"}, Options{}, KindText, series.String, []string{"a", "1", "b"}},
		{"words that parse as floats", []string{"inf", "nan", "Infinity"}, Options{}, KindText, series.String, []string{"inf", "NaN", "Infinity"}},
		{"all missing", []string{"", "null", "None"}, Options{}, KindNumeric, series.Float, []string{"NaN", "NaN", "NaN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, typ, got := inferColumn(tt.cells, tt.opt)
			if kind != tt.kind || typ != tt.typ {
				t.Fatalf("kind/type = %s/%s, want %s/%s", kind, typ, tt.kind, tt.typ)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("values = %#v, want %#v", got, tt.expected)
			}
		})
	}
}

func TestIsMissing(t *testing.T) {
	for _, v := range []string{"", " ", "NA", "N/A", "NaN", "nan", "null", "NULL", "None"} {
		if !IsMissing(v) {
			t.Errorf("IsMissing(%q) = false", v)
		}
	}
	for _, v := range []string{"0", "none", "-", "n"} {
		if IsMissing(v) {
			t.Errorf("IsMissing(%q) = true", v)
		}
	}
}

func TestParseTime(t *testing.T) {
	for _, v := range []string{"2024-03-01", "2024-03-01T10:00:00Z", "2024-03-01 10:00", " 2024/03/01 "} {
		if _, ok := ParseTime(v); !ok {
			t.Errorf("ParseTime(%q) failed", v)
		}
	}
	if _, ok := ParseTime("March first"); ok {
		t.Errorf("ParseTime accepted free text")
	}
}
