package dataset

import (
	"errors"
	"reflect"
	"testing"
)

func TestFromRecordsHeaderCleanup(t *testing.T) {
	records := [][]string{
		{"\uFEFFid", "a", "a", "", " b "},
		{"1", "x", "y", "z", "w"},
		{"2", "x"},
	}
	tb, err := FromRecords("t", records, DefaultOptions())
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	want := []string{"id", "a", "a.1", "Unnamed: 3", "b"}
	if !reflect.DeepEqual(tb.Names(), want) {
		t.Fatalf("names = %v, want %v", tb.Names(), want)
	}
	rows := tb.Rows()
	if !reflect.DeepEqual(rows[1], []string{"2", "x", "NaN", "NaN", "NaN"}) {
		t.Fatalf("padded row = %v", rows[1])
	}
}

func TestFromRecordsErrors(t *testing.T) {
	if _, err := FromRecords("t", nil, DefaultOptions()); err == nil {
		t.Fatal("expected error for no records")
	}
	if _, err := FromRecords("t", [][]string{{}}, DefaultOptions()); err == nil {
		t.Fatal("expected error for empty header")
	}
}

func TestHeaderOnlyTable(t *testing.T) {
	tb, err := FromRecords("t", [][]string{{"a", "b"}}, DefaultOptions())
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	if tb.Nrow() != 0 || tb.Ncol() != 2 {
		t.Fatalf("shape = %dx%d", tb.Nrow(), tb.Ncol())
	}
	if len(tb.Rows()) != 0 {
		t.Fatalf("rows = %v", tb.Rows())
	}
}

func TestTableSlicing(t *testing.T) {
	records := [][]string{{"n", "s"}}
	for _, r := range []string{"1", "2", "3", "4", "5", "6"} {
		records = append(records, []string{r, "v" + r})
	}
	tb, err := FromRecords("t", records, DefaultOptions())
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}

	if got := tb.Head(2).Rows(); !reflect.DeepEqual(got, [][]string{{"1", "v1"}, {"2", "v2"}}) {
		t.Fatalf("Head = %v", got)
	}
	if got := tb.Tail(1).Rows(); !reflect.DeepEqual(got, [][]string{{"6", "v6"}}) {
		t.Fatalf("Tail = %v", got)
	}
	if got := tb.Head(100).Nrow(); got != 6 {
		t.Fatalf("Head(100) rows = %d", got)
	}
	if got := tb.Subset([]int{4, 0}).Rows(); !reflect.DeepEqual(got, [][]string{{"5", "v5"}, {"1", "v1"}}) {
		t.Fatalf("Subset = %v", got)
	}
	if got := tb.Subset(nil).Nrow(); got != 0 {
		t.Fatalf("Subset(nil) rows = %d", got)
	}

	sel, err := tb.Select([]string{"s"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !reflect.DeepEqual(sel.Names(), []string{"s"}) || sel.Nrow() != 6 {
		t.Fatalf("Select = %v x %d", sel.Names(), sel.Nrow())
	}
	if k, _ := sel.Kind("s"); k != KindText {
		t.Fatalf("selected kind = %s", k)
	}
	if _, err := tb.Select([]string{"zzz"}); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("Select missing err = %v", err)
	}
	if _, err := tb.Select([]string{"s", "s"}); err == nil {
		t.Fatal("expected error for duplicate selection")
	}
	if _, err := tb.Column("zzz"); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("Column missing err = %v", err)
	}
}

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{2: "2", 2.5: "2.5", -0.125: "-0.125", 1234567: "1234567", 1e21: "1e+21", 0.00001: "1e-05"}
	for in, want := range tests {
		if got := FormatFloat(in); got != want {
			t.Errorf("FormatFloat(%v) = %q, want %q", in, got, want)
		}
	}
}
