package dataset

import "testing"

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Format
	}{
		{"object", `{"a":[1,2]}`, FormatRecords},
		{"array", `[{"a":1}]`, FormatRecords},
		{"leading whitespace", "\n\t  [1]", FormatRecords},
		{"bom", "\uFEFF{\"a\":[1]}", FormatRecords},
		{"csv", "a,b\n1,2", FormatDelimited},
		{"single word", "hello", FormatDelimited},
		{"blank", "   \n\t", FormatUnrecognized},
		{"empty", "", FormatUnrecognized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sniff(tt.in); got != tt.want {
				t.Fatalf("Sniff(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatString(t *testing.T) {
	if FormatDelimited.String() != "csv" || FormatRecords.String() != "json" || FormatUnrecognized.String() != "unrecognized" {
		t.Fatalf("unexpected format names: %s %s %s", FormatDelimited, FormatRecords, FormatUnrecognized)
	}
}
