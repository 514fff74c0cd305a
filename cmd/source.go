package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// sourceFlags selects where a command reads its data from.
type sourceFlags struct {
	file      string
	text      string
	stdin     bool
	sheet     string
	delimiter string
	decimal   string
	thousands string
	maxRows   int
}

func (s *sourceFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&s.file, "file", "f", "", "data file (.csv, .tsv, .json, .xlsx)")
	fs.StringVar(&s.text, "text", "", "pasted CSV or JSON text")
	fs.BoolVar(&s.stdin, "stdin", false, "read pasted CSV or JSON text from stdin")
	fs.StringVar(&s.sheet, "sheet", "", "XLSX: sheet name (default first sheet)")
	fs.StringVar(&s.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|'")
	fs.StringVar(&s.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	fs.StringVar(&s.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	fs.IntVar(&s.maxRows, "max-rows", 0, "maximum rows to load (0 = config default, unlimited if unset)")
}

func (s *sourceFlags) options(defaultMaxRows int) (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	opt.Sheet = s.sheet
	opt.MaxRows = defaultMaxRows
	if s.maxRows > 0 {
		opt.MaxRows = s.maxRows
	}
	switch s.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", s.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(s.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", s.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(s.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", s.thousands)
	}
	return opt, nil
}

// load reads the selected source into a Table. Exactly one source must be set.
func (s *sourceFlags) load(cmd *cobra.Command, defaultMaxRows int) (*dataset.Table, error) {
	n := 0
	for _, set := range []bool{s.file != "", s.text != "", s.stdin} {
		if set {
			n++
		}
	}
	if n != 1 {
		return nil, fmt.Errorf("specify exactly one of --file, --text or --stdin")
	}
	opt, err := s.options(defaultMaxRows)
	if err != nil {
		return nil, err
	}
	var t *dataset.Table
	switch {
	case s.file != "":
		t, err = dataset.LoadFile(s.file, opt)
	case s.text != "":
		t, err = dataset.LoadText("pasted", s.text, opt)
	default:
		var b []byte
		b, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		t, err = dataset.LoadText("stdin", string(b), opt)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("data loaded", "name", t.Name, "rows", t.Nrow(), "cols", t.Ncol())
	return t, nil
}
