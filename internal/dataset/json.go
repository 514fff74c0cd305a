package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type jsonParser struct{}

func (jsonParser) Format() string { return "json" }

func (jsonParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".json")
}

// Records accepts the tabular JSON shapes pandas.read_json understands:
//
//	[{"a": 1, "b": 2}, ...]        array of records
//	[[1, 2], [3, 4]]               array of rows, columns named 0..n-1
//	{"a": [1, 3], "b": [2, 4]}     column arrays
//	{"a": {"0": 1, "1": 3}, ...}   columns keyed by row label
//
// Key order is preserved.
func (jsonParser) Records(content []byte, opt Options) ([][]string, error) {
	content = bytes.TrimSpace(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf")))
	if len(content) == 0 {
		return nil, ErrEmptyInput
	}
	dec := json.NewDecoder(bytes.NewReader(content))
	var top json.RawMessage
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	var records [][]string
	var err error
	switch top[0] {
	case '[':
		records, err = rowsFromArray(top)
	case '{':
		records, err = rowsFromColumns(top)
	default:
		return nil, errors.New("expected a JSON array or object")
	}
	if err != nil {
		return nil, err
	}
	if opt.MaxRows > 0 && len(records) > opt.MaxRows+1 {
		records = records[:opt.MaxRows+1]
	}
	return records, nil
}

func rowsFromArray(raw json.RawMessage) ([][]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode array: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("empty array")
	}
	switch firstByte(items[0]) {
	case '{':
		return rowsFromObjects(items)
	case '[':
		return rowsFromLists(items)
	default:
		return nil, errors.New("array elements must be objects or arrays")
	}
}

func rowsFromObjects(items []json.RawMessage) ([][]string, error) {
	var header []string
	pos := map[string]int{}
	rows := make([]map[string]string, len(items))
	for i, item := range items {
		if firstByte(item) != '{' {
			return nil, fmt.Errorf("record %d: expected an object", i)
		}
		keys, vals, err := decodeObject(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		row := make(map[string]string, len(keys))
		for k, key := range keys {
			if _, ok := pos[key]; !ok {
				pos[key] = len(header)
				header = append(header, key)
			}
			row[key] = cellString(vals[k])
		}
		rows[i] = row
	}
	records := make([][]string, 0, len(rows)+1)
	records = append(records, header)
	for _, row := range rows {
		rec := make([]string, len(header))
		for j, key := range header {
			rec[j] = row[key]
		}
		records = append(records, rec)
	}
	return records, nil
}

func rowsFromLists(items []json.RawMessage) ([][]string, error) {
	var width int
	rows := make([][]string, len(items))
	for i, item := range items {
		var cells []json.RawMessage
		if err := json.Unmarshal(item, &cells); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rec := make([]string, len(cells))
		for j, c := range cells {
			rec[j] = cellString(c)
		}
		if len(rec) > width {
			width = len(rec)
		}
		rows[i] = rec
	}
	header := make([]string, width)
	for j := range header {
		header[j] = strconv.Itoa(j)
	}
	return append([][]string{header}, rows...), nil
}

func rowsFromColumns(raw json.RawMessage) ([][]string, error) {
	names, vals, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.New("empty object")
	}
	columns := make([][]string, len(names))
	var labels []string
	labelPos := map[string]int{}
	indexed := make([]map[string]string, len(names))
	nrows := -1
	for j, v := range vals {
		switch firstByte(v) {
		case '[':
			var cells []json.RawMessage
			if err := json.Unmarshal(v, &cells); err != nil {
				return nil, fmt.Errorf("column %q: %w", names[j], err)
			}
			if nrows >= 0 && len(cells) != nrows {
				return nil, fmt.Errorf("column %q has %d values, expected %d", names[j], len(cells), nrows)
			}
			nrows = len(cells)
			col := make([]string, len(cells))
			for i, c := range cells {
				col[i] = cellString(c)
			}
			columns[j] = col
		case '{':
			keys, cells, err := decodeObject(v)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", names[j], err)
			}
			m := make(map[string]string, len(keys))
			for i, k := range keys {
				if _, ok := labelPos[k]; !ok {
					labelPos[k] = len(labels)
					labels = append(labels, k)
				}
				m[k] = cellString(cells[i])
			}
			indexed[j] = m
		default:
			return nil, fmt.Errorf("column %q: all scalar values need an index; use an array of records", names[j])
		}
	}
	if nrows >= 0 && len(labels) > 0 {
		return nil, errors.New("cannot mix column arrays and labeled columns")
	}
	if nrows < 0 {
		nrows = len(labels)
		for j, m := range indexed {
			col := make([]string, nrows)
			for i, label := range labels {
				col[i] = m[label]
			}
			columns[j] = col
		}
	}
	records := make([][]string, 0, nrows+1)
	records = append(records, names)
	for i := 0; i < nrows; i++ {
		rec := make([]string, len(names))
		for j := range names {
			rec[j] = columns[j][i]
		}
		records = append(records, rec)
	}
	return records, nil
}

// decodeObject returns the keys and raw values of a JSON object in source order.
func decodeObject(raw json.RawMessage) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("expected an object")
	}
	var keys []string
	var vals []json.RawMessage
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, errors.New("expected an object key")
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("value of %q: %w", key, err)
		}
		keys = append(keys, key)
		vals = append(vals, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, vals, nil
}

// cellString renders a JSON value as a raw cell. null becomes missing;
// nested values keep their compact JSON text.
func cellString(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	switch firstByte(v) {
	case 0, 'n':
		return ""
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
		return string(v)
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err == nil {
			return buf.String()
		}
		return string(v)
	default:
		return string(v)
	}
}

func firstByte(b []byte) byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}
