package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rebeliceyang/lazyroster/internal/coerce"
	"github.com/rebeliceyang/lazyroster/internal/models"
)

// ErrUnsupportedFormat is returned for file extensions with no loader.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// LoadFile reads a .csv, .tsv, .json or .xlsx file into a Dataset.
// Workbooks load their first sheet.
func LoadFile(path string) (*Dataset, error) {
	return LoadSheet(path, "")
}

// LoadSheet is LoadFile with a chosen workbook sheet. The sheet is ignored
// for text formats.
func LoadSheet(path, sheet string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var ds *Dataset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		ds, err = ReadDelimited(f, ',')
	case ".tsv", ".tab":
		ds, err = ReadDelimited(f, '\t')
	case ".json":
		ds, err = ReadJSON(f)
	case ".xlsx", ".xlsm":
		ds, err = ReadExcel(f, sheet)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filepath.Base(path), err)
	}
	return ds.WithName(filepath.Base(path)), nil
}

// ReadDelimited reads delimited text whose first record is the header.
// Cells stay strings; column kinds are inferred.
func ReadDelimited(r io.Reader, comma rune) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return New(nil, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records [][]any
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		records = append(records, cellsOf(rec))
	}

	return FromRecords(header, records)
}

// cellsOf converts one text record into cells. Missing markers become nil.
func cellsOf(rec []string) []any {
	row := make([]any, len(rec))
	for i, cell := range rec {
		if coerce.IsMissingMarker(cell) {
			continue
		}
		row[i] = cell
	}
	return row
}

// tableJSON is the column-ordered JSON shape also written by the exporter
type tableJSON struct {
	Columns []models.Column `json:"columns"`
	Rows    [][]any         `json:"rows"`
}

// ReadJSON reads either an array of objects (column order follows first
// appearance of each key) or {"columns": [...], "rows": [[...], ...]}.
func ReadJSON(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return New(nil, nil)
	}

	if data[0] == '{' {
		var t tableJSON
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&t); err != nil {
			return nil, fmt.Errorf("failed to parse table JSON: %w", err)
		}
		rows := make([]models.Row, len(t.Rows))
		for i, rec := range t.Rows {
			row := make(models.Row, len(t.Columns))
			for c, col := range t.Columns {
				if c < len(rec) {
					row[col.Name] = rec[c]
				}
			}
			rows[i] = row
		}
		return New(t.Columns, rows)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("failed to parse JSON records: %w", err)
	}

	var columns []models.Column
	seen := make(map[string]bool)
	rows := make([]models.Row, 0, len(raws))
	for i, raw := range raws {
		keys, row, err := decodeObject(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, models.Column{Name: k})
			}
		}
		rows = append(rows, row)
	}
	return New(columns, rows)
}

// decodeObject decodes one JSON object keeping its key order
func decodeObject(raw json.RawMessage) ([]string, models.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	row := make(models.Row)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", key, err)
		}
		if _, dup := row[key]; !dup {
			keys = append(keys, key)
		}
		row[key] = v
	}
	return keys, row, nil
}
