// Package export serializes a filtered view as CSV, TSV, JSON or an Excel workbook.
package export

import (
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
	"github.com/rebeliceyang/lazyroster/internal/view"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ErrUnknownFormat is returned for a format name or extension we cannot write
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat parses a format name, case-insensitively
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatTSV, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath picks the format from a file extension
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "tab" {
		ext = "tsv"
	}
	return ParseFormat(ext)
}

// Write serializes v to w. Rows keep dataset order and columns keep
// dataset column order.
func Write(w io.Writer, v *view.View, format Format) error {
	switch format {
	case FormatCSV:
		return writeDelimited(w, v, ',')
	case FormatTSV:
		return writeDelimited(w, v, '\t')
	case FormatJSON:
		return writeJSON(w, v)
	case FormatXLSX:
		return writeExcel(w, v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ToFile writes v to path. An empty format is taken from the extension.
func ToFile(v *view.View, path string, format Format) error {
	if format == "" {
		var err error
		if format, err = FormatFromPath(path); err != nil {
			return err
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s file: %w", format, err)
	}

	if err := Write(file, v, format); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return file.Close()
}

func writeDelimited(w io.Writer, v *view.View, comma rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = comma

	cols := v.Columns()
	if err := writer.Write(models.Names(cols)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(cols))
	for _, cells := range v.Rows() {
		for c, cell := range cells {
			record[c] = Cell(cols[c].Kind, cell)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Cell renders a cell as delimited text. Missing cells are empty and dates
// use their canonical form.
func Cell(kind models.ColumnKind, cell any) string {
	if coerce.IsMissing(cell) {
		return ""
	}
	if kind == models.KindDate {
		if d, ok := coerce.Date(cell); ok {
			return coerce.FormatDate(d)
		}
	}
	return coerce.Text(cell)
}

type table struct {
	Columns []models.Column `json:"columns"`
	Rows    [][]any         `json:"rows"`
}

func writeJSON(w io.Writer, v *view.View) error {
	cols := v.Columns()
	t := table{Columns: cols, Rows: make([][]any, 0, v.Len())}
	for _, cells := range v.Rows() {
		out := make([]any, len(cells))
		for c, cell := range cells {
			out[c] = typed(cols[c].Kind, cell)
		}
		t.Rows = append(t.Rows, out)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("failed to marshal view to JSON: %w", err)
	}
	return nil
}

// typed converts a cell to its JSON form by column kind. Cells that do not
// coerce fall back to text; missing cells are null.
func typed(kind models.ColumnKind, cell any) any {
	if coerce.IsMissing(cell) {
		return nil
	}
	switch kind {
	case models.KindNumeric:
		if f, ok := coerce.Number(cell); ok {
			return f
		}
	case models.KindDate:
		if d, ok := coerce.Date(cell); ok {
			return coerce.FormatDate(d)
		}
	}
	return coerce.Text(cell)
}
