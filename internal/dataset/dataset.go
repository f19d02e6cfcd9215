// Package dataset holds the immutable in-memory table the engine filters.
package dataset

import (
	"errors"
	"fmt"
	"math"

	"github.com/rebeliceyang/lazyroster/internal/coerce"
	"github.com/rebeliceyang/lazyroster/internal/models"
)

var (
	// ErrDuplicateColumn is returned when two columns share a name.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrEmptyColumnName is returned for a column without a name.
	ErrEmptyColumnName = errors.New("empty column name")
	// ErrTooManyRows is returned when the row count does not fit a row index.
	ErrTooManyRows = errors.New("too many rows")
)

// Dataset is an ordered, immutable sequence of rows over fixed columns.
// Every row holds exactly one cell per column; missing cells are nil.
type Dataset struct {
	name    string
	columns []models.Column
	index   map[string]int
	cells   [][]any
}

// New builds a Dataset. Columns declared with KindUnknown get their kind
// inferred once here. Row keys that are not columns are dropped and absent
// keys become nil cells.
func New(columns []models.Column, rows []models.Row) (*Dataset, error) {
	if uint64(len(rows)) > math.MaxUint32 {
		return nil, ErrTooManyRows
	}

	ds := &Dataset{
		columns: make([]models.Column, len(columns)),
		index:   make(map[string]int, len(columns)),
		cells:   make([][]any, len(rows)),
	}
	copy(ds.columns, columns)

	for i, col := range ds.columns {
		if col.Name == "" {
			return nil, fmt.Errorf("column %d: %w", i, ErrEmptyColumnName)
		}
		if _, dup := ds.index[col.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name)
		}
		if _, err := models.ParseColumnKind(string(col.Kind)); err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		ds.index[col.Name] = i
	}

	for r, row := range rows {
		cells := make([]any, len(ds.columns))
		for c, col := range ds.columns {
			cells[c] = row[col.Name]
		}
		ds.cells[r] = cells
	}

	for c := range ds.columns {
		if ds.columns[c].Kind == models.KindUnknown {
			ds.columns[c].Kind = ds.inferKind(c)
		}
	}

	return ds, nil
}

// FromRecords builds a Dataset from a header and positional records, as
// produced by delimited-text readers. Short records are padded with nil.
func FromRecords(header []string, records [][]any) (*Dataset, error) {
	columns := make([]models.Column, len(header))
	for i, name := range header {
		columns[i] = models.Column{Name: name}
	}

	rows := make([]models.Row, len(records))
	for r, rec := range records {
		row := make(models.Row, len(header))
		for c, name := range header {
			if c < len(rec) {
				row[name] = rec[c]
			} else {
				row[name] = nil
			}
		}
		rows[r] = row
	}
	return New(columns, rows)
}

// inferKind is numeric if every non-missing cell parses as a number, date if
// every one parses as a date, text otherwise. All-missing columns are text.
func (d *Dataset) inferKind(c int) models.ColumnKind {
	numeric, date, seen := true, true, false
	for _, cells := range d.cells {
		v := cells[c]
		if coerce.IsMissing(v) {
			continue
		}
		seen = true
		if numeric {
			if _, ok := coerce.Number(v); !ok {
				numeric = false
			}
		}
		if date {
			if _, ok := coerce.Date(v); !ok {
				date = false
			}
		}
		if !numeric && !date {
			return models.KindText
		}
	}

	switch {
	case !seen:
		return models.KindText
	case numeric:
		return models.KindNumeric
	case date:
		return models.KindDate
	default:
		return models.KindText
	}
}

// WithName returns a copy of the dataset labeled with its source name
func (d *Dataset) WithName(name string) *Dataset {
	cp := *d
	cp.name = name
	return &cp
}

// Name returns the source label (file name, query), if any
func (d *Dataset) Name() string {
	return d.name
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.cells)
}

// Columns returns a copy of the column list
func (d *Dataset) Columns() []models.Column {
	out := make([]models.Column, len(d.columns))
	copy(out, d.columns)
	return out
}

// ColumnNames returns the column names in order
func (d *Dataset) ColumnNames() []string {
	return models.Names(d.columns)
}

// Column looks up a column by name
func (d *Dataset) Column(name string) (models.Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return models.Column{}, false
	}
	return d.columns[i], true
}

// ColumnIndex returns the position of a column, or -1
func (d *Dataset) ColumnIndex(name string) int {
	if i, ok := d.index[name]; ok {
		return i
	}
	return -1
}

// Cell returns the raw value at (row, column position)
func (d *Dataset) Cell(row, col int) any {
	return d.cells[row][col]
}

// Row returns a copy of row i as a name → value map
func (d *Dataset) Row(i int) models.Row {
	row := make(models.Row, len(d.columns))
	for c, col := range d.columns {
		row[col.Name] = d.cells[i][c]
	}
	return row
}

// Values returns a copy of row i's cells in column order
func (d *Dataset) Values(i int) []any {
	out := make([]any, len(d.columns))
	copy(out, d.cells[i])
	return out
}

// Append returns a new dataset holding d's rows followed by other's.
// Columns are the union in order of first appearance. Kinds are inferred
// again over the combined cells.
func (d *Dataset) Append(other *Dataset) (*Dataset, error) {
	var columns []models.Column
	seen := make(map[string]bool)
	for _, src := range []*Dataset{d, other} {
		for _, col := range src.columns {
			if !seen[col.Name] {
				seen[col.Name] = true
				columns = append(columns, models.Column{Name: col.Name})
			}
		}
	}

	rows := make([]models.Row, 0, d.Len()+other.Len())
	for _, src := range []*Dataset{d, other} {
		for i := range src.cells {
			rows = append(rows, src.Row(i))
		}
	}

	merged, err := New(columns, rows)
	if err != nil {
		return nil, err
	}
	return merged.WithName(d.name), nil
}
