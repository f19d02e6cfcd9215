package models

import "fmt"

// ColumnKind is the declared value kind of a dataset column
type ColumnKind string

const (
	KindUnknown ColumnKind = "" // inferred at load time
	KindNumeric ColumnKind = "numeric"
	KindText    ColumnKind = "text"
	KindDate    ColumnKind = "date"
)

// ParseColumnKind parses a kind name; the empty string means "infer"
func ParseColumnKind(s string) (ColumnKind, error) {
	switch ColumnKind(s) {
	case KindUnknown, KindNumeric, KindText, KindDate:
		return ColumnKind(s), nil
	default:
		return "", fmt.Errorf("unknown column kind: %q", s)
	}
}

// Column describes one dataset column
type Column struct {
	Name string     `json:"name" yaml:"name"`
	Kind ColumnKind `json:"kind" yaml:"kind"`
}

// Row maps column name to raw cell value. Missing cells are nil.
type Row map[string]any

// Names returns the column names in order
func Names(columns []Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}
