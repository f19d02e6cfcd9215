package models

import (
	"fmt"
	"strconv"
	"time"
)

// FilterOperator represents a rule comparison operator
type FilterOperator string

const (
	// Numeric operators
	OpGreaterThan    FilterOperator = ">"
	OpGreaterOrEqual FilterOperator = ">="
	OpLessThan       FilterOperator = "<"
	OpLessOrEqual    FilterOperator = "<="
	OpEqual          FilterOperator = "=="
	OpNotEqual       FilterOperator = "!="

	// Numeric and date
	OpBetween FilterOperator = "between"

	// Text operators
	OpContains   FilterOperator = "contains"
	OpStartsWith FilterOperator = "starts_with"
	OpEndsWith   FilterOperator = "ends_with"
	OpEquals     FilterOperator = "equals"

	// Date operators
	OpBefore FilterOperator = "before"
	OpAfter  FilterOperator = "after"
)

// Operand holds the comparison value(s) of a rule. Only the fields that
// belong to the rule's kind are meaningful.
type Operand struct {
	Number float64   `yaml:"number,omitempty" json:"number,omitempty"`
	High   float64   `yaml:"high,omitempty" json:"high,omitempty"`
	Text   string    `yaml:"text,omitempty" json:"text,omitempty"`
	Date   time.Time `yaml:"date,omitempty" json:"date,omitempty"`
	End    time.Time `yaml:"end,omitempty" json:"end,omitempty"`
}

// Rule represents a single typed comparison over one column
type Rule struct {
	ID       string         `yaml:"id,omitempty" json:"id,omitempty"`
	Column   string         `yaml:"column" json:"column"`
	Kind     ColumnKind     `yaml:"kind" json:"kind"`
	Operator FilterOperator `yaml:"operator" json:"operator"`
	Operand  Operand        `yaml:"operand" json:"operand"`
}

// Same reports whether two rules compare the same column the same way.
// IDs are ignored.
func (r Rule) Same(other Rule) bool {
	return r.Column == other.Column &&
		r.Kind == other.Kind &&
		r.Operator == other.Operator &&
		r.Operand.Number == other.Operand.Number &&
		r.Operand.High == other.Operand.High &&
		r.Operand.Text == other.Operand.Text &&
		r.Operand.Date.Equal(other.Operand.Date) &&
		r.Operand.End.Equal(other.Operand.End)
}

// String renders a short human-readable label, e.g. "GPA >= 3.5"
func (r Rule) String() string {
	switch r.Kind {
	case KindNumeric:
		if r.Operator == OpBetween {
			return fmt.Sprintf("%s between %s and %s", r.Column, formatNumber(r.Operand.Number), formatNumber(r.Operand.High))
		}
		return fmt.Sprintf("%s %s %s", r.Column, r.Operator, formatNumber(r.Operand.Number))
	case KindText:
		return fmt.Sprintf("%s %s %q", r.Column, r.Operator, r.Operand.Text)
	case KindDate:
		if r.Operator == OpBetween {
			return fmt.Sprintf("%s: %s to %s", r.Column, r.Operand.Date.Format(time.DateOnly), r.Operand.End.Format(time.DateOnly))
		}
		return fmt.Sprintf("%s %s %s", r.Column, r.Operator, r.Operand.Date.Format(time.DateOnly))
	default:
		return fmt.Sprintf("%s %s", r.Column, r.Operator)
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FilterMode controls how the rules of a rule set are combined
type FilterMode string

const (
	ModeAll FilterMode = "all" // every rule must match (AND)
	ModeAny FilterMode = "any" // at least one rule must match (OR)
)

// ParseFilterMode accepts "all"/"and" and "any"/"or"
func ParseFilterMode(s string) (FilterMode, error) {
	switch s {
	case "all", "and", "ALL", "AND":
		return ModeAll, nil
	case "any", "or", "ANY", "OR":
		return ModeAny, nil
	default:
		return "", fmt.Errorf("unknown filter mode: %q", s)
	}
}

// SearchQuery is a free-text search over one column or all columns
type SearchQuery struct {
	Text   string `json:"text"`
	Column string `json:"column,omitempty"` // empty searches every column
	Negate bool   `json:"negate,omitempty"`
}

// IsEmpty reports whether the query restricts nothing
func (q SearchQuery) IsEmpty() bool {
	return q.Text == ""
}

// AllColumns reports whether the query targets every column
func (q SearchQuery) AllColumns() bool {
	return q.Column == ""
}
