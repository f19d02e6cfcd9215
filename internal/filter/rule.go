package filter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rebeliceyang/lazyroster/internal/coerce"
	"github.com/rebeliceyang/lazyroster/internal/dataset"
	"github.com/rebeliceyang/lazyroster/internal/models"
)

// NewNumericRule builds a numeric rule. between takes (low, high).
func NewNumericRule(column string, op models.FilterOperator, values ...float64) (models.Rule, error) {
	r := models.Rule{Column: column, Kind: models.KindNumeric, Operator: op}
	if len(values) != operandCount(op) {
		return models.Rule{}, invalid(column, r.Kind, op, ErrOperandArity, fmt.Sprintf("want %d, got %d", operandCount(op), len(values)))
	}
	r.Operand.Number = values[0]
	if op == models.OpBetween {
		r.Operand.High = values[1]
	}
	return r, Validate(r)
}

// NewTextRule builds a text rule
func NewTextRule(column string, op models.FilterOperator, text string) (models.Rule, error) {
	r := models.Rule{Column: column, Kind: models.KindText, Operator: op, Operand: models.Operand{Text: text}}
	return r, Validate(r)
}

// NewDateRule builds a date rule. between takes (start, end).
func NewDateRule(column string, op models.FilterOperator, dates ...time.Time) (models.Rule, error) {
	r := models.Rule{Column: column, Kind: models.KindDate, Operator: op}
	if len(dates) != operandCount(op) {
		return models.Rule{}, invalid(column, r.Kind, op, ErrOperandArity, fmt.Sprintf("want %d, got %d", operandCount(op), len(dates)))
	}
	r.Operand.Date = dates[0]
	if op == models.OpBetween {
		r.Operand.End = dates[1]
	}
	return r, Validate(r)
}

// ParseRule builds a rule from user-supplied operand strings, coercing them
// to the rule's kind.
func ParseRule(column string, kind models.ColumnKind, op models.FilterOperator, args ...string) (models.Rule, error) {
	if !ValidOperator(kind, op) {
		return models.Rule{}, validateKindAndOperator(column, kind, op)
	}
	if len(args) != operandCount(op) {
		return models.Rule{}, invalid(column, kind, op, ErrOperandArity, fmt.Sprintf("want %d, got %d", operandCount(op), len(args)))
	}

	switch kind {
	case models.KindNumeric:
		values := make([]float64, len(args))
		for i, a := range args {
			f, ok := coerce.Number(a)
			if !ok {
				return models.Rule{}, invalid(column, kind, op, ErrInvalidOperand, fmt.Sprintf("%q is not a number", a))
			}
			values[i] = f
		}
		return NewNumericRule(column, op, values...)
	case models.KindDate:
		dates := make([]time.Time, len(args))
		for i, a := range args {
			d, ok := coerce.Date(a)
			if !ok {
				return models.Rule{}, invalid(column, kind, op, ErrInvalidOperand, fmt.Sprintf("%q is not a date", a))
			}
			dates[i] = d
		}
		return NewDateRule(column, op, dates...)
	default:
		return NewTextRule(column, op, args[0])
	}
}

// Validate checks that a rule's operator and operands fit its kind
func Validate(r models.Rule) error {
	if strings.TrimSpace(r.Column) == "" {
		return invalid(r.Column, r.Kind, r.Operator, ErrUnknownColumn, "empty column name")
	}
	if err := validateKindAndOperator(r.Column, r.Kind, r.Operator); err != nil {
		return err
	}

	switch r.Kind {
	case models.KindNumeric:
		if !finite(r.Operand.Number) || (r.Operator == models.OpBetween && !finite(r.Operand.High)) {
			return invalid(r.Column, r.Kind, r.Operator, ErrInvalidOperand, "operand must be a finite number")
		}
	case models.KindText:
		if r.Operand.Text == "" && r.Operator != models.OpEquals {
			return invalid(r.Column, r.Kind, r.Operator, ErrInvalidOperand, "empty text")
		}
	case models.KindDate:
		if r.Operand.Date.IsZero() || (r.Operator == models.OpBetween && r.Operand.End.IsZero()) {
			return invalid(r.Column, r.Kind, r.Operator, ErrInvalidOperand, "missing date")
		}
	}
	return nil
}

// ValidateFor is Validate plus a check that ds has the rule's column and
// that the column's kind fits the rule
func ValidateFor(ds *dataset.Dataset, r models.Rule) error {
	if err := Validate(r); err != nil {
		return err
	}
	col, ok := ds.Column(r.Column)
	if !ok {
		return invalid(r.Column, r.Kind, r.Operator, ErrUnknownColumn, "column not in dataset")
	}
	if !Fits(r.Kind, col.Kind) {
		return invalid(r.Column, r.Kind, r.Operator, ErrKindMismatch, fmt.Sprintf("column is %s", col.Kind))
	}
	return nil
}

// Fits reports whether a rule of kind can filter a column of columnKind.
// Every cell has a text form, so text rules fit any column.
func Fits(kind, columnKind models.ColumnKind) bool {
	return kind == models.KindText || kind == columnKind
}

func validateKindAndOperator(column string, kind models.ColumnKind, op models.FilterOperator) error {
	switch kind {
	case models.KindNumeric, models.KindText, models.KindDate:
	default:
		return invalid(column, kind, op, ErrInvalidKind, "")
	}
	if !ValidOperator(kind, op) {
		return invalid(column, kind, op, ErrInvalidOperator, "")
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// exprTokens are tried longest first at each position
var exprTokens = []string{">=", "<=", "!=", "==", ">", "<", "=", "~", "^", "$", ":"}

// ParseExpr parses a compact rule expression such as "GPA>=3.5",
// "Status~Active" or "GPA:2.5..3.5". kindOf resolves the column's kind.
//
//	numeric: > >= < <= == (or =) != and col:low..high
//	text:    ~ contains, ^ starts_with, $ ends_with, = equals
//	date:    < before, > after, col:start..end
func ParseExpr(expr string, kindOf func(column string) (models.ColumnKind, bool)) (models.Rule, error) {
	pos, tok := -1, ""
	for i := 0; i < len(expr) && pos < 0; i++ {
		for _, t := range exprTokens {
			if strings.HasPrefix(expr[i:], t) {
				pos, tok = i, t
				break
			}
		}
	}
	if pos <= 0 {
		return models.Rule{}, fmt.Errorf("cannot parse rule expression %q", expr)
	}

	column := strings.TrimSpace(expr[:pos])
	arg := strings.TrimSpace(expr[pos+len(tok):])

	kind, ok := kindOf(column)
	if !ok {
		return models.Rule{}, invalid(column, "", "", ErrUnknownColumn, "")
	}

	if tok == ":" {
		low, high, found := strings.Cut(arg, "..")
		if !found {
			return models.Rule{}, invalid(column, kind, models.OpBetween, ErrOperandArity, "expected low..high")
		}
		return ParseRule(column, kind, models.OpBetween, strings.TrimSpace(low), strings.TrimSpace(high))
	}

	op, ok := exprOperator(kind, tok)
	if !ok {
		return models.Rule{}, invalid(column, kind, models.FilterOperator(tok), ErrInvalidOperator, "")
	}
	return ParseRule(column, kind, op, arg)
}

func exprOperator(kind models.ColumnKind, tok string) (models.FilterOperator, bool) {
	switch kind {
	case models.KindNumeric:
		switch tok {
		case "=", "==":
			return models.OpEqual, true
		case ">", ">=", "<", "<=", "!=":
			return models.FilterOperator(tok), true
		}
	case models.KindText:
		switch tok {
		case "~":
			return models.OpContains, true
		case "^":
			return models.OpStartsWith, true
		case "$":
			return models.OpEndsWith, true
		case "=", "==":
			return models.OpEquals, true
		}
	case models.KindDate:
		switch tok {
		case "<":
			return models.OpBefore, true
		case ">":
			return models.OpAfter, true
		}
	}
	return "", false
}
