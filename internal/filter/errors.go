package filter

import (
	"errors"
	"fmt"

	"github.com/rebeliceyang/lazyroster/internal/models"
)

var (
	// ErrInvalidOperator is returned when an operator is not valid for the rule's kind.
	ErrInvalidOperator = errors.New("operator not valid for kind")
	// ErrInvalidKind is returned for a rule without a known kind.
	ErrInvalidKind = errors.New("invalid rule kind")
	// ErrOperandArity is returned when an operator gets the wrong number of operands.
	ErrOperandArity = errors.New("wrong number of operands")
	// ErrInvalidOperand is returned when an operand cannot be coerced to the rule's kind.
	ErrInvalidOperand = errors.New("invalid operand")
	// ErrUnknownColumn is returned when a rule names a column the dataset lacks.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrKindMismatch is returned when a numeric or date rule targets a column of another kind.
	ErrKindMismatch = errors.New("rule kind does not fit column")
)

// ValidationError describes a rule rejected at creation time.
//
// The sentinel cause can be matched with errors.Is.
type ValidationError struct {
	Column   string
	Kind     models.ColumnKind
	Operator models.FilterOperator
	Reason   string
	cause    error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid rule on %q (%s %s): %v", e.Column, e.Kind, e.Operator, e.cause)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.cause }

func invalid(column string, kind models.ColumnKind, op models.FilterOperator, cause error, reason string) *ValidationError {
	return &ValidationError{Column: column, Kind: kind, Operator: op, Reason: reason, cause: cause}
}

// StaleReferenceError reports a rule or search that no longer fits the
// current dataset: its column is gone, or for a rule, the column changed to
// a kind the rule cannot filter (ColumnKind is then set). It is
// informational: evaluation treats the rule as matching nothing and carries on.
type StaleReferenceError struct {
	Column     string
	ColumnKind models.ColumnKind
	Rule       *models.Rule
}

func (e *StaleReferenceError) Error() string {
	switch {
	case e.Rule != nil && e.ColumnKind != "":
		return fmt.Sprintf("rule %q needs a %s column but %q is now %s", e.Rule.String(), e.Rule.Kind, e.Column, e.ColumnKind)
	case e.Rule != nil:
		return fmt.Sprintf("rule %q references missing column %q", e.Rule.String(), e.Column)
	default:
		return fmt.Sprintf("search references missing column %q", e.Column)
	}
}

func (e *StaleReferenceError) Unwrap() error {
	if e.ColumnKind != "" {
		return ErrKindMismatch
	}
	return ErrUnknownColumn
}
