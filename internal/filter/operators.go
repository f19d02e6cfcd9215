package filter

import (
	"slices"

	"github.com/rebeliceyang/lazyroster/internal/models"
)

// GetOperatorsForKind returns the operators valid for a column kind
func GetOperatorsForKind(kind models.ColumnKind) []models.FilterOperator {
	switch kind {
	case models.KindNumeric:
		return []models.FilterOperator{
			models.OpGreaterThan, models.OpGreaterOrEqual,
			models.OpLessThan, models.OpLessOrEqual,
			models.OpEqual, models.OpNotEqual,
			models.OpBetween,
		}
	case models.KindText:
		return []models.FilterOperator{
			models.OpContains, models.OpStartsWith,
			models.OpEndsWith, models.OpEquals,
		}
	case models.KindDate:
		return []models.FilterOperator{
			models.OpBefore, models.OpAfter,
			models.OpBetween,
		}
	default:
		return nil
	}
}

// ValidOperator reports whether op belongs to kind's operator set
func ValidOperator(kind models.ColumnKind, op models.FilterOperator) bool {
	return slices.Contains(GetOperatorsForKind(kind), op)
}

// operandCount is the number of operands op takes
func operandCount(op models.FilterOperator) int {
	if op == models.OpBetween {
		return 2
	}
	return 1
}
