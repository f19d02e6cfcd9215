package filter

import (
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/rebeliceyang/lazyroster/internal/coerce"
	"github.com/rebeliceyang/lazyroster/internal/dataset"
	"github.com/rebeliceyang/lazyroster/internal/models"
)

// AllRows returns a bitmap holding every row index of an n-row dataset
func AllRows(n int) *roaring.Bitmap {
	rb := roaring.New()
	if n > 0 {
		rb.AddRange(0, uint64(n))
	}
	return rb
}

// Evaluate returns the rows of ds retained by rs. An empty set retains every
// row; ModeAll intersects the per-rule results and ModeAny unions them.
func Evaluate(ds *dataset.Dataset, rs RuleSet) *roaring.Bitmap {
	if rs.IsEmpty() {
		return AllRows(ds.Len())
	}
	results := make([]*roaring.Bitmap, 0, rs.Len())
	for _, r := range rs.rules {
		results = append(results, EvaluateRule(ds, r))
	}
	return Combine(rs.Mode(), results)
}

// Combine folds per-rule results under mode. Both operations are
// commutative, so the order of results does not matter.
func Combine(mode models.FilterMode, results []*roaring.Bitmap) *roaring.Bitmap {
	if len(results) == 0 {
		return roaring.New()
	}
	if mode == models.ModeAny {
		return roaring.FastOr(results...)
	}
	return roaring.FastAnd(results...)
}

// EvaluateRule returns the rows of ds matched by r. A rule on a column the
// dataset lacks matches nothing.
func EvaluateRule(ds *dataset.Dataset, r models.Rule) *roaring.Bitmap {
	out := roaring.New()
	col := ds.ColumnIndex(r.Column)
	if col < 0 {
		return out
	}

	match := Matcher(r)
	for i := 0; i < ds.Len(); i++ {
		if match(ds.Cell(i, col)) {
			out.Add(uint32(i))
		}
	}
	return out
}

// Matcher compiles r into a predicate over raw cell values. Cells that do
// not coerce to the rule's kind never match.
func Matcher(r models.Rule) func(v any) bool {
	switch r.Kind {
	case models.KindNumeric:
		return numericMatcher(r.Operator, r.Operand.Number, r.Operand.High)
	case models.KindText:
		return textMatcher(r.Operator, r.Operand.Text)
	case models.KindDate:
		return dateMatcher(r.Operator, r.Operand.Date, r.Operand.End)
	default:
		return never
	}
}

func never(any) bool { return false }

func numericMatcher(op models.FilterOperator, x, high float64) func(any) bool {
	var cmp func(v float64) bool
	switch op {
	case models.OpGreaterThan:
		cmp = func(v float64) bool { return v > x }
	case models.OpGreaterOrEqual:
		cmp = func(v float64) bool { return v >= x }
	case models.OpLessThan:
		cmp = func(v float64) bool { return v < x }
	case models.OpLessOrEqual:
		cmp = func(v float64) bool { return v <= x }
	case models.OpEqual:
		cmp = func(v float64) bool { return v == x }
	case models.OpNotEqual:
		cmp = func(v float64) bool { return v != x }
	case models.OpBetween:
		if x > high {
			return never
		}
		cmp = func(v float64) bool { return v >= x && v <= high }
	default:
		return never
	}

	return func(v any) bool {
		f, ok := coerce.Number(v)
		return ok && cmp(f)
	}
}

func textMatcher(op models.FilterOperator, text string) func(any) bool {
	want := coerce.Fold(text)
	var cmp func(s string) bool
	switch op {
	case models.OpContains:
		cmp = func(s string) bool { return strings.Contains(s, want) }
	case models.OpStartsWith:
		cmp = func(s string) bool { return strings.HasPrefix(s, want) }
	case models.OpEndsWith:
		cmp = func(s string) bool { return strings.HasSuffix(s, want) }
	case models.OpEquals:
		cmp = func(s string) bool { return s == want }
	default:
		return never
	}

	return func(v any) bool {
		return cmp(coerce.Fold(coerce.Text(v)))
	}
}

func dateMatcher(op models.FilterOperator, start, end time.Time) func(any) bool {
	lo, hi := coerce.Day(start), coerce.Day(end)
	var cmp func(d time.Time) bool
	switch op {
	case models.OpBefore:
		cmp = func(d time.Time) bool { return d.Before(lo) }
	case models.OpAfter:
		cmp = func(d time.Time) bool { return d.After(lo) }
	case models.OpBetween:
		if lo.After(hi) {
			return never
		}
		cmp = func(d time.Time) bool { return !d.Before(lo) && !d.After(hi) }
	default:
		return never
	}

	return func(v any) bool {
		d, ok := coerce.Date(v)
		return ok && cmp(coerce.Day(d))
	}
}
