// Package stats summarizes the rows of a filtered view.
package stats

import (
	"math"
	"slices"

	"github.com/rebeliceyang/lazyroster/internal/coerce"
	"github.com/rebeliceyang/lazyroster/internal/models"
	"github.com/rebeliceyang/lazyroster/internal/view"
)

// Statistics describes a view
type Statistics struct {
	Rows        int           `json:"rows"`
	TotalRows   int           `json:"total_rows"`
	Columns     int           `json:"columns"`
	ColumnStats []ColumnStats `json:"column_stats"`
}

// ColumnStats describes one column of a view. Numeric is nil unless the
// column is numeric and has at least one coercible value in the view.
type ColumnStats struct {
	Name       string            `json:"name"`
	Kind       models.ColumnKind `json:"kind"`
	NonMissing int               `json:"non_missing"`
	Missing    int               `json:"missing"`
	Unique     int               `json:"unique"`
	Numeric    *NumericSummary   `json:"numeric,omitempty"`
}

// NumericSummary is the descriptive summary of a numeric column.
// StdDev is the sample standard deviation and is nil for fewer than two
// values.
type NumericSummary struct {
	Count  int      `json:"count"`
	Mean   float64  `json:"mean"`
	StdDev *float64 `json:"std_dev,omitempty"`
	Min    float64  `json:"min"`
	Q1     float64  `json:"q1"`
	Median float64  `json:"median"`
	Q3     float64  `json:"q3"`
	Max    float64  `json:"max"`
}

// Compute summarizes v
func Compute(v *view.View) Statistics {
	cols := v.Columns()
	st := Statistics{
		Rows:        v.Len(),
		TotalRows:   v.TotalRows(),
		Columns:     len(cols),
		ColumnStats: make([]ColumnStats, len(cols)),
	}

	numbers := make([][]float64, len(cols))
	seen := make([]map[string]struct{}, len(cols))
	for c, col := range cols {
		st.ColumnStats[c] = ColumnStats{Name: col.Name, Kind: col.Kind}
		seen[c] = map[string]struct{}{}
	}

	for _, cells := range v.Rows() {
		for c, cell := range cells {
			cs := &st.ColumnStats[c]
			if coerce.IsMissing(cell) {
				cs.Missing++
				continue
			}
			cs.NonMissing++
			seen[c][uniqueKey(cols[c].Kind, cell)] = struct{}{}
			if cols[c].Kind == models.KindNumeric {
				if f, ok := coerce.Number(cell); ok {
					numbers[c] = append(numbers[c], f)
				}
			}
		}
	}

	for c := range cols {
		st.ColumnStats[c].Unique = len(seen[c])
		st.ColumnStats[c].Numeric = Summarize(numbers[c])
	}
	return st
}

// uniqueKey normalizes a cell so that 3.5 and "3.5" count once in a
// numeric column
func uniqueKey(kind models.ColumnKind, cell any) string {
	switch kind {
	case models.KindNumeric:
		if f, ok := coerce.Number(cell); ok {
			return coerce.Text(f)
		}
	case models.KindDate:
		if d, ok := coerce.Date(cell); ok {
			return coerce.FormatDate(coerce.Day(d))
		}
	}
	return coerce.Text(cell)
}

// Summarize returns the summary of values, or nil when there are none
func Summarize(values []float64) *NumericSummary {
	if len(values) == 0 {
		return nil
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum float64
	for _, f := range sorted {
		sum += f
	}
	n := len(sorted)
	mean := sum / float64(n)

	s := &NumericSummary{
		Count:  n,
		Mean:   mean,
		Min:    sorted[0],
		Q1:     Quantile(sorted, 0.25),
		Median: Quantile(sorted, 0.5),
		Q3:     Quantile(sorted, 0.75),
		Max:    sorted[n-1],
	}

	if n >= 2 {
		var ss float64
		for _, f := range sorted {
			ss += (f - mean) * (f - mean)
		}
		sd := math.Sqrt(ss / float64(n-1))
		s.StdDev = &sd
	}
	return s
}

// Quantile returns the q-quantile of sorted using linear interpolation
// between closest ranks. sorted must be non-empty and ascending.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
