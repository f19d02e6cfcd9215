// Package search implements free-text search over a dataset, either within
// one column or across every column.
package search

import (
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/rebeliceyang/lazyroster/internal/coerce"
	"github.com/rebeliceyang/lazyroster/internal/dataset"
	"github.com/rebeliceyang/lazyroster/internal/models"
)

// Parse parses a search box string into a query.
// Examples, with columns [Name, Status]:
//   - "acti"          → {Text: "acti"}
//   - "!acti"         → {Text: "acti", Negate: true}
//   - "status:acti"   → {Text: "acti", Column: "Status"}
//   - "!Name:ada"     → {Text: "ada", Column: "Name", Negate: true}
//   - "note:x"        → {Text: "note:x"} (no such column, so no prefix)
func Parse(input string, columns []string) models.SearchQuery {
	q := models.SearchQuery{}
	input = strings.TrimSpace(input)

	if strings.HasPrefix(input, "!") {
		q.Negate = true
		input = input[1:]
	}

	if prefix, rest, found := strings.Cut(input, ":"); found {
		for _, col := range columns {
			if strings.EqualFold(strings.TrimSpace(prefix), col) {
				q.Column = col
				input = rest
				break
			}
		}
	}

	q.Text = strings.TrimSpace(input)
	if q.Text == "" {
		q.Negate = false
	}
	return q
}

// Match returns the rows of ds that satisfy q. An empty query matches every
// row. A query targeting a column the dataset lacks matches nothing.
func Match(ds *dataset.Dataset, q models.SearchQuery) *roaring.Bitmap {
	out := roaring.New()
	n := ds.Len()
	if q.IsEmpty() {
		if n > 0 {
			out.AddRange(0, uint64(n))
		}
		return out
	}

	cols, ok := targetColumns(ds, q)
	if !ok {
		return out
	}

	needle := coerce.Fold(q.Text)
	for i := 0; i < n; i++ {
		if rowContains(ds, i, cols, needle) != q.Negate {
			out.Add(uint32(i))
		}
	}
	return out
}

// rowContains is true when any of the given cells contains needle
func rowContains(ds *dataset.Dataset, row int, cols []int, needle string) bool {
	for _, c := range cols {
		if strings.Contains(coerce.Fold(coerce.Text(ds.Cell(row, c))), needle) {
			return true
		}
	}
	return false
}

// targetColumns resolves the column positions q searches
func targetColumns(ds *dataset.Dataset, q models.SearchQuery) ([]int, bool) {
	if q.AllColumns() {
		cols := make([]int, len(ds.Columns()))
		for i := range cols {
			cols[i] = i
		}
		return cols, true
	}
	c := ds.ColumnIndex(q.Column)
	if c < 0 {
		return nil, false
	}
	return []int{c}, true
}
