// Package view holds the filtered view of a dataset: the ordered subsequence
// of rows that survived the rules and the search.
package view

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/rebeliceyang/lazyroster/internal/dataset"
	"github.com/rebeliceyang/lazyroster/internal/models"
)

// View is a read-only row subset of a dataset. Rows are visited in dataset
// order.
type View struct {
	ds   *dataset.Dataset
	rows *roaring.Bitmap
}

// New wraps rows of ds. Indices past the end of ds are dropped.
func New(ds *dataset.Dataset, rows *roaring.Bitmap) *View {
	rb := rows.Clone()
	if n := uint64(ds.Len()); rb.GetCardinality() > 0 && uint64(rb.Maximum()) >= n {
		rb.RemoveRange(n, uint64(rb.Maximum())+1)
	}
	return &View{ds: ds, rows: rb}
}

// Full returns a view over every row of ds
func Full(ds *dataset.Dataset) *View {
	rb := roaring.New()
	if ds.Len() > 0 {
		rb.AddRange(0, uint64(ds.Len()))
	}
	return &View{ds: ds, rows: rb}
}

// Dataset returns the underlying dataset
func (v *View) Dataset() *dataset.Dataset {
	return v.ds
}

// Len returns the number of rows in the view
func (v *View) Len() int {
	return int(v.rows.GetCardinality())
}

// TotalRows returns the row count of the underlying dataset
func (v *View) TotalRows() int {
	return v.ds.Len()
}

// Columns returns the dataset's columns
func (v *View) Columns() []models.Column {
	return v.ds.Columns()
}

// Contains reports whether dataset row i is in the view
func (v *View) Contains(i int) bool {
	return i >= 0 && v.rows.Contains(uint32(i))
}

// Indices returns the dataset row indices in the view, ascending
func (v *View) Indices() []int {
	out := make([]int, 0, v.Len())
	for i := range v.All() {
		out = append(out, i)
	}
	return out
}

// All iterates the dataset row indices in the view
func (v *View) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		it := v.rows.Iterator()
		for it.HasNext() {
			if !yield(int(it.Next())) {
				return
			}
		}
	}
}

// Rows iterates (dataset row index, cells in column order)
func (v *View) Rows() iter.Seq2[int, []any] {
	return func(yield func(int, []any) bool) {
		for i := range v.All() {
			if !yield(i, v.ds.Values(i)) {
				return
			}
		}
	}
}

// Page returns up to limit row indices starting at the offset-th view row
func (v *View) Page(offset, limit int) []int {
	if offset < 0 {
		offset = 0
	}
	var out []int
	pos := 0
	for i := range v.All() {
		if pos >= offset {
			if limit > 0 && len(out) >= limit {
				break
			}
			out = append(out, i)
		}
		pos++
	}
	return out
}

// Bitmap returns a copy of the row set
func (v *View) Bitmap() *roaring.Bitmap {
	return v.rows.Clone()
}
