// Package engine composes rule evaluation and search into filtered views and
// keeps the per-session state they are computed from.
package engine

import (
	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/rebeliceyang/lazyroster/internal/dataset"
	"github.com/rebeliceyang/lazyroster/internal/filter"
	"github.com/rebeliceyang/lazyroster/internal/models"
	"github.com/rebeliceyang/lazyroster/internal/search"
	"github.com/rebeliceyang/lazyroster/internal/view"
)

// Compute returns the rows of ds that satisfy rs under its mode and q.
// Search always narrows the rule result, whatever the mode.
func Compute(ds *dataset.Dataset, rs filter.RuleSet, q models.SearchQuery, opts ...Option) *view.View {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	rows := evaluate(ds, rs, o.parallelism)
	if !q.IsEmpty() {
		rows.And(search.Match(ds, q))
	}
	return view.New(ds, rows)
}

// evaluate fans rules out over at most parallelism goroutines. Each rule
// writes only its own slot, and the combine step is commutative, so the
// result does not depend on scheduling.
func evaluate(ds *dataset.Dataset, rs filter.RuleSet, parallelism int) *roaring.Bitmap {
	rules := rs.Rules()
	if len(rules) <= 1 || parallelism <= 1 {
		return filter.Evaluate(ds, rs)
	}

	results := make([]*roaring.Bitmap, len(rules))
	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, r := range rules {
		g.Go(func() error {
			results[i] = filter.EvaluateRule(ds, r)
			return nil
		})
	}
	_ = g.Wait()

	return filter.Combine(rs.Mode(), results)
}
