// Package presets holds the built-in quick filters and the user's saved
// rule presets.
package presets

import (
	"errors"
	"fmt"

	"github.com/rebeliceyang/lazyroster/internal/filter"
	"github.com/rebeliceyang/lazyroster/internal/models"
)

// ErrUnknownPreset is returned for a quick filter ID not in the catalog
var ErrUnknownPreset = errors.New("unknown preset")

// Built-in quick filter IDs
const (
	GPAHigh         = "gpa-high"
	GPAMid          = "gpa-mid"
	GPALow          = "gpa-low"
	StatusActive    = "status-active"
	StatusProbation = "status-probation"
)

var catalog = []models.QuickFilter{
	{ID: GPAHigh, Label: "GPA ≥ 3.5", Rule: numeric(models.OpGreaterOrEqual, 3.5)},
	{ID: GPAMid, Label: "GPA 2.5–3.5", Rule: numeric(models.OpBetween, 2.5, 3.5)},
	{ID: GPALow, Label: "GPA < 2.5", Rule: numeric(models.OpLessThan, 2.5)},
	{ID: StatusActive, Label: "Active", Rule: status("Active")},
	{ID: StatusProbation, Label: "Probation", Rule: status("Probation")},
}

func numeric(op models.FilterOperator, values ...float64) models.Rule {
	r, err := filter.NewNumericRule("GPA", op, values...)
	if err != nil {
		panic(err)
	}
	return r
}

func status(text string) models.Rule {
	r, err := filter.NewTextRule("Status", models.OpContains, text)
	if err != nil {
		panic(err)
	}
	return r
}

// List returns the catalog in display order
func List() []models.QuickFilter {
	out := make([]models.QuickFilter, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the quick filter with the given ID
func Lookup(id string) (models.QuickFilter, bool) {
	for _, qf := range catalog {
		if qf.ID == id {
			return qf, true
		}
	}
	return models.QuickFilter{}, false
}

// Active reports whether the quick filter's rule is currently in rs
func Active(rs filter.RuleSet, id string) bool {
	qf, ok := Lookup(id)
	if !ok {
		return false
	}
	_, found := rs.Find(qf.Rule)
	return found
}

// Apply toggles a quick filter: its rule is removed if rs already holds an
// equal rule and appended otherwise. The mode is left alone.
func Apply(rs filter.RuleSet, id string) (filter.RuleSet, error) {
	qf, ok := Lookup(id)
	if !ok {
		return rs, fmt.Errorf("%w: %q", ErrUnknownPreset, id)
	}
	if next, removed := rs.RemoveSame(qf.Rule); removed {
		return next, nil
	}
	return rs.Add(qf.Rule)
}
