package filter

import (
	"slices"

	"github.com/google/uuid"

	"github.com/rebeliceyang/lazyroster/internal/models"
)

// RuleSet is an ordered collection of rules plus a combination mode.
//
// RuleSet is a value: every method returns a new set and never mutates the
// receiver, so a set handed to an evaluation cannot change underneath it.
// The zero value is an empty set in ModeAll.
type RuleSet struct {
	rules []models.Rule
	mode  models.FilterMode
}

// NewRuleSet returns an empty rule set in the given mode
func NewRuleSet(mode models.FilterMode) RuleSet {
	return RuleSet{mode: normalizeMode(mode)}
}

// NewRuleSetFrom validates rules and collects them into a set
func NewRuleSetFrom(mode models.FilterMode, rules ...models.Rule) (RuleSet, error) {
	rs := NewRuleSet(mode)
	for _, r := range rules {
		var err error
		if rs, err = rs.Add(r); err != nil {
			return RuleSet{}, err
		}
	}
	return rs, nil
}

func normalizeMode(m models.FilterMode) models.FilterMode {
	if m == models.ModeAny {
		return models.ModeAny
	}
	return models.ModeAll
}

// Mode returns the combination mode
func (rs RuleSet) Mode() models.FilterMode {
	return normalizeMode(rs.mode)
}

// Rules returns a copy of the rules in insertion order
func (rs RuleSet) Rules() []models.Rule {
	return slices.Clone(rs.rules)
}

// Len returns the number of rules
func (rs RuleSet) Len() int {
	return len(rs.rules)
}

// IsEmpty reports whether the set has no rules
func (rs RuleSet) IsEmpty() bool {
	return len(rs.rules) == 0
}

// Add validates r and appends it. A rule without an ID gets a fresh one.
// Adding a rule that is Same as an existing one returns the set unchanged.
func (rs RuleSet) Add(r models.Rule) (RuleSet, error) {
	if err := Validate(r); err != nil {
		return rs, err
	}
	if _, exists := rs.Find(r); exists {
		return rs, nil
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}

	rules := make([]models.Rule, len(rs.rules), len(rs.rules)+1)
	copy(rules, rs.rules)
	return RuleSet{rules: append(rules, r), mode: rs.Mode()}, nil
}

// Remove drops the rule with the given ID; unknown IDs are a no-op
func (rs RuleSet) Remove(id string) RuleSet {
	return rs.filter(func(r models.Rule) bool { return r.ID != id })
}

// RemoveSame drops the rule that is Same as r and reports whether one was found
func (rs RuleSet) RemoveSame(r models.Rule) (RuleSet, bool) {
	existing, ok := rs.Find(r)
	if !ok {
		return rs, false
	}
	return rs.Remove(existing.ID), true
}

// Find returns the rule that is Same as r
func (rs RuleSet) Find(r models.Rule) (models.Rule, bool) {
	for _, existing := range rs.rules {
		if existing.Same(r) {
			return existing, true
		}
	}
	return models.Rule{}, false
}

// Get returns the rule with the given ID
func (rs RuleSet) Get(id string) (models.Rule, bool) {
	for _, r := range rs.rules {
		if r.ID == id {
			return r, true
		}
	}
	return models.Rule{}, false
}

// WithMode returns the same rules under a different mode
func (rs RuleSet) WithMode(mode models.FilterMode) RuleSet {
	return RuleSet{rules: slices.Clone(rs.rules), mode: normalizeMode(mode)}
}

// Clear removes every rule. The mode is kept.
func (rs RuleSet) Clear() RuleSet {
	return RuleSet{mode: rs.Mode()}
}

// Partition splits the set into the rules keep accepts and the ones it rejects
func (rs RuleSet) Partition(keep func(models.Rule) bool) (RuleSet, []models.Rule) {
	var dropped []models.Rule
	kept := rs.filter(func(r models.Rule) bool {
		if keep(r) {
			return true
		}
		dropped = append(dropped, r)
		return false
	})
	return kept, dropped
}

func (rs RuleSet) filter(keep func(models.Rule) bool) RuleSet {
	out := RuleSet{mode: rs.Mode()}
	for _, r := range rs.rules {
		if keep(r) {
			out.rules = append(out.rules, r)
		}
	}
	return out
}
