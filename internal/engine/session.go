package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rebeliceyang/lazyroster/internal/dataset"
	"github.com/rebeliceyang/lazyroster/internal/filter"
	"github.com/rebeliceyang/lazyroster/internal/models"
	"github.com/rebeliceyang/lazyroster/internal/presets"
	"github.com/rebeliceyang/lazyroster/internal/search"
	"github.com/rebeliceyang/lazyroster/internal/stats"
	"github.com/rebeliceyang/lazyroster/internal/view"
)

// Session is the state one user works against: a dataset, a rule set, a
// search query and the view derived from the three.
//
// Every mutation builds the next rule set (or query) and its view, then
// stores both together under the write lock. Readers never see a view that
// does not belong to the rules and query stored next to it.
type Session struct {
	mu    sync.RWMutex
	ds    *dataset.Dataset
	rules filter.RuleSet
	query models.SearchQuery
	view  *view.View

	opts options
}

// Snapshot is a consistent read of a session's state
type Snapshot struct {
	Dataset *dataset.Dataset
	Rules   filter.RuleSet
	Query   models.SearchQuery
	View    *view.View
}

// NewSession creates a session over an empty dataset
func NewSession(opts ...Option) *Session {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	empty, _ := dataset.New(nil, nil)
	s := &Session{
		ds:    empty,
		rules: filter.NewRuleSet(o.mode),
		opts:  o,
	}
	s.view = s.compute(empty, s.rules, s.query)
	return s
}

// Load replaces the dataset wholesale and recomputes the view. Rules whose
// column is gone or changed to a kind they cannot filter are dropped. A
// search pinned to a missing column falls back to every column. Both are
// reported; a search entry has a nil Rule.
func (s *Session) Load(ds *dataset.Dataset) []*filter.StaleReferenceError {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept, stale := s.dropStale(ds, s.rules)

	q, searchStale := s.dropStaleSearch(ds, s.query)
	if searchStale != nil {
		stale = append(stale, searchStale)
	}

	v := s.compute(ds, kept, q)
	s.ds, s.rules, s.query, s.view = ds, kept, q, v
	s.opts.logger.LogLoad(context.Background(), ds.Name(), ds.Len(), len(ds.Columns()), nil)
	return stale
}

// AddRule validates r against the current dataset and adds it. The stored
// rule, carrying its ID, is returned. Adding a rule equal to one already
// present returns the existing rule.
func (s *Session) AddRule(r models.Rule) (models.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := filter.ValidateFor(s.ds, r); err != nil {
		return models.Rule{}, err
	}
	next, err := s.rules.Add(r)
	if err != nil {
		return models.Rule{}, err
	}
	s.swapRules(next)

	stored, _ := next.Find(r)
	return stored, nil
}

// RemoveRule drops the rule with the given ID
func (s *Session) RemoveRule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapRules(s.rules.Remove(id))
}

// RemoveLast drops the most recently added rule and reports whether there
// was one
func (s *Session) RemoveLast() (models.Rule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules := s.rules.Rules()
	if len(rules) == 0 {
		return models.Rule{}, false
	}
	last := rules[len(rules)-1]
	s.swapRules(s.rules.Remove(last.ID))
	return last, true
}

// SetMode switches between ALL and ANY
func (s *Session) SetMode(m models.FilterMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapRules(s.rules.WithMode(m))
}

// ToggleMode flips the mode and returns the new one
func (s *Session) ToggleMode() models.FilterMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := models.ModeAny
	if s.rules.Mode() == models.ModeAny {
		next = models.ModeAll
	}
	s.swapRules(s.rules.WithMode(next))
	return next
}

// ClearRules removes every rule; the mode is kept
func (s *Session) ClearRules() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapRules(s.rules.Clear())
}

// ReplaceRules installs rs wholesale, as when a saved preset is applied.
// Rules that do not fit the dataset's columns are dropped and reported.
func (s *Session) ReplaceRules(rs filter.RuleSet) []*filter.StaleReferenceError {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept, stale := s.dropStale(s.ds, rs)
	s.swapRules(kept)
	return stale
}

// Restore installs a recorded rule set and search together, as when a
// history snapshot is reopened. Rules and a search column that no longer
// fit the dataset are dropped and reported, as on Load.
func (s *Session) Restore(rs filter.RuleSet, q models.SearchQuery) []*filter.StaleReferenceError {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept, stale := s.dropStale(s.ds, rs)
	q, searchStale := s.dropStaleSearch(s.ds, q)
	if searchStale != nil {
		stale = append(stale, searchStale)
	}

	v := s.compute(s.ds, kept, q)
	s.rules, s.query, s.view = kept, q, v
	return stale
}

// ApplyQuickFilter toggles a built-in quick filter. Turning on a filter
// whose column the dataset lacks is a validation error; turning one off
// always succeeds.
func (s *Session) ApplyQuickFilter(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := presets.Apply(s.rules, id)
	if err != nil {
		return err
	}
	if next.Len() > s.rules.Len() {
		qf, _ := presets.Lookup(id)
		if err := filter.ValidateFor(s.ds, qf.Rule); err != nil {
			return err
		}
	}
	s.swapRules(next)
	return nil
}

// SetSearch installs a query. A query naming a column the dataset lacks
// matches nothing, as a rule would.
func (s *Session) SetSearch(q models.SearchQuery) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.compute(s.ds, s.rules, q)
	s.query, s.view = q, v
}

// SetSearchText parses raw search box input against the dataset's columns
// and installs the result
func (s *Session) SetSearchText(input string) models.SearchQuery {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := search.Parse(input, s.ds.ColumnNames())
	v := s.compute(s.ds, s.rules, q)
	s.query, s.view = q, v
	return q
}

// SetParallelism changes how many rules later computations evaluate at
// once. The current view is kept.
func (s *Session) SetParallelism(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	WithParallelism(n)(&s.opts)
}

// Parallelism returns the current rule evaluation width
func (s *Session) Parallelism() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts.parallelism
}

// Snapshot returns the current state in one consistent read
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Dataset: s.ds, Rules: s.rules, Query: s.query, View: s.view}
}

// View returns the current filtered view
func (s *Session) View() *view.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Dataset returns the current dataset
func (s *Session) Dataset() *dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds
}

// Rules returns the current rule set
func (s *Session) Rules() filter.RuleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// Search returns the current search query
func (s *Session) Search() models.SearchQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Stats summarizes the current view
func (s *Session) Stats() stats.Statistics {
	return stats.Compute(s.View())
}

// swapRules recomputes the view for rs and stores both. Callers hold the
// write lock.
func (s *Session) swapRules(rs filter.RuleSet) {
	v := s.compute(s.ds, rs, s.query)
	s.rules, s.view = rs, v
}

// dropStale keeps the rules whose column exists in ds with a kind they fit
func (s *Session) dropStale(ds *dataset.Dataset, rs filter.RuleSet) (filter.RuleSet, []*filter.StaleReferenceError) {
	kept, dropped := rs.Partition(func(r models.Rule) bool {
		col, ok := ds.Column(r.Column)
		return ok && filter.Fits(r.Kind, col.Kind)
	})

	var stale []*filter.StaleReferenceError
	for _, r := range dropped {
		e := &filter.StaleReferenceError{Column: r.Column, Rule: &r}
		if col, ok := ds.Column(r.Column); ok {
			e.ColumnKind = col.Kind
		}
		stale = append(stale, e)
		s.opts.logger.LogStale(context.Background(), r.Column, r.String())
	}
	return kept, stale
}

// dropStaleSearch widens a search pinned to a column ds lacks to every column
func (s *Session) dropStaleSearch(ds *dataset.Dataset, q models.SearchQuery) (models.SearchQuery, *filter.StaleReferenceError) {
	if q.AllColumns() || ds.ColumnIndex(q.Column) >= 0 {
		return q, nil
	}
	s.opts.logger.LogStale(context.Background(), q.Column, "search")
	stale := &filter.StaleReferenceError{Column: q.Column}
	q.Column = ""
	return q, stale
}

func (s *Session) compute(ds *dataset.Dataset, rs filter.RuleSet, q models.SearchQuery) *view.View {
	start := time.Now()
	v := Compute(ds, rs, q, WithParallelism(s.opts.parallelism))
	s.opts.logger.LogView(context.Background(), rs.Len(), string(rs.Mode()), v.Len(), v.TotalRows(), time.Since(start))
	return v
}
