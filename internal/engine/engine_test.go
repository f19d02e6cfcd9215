package engine

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/lazyroster/internal/dataset"
	"github.com/rebeliceyang/lazyroster/internal/filter"
	"github.com/rebeliceyang/lazyroster/internal/models"
	"github.com/rebeliceyang/lazyroster/internal/presets"
)

func students(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		[]models.Column{{Name: "GPA"}, {Name: "Status"}},
		[]models.Row{
			{"GPA": 3.8, "Status": "Active"},
			{"GPA": 2.1, "Status": "Probation"},
			{"GPA": nil, "Status": "Active"},
		},
	)
	require.NoError(t, err)
	return ds
}

func roster(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	r := rand.New(rand.NewSource(7))
	statuses := []string{"Active", "Probation", "Graduated", "", "active"}
	rows := make([]models.Row, n)
	for i := range rows {
		var gpa any = float64(r.Intn(41)) / 10
		if r.Intn(10) == 0 {
			gpa = nil
		}
		rows[i] = models.Row{
			"GPA":      gpa,
			"Status":   statuses[r.Intn(len(statuses))],
			"Credits":  r.Intn(120),
			"Enrolled": []string{"2023-09-01", "2024-01-15", "2024-09-01", ""}[r.Intn(4)],
		}
	}
	ds, err := dataset.New([]models.Column{{Name: "GPA"}, {Name: "Status"}, {Name: "Credits"}, {Name: "Enrolled"}}, rows)
	require.NoError(t, err)
	return ds
}

func rule(t *testing.T, expr string, ds *dataset.Dataset) models.Rule {
	t.Helper()
	r, err := filter.ParseExpr(expr, func(col string) (models.ColumnKind, bool) {
		c, ok := ds.Column(col)
		return c.Kind, ok
	})
	require.NoError(t, err, expr)
	return r
}

func ruleSet(t *testing.T, mode models.FilterMode, rules ...models.Rule) filter.RuleSet {
	t.Helper()
	rs, err := filter.NewRuleSetFrom(mode, rules...)
	require.NoError(t, err)
	return rs
}

func TestComputeScenarios(t *testing.T) {
	ds := students(t)

	v := Compute(ds, ruleSet(t, models.ModeAll, rule(t, "GPA>=3.5", ds)), models.SearchQuery{})
	assert.Equal(t, []int{0}, v.Indices())

	v = Compute(ds, filter.RuleSet{}, models.SearchQuery{Text: "acti"})
	assert.Equal(t, []int{0, 2}, v.Indices())

	v = Compute(ds, ruleSet(t, models.ModeAny, rule(t, "GPA>=3.5", ds), rule(t, "Status=Probation", ds)), models.SearchQuery{})
	assert.Equal(t, []int{0, 1}, v.Indices())
}

func TestComputeIdentity(t *testing.T) {
	ds := roster(t, 200)
	v := Compute(ds, filter.NewRuleSet(models.ModeAny), models.SearchQuery{})
	assert.Equal(t, ds.Len(), v.Len())
}

func TestSearchNarrowsInEitherMode(t *testing.T) {
	ds := students(t)
	q := models.SearchQuery{Text: "active"}
	for _, mode := range []models.FilterMode{models.ModeAll, models.ModeAny} {
		rs := ruleSet(t, mode, rule(t, "GPA>=2", ds))
		v := Compute(ds, rs, q)
		assert.Equal(t, []int{0}, v.Indices(), mode)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	ds := roster(t, 500)
	rules := []models.Rule{
		rule(t, "GPA>=2.5", ds),
		rule(t, "Status~act", ds),
		rule(t, "Credits:30..90", ds),
		rule(t, "Enrolled>2023-12-31", ds),
		rule(t, "GPA!=3", ds),
	}

	for _, mode := range []models.FilterMode{models.ModeAll, models.ModeAny} {
		rs := ruleSet(t, mode, rules...)
		want := filter.Evaluate(ds, rs)
		for _, p := range []int{1, 2, 8} {
			got := Compute(ds, rs, models.SearchQuery{}, WithParallelism(p))
			assert.True(t, want.Equals(got.Bitmap()), "mode %s parallelism %d", mode, p)
		}
	}
}

func TestConjunctionAndDisjunctionBounds(t *testing.T) {
	ds := roster(t, 300)
	rules := []models.Rule{
		rule(t, "GPA>=2.5", ds),
		rule(t, "Status~act", ds),
		rule(t, "Credits<60", ds),
	}
	all := Compute(ds, ruleSet(t, models.ModeAll, rules...), models.SearchQuery{}).Bitmap()
	anyOf := Compute(ds, ruleSet(t, models.ModeAny, rules...), models.SearchQuery{}).Bitmap()

	for _, r := range rules {
		single := Compute(ds, ruleSet(t, models.ModeAll, r), models.SearchQuery{}).Bitmap()
		assert.Equal(t, all.GetCardinality(), all.AndCardinality(single), "ALL ⊆ %s", r)
		assert.Equal(t, single.GetCardinality(), anyOf.AndCardinality(single), "ANY ⊇ %s", r)
	}
}

func TestOrderIndependence(t *testing.T) {
	ds := roster(t, 300)
	rules := []models.Rule{
		rule(t, "GPA>=2.5", ds),
		rule(t, "Status~act", ds),
		rule(t, "Credits<60", ds),
	}
	r := rand.New(rand.NewSource(1))
	for _, mode := range []models.FilterMode{models.ModeAll, models.ModeAny} {
		want := Compute(ds, ruleSet(t, mode, rules...), models.SearchQuery{}).Indices()
		for range 5 {
			shuffled := append([]models.Rule(nil), rules...)
			r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			got := Compute(ds, ruleSet(t, mode, shuffled...), models.SearchQuery{}).Indices()
			assert.Equal(t, want, got)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := NewSession(WithParallelism(2))
	assert.Zero(t, s.View().Len())

	ds := students(t)
	assert.Empty(t, s.Load(ds))
	assert.Equal(t, 3, s.View().Len())

	stored, err := s.AddRule(rule(t, "GPA>=3.5", ds))
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, []int{0}, s.View().Indices())

	again, err := s.AddRule(rule(t, "GPA>=3.5", ds))
	require.NoError(t, err)
	assert.Equal(t, stored.ID, again.ID)
	assert.Equal(t, 1, s.Rules().Len())

	_, err = s.AddRule(rule(t, "Status=Probation", ds))
	require.NoError(t, err)
	assert.Empty(t, s.View().Indices())

	assert.Equal(t, models.ModeAny, s.ToggleMode())
	assert.Equal(t, []int{0, 1}, s.View().Indices())

	q := s.SetSearchText("status:prob")
	assert.Equal(t, "Status", q.Column)
	assert.Equal(t, []int{1}, s.View().Indices())

	s.RemoveRule(stored.ID)
	assert.Equal(t, 1, s.Rules().Len())

	s.ClearRules()
	assert.True(t, s.Rules().IsEmpty())
	assert.Equal(t, models.ModeAny, s.Rules().Mode())
	assert.Equal(t, []int{1}, s.View().Indices())

	s.SetSearch(models.SearchQuery{})
	assert.Equal(t, 3, s.View().Len())
}

func TestSessionAddRuleRejectsUnknownColumn(t *testing.T) {
	s := NewSession()
	s.Load(students(t))

	r, err := filter.NewNumericRule("Credits", models.OpGreaterThan, 10)
	require.NoError(t, err)

	_, err = s.AddRule(r)
	var verr *filter.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, errors.Is(err, filter.ErrUnknownColumn))
	assert.True(t, s.Rules().IsEmpty())
}

func TestSessionQuickFilters(t *testing.T) {
	s := NewSession()
	s.Load(students(t))

	require.NoError(t, s.ApplyQuickFilter(presets.GPAHigh))
	assert.Equal(t, []int{0}, s.View().Indices())

	require.NoError(t, s.ApplyQuickFilter(presets.StatusActive))
	assert.Equal(t, 2, s.Rules().Len())

	require.NoError(t, s.ApplyQuickFilter(presets.GPAHigh))
	assert.Equal(t, []int{0, 2}, s.View().Indices())

	err := s.ApplyQuickFilter("nope")
	assert.True(t, errors.Is(err, presets.ErrUnknownPreset))
}

func TestSessionQuickFilterNeedsColumn(t *testing.T) {
	ds, err := dataset.New([]models.Column{{Name: "Name"}}, []models.Row{{"Name": "Ada"}})
	require.NoError(t, err)

	s := NewSession()
	s.Load(ds)
	err = s.ApplyQuickFilter(presets.GPALow)
	assert.True(t, errors.Is(err, filter.ErrUnknownColumn))
	assert.True(t, s.Rules().IsEmpty())
}

func TestSessionReloadDropsStaleReferences(t *testing.T) {
	s := NewSession()
	ds := students(t)
	s.Load(ds)

	_, err := s.AddRule(rule(t, "GPA>=3.5", ds))
	require.NoError(t, err)
	_, err = s.AddRule(rule(t, "Status~act", ds))
	require.NoError(t, err)
	s.SetSearch(models.SearchQuery{Text: "ac", Column: "Status"})

	next, err := dataset.New(
		[]models.Column{{Name: "GPA"}, {Name: "Major"}},
		[]models.Row{{"GPA": 3.9, "Major": "Math"}, {"GPA": 3.1, "Major": "Art"}},
	)
	require.NoError(t, err)

	stale := s.Load(next)
	require.Len(t, stale, 2)
	assert.Equal(t, "Status", stale[0].Column)
	require.NotNil(t, stale[0].Rule)
	assert.Nil(t, stale[1].Rule)
	assert.True(t, errors.Is(stale[0], filter.ErrUnknownColumn))

	assert.Equal(t, 1, s.Rules().Len())
	assert.True(t, s.Search().AllColumns())
	// "ac" no longer matches anything once only GPA and Major remain
	assert.Empty(t, s.View().Indices())

	s.SetSearch(models.SearchQuery{})
	assert.Equal(t, []int{0}, s.View().Indices())
}

func TestSessionReloadDropsRulesOnRekindedColumns(t *testing.T) {
	s := NewSession()
	ds := students(t)
	s.Load(ds)

	_, err := s.AddRule(rule(t, "GPA>=3.5", ds))
	require.NoError(t, err)
	_, err = s.AddRule(rule(t, "Status~act", ds))
	require.NoError(t, err)

	next, err := dataset.New(
		[]models.Column{{Name: "GPA"}, {Name: "Status"}},
		[]models.Row{{"GPA": "pass", "Status": "Active"}, {"GPA": "3.9", "Status": "Probation"}},
	)
	require.NoError(t, err)

	stale := s.Load(next)
	require.Len(t, stale, 1)
	assert.Equal(t, "GPA", stale[0].Column)
	assert.Equal(t, models.KindText, stale[0].ColumnKind)
	assert.True(t, errors.Is(stale[0], filter.ErrKindMismatch))
	assert.Contains(t, stale[0].Error(), "is now text")

	require.Equal(t, 1, s.Rules().Len())
	assert.Equal(t, "Status", s.Rules().Rules()[0].Column)
}

func TestSessionAddRuleChecksColumnKind(t *testing.T) {
	s := NewSession()
	ds := students(t)
	s.Load(ds)

	numeric, err := filter.NewNumericRule("Status", models.OpGreaterThan, 3)
	require.NoError(t, err)
	_, err = s.AddRule(numeric)
	assert.True(t, errors.Is(err, filter.ErrKindMismatch))
	assert.True(t, s.Rules().IsEmpty())

	text, err := filter.NewTextRule("GPA", models.OpStartsWith, "3")
	require.NoError(t, err)
	_, err = s.AddRule(text)
	require.NoError(t, err, "text rules fit any column")
	assert.Equal(t, []int{0}, s.View().Indices())
}

func TestSessionReplaceRules(t *testing.T) {
	s := NewSession()
	ds := students(t)
	s.Load(ds)

	gpa := rule(t, "GPA<2.5", ds)
	credits, err := filter.NewNumericRule("Credits", models.OpGreaterThan, 10)
	require.NoError(t, err)

	stale := s.ReplaceRules(ruleSet(t, models.ModeAny, gpa, credits))
	require.Len(t, stale, 1)
	assert.Equal(t, "Credits", stale[0].Column)
	assert.Equal(t, models.ModeAny, s.Rules().Mode())
	assert.Equal(t, []int{1}, s.View().Indices())
}

func TestSessionSnapshotIsConsistent(t *testing.T) {
	s := NewSession()
	ds := roster(t, 400)
	s.Load(ds)

	var rules []models.Rule
	for _, expr := range []string{"GPA>=2.5", "Status~act", "Credits<60", "GPA<1"} {
		rules = append(rules, rule(t, expr, ds))
	}

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 20 {
				if (i+j)%2 == 0 {
					_, _ = s.AddRule(rules[(i+j)%len(rules)])
				} else {
					s.ToggleMode()
				}
			}
		}()
	}
	for range 50 {
		snap := s.Snapshot()
		want := Compute(snap.Dataset, snap.Rules, snap.Query)
		assert.Equal(t, want.Indices(), snap.View.Indices())
	}
	wg.Wait()
}

func TestSessionRestore(t *testing.T) {
	s := NewSession()
	ds := students(t)
	s.Load(ds)
	_, err := s.AddRule(rule(t, "Status~act", ds))
	require.NoError(t, err)

	low := rule(t, "GPA<2.5", ds)
	credits, err := filter.NewNumericRule("Credits", models.OpGreaterThan, 10)
	require.NoError(t, err)

	stale := s.Restore(ruleSet(t, models.ModeAny, low, credits), models.SearchQuery{Text: "pro", Column: "Major"})
	require.Len(t, stale, 2)
	assert.Equal(t, "Credits", stale[0].Column)
	assert.Nil(t, stale[1].Rule)

	snap := s.Snapshot()
	assert.Equal(t, models.ModeAny, snap.Rules.Mode())
	require.Equal(t, 1, snap.Rules.Len(), "restored rules replace the current ones")
	assert.Equal(t, "GPA", snap.Rules.Rules()[0].Column)
	assert.True(t, snap.Query.AllColumns())
	assert.Equal(t, "pro", snap.Query.Text)
	assert.Equal(t, []int{1}, snap.View.Indices())
}
