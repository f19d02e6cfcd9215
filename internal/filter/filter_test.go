package filter

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/lazyroster/internal/dataset"
	"github.com/rebeliceyang/lazyroster/internal/models"
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

func roster(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		[]models.Column{{Name: "Name"}, {Name: "GPA"}, {Name: "Status"}, {Name: "Enrolled"}},
		[]models.Row{
			{"Name": "Ada", "GPA": "3.9", "Status": "Active", "Enrolled": "2023-09-01"},
			{"Name": "Bo", "GPA": "2.4", "Status": "Probation", "Enrolled": "2024-01-15"},
			{"Name": "Cy", "GPA": "3.1", "Status": "Inactive", "Enrolled": "2022-09-01"},
			{"Name": "Di", "GPA": "", "Status": "", "Enrolled": ""},
			{"Name": "Ed", "GPA": "3.5", "Status": "active", "Enrolled": "2024-06-30 14:00:00"},
		},
	)
	require.NoError(t, err)
	return ds
}

func rows(rb *roaring.Bitmap) []uint32 {
	if rb.IsEmpty() {
		return []uint32{}
	}
	return rb.ToArray()
}

func mustRule(t *testing.T) func(models.Rule, error) models.Rule {
	t.Helper()
	return func(r models.Rule, err error) models.Rule {
		t.Helper()
		require.NoError(t, err)
		return r
	}
}

func date(s string) time.Time {
	d, _ := time.Parse(time.DateOnly, s)
	return d
}

func TestScenarioNumericExcludesMissing(t *testing.T) {
	ds := students(t)
	rs, err := NewRuleSetFrom(models.ModeAll, mustRule(t)(NewNumericRule("GPA", models.OpGreaterOrEqual, 3.5)))
	require.NoError(t, err)

	assert.Equal(t, []uint32{0}, rows(Evaluate(ds, rs)))
}

func TestScenarioAnyMode(t *testing.T) {
	ds := students(t)
	rs, err := NewRuleSetFrom(models.ModeAny,
		mustRule(t)(NewNumericRule("GPA", models.OpGreaterOrEqual, 3.5)),
		mustRule(t)(NewTextRule("Status", models.OpEquals, "Probation")),
	)
	require.NoError(t, err)

	assert.Equal(t, []uint32{0, 1}, rows(Evaluate(ds, rs)))
}

func TestEmptyRuleSetIsIdentity(t *testing.T) {
	ds := roster(t)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, rows(Evaluate(ds, RuleSet{})))
	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, rows(Evaluate(ds, NewRuleSet(models.ModeAny))))
}

func TestNumericOperators(t *testing.T) {
	ds := roster(t)
	tests := []struct {
		op     models.FilterOperator
		values []float64
		want   []uint32
	}{
		{models.OpGreaterThan, []float64{3.5}, []uint32{0}},
		{models.OpGreaterOrEqual, []float64{3.5}, []uint32{0, 4}},
		{models.OpLessThan, []float64{3.1}, []uint32{1}},
		{models.OpLessOrEqual, []float64{3.1}, []uint32{1, 2}},
		{models.OpEqual, []float64{2.4}, []uint32{1}},
		{models.OpNotEqual, []float64{2.4}, []uint32{0, 2, 4}},
		{models.OpBetween, []float64{2.4, 3.5}, []uint32{1, 2, 4}},
		{models.OpBetween, []float64{3.5, 2.4}, []uint32{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			r := mustRule(t)(NewNumericRule("GPA", tt.op, tt.values...))
			assert.Equal(t, tt.want, rows(EvaluateRule(ds, r)))
		})
	}
}

func TestTextOperatorsAreCaseInsensitive(t *testing.T) {
	ds := roster(t)
	tests := []struct {
		op   models.FilterOperator
		text string
		want []uint32
	}{
		{models.OpContains, "ACTIVE", []uint32{0, 2, 4}},
		{models.OpStartsWith, "pro", []uint32{1}},
		{models.OpEndsWith, "TION", []uint32{1}},
		{models.OpEquals, "active", []uint32{0, 4}},
		{models.OpEquals, "", []uint32{3}},
	}

	for _, tt := range tests {
		t.Run(string(tt.op)+"/"+tt.text, func(t *testing.T) {
			r := mustRule(t)(NewTextRule("Status", tt.op, tt.text))
			assert.Equal(t, tt.want, rows(EvaluateRule(ds, r)))
		})
	}
}

func TestDateOperators(t *testing.T) {
	ds := roster(t)

	before := mustRule(t)(NewDateRule("Enrolled", models.OpBefore, date("2023-09-01")))
	assert.Equal(t, []uint32{2}, rows(EvaluateRule(ds, before)))

	after := mustRule(t)(NewDateRule("Enrolled", models.OpAfter, date("2023-09-01")))
	assert.Equal(t, []uint32{1, 4}, rows(EvaluateRule(ds, after)))

	between := mustRule(t)(NewDateRule("Enrolled", models.OpBetween, date("2023-09-01"), date("2024-06-30")))
	assert.Equal(t, []uint32{0, 1, 4}, rows(EvaluateRule(ds, between)), "both bounds inclusive at day granularity")

	inverted := mustRule(t)(NewDateRule("Enrolled", models.OpBetween, date("2024-06-30"), date("2023-09-01")))
	assert.Equal(t, []uint32{}, rows(EvaluateRule(ds, inverted)))
}

func TestMissingColumnMatchesNothing(t *testing.T) {
	ds := roster(t)
	r := mustRule(t)(NewNumericRule("Credits", models.OpGreaterThan, 0))

	assert.True(t, EvaluateRule(ds, r).IsEmpty())

	rs, err := NewRuleSetFrom(models.ModeAny, r, mustRule(t)(NewTextRule("Name", models.OpEquals, "ada")))
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, rows(Evaluate(ds, rs)), "stale rule does not abort the rest")
}

func TestNotEqualNeverMatchesMissing(t *testing.T) {
	ds := students(t)
	r := mustRule(t)(NewNumericRule("GPA", models.OpNotEqual, 100))
	assert.Equal(t, []uint32{0, 1}, rows(EvaluateRule(ds, r)))
}

func TestTextEqualsEmptyMatchesMissing(t *testing.T) {
	ds := roster(t)
	r := mustRule(t)(NewTextRule("Status", models.OpEquals, ""))
	assert.Equal(t, []uint32{3}, rows(EvaluateRule(ds, r)))

	gpa := mustRule(t)(NewNumericRule("GPA", models.OpLessThan, 100))
	assert.Equal(t, []uint32{0, 1, 2, 4}, rows(EvaluateRule(ds, gpa)))
}

func TestConjunctionAndDisjunctionBounds(t *testing.T) {
	ds := roster(t)
	ruleList := []models.Rule{
		mustRule(t)(NewNumericRule("GPA", models.OpGreaterOrEqual, 3)),
		mustRule(t)(NewTextRule("Status", models.OpContains, "active")),
		mustRule(t)(NewDateRule("Enrolled", models.OpAfter, date("2022-12-31"))),
	}

	all, err := NewRuleSetFrom(models.ModeAll, ruleList...)
	require.NoError(t, err)
	anySet := all.WithMode(models.ModeAny)

	conj := Evaluate(ds, all)
	disj := Evaluate(ds, anySet)
	for _, r := range ruleList {
		single := EvaluateRule(ds, r)
		assert.True(t, roaring.AndNot(conj, single).IsEmpty(), "ALL result within %s", r)
		assert.True(t, roaring.AndNot(single, disj).IsEmpty(), "ANY result covers %s", r)
	}
}

func TestRuleOrderDoesNotMatter(t *testing.T) {
	ds := roster(t)
	a := mustRule(t)(NewNumericRule("GPA", models.OpLessThan, 3.6))
	b := mustRule(t)(NewTextRule("Status", models.OpContains, "act"))
	c := mustRule(t)(NewTextRule("Name", models.OpStartsWith, "e"))

	for _, mode := range []models.FilterMode{models.ModeAll, models.ModeAny} {
		forward, err := NewRuleSetFrom(mode, a, b, c)
		require.NoError(t, err)
		backward, err := NewRuleSetFrom(mode, c, b, a)
		require.NoError(t, err)
		shuffled, err := NewRuleSetFrom(mode, b, c, a)
		require.NoError(t, err)

		want := Evaluate(ds, forward)
		assert.True(t, want.Equals(Evaluate(ds, backward)), mode)
		assert.True(t, want.Equals(Evaluate(ds, shuffled)), mode)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func() (models.Rule, error)
		want  error
	}{
		{"contains on numeric", func() (models.Rule, error) {
			return NewNumericRule("GPA", models.OpContains, 1)
		}, ErrInvalidOperator},
		{"before on text", func() (models.Rule, error) {
			return NewTextRule("Status", models.OpBefore, "x")
		}, ErrInvalidOperator},
		{"between arity", func() (models.Rule, error) {
			return NewNumericRule("GPA", models.OpBetween, 1)
		}, ErrOperandArity},
		{"nan operand", func() (models.Rule, error) {
			return NewNumericRule("GPA", models.OpGreaterThan, math.NaN())
		}, ErrInvalidOperand},
		{"bad number string", func() (models.Rule, error) {
			return ParseRule("GPA", models.KindNumeric, models.OpBetween, "2.5", "high")
		}, ErrInvalidOperand},
		{"bad date string", func() (models.Rule, error) {
			return ParseRule("Enrolled", models.KindDate, models.OpBetween, "2024-01-01", "soon")
		}, ErrInvalidOperand},
		{"unknown kind", func() (models.Rule, error) {
			return ParseRule("GPA", "bool", models.OpEquals, "x")
		}, ErrInvalidKind},
		{"empty contains", func() (models.Rule, error) {
			return NewTextRule("Status", models.OpContains, "")
		}, ErrInvalidOperand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
}

func TestParseExpr(t *testing.T) {
	kinds := map[string]models.ColumnKind{
		"GPA":      models.KindNumeric,
		"Status":   models.KindText,
		"Enrolled": models.KindDate,
	}
	kindOf := func(c string) (models.ColumnKind, bool) {
		k, ok := kinds[c]
		return k, ok
	}

	tests := []struct {
		expr string
		op   models.FilterOperator
	}{
		{"GPA>=3.5", models.OpGreaterOrEqual},
		{"GPA = 3", models.OpEqual},
		{"GPA!=3", models.OpNotEqual},
		{"GPA:2.5..3.5", models.OpBetween},
		{"Status~Active", models.OpContains},
		{"Status^Pro", models.OpStartsWith},
		{"Status$ion", models.OpEndsWith},
		{"Status=Active", models.OpEquals},
		{"Enrolled<2024-01-01", models.OpBefore},
		{"Enrolled>2024-01-01", models.OpAfter},
		{"Enrolled:2024-01-01..2024-06-30", models.OpBetween},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			r, err := ParseExpr(tt.expr, kindOf)
			require.NoError(t, err)
			assert.Equal(t, tt.op, r.Operator)
		})
	}

	_, err := ParseExpr("Credits>3", kindOf)
	assert.ErrorIs(t, err, ErrUnknownColumn)
	_, err = ParseExpr("Status>3", kindOf)
	assert.ErrorIs(t, err, ErrInvalidOperator)
	_, err = ParseExpr("GPA:3", kindOf)
	assert.ErrorIs(t, err, ErrOperandArity)
	_, err = ParseExpr("nonsense", kindOf)
	assert.Error(t, err)
}

func TestRuleSetIsImmutable(t *testing.T) {
	r := mustRule(t)(NewNumericRule("GPA", models.OpGreaterOrEqual, 3.5))
	empty := NewRuleSet(models.ModeAll)

	one, err := empty.Add(r)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 1, one.Len())
	assert.NotEmpty(t, one.Rules()[0].ID)

	same, err := one.Add(r)
	require.NoError(t, err)
	assert.Equal(t, 1, same.Len(), "duplicate rule ignored")

	anySet := one.WithMode(models.ModeAny)
	assert.Equal(t, models.ModeAll, one.Mode())
	assert.Equal(t, models.ModeAny, anySet.Mode())

	removed := anySet.Remove(one.Rules()[0].ID)
	assert.Equal(t, 0, removed.Len())
	assert.Equal(t, 1, anySet.Len())

	cleared := anySet.Clear()
	assert.True(t, cleared.IsEmpty())
	assert.Equal(t, models.ModeAny, cleared.Mode())

	_, err = empty.Add(models.Rule{Column: "GPA", Kind: models.KindNumeric, Operator: models.OpContains})
	assert.ErrorIs(t, err, ErrInvalidOperator)
}

func TestPartition(t *testing.T) {
	rs, err := NewRuleSetFrom(models.ModeAll,
		mustRule(t)(NewNumericRule("GPA", models.OpGreaterThan, 3)),
		mustRule(t)(NewTextRule("Major", models.OpEquals, "CS")),
	)
	require.NoError(t, err)

	kept, dropped := rs.Partition(func(r models.Rule) bool { return r.Column != "Major" })
	assert.Equal(t, 1, kept.Len())
	require.Len(t, dropped, 1)
	assert.Equal(t, "Major", dropped[0].Column)
}

func TestRuleString(t *testing.T) {
	assert.Equal(t, "GPA >= 3.5", mustRule(t)(NewNumericRule("GPA", models.OpGreaterOrEqual, 3.5)).String())
	assert.Equal(t, "GPA between 2.5 and 3.5", mustRule(t)(NewNumericRule("GPA", models.OpBetween, 2.5, 3.5)).String())
	assert.Equal(t, `Status contains "Active"`, mustRule(t)(NewTextRule("Status", models.OpContains, "Active")).String())
}
