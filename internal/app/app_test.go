package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/lazyroster/internal/config"
	"github.com/rebeliceyang/lazyroster/internal/dataset"
	"github.com/rebeliceyang/lazyroster/internal/engine"
	"github.com/rebeliceyang/lazyroster/internal/export"
	"github.com/rebeliceyang/lazyroster/internal/filter"
	"github.com/rebeliceyang/lazyroster/internal/history"
	"github.com/rebeliceyang/lazyroster/internal/models"
	"github.com/rebeliceyang/lazyroster/internal/presets"
	"github.com/rebeliceyang/lazyroster/internal/ui/components"
)

func students(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		[]models.Column{{Name: "Name"}, {Name: "GPA"}, {Name: "Status"}},
		[]models.Row{
			{"Name": "Ada", "GPA": 3.8, "Status": "Active"},
			{"Name": "Ben", "GPA": 2.1, "Status": "Probation"},
			{"Name": "Cy", "GPA": nil, "Status": "Active"},
		},
	)
	require.NoError(t, err)
	return ds.WithName("students.csv")
}

func newApp(t *testing.T, cfg *config.Config, deps Deps) *App {
	t.Helper()
	if cfg == nil {
		cfg = config.GetDefaults()
	}
	if deps.Session == nil {
		deps.Session = engine.NewSession()
	}
	deps.Session.Load(students(t))
	return New(cfg, deps)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends keys and ignores the commands they return
func press(a *App, keys ...string) {
	for _, k := range keys {
		a.Update(keyMsg(k))
	}
}

// typeText sends s one rune at a time
func typeText(a *App, s string) {
	for _, r := range s {
		a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// pressRun sends a key, runs the command it returns and feeds the
// resulting message back
func pressRun(t *testing.T, a *App, k string) tea.Msg {
	t.Helper()
	_, cmd := a.Update(keyMsg(k))
	require.NotNil(t, cmd, "key %q returned no command", k)
	msg := cmd()
	a.Update(msg)
	return msg
}

func TestQuickFilterKeys(t *testing.T) {
	a := newApp(t, nil, Deps{})

	press(a, "1")
	assert.True(t, presets.Active(a.Session().Rules(), presets.GPAHigh))
	assert.Equal(t, []int{0}, a.Session().View().Indices())

	press(a, "1")
	assert.True(t, a.Session().Rules().IsEmpty())
	assert.Equal(t, 3, a.Session().View().Len())
}

func TestModeClearAndRemoveLast(t *testing.T) {
	a := newApp(t, nil, Deps{})

	press(a, "1", "5")
	assert.Equal(t, 2, a.Session().Rules().Len())
	assert.Equal(t, 0, a.Session().View().Len())

	press(a, "m")
	assert.Equal(t, models.ModeAny, a.Session().Rules().Mode())
	assert.Equal(t, []int{0, 1}, a.Session().View().Indices())

	press(a, "x")
	assert.Equal(t, 1, a.Session().Rules().Len())
	assert.Contains(t, a.Status(), "removed")

	press(a, "c")
	assert.True(t, a.Session().Rules().IsEmpty())
	assert.Equal(t, models.ModeAny, a.Session().Rules().Mode())
}

func TestRuleInput(t *testing.T) {
	a := newApp(t, nil, Deps{})

	press(a, "f")
	require.Equal(t, models.RuleMode, a.Mode())
	typeText(a, "GPA<3")
	msg := pressRun(t, a, "enter")

	require.IsType(t, components.AddRuleMsg{}, msg)
	assert.Equal(t, models.NormalMode, a.Mode())
	assert.Equal(t, 1, a.Session().Rules().Len())
	assert.Equal(t, []int{1}, a.Session().View().Indices())
}

func TestRuleInputRejectsUnknownColumn(t *testing.T) {
	a := newApp(t, nil, Deps{})

	press(a, "f")
	typeText(a, "Major~Math")
	_, cmd := a.Update(keyMsg("enter"))

	assert.Nil(t, cmd)
	assert.Equal(t, models.RuleMode, a.Mode())
	assert.Error(t, a.ruleInput.Err())
	assert.True(t, a.Session().Rules().IsEmpty())

	pressRun(t, a, "esc")
	assert.Equal(t, models.NormalMode, a.Mode())
}

func TestSearch(t *testing.T) {
	a := newApp(t, nil, Deps{})

	press(a, "/")
	require.Equal(t, models.SearchMode, a.Mode())
	typeText(a, "a")
	pressRun(t, a, "enter")
	assert.Equal(t, 3, a.Session().View().Len())

	// Tab pins the search to the first column
	press(a, "/")
	press(a, "tab")
	pressRun(t, a, "enter")
	assert.Equal(t, "Name", a.Session().Search().Column)
	assert.Equal(t, []int{0}, a.Session().View().Indices())

	press(a, "ctrl+r")
	assert.True(t, a.Session().Search().IsEmpty())
	assert.Equal(t, 3, a.Session().View().Len())
}

func TestSearchNegate(t *testing.T) {
	a := newApp(t, nil, Deps{})

	press(a, "/")
	typeText(a, "!status:active")
	pressRun(t, a, "enter")

	q := a.Session().Search()
	assert.True(t, q.Negate)
	assert.Equal(t, "Status", q.Column)
	assert.Equal(t, []int{1}, a.Session().View().Indices())
}

func TestQuickFilterOnMissingColumnShowsError(t *testing.T) {
	ds, err := dataset.New([]models.Column{{Name: "Name"}}, []models.Row{{"Name": "Ada"}})
	require.NoError(t, err)
	session := engine.NewSession()
	session.Load(ds)
	a := New(config.GetDefaults(), Deps{Session: session})

	press(a, "1")
	assert.True(t, a.ErrorShown())
	assert.True(t, a.Session().Rules().IsEmpty())

	press(a, "m")
	assert.Equal(t, models.ModeAll, a.Session().Rules().Mode(), "keys are swallowed by the overlay")

	press(a, "esc")
	assert.False(t, a.ErrorShown())
}

func TestExport(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Export.Directory = t.TempDir()
	a := newApp(t, cfg, Deps{})

	press(a, "4")
	msg := pressRun(t, a, "e")

	exported, ok := msg.(ExportedMsg)
	require.True(t, ok)
	require.NoError(t, exported.Err)
	assert.Equal(t, 2, exported.Rows)
	assert.Equal(t, ".csv", filepath.Ext(exported.Path))

	data, err := os.ReadFile(exported.Path)
	require.NoError(t, err)
	assert.Equal(t, "Name,GPA,Status\nAda,3.8,Active\nCy,,Active\n", string(data))
	assert.Contains(t, a.Status(), "exported 2 rows")
}

func TestExportPath(t *testing.T) {
	now := time.Date(2024, 5, 1, 13, 4, 5, 0, time.UTC)

	assert.Equal(t, filepath.Join("out", "students-20240501-130405.tsv"),
		ExportPath("out", "/data/students.csv", export.FormatTSV, now))
	assert.Equal(t, filepath.Join("out", "roster-20240501-130405.json"),
		ExportPath("out", "", export.FormatJSON, now))
}

func TestCopyView(t *testing.T) {
	var copied string
	orig := clipboardWrite
	clipboardWrite = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { clipboardWrite = orig })

	a := newApp(t, nil, Deps{})
	press(a, "2")
	pressRun(t, a, "y")

	assert.Equal(t, "Name\tGPA\tStatus\n", copied)
	assert.Equal(t, "copied 0 rows", a.Status())
}

func TestSnapshot(t *testing.T) {
	store, err := history.NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	a := newApp(t, nil, Deps{History: store})
	press(a, "1")
	msg := pressRun(t, a, "s")

	saved, ok := msg.(SnapshotSavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.Err)

	recent, err := store.GetRecent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "students.csv", recent[0].DatasetName)
	assert.Equal(t, 1, recent[0].MatchedRows)
	assert.Equal(t, 3, recent[0].TotalRows)
}

func TestSnapshotDisabled(t *testing.T) {
	a := newApp(t, nil, Deps{})
	pressRun(t, a, "s")
	assert.True(t, a.ErrorShown())
}

func TestReloadDropsStaleRules(t *testing.T) {
	reloaded, err := dataset.New(
		[]models.Column{{Name: "Name"}, {Name: "GPA"}},
		[]models.Row{{"Name": "Ada", "GPA": 3.9}},
	)
	require.NoError(t, err)

	a := newApp(t, nil, Deps{
		Reload: func(ctx context.Context) (*dataset.Dataset, error) {
			return reloaded, nil
		},
	})
	press(a, "1", "4")
	require.Equal(t, 2, a.Session().Rules().Len())

	pressRun(t, a, "r")

	assert.Equal(t, 1, a.Session().Rules().Len())
	assert.Equal(t, []int{0}, a.Session().View().Indices())
	assert.Contains(t, a.Status(), "dropped 1")
}

func TestReloadWithoutSource(t *testing.T) {
	a := newApp(t, nil, Deps{})
	pressRun(t, a, "r")
	assert.True(t, a.ErrorShown())
}

func TestPresetsDialog(t *testing.T) {
	mgr, err := presets.NewManager(filepath.Join(t.TempDir(), "presets.yaml"))
	require.NoError(t, err)
	a := newApp(t, nil, Deps{Presets: mgr})

	press(a, "1", "4", "o")
	require.Equal(t, models.PresetMode, a.Mode())

	press(a, "a")
	typeText(a, "Honors")
	press(a, "enter")
	typeText(a, "high GPA and active")
	pressRun(t, a, "enter")

	all := mgr.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, "Honors", all[0].Name)
	assert.Equal(t, "high GPA and active", all[0].Description)
	assert.Len(t, all[0].Rules, 2)

	pressRun(t, a, "esc")
	require.Equal(t, models.NormalMode, a.Mode())
	press(a, "c")
	require.True(t, a.Session().Rules().IsEmpty())

	press(a, "o")
	pressRun(t, a, "enter")
	assert.Equal(t, models.NormalMode, a.Mode())
	assert.Equal(t, 2, a.Session().Rules().Len())
	assert.Equal(t, []int{0}, a.Session().View().Indices())

	p, err := mgr.GetByName("honors")
	require.NoError(t, err)
	assert.Equal(t, 1, p.UsageCount)
}

func TestPresetsDialogRanksFiltersAndEdits(t *testing.T) {
	mgr, err := presets.NewManager(filepath.Join(t.TempDir(), "presets.yaml"))
	require.NoError(t, err)

	high, _ := presets.Lookup(presets.GPAHigh)
	honors, err := filter.NewRuleSetFrom(models.ModeAll, high.Rule)
	require.NoError(t, err)
	probation, _ := presets.Lookup(presets.StatusProbation)
	watch, err := filter.NewRuleSetFrom(models.ModeAll, probation.Rule)
	require.NoError(t, err)

	_, err = mgr.Add("Honor roll", "", honors)
	require.NoError(t, err)
	w, err := mgr.Add("Watch list", "", watch)
	require.NoError(t, err)
	require.NoError(t, mgr.RecordUsage(w.ID))

	a := newApp(t, nil, Deps{Presets: mgr})
	press(a, "4", "o")
	sel, ok := a.presetsDialog.Selected()
	require.True(t, ok)
	assert.Equal(t, "Watch list", sel.Name, "most used first")

	press(a, "/")
	typeText(a, "honor")
	press(a, "enter")
	sel, _ = a.presetsDialog.Selected()
	assert.Equal(t, "Honor roll", sel.Name)
	assert.NotContains(t, a.presetsDialog.View(), "Watch list")

	press(a, "e", "backspace", "backspace", "backspace", "backspace")
	typeText(a, "list")
	press(a, "enter")
	pressRun(t, a, "enter")

	p, err := mgr.GetByName("Honor list")
	require.NoError(t, err)
	require.Len(t, p.Rules, 1)
	assert.Equal(t, "GPA", p.Rules[0].Column)

	pressRun(t, a, "u")
	p, err = mgr.GetByName("Honor list")
	require.NoError(t, err)
	require.Len(t, p.Rules, 1)
	assert.Equal(t, "Status", p.Rules[0].Column, "takes the session's rules")
	assert.Contains(t, a.Status(), "now has 1 rules")

	press(a, "/", "esc")
	sel, _ = a.presetsDialog.Selected()
	assert.Equal(t, "Watch list", sel.Name, "clearing the filter restores the ranked list")
}

func TestPresetsDisabled(t *testing.T) {
	a := newApp(t, nil, Deps{})
	press(a, "o")
	assert.Equal(t, models.NormalMode, a.Mode())
	assert.Contains(t, a.Status(), "disabled")
}

func TestViewRenders(t *testing.T) {
	a := newApp(t, nil, Deps{})
	a.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	press(a, "1")

	out := a.View()
	assert.Contains(t, out, "lazyroster")
	assert.Contains(t, out, "students.csv")
	assert.Contains(t, out, "1/3 rows")
	assert.Contains(t, out, "GPA ≥ 3.5")

	press(a, "?")
	assert.Contains(t, a.View(), "Keyboard Shortcuts")
	press(a, "?")
	assert.Equal(t, models.NormalMode, a.Mode())
}

func TestConfigChanged(t *testing.T) {
	a := newApp(t, nil, Deps{})
	cfg := config.GetDefaults()
	cfg.Data.MaxCellDisplayLength = 12
	cfg.Export.DefaultFormat = "json"
	cfg.UI.Theme = "catppuccin-mocha"
	cfg.Engine.Parallelism = 3

	a.Update(ConfigChangedMsg{Config: cfg})
	assert.Equal(t, 12, a.tableView.MaxCellWidth)
	assert.Equal(t, "json", a.config.Export.DefaultFormat)
	assert.False(t, strings.Contains(a.Status(), "error"))

	assert.Equal(t, "catppuccin-mocha", a.Theme().Name)
	assert.Equal(t, a.Theme().Error, a.errorOverlay.Theme.Error)
	assert.Equal(t, a.Theme().RuleChip, a.statsView.Theme.RuleChip)
	assert.Equal(t, 3, a.Session().Parallelism())
}
