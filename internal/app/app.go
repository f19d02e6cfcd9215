package app

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/lazyroster/internal/config"
	"github.com/rebeliceyang/lazyroster/internal/dataset"
	"github.com/rebeliceyang/lazyroster/internal/engine"
	"github.com/rebeliceyang/lazyroster/internal/filter"
	"github.com/rebeliceyang/lazyroster/internal/history"
	"github.com/rebeliceyang/lazyroster/internal/logging"
	"github.com/rebeliceyang/lazyroster/internal/models"
	"github.com/rebeliceyang/lazyroster/internal/presets"
	"github.com/rebeliceyang/lazyroster/internal/ui/components"
	"github.com/rebeliceyang/lazyroster/internal/ui/help"
	"github.com/rebeliceyang/lazyroster/internal/ui/theme"
)

// Deps are the collaborators the App works against. Only Session is
// required; a nil Presets or History disables the matching keys.
type Deps struct {
	Session *engine.Session
	Logger  *logging.Logger
	Presets *presets.Manager
	History *history.Store

	// Reload fetches the dataset again from wherever it came from
	Reload func(ctx context.Context) (*dataset.Dataset, error)
}

// App is the main application model
type App struct {
	state  models.AppState
	config *config.Config
	theme  theme.Theme
	logger *logging.Logger

	session *engine.Session
	presets *presets.Manager
	history *history.Store
	reload  func(ctx context.Context) (*dataset.Dataset, error)

	tablePanel components.Panel
	statsPanel components.Panel
	tableView  *components.TableView
	statsView  *components.StatsView

	searchInput   *components.SearchInput
	ruleInput     *components.RuleInput
	presetsDialog *components.PresetsDialog

	// Error overlay
	showError    bool
	errorOverlay *components.ErrorOverlay
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Title   string
	Message string
}

// StatusMsg sets the bottom bar message
type StatusMsg struct {
	Text string
}

// ConfigChangedMsg carries a configuration re-read from disk
type ConfigChangedMsg struct {
	Config *config.Config
}

// ReloadedMsg is sent when the dataset was fetched again
type ReloadedMsg struct {
	Dataset *dataset.Dataset
	Err     error
}

// New creates a new App instance with config
func New(cfg *config.Config, deps Deps) *App {
	if cfg == nil {
		cfg = config.GetDefaults()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Noop()
	}
	session := deps.Session
	if session == nil {
		session = engine.NewSession(engine.WithLogger(logger))
	}

	th := theme.GetTheme(cfg.UI.Theme)

	app := &App{
		state:         models.NewAppState(),
		config:        cfg,
		theme:         th,
		logger:        logger,
		session:       session,
		presets:       deps.Presets,
		history:       deps.History,
		reload:        deps.Reload,
		tableView:     components.NewTableView(th, cfg.Data.MaxCellDisplayLength),
		statsView:     components.NewStatsView(th),
		searchInput:   components.NewSearchInput(th),
		ruleInput:     components.NewRuleInput(th),
		presetsDialog: components.NewPresetsDialog(th),
		errorOverlay:  components.NewErrorOverlay(th),
		tablePanel: components.Panel{
			Style: lipgloss.NewStyle().BorderForeground(th.BorderFocused),
		},
		statsPanel: components.Panel{
			Title: "Filters",
			Style: lipgloss.NewStyle().BorderForeground(th.Border),
		},
	}

	app.updatePanelDimensions()
	app.refresh()

	return app
}

// applyConfig applies a re-read config to the running app. Paths and the
// data source only change on the next start.
func (a *App) applyConfig(cfg *config.Config) {
	a.config = cfg
	a.tableView.MaxCellWidth = max(cfg.Data.MaxCellDisplayLength, 4)
	a.session.SetParallelism(cfg.Parallelism())
	if th := theme.GetTheme(cfg.UI.Theme); th.Name != a.theme.Name {
		a.setTheme(th)
	}
	a.refresh()
}

func (a *App) setTheme(th theme.Theme) {
	a.theme = th
	a.tableView.SetTheme(th)
	a.statsView.Theme = th
	a.searchInput.Theme = th
	a.ruleInput.Theme = th
	a.presetsDialog.Theme = th
	a.errorOverlay.Theme = th
	a.tablePanel.Style = lipgloss.NewStyle().BorderForeground(th.BorderFocused)
	a.statsPanel.Style = lipgloss.NewStyle().BorderForeground(th.Border)
}

// Theme returns the active color theme
func (a *App) Theme() theme.Theme {
	return a.theme
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ErrorMsg:
		a.ShowError(msg.Title, msg.Message)
		return a, nil

	case StatusMsg:
		a.setStatus(msg.Text, false)
		return a, nil

	case tea.KeyMsg:
		// Handle error overlay dismissal first if visible
		if a.showError {
			key := msg.String()
			if key == "esc" || key == "enter" {
				a.DismissError()
				return a, nil
			}
			if key == "ctrl+c" {
				return a, tea.Quit
			}
			return a, nil
		}

		switch a.state.ViewMode {
		case models.HelpMode:
			switch msg.String() {
			case "?", "esc", "q":
				a.state.ViewMode = models.NormalMode
			case "ctrl+c":
				return a, tea.Quit
			}
			return a, nil
		case models.SearchMode:
			var cmd tea.Cmd
			a.searchInput, cmd = a.searchInput.Update(msg)
			return a, cmd
		case models.RuleMode:
			var cmd tea.Cmd
			a.ruleInput, cmd = a.ruleInput.Update(msg)
			return a, cmd
		case models.PresetMode:
			var cmd tea.Cmd
			a.presetsDialog, cmd = a.presetsDialog.Update(msg)
			a.loadPresets()
			return a, cmd
		}
		return a.handleNormalKey(msg)

	case components.SearchInputMsg:
		a.session.SetSearch(msg.Query)
		a.closeInput()
		a.refresh()
		return a, nil

	case components.CloseSearchMsg, components.CloseRuleInputMsg:
		a.closeInput()
		return a, nil

	case components.AddRuleMsg:
		stored, err := a.session.AddRule(msg.Rule)
		if err != nil {
			a.ShowError("Invalid Rule", err.Error())
			return a, nil
		}
		a.closeInput()
		a.refresh()
		a.setStatus("added "+stored.String(), false)
		return a, nil

	case components.ApplyPresetMsg:
		a.applyPreset(msg.Preset)
		return a, nil

	case components.SavePresetMsg:
		a.savePreset(msg.Name, msg.Description)
		return a, nil

	case components.EditPresetMsg:
		a.renamePreset(msg.ID, msg.Name, msg.Description)
		return a, nil

	case components.UpdatePresetRulesMsg:
		a.updatePresetRules(msg.ID)
		return a, nil

	case components.DeletePresetMsg:
		if err := a.presets.Delete(msg.ID); err != nil {
			a.ShowError("Preset Error", err.Error())
			return a, nil
		}
		a.loadPresets()
		return a, nil

	case components.ClosePresetsDialogMsg:
		a.state.ViewMode = models.NormalMode
		return a, nil

	case ExportedMsg:
		a.logger.LogExport(context.Background(), msg.Path, string(msg.Format), msg.Rows, msg.Err)
		if msg.Err != nil {
			a.ShowError("Export Failed", msg.Err.Error())
			return a, nil
		}
		a.setStatus(fmt.Sprintf("exported %d rows to %s", msg.Rows, msg.Path), false)
		return a, nil

	case CopiedMsg:
		if msg.Err != nil {
			a.ShowError("Clipboard Error", msg.Err.Error())
			return a, nil
		}
		a.setStatus(fmt.Sprintf("copied %d rows", msg.Rows), false)
		return a, nil

	case SnapshotSavedMsg:
		a.logger.LogSnapshot(context.Background(), msg.ID, msg.Err)
		if msg.Err != nil {
			a.ShowError("History Error", msg.Err.Error())
			return a, nil
		}
		a.setStatus(fmt.Sprintf("saved snapshot #%d", msg.ID), false)
		return a, nil

	case ReloadedMsg:
		if msg.Err != nil {
			a.ShowError("Reload Failed", msg.Err.Error())
			return a, nil
		}
		stale := a.session.Load(msg.Dataset)
		a.refresh()
		a.reportStale("reloaded", stale)
		return a, nil

	case ConfigChangedMsg:
		if msg.Config != nil {
			a.applyConfig(msg.Config)
		}
		return a, nil

	case tea.WindowSizeMsg:
		a.state.Width = msg.Width
		a.state.Height = msg.Height
		a.updatePanelDimensions()
		return a, nil
	}

	// Cursor blink and other input internals
	switch a.state.ViewMode {
	case models.SearchMode:
		var cmd tea.Cmd
		a.searchInput, cmd = a.searchInput.Update(msg)
		return a, cmd
	case models.RuleMode:
		var cmd tea.Cmd
		a.ruleInput, cmd = a.ruleInput.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "?":
		a.state.ViewMode = models.HelpMode
	case "/":
		a.searchInput.Open(a.session.Dataset().ColumnNames(), a.session.Search())
		a.state.ViewMode = models.SearchMode
		a.updatePanelDimensions()
	case "f":
		a.ruleInput.Open(a.session.Dataset())
		a.state.ViewMode = models.RuleMode
		a.updatePanelDimensions()
	case "o":
		if a.presets == nil {
			a.setStatus("saved presets are disabled", true)
			return a, nil
		}
		a.loadPresets()
		a.state.ViewMode = models.PresetMode
	case "m":
		mode := a.session.ToggleMode()
		a.refresh()
		a.setStatus("mode "+strings.ToUpper(string(mode)), false)
	case "c":
		a.session.ClearRules()
		a.refresh()
		a.setStatus("rules cleared", false)
	case "x":
		if r, ok := a.session.RemoveLast(); ok {
			a.refresh()
			a.setStatus("removed "+r.String(), false)
		}
	case "ctrl+r":
		a.session.SetSearch(models.SearchQuery{})
		a.searchInput.Reset()
		a.refresh()
	case "y":
		return a, a.copyView()
	case "e":
		return a, a.exportView()
	case "s":
		return a, a.saveSnapshot()
	case "r":
		return a, a.reloadDataset()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		quick := presets.List()
		i := int(key[0] - '1')
		if i >= len(quick) {
			return a, nil
		}
		if err := a.session.ApplyQuickFilter(quick[i].ID); err != nil {
			a.ShowError("Quick Filter", err.Error())
			return a, nil
		}
		a.refresh()
	default:
		var cmd tea.Cmd
		a.tableView, cmd = a.tableView.Update(msg)
		return a, cmd
	}
	return a, nil
}

// Session returns the session the app drives
func (a *App) Session() *engine.Session {
	return a.session
}

// Status returns the bottom bar message
func (a *App) Status() string {
	return a.state.Status
}

// Mode returns the current view mode
func (a *App) Mode() models.ViewMode {
	return a.state.ViewMode
}

// refresh pushes the session's view into the table
func (a *App) refresh() {
	a.tableView.SetView(a.session.View())
}

func (a *App) closeInput() {
	a.state.ViewMode = models.NormalMode
	a.updatePanelDimensions()
}

func (a *App) setStatus(text string, isErr bool) {
	a.state.Status = text
	a.state.StatusError = isErr
}

func (a *App) applyPreset(p models.Preset) {
	rs, err := presets.RuleSet(p)
	if err != nil {
		a.ShowError("Preset Error", err.Error())
		return
	}
	stale := a.session.ReplaceRules(rs)
	if err := a.presets.RecordUsage(p.ID); err != nil {
		a.logger.Warn("failed to record preset usage", "preset", p.Name, "error", err)
	}
	a.state.ViewMode = models.NormalMode
	a.refresh()
	a.reportStale("applied "+p.Name, stale)
}

func (a *App) savePreset(name, description string) {
	if _, err := a.presets.Add(name, description, a.session.Rules()); err != nil {
		a.ShowError("Preset Error", err.Error())
		return
	}
	a.loadPresets()
	a.setStatus("saved preset "+name, false)
}

// renamePreset changes a preset's name and description, keeping its rules
func (a *App) renamePreset(id, name, description string) {
	p, err := a.presets.Get(id)
	if err == nil {
		var rs filter.RuleSet
		if rs, err = presets.RuleSet(*p); err == nil {
			err = a.presets.Update(id, name, description, rs)
		}
	}
	if err != nil {
		a.ShowError("Preset Error", err.Error())
		return
	}
	a.loadPresets()
	a.setStatus("updated preset "+name, false)
}

// updatePresetRules gives a preset the session's current rules and mode
func (a *App) updatePresetRules(id string) {
	p, err := a.presets.Get(id)
	if err != nil {
		a.ShowError("Preset Error", err.Error())
		return
	}
	rs := a.session.Rules()
	if err := a.presets.Update(id, p.Name, p.Description, rs); err != nil {
		a.ShowError("Preset Error", err.Error())
		return
	}
	a.loadPresets()
	a.setStatus(fmt.Sprintf("preset %s now has %d rules", p.Name, rs.Len()), false)
}

// loadPresets fills the dialog, most used first, narrowed by its filter
func (a *App) loadPresets() {
	if a.presets == nil {
		return
	}
	if q := a.presetsDialog.Filter(); q != "" {
		a.presetsDialog.SetPresets(a.presets.Search(q))
		return
	}
	a.presetsDialog.SetPresets(a.presets.GetMostUsed(0))
}

func (a *App) reportStale(prefix string, stale []*filter.StaleReferenceError) {
	if len(stale) == 0 {
		a.setStatus(prefix, false)
		return
	}
	parts := make([]string, len(stale))
	for i, s := range stale {
		parts[i] = s.Error()
	}
	a.setStatus(fmt.Sprintf("%s; dropped %d: %s", prefix, len(stale), strings.Join(parts, "; ")), true)
}

// View implements tea.Model
func (a *App) View() string {
	if a.showError {
		return lipgloss.Place(
			a.state.Width, a.state.Height,
			lipgloss.Center, lipgloss.Center,
			a.errorOverlay.View(),
		)
	}

	switch a.state.ViewMode {
	case models.HelpMode:
		return help.Render(a.state.Width, a.state.Height, a.theme)
	case models.PresetMode:
		a.presetsDialog.Width = min(70, max(a.state.Width-6, 30))
		a.presetsDialog.Height = min(20, max(a.state.Height-6, 10))
		return lipgloss.Place(
			a.state.Width, a.state.Height,
			lipgloss.Center, lipgloss.Center,
			a.presetsDialog.View(),
		)
	}

	return a.renderNormalView()
}

// renderNormalView renders the normal application view
func (a *App) renderNormalView() string {
	snap := a.session.Snapshot()

	name := snap.Dataset.Name()
	if name == "" {
		name = "(unnamed)"
	}
	topBarLeft := "lazyroster │ " + name
	topBarRight := fmt.Sprintf("%d/%d rows │ %s", snap.View.Len(), snap.View.TotalRows(), strings.ToUpper(string(snap.Rules.Mode())))
	topBar := lipgloss.NewStyle().
		Width(a.state.Width).
		Background(a.theme.BorderFocused).
		Foreground(lipgloss.Color("230")).
		Padding(0, 2).
		Render(a.formatStatusBar(topBarLeft, topBarRight))

	bottomBarLeft := "[/] search │ [f] rule │ [1-5] quick │ [m] mode │ [?] help"
	bottomStyle := lipgloss.NewStyle().
		Width(a.state.Width).
		Background(a.theme.Selection).
		Foreground(a.theme.Foreground).
		Padding(0, 2)
	if a.state.Status != "" {
		bottomBarLeft = a.state.Status
		if a.state.StatusError {
			bottomStyle = bottomStyle.Foreground(a.theme.Warning)
		}
	}
	bottomBar := bottomStyle.Render(a.formatStatusBar(bottomBarLeft, "[q] quit"))

	a.tableView.Width = a.tablePanel.Width
	a.tableView.Height = a.tablePanel.Height - 1
	a.tablePanel.Title = "Students"
	a.tablePanel.Content = a.tableView.View()

	a.statsView.Width = a.statsPanel.Width
	a.statsPanel.Content = a.statsView.Render(snap.Rules, snap.Query, a.session.Stats())

	panels := lipgloss.JoinHorizontal(
		lipgloss.Top,
		a.tablePanel.View(),
		a.statsPanel.View(),
	)

	parts := []string{topBar}
	switch a.state.ViewMode {
	case models.SearchMode:
		a.searchInput.Width = a.state.Width - 2
		parts = append(parts, a.searchInput.View())
	case models.RuleMode:
		a.ruleInput.Width = a.state.Width - 2
		parts = append(parts, a.ruleInput.View())
	}
	parts = append(parts, panels, bottomBar)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// updatePanelDimensions calculates panel sizes based on window size
func (a *App) updatePanelDimensions() {
	if a.state.Width <= 0 || a.state.Height <= 0 {
		return
	}

	// Top and bottom bars take a line each, panel borders two more
	contentHeight := a.state.Height - 4
	if a.state.ViewMode == models.SearchMode || a.state.ViewMode == models.RuleMode {
		contentHeight -= 4
	}
	if contentHeight < 5 {
		contentHeight = 5
	}

	statsWidth := a.state.StatsWidth
	tableWidth := a.state.Width - statsWidth - 4
	if tableWidth < 20 {
		tableWidth = 20
		statsWidth = max(a.state.Width-tableWidth-4, 10)
	}

	a.tablePanel.Width = tableWidth
	a.tablePanel.Height = contentHeight
	a.statsPanel.Width = statsWidth
	a.statsPanel.Height = contentHeight
}

// formatStatusBar formats a status bar with left and right aligned content
func (a *App) formatStatusBar(left, right string) string {
	// Account for padding (2 chars on each side = 4 total)
	availableWidth := max(a.state.Width-4, 0)

	leftLen := lipgloss.Width(left)
	rightLen := lipgloss.Width(right)

	if leftLen+rightLen > availableWidth {
		if availableWidth > rightLen {
			return truncateRunes(left, availableWidth-rightLen) + right
		}
		return truncateRunes(left, availableWidth)
	}

	spacing := availableWidth - leftLen - rightLen
	return left + strings.Repeat(" ", spacing) + right
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ShowError displays an error overlay with the given title and message
func (a *App) ShowError(title, message string) {
	a.errorOverlay.SetError(title, message)
	a.showError = true
}

// DismissError hides the error overlay
func (a *App) DismissError() {
	a.showError = false
}

// ErrorShown reports whether the error overlay is up
func (a *App) ErrorShown() bool {
	return a.showError
}
