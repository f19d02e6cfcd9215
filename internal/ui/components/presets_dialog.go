package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/lazyroster/internal/models"
	"github.com/rebeliceyang/lazyroster/internal/ui/theme"
)

// PresetsMode represents the dialog mode
type PresetsMode int

const (
	PresetsModeList PresetsMode = iota
	PresetsModeAdd
	PresetsModeEdit
	PresetsModeFilter
)

// ApplyPresetMsg is sent when a saved preset should replace the rules
type ApplyPresetMsg struct {
	Preset models.Preset
}

// SavePresetMsg is sent when the current rules should be saved as a preset
type SavePresetMsg struct {
	Name        string
	Description string
}

// EditPresetMsg is sent when a preset's name or description was edited
type EditPresetMsg struct {
	ID          string
	Name        string
	Description string
}

// UpdatePresetRulesMsg is sent when a preset should take the current rules
type UpdatePresetRulesMsg struct {
	ID string
}

// DeletePresetMsg is sent when a preset should be deleted
type DeletePresetMsg struct {
	ID string
}

// ClosePresetsDialogMsg is sent when dialog should close
type ClosePresetsDialogMsg struct{}

// PresetsDialog lists saved presets and captures new ones
type PresetsDialog struct {
	Width  int
	Height int
	Theme  theme.Theme

	mode     PresetsMode
	presets  []models.Preset
	selected int
	offset   int

	filter string

	editID           string
	nameInput        string
	descriptionInput string
	currentField     int // 0=name, 1=description
}

// NewPresetsDialog creates a new presets dialog
func NewPresetsDialog(th theme.Theme) *PresetsDialog {
	return &PresetsDialog{
		Width:  70,
		Height: 20,
		Theme:  th,
		mode:   PresetsModeList,
	}
}

// SetPresets updates the preset list, keeping the selection in range
func (pd *PresetsDialog) SetPresets(presets []models.Preset) {
	pd.presets = presets
	if pd.selected >= len(presets) {
		pd.selected = max(len(presets)-1, 0)
	}
	if pd.offset > pd.selected {
		pd.offset = pd.selected
	}
}

// Mode returns the dialog mode
func (pd *PresetsDialog) Mode() PresetsMode {
	return pd.mode
}

// Filter returns the text the list is narrowed by
func (pd *PresetsDialog) Filter() string {
	return strings.TrimSpace(pd.filter)
}

// Selected returns the highlighted preset
func (pd *PresetsDialog) Selected() (models.Preset, bool) {
	if pd.selected < 0 || pd.selected >= len(pd.presets) {
		return models.Preset{}, false
	}
	return pd.presets[pd.selected], true
}

// Update handles keyboard input
func (pd *PresetsDialog) Update(msg tea.KeyMsg) (*PresetsDialog, tea.Cmd) {
	switch pd.mode {
	case PresetsModeAdd, PresetsModeEdit:
		return pd.handleFormMode(msg)
	case PresetsModeFilter:
		return pd.handleFilterMode(msg), nil
	}
	return pd.handleListMode(msg)
}

func (pd *PresetsDialog) visibleRows() int {
	return max(pd.Height-8, 1)
}

func (pd *PresetsDialog) handleListMode(msg tea.KeyMsg) (*PresetsDialog, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		return pd, func() tea.Msg {
			return ClosePresetsDialogMsg{}
		}
	case "up", "k":
		if pd.selected > 0 {
			pd.selected--
			if pd.selected < pd.offset {
				pd.offset = pd.selected
			}
		}
	case "down", "j":
		if pd.selected < len(pd.presets)-1 {
			pd.selected++
			if pd.selected >= pd.offset+pd.visibleRows() {
				pd.offset = pd.selected - pd.visibleRows() + 1
			}
		}
	case "enter":
		if p, ok := pd.Selected(); ok {
			return pd, func() tea.Msg {
				return ApplyPresetMsg{Preset: p}
			}
		}
	case "a", "n":
		pd.openForm(PresetsModeAdd, models.Preset{})
	case "e":
		if p, ok := pd.Selected(); ok {
			pd.openForm(PresetsModeEdit, p)
		}
	case "u":
		if p, ok := pd.Selected(); ok {
			return pd, func() tea.Msg {
				return UpdatePresetRulesMsg{ID: p.ID}
			}
		}
	case "/":
		pd.mode = PresetsModeFilter
	case "d", "x":
		if p, ok := pd.Selected(); ok {
			return pd, func() tea.Msg {
				return DeletePresetMsg{ID: p.ID}
			}
		}
	}
	return pd, nil
}

func (pd *PresetsDialog) openForm(mode PresetsMode, p models.Preset) {
	pd.mode = mode
	pd.editID = p.ID
	pd.nameInput = p.Name
	pd.descriptionInput = p.Description
	pd.currentField = 0
}

func (pd *PresetsDialog) handleFilterMode(msg tea.KeyMsg) *PresetsDialog {
	switch msg.Type {
	case tea.KeyEsc:
		pd.filter = ""
		pd.mode = PresetsModeList
	case tea.KeyEnter:
		pd.mode = PresetsModeList
	case tea.KeyBackspace:
		if r := []rune(pd.filter); len(r) > 0 {
			pd.filter = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		pd.filter += " "
	case tea.KeyRunes:
		pd.filter += string(msg.Runes)
	}
	pd.selected, pd.offset = 0, 0
	return pd
}

func (pd *PresetsDialog) handleFormMode(msg tea.KeyMsg) (*PresetsDialog, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		pd.mode = PresetsModeList
	case tea.KeyTab, tea.KeyShiftTab:
		pd.currentField = 1 - pd.currentField
	case tea.KeyBackspace:
		pd.deleteChar()
	case tea.KeyEnter:
		if pd.currentField == 0 {
			pd.currentField = 1
			return pd, nil
		}
		editing, id := pd.mode == PresetsModeEdit, pd.editID
		pd.mode = PresetsModeList
		name, desc := strings.TrimSpace(pd.nameInput), strings.TrimSpace(pd.descriptionInput)
		if editing {
			return pd, func() tea.Msg {
				return EditPresetMsg{ID: id, Name: name, Description: desc}
			}
		}
		return pd, func() tea.Msg {
			return SavePresetMsg{Name: name, Description: desc}
		}
	case tea.KeySpace:
		pd.addChar(" ")
	case tea.KeyRunes:
		pd.addChar(string(msg.Runes))
	}
	return pd, nil
}

func (pd *PresetsDialog) addChar(ch string) {
	if pd.currentField == 0 {
		pd.nameInput += ch
	} else {
		pd.descriptionInput += ch
	}
}

func (pd *PresetsDialog) deleteChar() {
	field := &pd.nameInput
	if pd.currentField == 1 {
		field = &pd.descriptionInput
	}
	if r := []rune(*field); len(r) > 0 {
		*field = string(r[:len(r)-1])
	}
}

// View renders the dialog
func (pd *PresetsDialog) View() string {
	switch pd.mode {
	case PresetsModeAdd:
		return pd.renderForm("Save Preset")
	case PresetsModeEdit:
		return pd.renderForm("Edit Preset")
	}
	return pd.renderList()
}

func (pd *PresetsDialog) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(pd.Theme.Background).
		Background(pd.Theme.Info).
		Padding(0, 1).
		Bold(true)
}

func (pd *PresetsDialog) container() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(pd.Theme.BorderFocused).
		Width(pd.Width).
		Height(pd.Height).
		Padding(1)
}

func (pd *PresetsDialog) renderList() string {
	var sections []string

	sections = append(sections, pd.titleStyle().Render("Saved Presets"))

	instrStyle := lipgloss.NewStyle().
		Foreground(pd.Theme.Metadata).
		Padding(0, 1)
	sections = append(sections, instrStyle.Render("↑↓: Navigate  Enter: Apply  a: Save current rules  e: Edit  u: Use current rules  /: Filter  d: Delete  Esc: Close"))

	if pd.mode == PresetsModeFilter || pd.filter != "" {
		value := pd.filter
		if pd.mode == PresetsModeFilter {
			value += "_"
		}
		sections = append(sections, lipgloss.NewStyle().Padding(0, 1).Foreground(pd.Theme.Warning).Render("Filter: "+value))
	}

	switch {
	case len(pd.presets) == 0 && pd.filter != "":
		sections = append(sections, "\nNo presets match the filter.")
	case len(pd.presets) == 0:
		sections = append(sections, "\nNo presets yet. Press 'a' to save the current rules.")
	default:
		sections = append(sections, "")
		end := min(pd.offset+pd.visibleRows(), len(pd.presets))

		for i := pd.offset; i < end; i++ {
			p := pd.presets[i]

			line := fmt.Sprintf("%s  (%s, %d rules, used %d×)", truncate(p.Name, 30), strings.ToUpper(string(p.Mode)), len(p.Rules), p.UsageCount)
			if p.Description != "" {
				line += "\n  " + truncate(p.Description, pd.Width-8)
			}

			style := lipgloss.NewStyle().Padding(0, 1)
			if i == pd.selected {
				style = style.Background(pd.Theme.Selection).Foreground(pd.Theme.Foreground)
			}
			sections = append(sections, style.Render(line))
		}
	}

	return pd.container().Render(strings.Join(sections, "\n"))
}

func (pd *PresetsDialog) renderForm(title string) string {
	var sections []string

	sections = append(sections, pd.titleStyle().Render(title))

	instrStyle := lipgloss.NewStyle().
		Foreground(pd.Theme.Metadata).
		Padding(0, 1)
	sections = append(sections, instrStyle.Render("Tab: Next field  Enter: Save  Esc: Cancel"))

	sections = append(sections, "")
	sections = append(sections, pd.renderField("Name:", pd.nameInput, pd.currentField == 0))
	sections = append(sections, pd.renderField("Description:", pd.descriptionInput, pd.currentField == 1))

	return pd.container().Render(strings.Join(sections, "\n"))
}

func (pd *PresetsDialog) renderField(label, value string, active bool) string {
	style := lipgloss.NewStyle().Padding(0, 1)
	if active {
		style = style.Background(pd.Theme.Selection).Foreground(pd.Theme.Foreground)
		value = value + "_"
	}
	return style.Render(fmt.Sprintf("%s %s", label, value))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width < 4 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
