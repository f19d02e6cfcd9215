package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/lazyroster/internal/presets"
	"github.com/rebeliceyang/lazyroster/internal/ui/theme"
)

// KeyBinding represents a keyboard shortcut
type KeyBinding struct {
	Key         string
	Description string
}

// Section is a titled group of key bindings
type Section struct {
	Title string
	Keys  []KeyBinding
}

// GetGlobalKeys returns global key bindings
func GetGlobalKeys() []KeyBinding {
	return []KeyBinding{
		{"?", "Toggle help"},
		{"q, Ctrl+C", "Quit application"},
		{"Esc/Enter", "Dismiss error"},
		{"r", "Reload dataset from its source"},
	}
}

// GetRuleKeys returns rule editing key bindings
func GetRuleKeys() []KeyBinding {
	return []KeyBinding{
		{"f", "Add rule (GPA>=3.5, Status~Active, GPA:2.5..3.5)"},
		{"x", "Remove last rule"},
		{"c", "Clear all rules"},
		{"m", "Toggle ALL / ANY"},
		{"o", "Open saved presets"},
	}
}

// GetQuickFilterKeys returns one binding per built-in quick filter
func GetQuickFilterKeys() []KeyBinding {
	var keys []KeyBinding
	for i, qf := range presets.List() {
		keys = append(keys, KeyBinding{fmt.Sprintf("%d", i+1), "Toggle " + qf.Label})
	}
	return keys
}

// GetSearchKeys returns search key bindings
func GetSearchKeys() []KeyBinding {
	return []KeyBinding{
		{"/", "Search (!text negates, Column:text targets a column)"},
		{"Tab", "Cycle search column while searching"},
		{"Ctrl+R", "Clear search"},
	}
}

// GetDataViewKeys returns data view key bindings
func GetDataViewKeys() []KeyBinding {
	return []KeyBinding{
		{"↑/k ↓/j", "Move selection"},
		{"PgUp/PgDn", "Page through rows"},
		{"y", "Copy view to clipboard (TSV)"},
		{"e", "Export view"},
		{"s", "Save snapshot to history"},
	}
}

// Sections returns every help section in display order
func Sections() []Section {
	return []Section{
		{"Global", GetGlobalKeys()},
		{"Rules", GetRuleKeys()},
		{"Quick Filters", GetQuickFilterKeys()},
		{"Search", GetSearchKeys()},
		{"Data View", GetDataViewKeys()},
	}
}

// Render creates the help view
func Render(width, height int, th theme.Theme) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(th.BorderFocused).
		Padding(1, 0)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(th.Info).
		Padding(0, 0, 0, 2)

	keyStyle := lipgloss.NewStyle().
		Foreground(th.Warning).
		Width(20)

	descStyle := lipgloss.NewStyle().
		Foreground(th.Foreground)

	var b strings.Builder

	b.WriteString(titleStyle.Render("lazyroster - Keyboard Shortcuts"))
	b.WriteString("\n\n")

	for _, section := range Sections() {
		b.WriteString(sectionStyle.Render(section.Title))
		b.WriteString("\n")
		for _, kb := range section.Keys {
			b.WriteString("  ")
			b.WriteString(keyStyle.Render(kb.Key))
			b.WriteString(descStyle.Render(kb.Description))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press '?' or Esc to close help"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(th.BorderFocused).
		Padding(1, 2).
		Width(max(width-4, 20)).
		Height(max(height-4, 10))

	return boxStyle.Render(b.String())
}
