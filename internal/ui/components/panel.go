package components

import (
	"github.com/charmbracelet/lipgloss"
)

// Panel represents a bordered UI panel
type Panel struct {
	Title   string
	Content string
	Footer  string
	Width   int
	Height  int
	Style   lipgloss.Style
}

// View renders the panel. Content taller than the panel is cut so the
// border always fits.
func (p *Panel) View() string {
	if p.Width <= 0 || p.Height <= 0 {
		return ""
	}

	style := p.Style.
		Width(p.Width).
		Height(p.Height).
		MaxHeight(p.Height + 2).
		Border(lipgloss.RoundedBorder())

	content := p.Content
	if p.Title != "" {
		titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
		content = titleStyle.Render(p.Title) + "\n" + content
	}
	if p.Footer != "" {
		content += "\n" + lipgloss.NewStyle().Faint(true).Render(p.Footer)
	}

	return style.Render(content)
}
