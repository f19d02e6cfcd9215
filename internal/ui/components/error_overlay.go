package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/lazyroster/internal/ui/theme"
)

// ErrorOverlay shows a titled error box over the main view
type ErrorOverlay struct {
	Title   string
	Message string
	Width   int
	Theme   theme.Theme
}

// NewErrorOverlay creates an empty overlay
func NewErrorOverlay(th theme.Theme) *ErrorOverlay {
	return &ErrorOverlay{Width: 60, Theme: th}
}

// SetError sets the title and message to display
func (e *ErrorOverlay) SetError(title, message string) {
	e.Title = title
	e.Message = message
}

// View renders the overlay box
func (e *ErrorOverlay) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(e.Theme.Error)

	msgStyle := lipgloss.NewStyle().
		Foreground(e.Theme.Foreground).
		Width(e.Width - 4)

	hint := lipgloss.NewStyle().Faint(true).Render("Esc/Enter to dismiss")

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(e.Theme.Error).
		Padding(1, 2).
		Width(e.Width)

	return box.Render(titleStyle.Render(e.Title) + "\n\n" + msgStyle.Render(e.Message) + "\n\n" + hint)
}
