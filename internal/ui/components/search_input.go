package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/lazyroster/internal/models"
	"github.com/rebeliceyang/lazyroster/internal/search"
	"github.com/rebeliceyang/lazyroster/internal/ui/theme"
)

// SearchInputMsg is sent when search should be executed
type SearchInputMsg struct {
	Query models.SearchQuery
}

// CloseSearchMsg is sent when search should be closed
type CloseSearchMsg struct{}

// SearchInput provides a search input box with a target column selector
type SearchInput struct {
	Input   textinput.Model
	Theme   theme.Theme
	Width   int
	columns []string
	target  int // 0 is all columns, i is columns[i-1]
}

// NewSearchInput creates a new search input
func NewSearchInput(th theme.Theme) *SearchInput {
	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 40

	return &SearchInput{
		Input: ti,
		Theme: th,
	}
}

// Open prepares the input for the given dataset columns and current query
func (s *SearchInput) Open(columns []string, current models.SearchQuery) {
	s.columns = columns
	s.target = 0
	for i, c := range columns {
		if c == current.Column {
			s.target = i + 1
		}
	}
	text := current.Text
	if current.Negate && text != "" {
		text = "!" + text
	}
	s.Input.SetValue(text)
	s.Input.CursorEnd()
	s.Input.Focus()
}

// Target returns the selected column, or "" for all columns
func (s *SearchInput) Target() string {
	if s.target == 0 || s.target > len(s.columns) {
		return ""
	}
	return s.columns[s.target-1]
}

// CycleTarget moves the target to the next column, wrapping to all columns
func (s *SearchInput) CycleTarget(delta int) {
	n := len(s.columns) + 1
	s.target = ((s.target+delta)%n + n) % n
}

// Query parses the input. A "Column:" prefix typed in the box wins over
// the selector.
func (s *SearchInput) Query() models.SearchQuery {
	q := search.Parse(s.Input.Value(), s.columns)
	if q.Column == "" {
		q.Column = s.Target()
	}
	return q
}

// Reset clears the search input
func (s *SearchInput) Reset() {
	s.Input.SetValue("")
	s.target = 0
}

// Update handles messages
func (s *SearchInput) Update(msg tea.Msg) (*SearchInput, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "tab":
			s.CycleTarget(1)
			return s, nil
		case "shift+tab":
			s.CycleTarget(-1)
			return s, nil
		case "enter":
			q := s.Query()
			return s, func() tea.Msg {
				return SearchInputMsg{Query: q}
			}
		case "esc":
			return s, func() tea.Msg {
				return CloseSearchMsg{}
			}
		}
	}

	var cmd tea.Cmd
	s.Input, cmd = s.Input.Update(msg)
	return s, cmd
}

// View renders the search input
func (s *SearchInput) View() string {
	target := "[All columns]"
	color := s.Theme.Success
	if col := s.Target(); col != "" {
		target = "[" + col + "]"
		color = s.Theme.Info
	}

	targetStyle := lipgloss.NewStyle().
		Foreground(color).
		Bold(true)

	inputWidth := s.Width - lipgloss.Width(target) - 8
	if inputWidth < 20 {
		inputWidth = 20
	}
	s.Input.Width = inputWidth

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.Theme.BorderFocused).
		Padding(0, 1).
		Width(s.Width)

	helpStyle := lipgloss.NewStyle().
		Foreground(s.Theme.Metadata).
		Italic(true)

	content := targetStyle.Render(target) + " " + s.Input.View()
	helpText := helpStyle.Render("Tab: column │ !text: negate │ Enter: search │ Esc: close")

	return boxStyle.Render(content + "\n" + helpText)
}
